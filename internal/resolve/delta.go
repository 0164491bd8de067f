package resolve

import "github.com/metcalfc/pagesync/internal/match"

// Direction is the reading direction between two positions.
type Direction int

const (
	// Unknown is reported for partial results.
	Unknown Direction = iota
	Same
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Same:
		return "same"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// DeltaResult is the move between two screenshots.
//
// Direction, Pages and Fragments are only set when both sides matched
// confidently; otherwise Partial is true and they are zero.
type DeltaResult struct {
	First     match.Result
	Second    match.Result
	Direction Direction
	// Pages and Fragments are signed: positive moves forward.
	Pages     int
	Fragments int
	Partial   bool
}

// Confident reports whether the delta can be applied.
func (d DeltaResult) Confident() bool { return !d.Partial }

// PageMagnitude returns the unsigned page distance.
func (d DeltaResult) PageMagnitude() int { return abs(d.Pages) }

// FragmentMagnitude returns the unsigned fragment distance.
func (d DeltaResult) FragmentMagnitude() int { return abs(d.Fragments) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

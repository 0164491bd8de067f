package gateway

import (
	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/match"
	"github.com/metcalfc/pagesync/internal/resolve"
)

// RequestID identifies one submitted request.
type RequestID string

// Tag correlates a completion with its request. Generation is the book
// generation the request was dispatched against.
type Tag struct {
	ID         RequestID
	Generation uint64
}

// Request is a resolution request: PositionMatch or DeltaMatch.
type Request interface {
	isRequest()
}

// PositionMatch asks where the screenshot at ImagePath is in the book.
type PositionMatch struct {
	ImagePath string
}

// DeltaMatch asks how far the reader moved between two screenshots, given
// the position they were last known to be at.
type DeltaMatch struct {
	Image1  string
	Image2  string
	Current corpus.Position
}

func (PositionMatch) isRequest() {}
func (DeltaMatch) isRequest()    {}

// Completion is delivered exactly once per request: PositionMatchCompleted
// or DeltaMatchCompleted.
type Completion interface {
	RequestTag() Tag
	isCompletion()
}

type PositionMatchCompleted struct {
	Tag    Tag
	Result match.Result
}

type DeltaMatchCompleted struct {
	Tag    Tag
	Result resolve.DeltaResult
}

func (c PositionMatchCompleted) RequestTag() Tag { return c.Tag }
func (c DeltaMatchCompleted) RequestTag() Tag    { return c.Tag }

func (PositionMatchCompleted) isCompletion() {}
func (DeltaMatchCompleted) isCompletion()    {}

// failed builds the completion matching req's kind for a request that could
// not run.
func failed(tag Tag, req Request, err error) Completion {
	if _, ok := req.(DeltaMatch); ok {
		return DeltaMatchCompleted{Tag: tag, Result: resolve.DeltaResult{
			First:   match.FailedResult(err),
			Second:  match.FailedResult(err),
			Partial: true,
		}}
	}
	return PositionMatchCompleted{Tag: tag, Result: match.FailedResult(err)}
}

func kind(req Request) string {
	switch req.(type) {
	case PositionMatch:
		return "position"
	case DeltaMatch:
		return "delta"
	default:
		return "unknown"
	}
}

package gateway

import (
	stderrors "errors"
	"sync"
)

// ErrSinkClosed is returned when delivering to a closed sink.
var ErrSinkClosed = stderrors.New("sink closed")

// Sink receives completions. Deliver is called from worker goroutines.
type Sink interface {
	Deliver(Completion) error
}

// SinkFunc adapts a function such as tea.Program.Send to Sink.
type SinkFunc func(Completion)

func (f SinkFunc) Deliver(c Completion) error {
	f(c)
	return nil
}

// ChanSink delivers completions on a channel until closed.
type ChanSink struct {
	ch   chan Completion
	done chan struct{}
	once sync.Once
}

// NewChanSink returns a sink whose channel holds buffer completions.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{
		ch:   make(chan Completion, max(buffer, 0)),
		done: make(chan struct{}),
	}
}

// C returns the channel completions arrive on. It is never closed.
func (s *ChanSink) C() <-chan Completion { return s.ch }

// Deliver blocks until the completion is received or the sink is closed.
func (s *ChanSink) Deliver(c Completion) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	select {
	case s.ch <- c:
		return nil
	case <-s.done:
		return ErrSinkClosed
	}
}

// Close stops delivery. Pending and future deliveries fail with
// ErrSinkClosed.
func (s *ChanSink) Close() {
	s.once.Do(func() { close(s.done) })
}

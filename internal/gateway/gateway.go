// Package gateway runs resolution requests off the caller's goroutine and
// delivers exactly one completion per request.
//
// Each request captures the engine of the open book when it is submitted and
// runs to completion against it, even if a different book is opened in the
// meantime. Completions carry the book generation they were computed for, so
// callers drop stale ones with IsCurrent. Completions arrive in no particular
// order.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/errors"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/match"
	"github.com/metcalfc/pagesync/internal/resolve"
)

// Engine resolves screenshots against one book. *resolve.Resolver implements
// it.
type Engine interface {
	LocateImage(ctx context.Context, path string) match.Result
	DeltaImages(ctx context.Context, path1, path2 string, current corpus.Position) resolve.DeltaResult
}

// Options configures a Gateway.
type Options struct {
	// MaxConcurrent bounds the requests resolving at once. Further requests
	// wait for a slot.
	MaxConcurrent int64
}

// DefaultOptions allows two concurrent resolutions.
func DefaultOptions() Options {
	return Options{MaxConcurrent: 2}
}

type Gateway struct {
	sink Sink
	sem  *semaphore.Weighted
	log  *logging.Logger

	mu         sync.RWMutex
	engine     Engine
	generation uint64

	wg sync.WaitGroup
}

// New returns a gateway with no book open.
func New(sink Sink, opts Options) *Gateway {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultOptions().MaxConcurrent
	}
	return &Gateway{
		sink: sink,
		sem:  semaphore.NewWeighted(opts.MaxConcurrent),
		log:  logging.NewLogger("gateway"),
	}
}

// SetBook replaces the engine (nil closes the book) and returns the new
// generation. Requests already in flight finish against the old engine.
func (g *Gateway) SetBook(e Engine) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engine = e
	g.generation++
	g.log.Info("book changed", "generation", g.generation, "open", e != nil)
	return g.generation
}

// Generation returns the current book generation.
func (g *Gateway) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}

// IsCurrent reports whether a completion with this tag belongs to the book
// that is open now.
func (g *Gateway) IsCurrent(tag Tag) bool {
	return tag.Generation == g.Generation()
}

// Submit dispatches req and returns its tag without blocking.
func (g *Gateway) Submit(req Request) Tag {
	g.mu.RLock()
	e, gen := g.engine, g.generation
	g.mu.RUnlock()

	tag := Tag{ID: RequestID(uuid.NewString()), Generation: gen}
	g.log.Info("request submitted", "request_id", tag.ID, "generation", gen, "kind", kind(req))

	g.wg.Add(1)
	go g.run(tag, e, req)
	return tag
}

// Wait blocks until every submitted request has been delivered or dropped.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

func (g *Gateway) run(tag Tag, e Engine, req Request) {
	defer g.wg.Done()

	ctx := context.Background()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		g.deliver(failed(tag, req, err))
		return
	}
	c := g.execute(ctx, tag, e, req)
	g.sem.Release(1)

	g.deliver(c)
}

func (g *Gateway) execute(ctx context.Context, tag Tag, e Engine, req Request) (c Completion) {
	defer func() {
		if v := recover(); v != nil {
			err := errors.NewResolverPanicError(string(tag.ID), v)
			g.log.Error("resolver panicked", "request_id", tag.ID, "panic", v)
			c = failed(tag, req, err)
		}
	}()

	if e == nil {
		return failed(tag, req, errors.NewNoBookError().WithRequest(string(tag.ID)))
	}
	switch r := req.(type) {
	case PositionMatch:
		return PositionMatchCompleted{Tag: tag, Result: e.LocateImage(ctx, r.ImagePath)}
	case DeltaMatch:
		return DeltaMatchCompleted{Tag: tag, Result: e.DeltaImages(ctx, r.Image1, r.Image2, r.Current)}
	default:
		panic(fmt.Sprintf("unknown request type %T", req))
	}
}

func (g *Gateway) deliver(c Completion) {
	tag := c.RequestTag()
	if err := g.send(c); err != nil {
		derr := errors.NewDeliveryFailedError(string(tag.ID), err)
		g.log.Warn("dropping completion", "request_id", tag.ID, "generation", tag.Generation, "error", derr)
		return
	}
	g.log.Debug("completion delivered", "request_id", tag.ID, "generation", tag.Generation)
}

// send hands c to the sink. A panicking sink is reported as an error.
func (g *Gateway) send(c Completion) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("sink panicked: %v", v)
		}
	}()
	return g.sink.Deliver(c)
}

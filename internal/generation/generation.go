// Package generation runs streaming text generations and reports their
// progress as cumulative snapshots followed by exactly one outcome.
package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/google/uuid"
)

// Emitter publishes the text generated so far.
type Emitter func(text string)

// Generation is the handle of one running request. Progress is closed
// before the outcome becomes observable through Done, Wait or Err.
type Generation struct {
	id string

	progress chan api.ProgressEvent
	seq      int

	done   chan struct{}
	once   sync.Once
	result *api.GenerationResult
	err    error
}

func newGeneration() *Generation {
	return &Generation{
		id:       uuid.NewString(),
		progress: make(chan api.ProgressEvent, 1),
		done:     make(chan struct{}),
	}
}

// Start runs fn in its own goroutine and returns its handle.
// A panic in fn fails the generation.
func Start(ctx context.Context, fn func(ctx context.Context, emit Emitter) (*api.GenerationResult, error)) *Generation {
	g := newGeneration()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.finish(nil, api.ServiceFailure{Cause: panicError{r}})
			}
		}()

		res, err := fn(ctx, g.emit)
		g.finish(res, err)
	}()
	return g
}

func (g *Generation) ID() string {
	return g.id
}

// Progress yields cumulative snapshots. It never blocks the producer:
// a consumer that falls behind only sees the latest snapshot.
func (g *Generation) Progress() <-chan api.ProgressEvent {
	return g.progress
}

func (g *Generation) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the generation terminates or ctx is done.
func (g *Generation) Wait(ctx context.Context) (*api.GenerationResult, error) {
	select {
	case <-g.done:
		return g.result, g.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the failure of a terminated generation. It is nil while the
// generation is running or when it succeeded.
func (g *Generation) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

// emit must only be called by the producer before it returns.
func (g *Generation) emit(text string) {
	select {
	case <-g.done:
		return
	default:
	}

	ev := api.ProgressEvent{Seq: g.seq, Text: text}
	g.seq += 1

	for {
		select {
		case g.progress <- ev:
			return
		default:
		}
		// drop the stale snapshot
		select {
		case <-g.progress:
		default:
		}
	}
}

func (g *Generation) finish(res *api.GenerationResult, err error) {
	g.once.Do(func() {
		if err == nil && res == nil {
			res = &api.GenerationResult{}
		}
		if err != nil {
			res = nil
		}
		g.result = res
		g.err = err

		close(g.progress)
		close(g.done)
	})
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("generation panicked: %v", e.value)
}

// Package client keeps the transcript of a generation session and fills
// assistant entries in as their generations stream in.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/generation"
	"github.com/alan-mat/scholar/internal/session"
	"github.com/google/uuid"
)

var (
	ErrUnknownEntry  = errors.New("no entry with given ID")
	ErrNotRetryable  = errors.New("entry is not failed or canceled")
	ErrNotInProgress = errors.New("entry is not streaming")
)

// Backend starts generations. Both *generation.Service and
// *RemoteBackend implement it.
type Backend interface {
	Generate(ctx context.Context, sess session.Session, req api.GenerationRequest) *generation.Generation
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Status string

const (
	StatusStreaming Status = "streaming"
	StatusFinal     Status = "final"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

type Entry struct {
	ID   string
	Role Role

	Prompt  string
	Request api.GenerationRequest

	Content   string
	Citations []string

	Status  Status
	Err     error
	Attempt int
}

func (e Entry) copy() Entry {
	if e.Citations != nil {
		e.Citations = append([]string(nil), e.Citations...)
	}
	return e
}

// Client is safe for concurrent use.
type Client struct {
	backend Backend
	session session.Session

	mu      sync.Mutex
	entries []*Entry
	index   map[string]*Entry
	runs    map[string]*run

	observers []func(Entry)

	// pending holds snapshots in the order they were taken, guarded by mu.
	// notifyMu serializes their delivery.
	pending  []Entry
	notifyMu sync.Mutex
}

// run is one attempt of an assistant entry.
type run struct {
	ctx      context.Context
	attempt  int
	cancel   context.CancelFunc
	canceled bool
	done     chan struct{}
}

type Option func(*Client)

// WithObserver registers fn to be called with a copy of every entry
// after it changed. Calls are made one at a time in the order the changes
// happened. fn must not call Submit or Retry.
func WithObserver(fn func(Entry)) Option {
	return func(c *Client) {
		c.observers = append(c.observers, fn)
	}
}

func New(backend Backend, sess session.Session, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		session: sess,
		index:   make(map[string]*Entry),
		runs:    make(map[string]*run),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit appends the prompt and an assistant placeholder to the transcript
// and starts generating into the placeholder. It returns the placeholder ID.
func (c *Client) Submit(ctx context.Context, req api.GenerationRequest) string {
	userEntry := &Entry{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Prompt:  req.Prompt,
		Request: req,
		Content: req.Prompt,
		Status:  StatusFinal,
	}
	placeholder := &Entry{
		ID:      uuid.NewString(),
		Role:    RoleAssistant,
		Prompt:  req.Prompt,
		Request: req,
	}

	c.mu.Lock()
	c.append(userEntry)
	c.append(placeholder)
	r := c.startLocked(ctx, placeholder)
	c.pending = append(c.pending, userEntry.copy(), placeholder.copy())
	c.mu.Unlock()

	c.flush()

	c.consume(placeholder.ID, r, req)
	return placeholder.ID
}

// Retry re-issues a failed or canceled entry with req. The entry keeps its
// ID, loses its stale content and counts one more attempt.
func (c *Client) Retry(ctx context.Context, id string, req api.GenerationRequest) error {
	c.mu.Lock()
	e, ok := c.index[id]
	if !ok || e.Role != RoleAssistant {
		c.mu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrUnknownEntry, id)
	}
	if e.Status != StatusFailed && e.Status != StatusCanceled {
		c.mu.Unlock()
		return fmt.Errorf("%w: '%s' is %s", ErrNotRetryable, id, e.Status)
	}

	e.Prompt = req.Prompt
	e.Request = req
	e.Content = ""
	e.Citations = nil
	e.Err = nil
	r := c.startLocked(ctx, e)
	c.pending = append(c.pending, e.copy())
	c.mu.Unlock()

	c.flush()
	c.consume(id, r, req)
	return nil
}

// Cancel stops the generation of a streaming entry. The entry ends up
// canceled with the content received so far.
func (c *Client) Cancel(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownEntry, id)
	}
	r, ok := c.runs[id]
	if !ok || e.Status != StatusStreaming {
		return fmt.Errorf("%w: '%s'", ErrNotInProgress, id)
	}

	r.canceled = true
	r.cancel()
	return nil
}

// Wait blocks until the current attempt of the entry terminates and
// returns the entry.
func (c *Client) Wait(ctx context.Context, id string) (Entry, error) {
	c.mu.Lock()
	e, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return Entry{}, fmt.Errorf("%w: '%s'", ErrUnknownEntry, id)
	}
	r, running := c.runs[id]
	if !running {
		snapshot := e.copy()
		c.mu.Unlock()
		return snapshot, nil
	}
	c.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}

	entry, _ := c.Entry(id)
	return entry, nil
}

func (c *Client) Entry(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[id]
	if !ok {
		return Entry{}, false
	}
	return e.copy(), true
}

// Entries returns the transcript in submission order.
func (c *Client) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.copy())
	}
	return out
}

func (c *Client) append(e *Entry) {
	c.entries = append(c.entries, e)
	c.index[e.ID] = e
}

func (c *Client) startLocked(ctx context.Context, e *Entry) *run {
	e.Attempt += 1
	e.Status = StatusStreaming

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		ctx:     runCtx,
		attempt: e.Attempt,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.runs[e.ID] = r
	return r
}

// consume follows the generation of one attempt. Updates from an attempt
// that was superseded are dropped.
func (c *Client) consume(id string, r *run, req api.GenerationRequest) {
	g := c.backend.Generate(r.ctx, c.session, req)

	go func() {
		defer close(r.done)
		defer r.cancel()

		for ev := range g.Progress() {
			c.update(id, r, func(e *Entry) {
				e.Content = ev.Text
			})
		}

		res, err := g.Wait(context.WithoutCancel(r.ctx))

		c.mu.Lock()
		canceled := r.canceled
		c.mu.Unlock()

		c.update(id, r, func(e *Entry) {
			if err == nil {
				e.Content = res.Text
				e.Citations = res.Citations
				e.Status = StatusFinal
				return
			}

			e.Err = err
			e.Status = StatusFailed
			if canceled && errors.Is(err, context.Canceled) {
				e.Status = StatusCanceled
			}
		})

		c.mu.Lock()
		if c.runs[id] == r {
			delete(c.runs, id)
		}
		c.mu.Unlock()
	}()
}

func (c *Client) update(id string, r *run, fn func(e *Entry)) {
	c.mu.Lock()
	e, ok := c.index[id]
	if !ok || e.Attempt != r.attempt {
		c.mu.Unlock()
		return
	}
	fn(e)
	c.pending = append(c.pending, e.copy())
	c.mu.Unlock()

	c.flush()
}

// flush delivers pending snapshots to the observers. When it returns,
// every snapshot queued before the call was delivered.
func (c *Client) flush() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		c.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			for _, fn := range c.observers {
				fn(e)
			}
		}
	}
}

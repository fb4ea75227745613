package transport

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryTransport keeps streams and traces in process.
type MemoryTransport struct {
	mu     sync.Mutex
	logs   map[string]*memoryLog
	traces map[string]memoryTrace
	block  time.Duration
}

type memoryTrace struct {
	trace   RequestTrace
	expires time.Time
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		logs:   make(map[string]*memoryLog),
		traces: make(map[string]memoryTrace),
		block:  DefaultBlock,
	}
}

func (t *MemoryTransport) WithBlock(d time.Duration) *MemoryTransport {
	t.block = d
	return t
}

func (t *MemoryTransport) GetMessageStream(id string) (MessageStream, error) {
	if len(id) == 0 {
		return nil, ErrInvalidID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, l := range t.logs {
		if now.After(l.expires()) {
			delete(t.logs, k)
		}
	}

	l, ok := t.logs[id]
	if !ok {
		l = newMemoryLog()
		t.logs[id] = l
	}
	return &MemoryStream{id: id, log: l, block: t.block}, nil
}

func (t *MemoryTransport) SetTrace(ctx context.Context, trace *RequestTrace) error {
	if trace == nil || trace.ID == "" {
		return fmt.Errorf("cannot store trace without ID")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.traces[trace.ID] = memoryTrace{trace: *trace, expires: time.Now().Add(TraceExpiry)}
	return nil
}

func (t *MemoryTransport) GetTrace(ctx context.Context, traceId string) (*RequestTrace, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	mt, ok := t.traces[traceId]
	if !ok || time.Now().After(mt.expires) {
		delete(t.traces, traceId)
		return nil, fmt.Errorf("%w: '%s'", ErrTraceNotFound, traceId)
	}
	trace := mt.trace
	return &trace, nil
}

type memoryLog struct {
	mu       sync.Mutex
	msgs     []MessageStreamPayload
	notify   chan struct{}
	lastSend time.Time
}

func newMemoryLog() *memoryLog {
	return &memoryLog{
		notify:   make(chan struct{}),
		lastSend: time.Now(),
	}
}

func (l *memoryLog) expires() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSend.Add(TraceExpiry)
}

func (l *memoryLog) append(p MessageStreamPayload) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.msgs = append(l.msgs, p)
	l.lastSend = time.Now()
	close(l.notify)
	l.notify = make(chan struct{})
}

// at returns the message at i, or a channel closed on the next append.
func (l *memoryLog) at(i int) (*MessageStreamPayload, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < len(l.msgs) {
		p := l.msgs[i]
		return &p, nil
	}
	return nil, l.notify
}

type MemoryStream struct {
	id     string
	log    *memoryLog
	cursor int
	block  time.Duration
}

func (s *MemoryStream) Send(ctx context.Context, payload MessageStreamPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.append(payload)
	return nil
}

func (s *MemoryStream) Recv(ctx context.Context) (*MessageStreamPayload, error) {
	var timeout <-chan time.Time
	if s.block > 0 {
		timer := time.NewTimer(s.block)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		p, notify := s.log.at(s.cursor)
		if p != nil {
			s.cursor += 1
			return p, nil
		}

		select {
		case <-notify:
		case <-timeout:
			return nil, ErrNoMessage
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *MemoryStream) Text(ctx context.Context) (string, error) {
	return readText(ctx, s)
}

func (s *MemoryStream) GetID() string {
	return s.id
}

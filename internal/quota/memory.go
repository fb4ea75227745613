package quota

import (
	"context"
	"sync"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/session"
)

type Memory struct {
	limits Limits

	mu   sync.Mutex
	used map[string]int
}

func NewMemory(limits Limits) *Memory {
	return &Memory{
		limits: limits,
		used:   make(map[string]int),
	}
}

func (m *Memory) Acquire(ctx context.Context, sess session.Session) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sess.QuotaKey()
	usage := Usage{Used: m.used[key], Limit: m.limits.For(sess)}
	if usage.Limit != Unbounded && usage.Used >= usage.Limit {
		return usage, api.ErrQuotaExceeded
	}

	m.used[key] += 1
	usage.Used += 1
	return usage, nil
}

func (m *Memory) Release(ctx context.Context, sess session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sess.QuotaKey()
	if m.used[key] > 0 {
		m.used[key] -= 1
	}
	return nil
}

func (m *Memory) Usage(ctx context.Context, sess session.Session) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Usage{Used: m.used[sess.QuotaKey()], Limit: m.limits.For(sess)}, nil
}

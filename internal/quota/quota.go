// Package quota enforces per-account generation allotments.
package quota

import (
	"context"

	"github.com/alan-mat/scholar/internal/session"
)

// Unbounded is reported as the limit of callers without an allotment.
const Unbounded = -1

type Limiter interface {
	// Acquire consumes one generation from the caller's allotment.
	// It returns api.ErrQuotaExceeded when nothing is left.
	Acquire(ctx context.Context, sess session.Session) (Usage, error)

	// Release gives back one generation, e.g. after a failed run.
	Release(ctx context.Context, sess session.Session) error

	Usage(ctx context.Context, sess session.Session) (Usage, error)
}

type Usage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

func (u Usage) Remaining() int {
	if u.Limit == Unbounded {
		return Unbounded
	}
	return max(u.Limit-u.Used, 0)
}

// Limits maps a plan to the number of generations it allows.
type Limits map[session.Plan]int

func DefaultLimits() Limits {
	return Limits{
		session.PlanFree:    10,
		session.PlanStarter: 500,
		session.PlanPro:     2000,
	}
}

// For returns the allotment of sess. Admins and known plans
// missing from l are unbounded. Unknown plans get the free allotment.
func (l Limits) For(sess session.Session) int {
	if sess.IsAdmin() {
		return Unbounded
	}
	plan := sess.User.Plan
	if !plan.Valid() {
		plan = session.PlanFree
	}
	limit, ok := l[plan]
	if !ok {
		return Unbounded
	}
	return limit
}

type unlimited struct{}

// Unlimited returns a Limiter that never refuses.
func Unlimited() Limiter {
	return unlimited{}
}

func (unlimited) Acquire(context.Context, session.Session) (Usage, error) {
	return Usage{Limit: Unbounded}, nil
}

func (unlimited) Release(context.Context, session.Session) error {
	return nil
}

func (unlimited) Usage(context.Context, session.Session) (Usage, error) {
	return Usage{Limit: Unbounded}, nil
}

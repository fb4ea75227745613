package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/citation"
	"github.com/alan-mat/scholar/internal/quota"
	"github.com/alan-mat/scholar/internal/session"
	"golang.org/x/sync/semaphore"
)

func LoggingMiddleware() Middleware {
	return func(next GenerateFunc) GenerateFunc {
		return func(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error) {
			start := time.Now()
			log := slog.With("user", sess.Caller(), "tool", string(req.Tool))
			log.Debug("generation started", "words", req.Config.Words)

			events := 0
			res, err := next(ctx, sess, req, func(text string) {
				events += 1
				emit(text)
			})

			if err != nil {
				log.Warn("generation failed", "kind", api.Kind(err), "err", err, "events", events, "took", time.Since(start))
				return res, err
			}
			if res == nil {
				res = &api.GenerationResult{}
			}
			log.Info("generation completed",
				"chars", len(res.Text), "citations", len(res.Citations),
				"events", events, "took", time.Since(start))
			return res, nil
		}
	}
}

// ValidationMiddleware rejects blank prompts and unknown plans or roles
// before anything is emitted, and fills the request config with defaults
// before validating it.
func ValidationMiddleware() Middleware {
	return func(next GenerateFunc) GenerateFunc {
		return func(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error) {
			if strings.TrimSpace(req.Prompt) == "" {
				return nil, api.ErrEmptyInput
			}
			if !req.Tool.Valid() {
				return nil, api.InvalidConfigError{Field: "tool", Value: string(req.Tool)}
			}
			if !sess.User.Plan.Valid() {
				return nil, api.InvalidConfigError{Field: "plan", Value: string(sess.User.Plan)}
			}
			if !sess.User.Role.Valid() {
				return nil, api.InvalidConfigError{Field: "role", Value: string(sess.User.Role)}
			}

			req.Config = req.Config.WithDefaults()
			if err := req.Config.Validate(); err != nil {
				return nil, err
			}
			return next(ctx, sess, req, emit)
		}
	}
}

// QuotaMiddleware consumes one generation before the request starts
// and gives it back if the request fails.
func QuotaMiddleware(l quota.Limiter) Middleware {
	return func(next GenerateFunc) GenerateFunc {
		if l == nil {
			return next
		}
		return func(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error) {
			usage, err := l.Acquire(ctx, sess)
			if err != nil {
				if errors.Is(err, api.ErrQuotaExceeded) {
					return nil, err
				}
				return nil, api.ServiceFailure{Cause: err}
			}
			slog.Debug("quota acquired", "user", sess.Caller(), "used", usage.Used, "limit", usage.Limit)

			res, err := next(ctx, sess, req, emit)
			if err != nil {
				if rerr := l.Release(context.WithoutCancel(ctx), sess); rerr != nil {
					slog.Error("failed to release quota", "user", sess.Caller(), "err", rerr)
				}
			}
			return res, err
		}
	}
}

// ConcurrencyMiddleware waits for a slot of sem before running the request.
func ConcurrencyMiddleware(sem *semaphore.Weighted) Middleware {
	return func(next GenerateFunc) GenerateFunc {
		if sem == nil {
			return next
		}
		return func(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error) {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil, api.ServiceFailure{Cause: err}
			}
			defer sem.Release(1)
			return next(ctx, sess, req, emit)
		}
	}
}

// CitationMiddleware attaches citations to successful results of requests
// that ask for them. A failed lookup leaves the result without citations.
func CitationMiddleware(src citation.Source, limit int) Middleware {
	return func(next GenerateFunc) GenerateFunc {
		if src == nil {
			return next
		}
		return func(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error) {
			res, err := next(ctx, sess, req, emit)
			if err != nil || !req.AttachCitations() {
				return res, err
			}
			if res == nil {
				res = &api.GenerationResult{}
			}

			cites, cerr := src.Cite(ctx, req.Prompt, limit)
			if cerr != nil {
				slog.Warn("citation lookup failed", "user", sess.Caller(), "err", cerr)
				return res, nil
			}
			res.Citations = cites
			return res, nil
		}
	}
}

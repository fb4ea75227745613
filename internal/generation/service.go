package generation

import (
	"context"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/citation"
	"github.com/alan-mat/scholar/internal/provider"
	"github.com/alan-mat/scholar/internal/quota"
	"github.com/alan-mat/scholar/internal/session"
	"golang.org/x/sync/semaphore"
)

// GenerateFunc runs one request to completion, publishing snapshots through emit.
type GenerateFunc func(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error)

type Middleware func(GenerateFunc) GenerateFunc

type Service struct {
	generator   provider.Generator
	model       string
	temperature float32
	maxTokens   int

	quota         quota.Limiter
	citations     citation.Source
	citationLimit int

	timeout time.Duration
	sem     *semaphore.Weighted

	middleware []Middleware
	handler    GenerateFunc
}

type Option func(*Service)

func WithQuota(l quota.Limiter) Option {
	return func(s *Service) {
		s.quota = l
	}
}

// WithCitations sets the source consulted for requests that attach
// citations. limit caps the number of citations per result.
func WithCitations(src citation.Source, limit int) Option {
	return func(s *Service) {
		s.citations = src
		s.citationLimit = limit
	}
}

// WithTimeout fails generations that run longer than d. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithMaxConcurrent bounds the number of generations running at once.
// Further requests wait for a free slot. Zero means no bound.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		} else {
			s.sem = nil
		}
	}
}

func WithModel(model string) Option {
	return func(s *Service) {
		s.model = model
	}
}

func WithTemperature(t float32) Option {
	return func(s *Service) {
		s.temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(s *Service) {
		s.maxTokens = n
	}
}

// WithMiddleware wraps the core stage in additional middleware, innermost last.
func WithMiddleware(m ...Middleware) Option {
	return func(s *Service) {
		s.middleware = append(s.middleware, m...)
	}
}

func NewService(gen provider.Generator, opts ...Option) *Service {
	s := &Service{
		generator:     gen,
		temperature:   0.7,
		quota:         quota.Unlimited(),
		citationLimit: citation.DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	chain := []Middleware{
		LoggingMiddleware(),
		ValidationMiddleware(),
		QuotaMiddleware(s.quota),
		ConcurrencyMiddleware(s.sem),
		CitationMiddleware(s.citations, s.citationLimit),
	}
	chain = append(chain, s.middleware...)

	s.handler = Chain(s.core, chain...)
	return s
}

// Chain wraps h so that the first middleware is the outermost.
func Chain(h GenerateFunc, m ...Middleware) GenerateFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// Generate starts a generation for req on behalf of sess.
// The returned handle delivers progress and exactly one outcome.
func (s *Service) Generate(ctx context.Context, sess session.Session, req api.GenerationRequest) *Generation {
	return Start(ctx, func(ctx context.Context, emit Emitter) (*api.GenerationResult, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return s.handler(ctx, sess, req, emit)
	})
}

// Run is the callback form of Generate. onProgress is invoked for each
// snapshot, then onComplete once on success. On failure onComplete is not
// invoked and the failure is returned.
func (s *Service) Run(
	ctx context.Context,
	sess session.Session,
	req api.GenerationRequest,
	onProgress func(api.ProgressEvent),
	onComplete func(*api.GenerationResult),
) error {
	g := s.Generate(ctx, sess, req)
	for ev := range g.Progress() {
		if onProgress != nil {
			onProgress(ev)
		}
	}

	<-g.Done()
	if err := g.Err(); err != nil {
		return err
	}
	if onComplete != nil {
		onComplete(g.result)
	}
	return nil
}

// Usage reports the quota usage of sess.
func (s *Service) Usage(ctx context.Context, sess session.Session) (quota.Usage, error) {
	return s.quota.Usage(ctx, sess)
}

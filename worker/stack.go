package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/scholar/internal/citation"
	"github.com/alan-mat/scholar/internal/config"
	"github.com/alan-mat/scholar/internal/generation"
	"github.com/alan-mat/scholar/internal/provider"
	"github.com/alan-mat/scholar/internal/quota"
	"github.com/alan-mat/scholar/internal/vector"

	_ "github.com/alan-mat/scholar/internal/provider/cohere"
	_ "github.com/alan-mat/scholar/internal/provider/gemini"
	_ "github.com/alan-mat/scholar/internal/provider/mock"
	_ "github.com/alan-mat/scholar/internal/provider/openai"
)

// Stack is a generation service together with the components
// it was built from.
type Stack struct {
	Service   *generation.Service
	Limiter   quota.Limiter
	Citations citation.Source

	closers []io.Closer
}

// Build wires the generation service described by conf. rdb may be nil,
// in which case the redis quota backend falls back to memory.
func Build(ctx context.Context, conf config.Config, rdb *redis.Client) (*Stack, error) {
	st := &Stack{}

	gen, err := provider.New(conf.Generation.Provider, provider.Config{
		Model:       conf.Generation.Model,
		Temperature: conf.Generation.Temperature,
		Interval:    conf.Generation.Mock.Interval,
	})
	if err != nil {
		return nil, err
	}

	st.Limiter = NewLimiter(conf.Quota, rdb)

	src, err := st.newCitationSource(ctx, conf.Citations)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.Citations = src

	opts := []generation.Option{
		generation.WithQuota(st.Limiter),
		generation.WithTemperature(conf.Generation.Temperature),
		generation.WithModel(conf.Generation.Model),
		generation.WithMaxTokens(conf.Generation.MaxTokens),
		generation.WithTimeout(conf.Generation.Timeout),
		generation.WithMaxConcurrent(conf.Generation.MaxConcurrent),
	}
	if src != nil {
		opts = append(opts, generation.WithCitations(src, conf.Citations.Limit))
	}

	st.Service = generation.NewService(gen, opts...)
	slog.Info("generation service ready",
		"provider", conf.Generation.Provider,
		"quota", conf.Quota.Backend,
		"citations", conf.Citations.Source)
	return st, nil
}

func NewLimiter(conf config.QuotaConfig, rdb *redis.Client) quota.Limiter {
	limits := quota.Limits(conf.PlanLimits())

	switch conf.Backend {
	case config.QuotaBackendUnlimited:
		return quota.Unlimited()
	case config.QuotaBackendRedis:
		if rdb != nil {
			return quota.NewRedis(rdb, limits)
		}
		slog.Warn("redis quota backend requested without redis, counting in memory")
		return quota.NewMemory(limits)
	default:
		return quota.NewMemory(limits)
	}
}

func (st *Stack) newCitationSource(ctx context.Context, conf config.CitationsConfig) (citation.Source, error) {
	switch conf.Source {
	case config.CitationSourceNone:
		return nil, nil
	case config.CitationSourceStatic, "":
		return citation.NewStatic(conf.DOIs...), nil
	}

	embedder, err := provider.NewEmbedder(conf.Embedder, provider.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var opts []citation.VectorOption
	if conf.Reranker != "" {
		reranker, err := provider.NewReranker(conf.Reranker, provider.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize reranker: %w", err)
		}
		opts = append(opts, citation.WithReranker(reranker))
	}

	vs := conf.VectorStore
	store, err := vector.NewStore(vs.Type, vs.Host, vs.Port)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, store)

	src, err := citation.NewVectorSource(embedder, store, vs.Collection, opts...)
	if err != nil {
		return nil, err
	}

	if len(conf.References) > 0 {
		if err := src.Index(ctx, conf.References); err != nil {
			return nil, fmt.Errorf("failed to index references: %w", err)
		}
	}
	return src, nil
}

func (st *Stack) Close() error {
	var errs []error
	for _, c := range st.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

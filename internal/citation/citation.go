// Package citation looks up references to attach to generated text.
package citation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/provider"
	"github.com/alan-mat/scholar/internal/vector"
)

const DefaultLimit = 3

var DefaultDOIs = []string{
	"10.1038/s41586-023-00000",
	"10.1145/3411764.3445520",
	"10.1016/j.ai.2024.01.001",
}

var ErrNoEmbedder = errors.New("vector citation source requires an embedder")

// Source returns up to limit citation identifiers for query.
type Source interface {
	Cite(ctx context.Context, query string, limit int) ([]string, error)
}

// Static cites the same identifiers for every query.
type Static struct {
	DOIs []string
}

func NewStatic(dois ...string) *Static {
	if len(dois) == 0 {
		dois = DefaultDOIs
	}
	return &Static{DOIs: dois}
}

func (s *Static) Cite(ctx context.Context, query string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(s.DOIs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	copy(out, s.DOIs[:n])
	return out, nil
}

// VectorSource cites the references closest to the query in a vector store,
// optionally reranking the candidates by title.
type VectorSource struct {
	embedder   provider.Embedder
	reranker   provider.Reranker
	store      vector.Store
	collection string

	// candidates fetched per requested citation before reranking
	oversample int
}

type VectorOption func(*VectorSource)

func WithReranker(r provider.Reranker) VectorOption {
	return func(vs *VectorSource) {
		vs.reranker = r
	}
}

func WithOversample(n int) VectorOption {
	return func(vs *VectorSource) {
		if n > 0 {
			vs.oversample = n
		}
	}
}

func NewVectorSource(embedder provider.Embedder, store vector.Store, collection string, opts ...VectorOption) (*VectorSource, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	vs := &VectorSource{
		embedder:   embedder,
		store:      store,
		collection: collection,
		oversample: 3,
	}
	for _, opt := range opts {
		opt(vs)
	}
	return vs, nil
}

func (vs *VectorSource) Cite(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	embedding, err := vs.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	fetch := limit
	if vs.reranker != nil {
		fetch = limit * vs.oversample
	}

	points, err := vs.store.Query(ctx, vector.NewQueryParams(
		vs.collection,
		embedding,
		vector.WithLimit(uint(fetch)),
		vector.WithPayload(true),
	))
	if err != nil {
		return nil, err
	}

	points = withDOI(points)
	if len(points) == 0 {
		return []string{}, nil
	}

	if vs.reranker != nil {
		points, err = vs.rerank(ctx, query, points, limit)
		if err != nil {
			return nil, err
		}
	}

	dois := make([]string, 0, limit)
	for _, p := range points {
		if len(dois) == limit {
			break
		}
		dois = append(dois, p.Payload[vector.PayloadDOI])
	}
	return dois, nil
}

func (vs *VectorSource) rerank(ctx context.Context, query string, points []*vector.ScoredPoint, limit int) ([]*vector.ScoredPoint, error) {
	titles := make([]string, 0, len(points))
	for _, p := range points {
		title := p.Payload[vector.PayloadTitle]
		if title == "" {
			title = p.Payload[vector.PayloadDOI]
		}
		titles = append(titles, title)
	}

	resp, err := vs.reranker.Rerank(ctx, api.RerankRequest{
		Query:     query,
		Documents: titles,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rerank candidates: %w", err)
	}

	ranked := make([]*vector.ScoredPoint, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		if doc.Index < 0 || doc.Index >= len(points) {
			slog.Warn("reranker returned out of range index", "index", doc.Index)
			continue
		}
		ranked = append(ranked, points[doc.Index])
	}
	return ranked, nil
}

// Index embeds the references by title and stores them in the
// source's collection, creating it if needed.
func (vs *VectorSource) Index(ctx context.Context, refs []api.Reference) error {
	if len(refs) == 0 {
		return nil
	}

	err := vector.EnsureCollection(ctx, vs.store, vector.Collection{
		Name:       vs.collection,
		Dimensions: vs.embedder.GetDimensions(),
	})
	if err != nil {
		return fmt.Errorf("failed to prepare collection '%s': %w", vs.collection, err)
	}

	docs := make([]*api.EmbedDocumentRequest, 0, len(refs))
	for _, ref := range refs {
		docs = append(docs, &api.EmbedDocumentRequest{
			Title:  ref.DOI,
			Chunks: []string{ref.Title},
		})
	}

	embeddings, err := vs.embedder.EmbedDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to embed references: %w", err)
	}

	vectors := make([][]float32, 0, len(embeddings))
	for _, e := range embeddings {
		if len(e.Values) == 0 {
			return fmt.Errorf("no embedding returned for reference '%s'", e.Title)
		}
		vectors = append(vectors, e.Values[0])
	}

	points, err := vector.ReferencePoints(refs, vectors)
	if err != nil {
		return err
	}

	slog.Info("indexing references", "collection", vs.collection, "count", len(points))
	return vs.store.Upsert(ctx, vs.collection, points)
}

func withDOI(points []*vector.ScoredPoint) []*vector.ScoredPoint {
	out := points[:0:0]
	for _, p := range points {
		if p.Payload[vector.PayloadDOI] != "" {
			out = append(out, p)
		}
	}
	return out
}

package citation

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err  error
	docs []*api.EmbedDocumentRequest
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(q))}, nil
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	e.docs = append(e.docs, docs...)
	out := make([]*api.DocumentEmbedding, 0, len(docs))
	for _, d := range docs {
		out = append(out, &api.DocumentEmbedding{
			Title:  d.Title,
			Chunks: d.Chunks,
			Values: [][]float32{{float32(len(d.Chunks[0]))}},
		})
	}
	return out, nil
}

func (e *fakeEmbedder) GetDimensions() uint { return 1 }

type fakeStore struct {
	points      []*vector.ScoredPoint
	upserted    []*vector.Point
	collections map[string]uint
	lastQuery   *vector.QueryParams
}

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := s.collections[name]
	return ok, nil
}

func (s *fakeStore) CreateCollection(ctx context.Context, c vector.Collection) error {
	if s.collections == nil {
		s.collections = map[string]uint{}
	}
	s.collections[c.Name] = c.Dimensions
	return nil
}

func (s *fakeStore) Upsert(ctx context.Context, name string, points []*vector.Point) error {
	s.upserted = append(s.upserted, points...)
	return nil
}

func (s *fakeStore) Query(ctx context.Context, params *vector.QueryParams) ([]*vector.ScoredPoint, error) {
	s.lastQuery = params
	n := min(int(params.Limit()), len(s.points))
	return s.points[:n], nil
}

func (s *fakeStore) Close() error { return nil }

// reverseReranker ranks candidates in reverse order.
type reverseReranker struct{}

func (reverseReranker) Rerank(ctx context.Context, req api.RerankRequest) (*api.RerankResponse, error) {
	docs := make([]*api.ScoredDocument, 0, len(req.Documents))
	for i := len(req.Documents) - 1; i >= 0; i-- {
		docs = append(docs, &api.ScoredDocument{Content: req.Documents[i], Index: i, Score: 1})
	}
	if req.Limit > 0 && len(docs) > req.Limit {
		docs = docs[:req.Limit]
	}
	return &api.RerankResponse{Query: req.Query, Documents: docs}, nil
}

func point(doi, title string) *vector.ScoredPoint {
	return &vector.ScoredPoint{Payload: map[string]string{
		vector.PayloadDOI:   doi,
		vector.PayloadTitle: title,
	}}
}

func TestStaticCite(t *testing.T) {
	s := NewStatic()

	dois, err := s.Cite(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDOIs, dois)

	dois, err = s.Cite(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultDOIs[:2], dois)

	dois[0] = "mutated"
	assert.Equal(t, "10.1038/s41586-023-00000", s.DOIs[0])
}

func TestStaticCiteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic("a").Cite(ctx, "q", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVectorSourceCite(t *testing.T) {
	store := &fakeStore{points: []*vector.ScoredPoint{
		point("doi:a", "A"),
		point("", "no doi"),
		point("doi:b", "B"),
		point("doi:c", "C"),
	}}
	vs, err := NewVectorSource(&fakeEmbedder{}, store, "refs")
	require.NoError(t, err)

	dois, err := vs.Cite(context.Background(), "streams", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"doi:a", "doi:b"}, dois)
	assert.Equal(t, "refs", store.lastQuery.Collection())
	assert.True(t, store.lastQuery.WithPayload())
}

func TestVectorSourceRerank(t *testing.T) {
	store := &fakeStore{points: []*vector.ScoredPoint{
		point("doi:a", "A"),
		point("doi:b", "B"),
		point("doi:c", "C"),
		point("doi:d", "D"),
	}}
	vs, err := NewVectorSource(&fakeEmbedder{}, store, "refs",
		WithReranker(reverseReranker{}), WithOversample(2))
	require.NoError(t, err)

	dois, err := vs.Cite(context.Background(), "streams", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, store.lastQuery.Limit())
	assert.Equal(t, []string{"doi:d", "doi:c"}, dois)
}

func TestVectorSourceEmbedFailure(t *testing.T) {
	boom := errors.New("boom")
	vs, err := NewVectorSource(&fakeEmbedder{err: boom}, &fakeStore{}, "refs")
	require.NoError(t, err)

	_, err = vs.Cite(context.Background(), "q", 1)
	assert.ErrorIs(t, err, boom)
}

func TestVectorSourceIndex(t *testing.T) {
	store := &fakeStore{}
	emb := &fakeEmbedder{}
	vs, err := NewVectorSource(emb, store, "refs")
	require.NoError(t, err)

	refs := []api.Reference{
		{DOI: "doi:a", Title: "Streaming text"},
		{DOI: "doi:b", Title: "Quotas"},
	}
	require.NoError(t, vs.Index(context.Background(), refs))

	assert.Contains(t, store.collections, "refs")
	require.Len(t, store.upserted, 2)
	assert.Equal(t, "doi:a", store.upserted[0].Payload[vector.PayloadDOI])
	assert.Equal(t, "Quotas", emb.docs[1].Chunks[0])
}

func TestNewVectorSourceRequiresEmbedder(t *testing.T) {
	_, err := NewVectorSource(nil, &fakeStore{}, "refs")
	assert.ErrorIs(t, err, ErrNoEmbedder)
}

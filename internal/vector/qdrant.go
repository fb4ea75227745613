package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

const (
	DefaultQdrantHost = "localhost"
	DefaultQdrantPort = 6334
)

// QdrantStore keeps reference embeddings in qdrant collections
// using cosine distance.
type QdrantStore struct {
	client *qdrant.Client
	wait   bool
}

func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	if host == "" {
		host = DefaultQdrantHost
	}
	if port == 0 {
		port = DefaultQdrantPort
	}

	c, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, err
	}
	return &QdrantStore{client: c, wait: true}, nil
}

func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.client.CollectionExists(ctx, name)
}

// CreateCollection creates the collection along with a keyword
// index on the DOI payload.
func (s *QdrantStore) CreateCollection(ctx context.Context, collection Collection) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(collection.Dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection '%s' failed: %w", collection.Name, err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection.Name,
		FieldName:      PayloadDOI,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           &s.wait,
	})
	if err != nil {
		return fmt.Errorf("index '%s' on collection '%s' failed: %w", PayloadDOI, collection.Name, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []*Point) error {
	if len(points) == 0 {
		return nil
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &s.wait,
		Points:         toQdrantPoints(points),
	})
	if err != nil {
		return fmt.Errorf("upsert into collection '%s' failed: %w", collection, err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error) {
	res, err := s.client.Query(ctx, toQueryPoints(params))
	if err != nil {
		return nil, fmt.Errorf("query on collection '%s' failed: %w", params.collection, err)
	}
	return fromScoredPoints(res), nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func toQdrantPoints(points []*Point) []*qdrant.PointStruct {
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		out = append(out, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		})
	}
	return out
}

func toQueryPoints(params *QueryParams) *qdrant.QueryPoints {
	qp := &qdrant.QueryPoints{
		CollectionName: params.collection,
		Query:          qdrant.NewQuery(params.query...),
		WithPayload:    qdrant.NewWithPayload(params.withPayload),
	}

	if params.limit > 0 {
		limit := uint64(params.limit)
		qp.Limit = &limit
	}
	if params.scoreThreshold > 0 {
		threshold := params.scoreThreshold
		qp.ScoreThreshold = &threshold
	}

	if len(params.filters) > 0 {
		must := make([]*qdrant.Condition, 0, len(params.filters))
		for _, f := range params.filters {
			must = append(must, qdrant.NewMatch(f.Key, f.Value))
		}
		qp.Filter = &qdrant.Filter{Must: must}
	}
	return qp
}

// fromScoredPoints keeps only the string payload values.
func fromScoredPoints(res []*qdrant.ScoredPoint) []*ScoredPoint {
	out := make([]*ScoredPoint, 0, len(res))
	for _, sp := range res {
		payload := make(map[string]string, len(sp.Payload))
		for k, v := range sp.Payload {
			if s := v.GetStringValue(); s != "" {
				payload[k] = s
			}
		}
		out = append(out, &ScoredPoint{
			ID:      sp.GetId().GetUuid(),
			Score:   sp.GetScore(),
			Payload: payload,
		})
	}
	return out
}

// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package vector stores embedded references for citation lookup.
package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/google/uuid"
)

var (
	ErrInvalidStoreType      = errors.New("no vector store found for given type")
	ErrFailedStoreInitialize = errors.New("failed to initialise vector store")
)

const (
	StoreTypeQdrant StoreType = iota
)

var storeTypeMap = map[string]StoreType{
	"qdrant": StoreTypeQdrant,
}

type StoreType int

type Store interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, collection Collection) error

	Upsert(ctx context.Context, collectionName string, points []*Point) error

	Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error)

	Close() error
}

// NewStore connects to the vector store of the given type at host:port.
func NewStore(storeName, host string, port int) (Store, error) {
	storeType, ok := storeTypeMap[storeName]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidStoreType, storeName)
	}

	switch storeType {
	case StoreTypeQdrant:
		store, err := NewQdrantStore(host, port)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
		}

		return store, nil
	default:
		return nil, ErrInvalidStoreType
	}
}

// EnsureCollection creates the collection unless it already exists.
func EnsureCollection(ctx context.Context, s Store, collection Collection) error {
	ok, err := s.CollectionExists(ctx, collection.Name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.CreateCollection(ctx, collection)
}

type Collection struct {
	Name       string
	Dimensions uint
}

type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Payload keys of reference points.
const (
	PayloadDOI   = "doi"
	PayloadTitle = "title"
)

// ReferencePoints pairs each reference with its embedding.
// The point ID is derived from the DOI so re-indexing a
// reference overwrites it.
func ReferencePoints(refs []api.Reference, vectors [][]float32) ([]*Point, error) {
	if len(refs) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d references", len(vectors), len(refs))
	}

	points := make([]*Point, 0, len(refs))
	for i, ref := range refs {
		points = append(points, &Point{
			ID:     uuid.NewSHA1(uuid.NameSpaceURL, []byte("doi:"+ref.DOI)).String(),
			Vector: vectors[i],
			Payload: map[string]any{
				PayloadDOI:   ref.DOI,
				PayloadTitle: ref.Title,
			},
		})
	}
	return points, nil
}

type QueryMatch struct {
	Key   string
	Value string
}

type QueryParams struct {
	collection  string
	query       []float32
	withPayload bool
	limit       uint
	filters     []*QueryMatch

	scoreThreshold float32
}

type QueryParamsOption func(*QueryParams)

func NewQueryParams(collection string, query []float32, opts ...QueryParamsOption) *QueryParams {
	qp := &QueryParams{
		collection:  collection,
		query:       query,
		withPayload: false,
		limit:       0,
		filters:     make([]*QueryMatch, 0),
	}

	for _, opt := range opts {
		opt(qp)
	}
	return qp
}

func (qp *QueryParams) Collection() string { return qp.collection }
func (qp *QueryParams) Limit() uint        { return qp.limit }
func (qp *QueryParams) WithPayload() bool  { return qp.withPayload }

func WithPayload(w bool) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.withPayload = w
	}
}

func WithLimit(limit uint) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.limit = limit
	}
}

// WithScoreThreshold drops points scoring below t.
func WithScoreThreshold(t float32) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.scoreThreshold = t
	}
}

func WithFilter(filter *QueryMatch) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.filters = append(qp.filters, filter)
	}
}

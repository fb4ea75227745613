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

// Package provider abstracts the language model backends
// generation runs on.
package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/registry"
)

var (
	ErrInvalidProvider    = errors.New("no provider found for given name")
	ErrUnsupportedFeature = errors.New("provider does not support requested feature")
)

// Generator produces a stream of text deltas for a completion request.
type Generator interface {
	Generate(ctx context.Context, req api.CompletionRequest) (api.CompletionStream, error)
}

type Embedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
	EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error)
	GetDimensions() uint
}

type Reranker interface {
	Rerank(ctx context.Context, req api.RerankRequest) (*api.RerankResponse, error)
}

// Config is handed to a provider factory. Fields a provider
// does not understand are ignored.
type Config struct {
	Model       string
	Temperature float32

	// APIKey overrides the provider's environment variable.
	APIKey string

	// Interval is the delay between emitted chunks of the mock provider.
	Interval time.Duration
}

type Factory func(Config) (Generator, error)

var factories = registry.New[string, Factory]()

// Register makes a provider available under name.
// Provider packages call it from init.
// Registering a name twice panics.
func Register(name string, f Factory) {
	if factories.Exists(name) {
		panic(fmt.Sprintf("provider: Register called twice for provider '%s'", name))
	}
	factories.Register(name, f)
}

func New(name string, cfg Config) (Generator, error) {
	f, ok := factories.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (available: %s)", ErrInvalidProvider, name, strings.Join(Names(), ", "))
	}

	g, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider '%s': %w", name, err)
	}
	return g, nil
}

// NewEmbedder returns the provider registered under name
// if it is able to embed text.
func NewEmbedder(name string, cfg Config) (Embedder, error) {
	g, err := New(name, cfg)
	if err != nil {
		return nil, err
	}

	e, ok := g.(Embedder)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' cannot embed", ErrUnsupportedFeature, name)
	}
	return e, nil
}

func NewReranker(name string, cfg Config) (Reranker, error) {
	g, err := New(name, cfg)
	if err != nil {
		return nil, err
	}

	r, ok := g.(Reranker)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' cannot rerank", ErrUnsupportedFeature, name)
	}
	return r, nil
}

func Names() []string {
	names := factories.List()
	slices.Sort(names)
	return names
}

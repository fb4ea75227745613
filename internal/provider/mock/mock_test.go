package mock_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/provider"
	"github.com/alan-mat/scholar/internal/provider/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(s api.CompletionStream) (string, error) {
	defer s.Close()

	var b strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
}

func TestScript(t *testing.T) {
	p := mock.New(mock.WithInterval(time.Millisecond), mock.WithScript("Hello", " world", " today"))
	s, err := p.Generate(context.Background(), api.CompletionRequest{Prompt: "Write 3 words"})
	require.NoError(t, err)

	text, err := readAll(s)
	require.NoError(t, err)
	assert.Equal(t, "Hello world today", text)
}

func TestComposeMaxWords(t *testing.T) {
	p := mock.New(mock.WithInterval(0), mock.WithMaxWords(25))
	s, err := p.Generate(context.Background(), api.CompletionRequest{Prompt: "the ethics of automation"})
	require.NoError(t, err)

	text, err := readAll(s)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(text), 25)
	assert.True(t, strings.HasPrefix(text, `Regarding "the ethics of automation":`))
}

func TestComposeTruncatesByRune(t *testing.T) {
	p := mock.New(mock.WithInterval(0), mock.WithMaxWords(3))
	s, err := p.Generate(context.Background(), api.CompletionRequest{Prompt: strings.Repeat("学", 100)})
	require.NoError(t, err)

	text, err := readAll(s)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, strings.Repeat("学", 80)+`...":`)
	assert.NotContains(t, text, strings.Repeat("学", 81))
}

func TestFailure(t *testing.T) {
	boom := errors.New("model overloaded")
	p := mock.New(mock.WithInterval(0), mock.WithScript("a", "b", "c"), mock.WithFailure(2, boom))
	s, err := p.Generate(context.Background(), api.CompletionRequest{Prompt: "x"})
	require.NoError(t, err)

	text, err := readAll(s)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "ab", text)
}

func TestCancellation(t *testing.T) {
	p := mock.New(mock.WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	s, err := p.Generate(ctx, api.CompletionRequest{Prompt: "x"})
	require.NoError(t, err)
	defer s.Close()

	cancel()
	_, err = s.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistered(t *testing.T) {
	g, err := provider.New(mock.Name, provider.Config{Interval: time.Millisecond})
	require.NoError(t, err)
	assert.IsType(t, &mock.Provider{}, g)
	assert.Contains(t, provider.Names(), mock.Name)

	_, err = provider.New("nope", provider.Config{})
	assert.ErrorIs(t, err, provider.ErrInvalidProvider)
	assert.ErrorContains(t, err, mock.Name)

	assert.Panics(t, func() {
		provider.Register(mock.Name, func(provider.Config) (provider.Generator, error) { return mock.New(), nil })
	})
}

// Package mock provides a local Generator that streams canned text on
// a timer, for development and tests without a model.
package mock

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/provider"
)

const (
	Name            = "mock"
	DefaultInterval = 50 * time.Millisecond
	defaultMaxWords = 60
	maxTopicRunes   = 80
)

var corpus = []string{
	"Recent scholarship frames the question as a trade-off between efficiency and accountability.",
	"Empirical studies report mixed outcomes, which suggests that context moderates the effect.",
	"A careful reading of the evidence points to three recurring themes.",
	"First, adoption depends on institutional incentives rather than on technology alone.",
	"Second, the benefits are unevenly distributed across groups.",
	"Third, long-term effects remain under-examined in the literature.",
	"Taken together, these findings call for more rigorous longitudinal research.",
}

func init() {
	provider.Register(Name, func(cfg provider.Config) (provider.Generator, error) {
		interval := cfg.Interval
		if interval == 0 {
			interval = DefaultInterval
		}
		return New(WithInterval(interval)), nil
	})
}

type Provider struct {
	interval time.Duration
	script   []string
	maxWords int

	failAfter int
	failErr   error
}

type Option func(*Provider)

// WithInterval sets the delay before each chunk. Zero emits chunks
// without waiting.
func WithInterval(d time.Duration) Option {
	return func(p *Provider) {
		p.interval = d
	}
}

// WithScript makes every generation stream exactly the given deltas.
func WithScript(deltas ...string) Option {
	return func(p *Provider) {
		p.script = deltas
	}
}

func WithMaxWords(n int) Option {
	return func(p *Provider) {
		p.maxWords = n
	}
}

// WithFailure makes the stream fail with err after n chunks were emitted.
func WithFailure(n int, err error) Option {
	return func(p *Provider) {
		p.failAfter = n
		p.failErr = err
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		interval:  DefaultInterval,
		maxWords:  defaultMaxWords,
		failAfter: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Generate(ctx context.Context, req api.CompletionRequest) (api.CompletionStream, error) {
	deltas := p.script
	if len(deltas) == 0 {
		deltas = p.compose(req.Prompt)
	}

	s := &stream{
		ctx:       ctx,
		deltas:    deltas,
		failAfter: p.failAfter,
		failErr:   p.failErr,
		closed:    make(chan struct{}),
	}
	if p.interval > 0 {
		s.ticker = time.NewTicker(p.interval)
	}
	return s, nil
}

// compose splits a canned answer for prompt into word deltas.
func (p *Provider) compose(prompt string) []string {
	topic := strings.Join(strings.Fields(prompt), " ")
	if runes := []rune(topic); len(runes) > maxTopicRunes {
		topic = string(runes[:maxTopicRunes]) + "..."
	}

	words := strings.Fields(fmt.Sprintf("Regarding \"%s\":", topic))
	for i := 0; len(words) < p.maxWords; i++ {
		words = append(words, strings.Fields(corpus[i%len(corpus)])...)
	}
	words = words[:p.maxWords]

	deltas := make([]string, len(words))
	for i, w := range words {
		if i == 0 {
			deltas[i] = w
			continue
		}
		deltas[i] = " " + w
	}
	return deltas
}

type stream struct {
	ctx    context.Context
	ticker *time.Ticker

	deltas []string
	pos    int

	failAfter int
	failErr   error

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *stream) Recv() (string, error) {
	if s.failAfter >= 0 && s.pos >= s.failAfter {
		return "", s.failErr
	}
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}

	// cancellation is checked before every scheduled chunk
	if err := s.ctx.Err(); err != nil {
		return "", err
	}

	if s.ticker != nil {
		select {
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		case <-s.closed:
			return "", io.EOF
		case <-s.ticker.C:
		}
	}

	d := s.deltas[s.pos]
	s.pos += 1
	return d, nil
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.closed)
	})
	return nil
}

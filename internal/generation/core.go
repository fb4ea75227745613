package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/prompt"
	"github.com/alan-mat/scholar/internal/session"
)

// core streams deltas from the generator and emits the accumulated text.
// Chunks that only add whitespace are accumulated without an event.
func (s *Service) core(ctx context.Context, sess session.Session, req api.GenerationRequest, emit Emitter) (*api.GenerationResult, error) {
	cfg := req.Config.WithDefaults()

	creq := api.CompletionRequest{
		Prompt:       buildPrompt(req.Tool, req.Prompt, cfg),
		SystemPrompt: prompt.System(cfg),
		ModelName:    s.model,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
	}

	if err := ctx.Err(); err != nil {
		return nil, api.ServiceFailure{Cause: err}
	}

	stream, err := s.generator.Generate(ctx, creq)
	if err != nil {
		return nil, api.ServiceFailure{Cause: fmt.Errorf("failed to start completion stream: %w", err)}
	}
	defer stream.Close()

	var (
		acc     strings.Builder
		emitted string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, api.ServiceFailure{Cause: err}
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return nil, api.ServiceFailure{Cause: err}
		}

		acc.WriteString(chunk)
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		emitted = acc.String()
		emit(emitted)
	}

	text := acc.String()
	if emitted != "" && text != emitted {
		// the last snapshot always matches the result
		emit(text)
	}

	return &api.GenerationResult{Text: text}, nil
}

func buildPrompt(tool api.Tool, input string, cfg api.GenerationConfig) string {
	var p string
	switch {
	case tool.IsRefine():
		p = prompt.Refine(tool, input, cfg)
	case tool == api.ToolWizard:
		p = prompt.DirectEssay(input, cfg)
	case tool == api.ToolCapstone || tool == api.ToolThesis:
		p = prompt.DirectCapstone(input, cfg)
	default:
		p = prompt.Topic(tool, input, cfg)
	}

	if p == "" {
		return input
	}
	return p
}

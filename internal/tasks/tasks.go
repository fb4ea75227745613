// Package tasks defines the background generation task and the
// dispatchers that hand it to a worker.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/session"
	"github.com/hibiken/asynq"
)

const (
	TypeGenerate = "scholar:generate"

	DefaultQueue = "default"
)

type GeneratePayload struct {
	TraceID string                `json:"trace_id"`
	Session session.Session       `json:"session"`
	Request api.GenerationRequest `json:"request"`
}

// NewGenerateTask builds a task that is never retried. Its task ID is
// the trace ID so a running task can be found again.
func NewGenerateTask(p GeneratePayload, opts ...asynq.Option) (*asynq.Task, error) {
	if p.TraceID == "" {
		return nil, fmt.Errorf("generate task requires a trace ID")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	opts = append([]asynq.Option{asynq.TaskID(p.TraceID), asynq.MaxRetry(0)}, opts...)
	return asynq.NewTask(TypeGenerate, payload, opts...), nil
}

func ParseGeneratePayload(t *asynq.Task) (GeneratePayload, error) {
	var p GeneratePayload
	if t.Type() != TypeGenerate {
		return p, fmt.Errorf("unrecognized task type '%s' (%w)", t.Type(), asynq.SkipRetry)
	}
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("malformed generate payload: %v (%w)", err, asynq.SkipRetry)
	}
	if p.TraceID == "" {
		return p, fmt.Errorf("generate payload without trace ID (%w)", asynq.SkipRetry)
	}
	return p, nil
}

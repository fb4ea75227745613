package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/scholar/internal/generation"
	"github.com/alan-mat/scholar/internal/transport"
	"github.com/hibiken/asynq"
)

type GenerateTaskHandler struct {
	transport transport.Transport
	service   *generation.Service
}

func NewGenerateTaskHandler(transport transport.Transport, service *generation.Service) *GenerateTaskHandler {
	return &GenerateTaskHandler{
		transport: transport,
		service:   service,
	}
}

func (h *GenerateTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := ParseGeneratePayload(t)
	if err != nil {
		slog.Error("rejected task", "type", t.Type(), "err", err)
		return err
	}
	return h.Handle(ctx, p)
}

// Handle runs the generation described by p and publishes every snapshot
// and the outcome on the message stream named after the trace ID.
func (h *GenerateTaskHandler) Handle(ctx context.Context, p GeneratePayload) error {
	id := p.TraceID
	log := slog.With("trace", id, "user", p.Session.Caller())
	log.Info("received generate task", "tool", string(p.Request.Tool))

	ms, err := h.transport.GetMessageStream(id)
	if err != nil {
		log.Error("failed to initialize message stream", "err", err)
		return fmt.Errorf("failed to initialize message stream: %v (%w)", err, asynq.SkipRetry)
	}

	// the outcome is recorded even when ctx was canceled
	bg := context.WithoutCancel(ctx)

	trace := &transport.RequestTrace{
		ID:        id,
		Status:    transport.TraceStatusRunning,
		StartedAt: time.Now().UnixNano(),
		Prompt:    p.Request.Prompt,
		Tool:      string(p.Request.Tool),
		User:      p.Session.Caller(),
	}
	h.setTrace(bg, trace)

	g := h.service.Generate(ctx, p.Session, p.Request)

	msgId := 0
	for ev := range g.Progress() {
		if err := ms.Send(bg, transport.ProgressPayload(ev)); err != nil {
			log.Debug("failed sending snapshot to message stream", "seq", ev.Seq, "err", err)
		}
		msgId = ev.Seq + 1
	}

	res, genErr := g.Wait(bg)
	trace.CompletedAt = time.Now().UnixNano()

	if genErr != nil {
		if err := ms.Send(bg, transport.ErrorPayload(msgId, genErr)); err != nil {
			log.Warn("failed to write ERR message to stream", "err", err)
		}

		trace.Status = transport.TraceStatusFailed
		trace.FailReason = genErr.Error()
		h.setTrace(bg, trace)

		return fmt.Errorf("generation failed: %v (%w)", genErr, asynq.SkipRetry)
	}

	if err := ms.Send(bg, transport.ResultPayload(msgId, res)); err != nil {
		log.Warn("failed to write DONE message to stream", "err", err)
	}

	trace.Status = transport.TraceStatusCompleted
	h.setTrace(bg, trace)
	return nil
}

func (h *GenerateTaskHandler) setTrace(ctx context.Context, trace *transport.RequestTrace) {
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "trace", trace.ID, "err", err)
	}
}

package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/generation"
	"github.com/alan-mat/scholar/internal/provider/mock"
	"github.com/alan-mat/scholar/internal/session"
	"github.com/alan-mat/scholar/internal/tasks"
	"github.com/alan-mat/scholar/internal/transport"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(prompt string) tasks.GeneratePayload {
	return tasks.GeneratePayload{
		TraceID: uuid.NewString(),
		Session: session.New(session.User{ID: "u-1"}),
		Request: api.NewGenerationRequest(prompt),
	}
}

func drain(t *testing.T, tr transport.Transport, id string) []transport.MessageStreamPayload {
	t.Helper()

	ms, err := tr.GetMessageStream(id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out []transport.MessageStreamPayload
	for {
		p, err := ms.Recv(ctx)
		if errors.Is(err, transport.ErrNoMessage) {
			continue
		}
		require.NoError(t, err)
		out = append(out, *p)
		if p.Terminal() {
			return out
		}
	}
}

func TestNewGenerateTask(t *testing.T) {
	p := payload("Write 3 words")
	task, err := tasks.NewGenerateTask(p)
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeGenerate, task.Type())

	parsed, err := tasks.ParseGeneratePayload(task)
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	_, err = tasks.NewGenerateTask(tasks.GeneratePayload{})
	assert.Error(t, err)
}

func TestParseGeneratePayloadRejects(t *testing.T) {
	_, err := tasks.ParseGeneratePayload(asynq.NewTask("scholar:other", nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = tasks.ParseGeneratePayload(asynq.NewTask(tasks.TypeGenerate, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleStreamsGeneration(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(50 * time.Millisecond)
	svc := generation.NewService(mock.New(mock.WithInterval(5*time.Millisecond), mock.WithScript("Hello", " world", " today")))
	h := tasks.NewGenerateTaskHandler(tr, svc)

	p := payload("Write 3 words")
	require.NoError(t, h.Handle(context.Background(), p))

	msgs := drain(t, tr, p.TraceID)
	last := msgs[len(msgs)-1]
	assert.Equal(t, transport.StatusDone, last.Status)
	assert.Equal(t, "Hello world today", last.Content)
	for _, m := range msgs[:len(msgs)-1] {
		assert.Equal(t, transport.StatusOK, m.Status)
	}

	trace, err := tr.GetTrace(context.Background(), p.TraceID)
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusCompleted, trace.Status)
	assert.Equal(t, "u-1", trace.User)
	assert.GreaterOrEqual(t, trace.CompletedAt, trace.StartedAt)
}

func TestHandleReportsFailure(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(50 * time.Millisecond)
	svc := generation.NewService(mock.New(mock.WithInterval(0)))
	h := tasks.NewGenerateTaskHandler(tr, svc)

	p := payload("   ")
	err := h.Handle(context.Background(), p)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	msgs := drain(t, tr, p.TraceID)
	require.Len(t, msgs, 1)
	assert.Equal(t, transport.StatusErr, msgs[0].Status)
	assert.ErrorIs(t, msgs[0].Err(), api.ErrEmptyInput)

	trace, err := tr.GetTrace(context.Background(), p.TraceID)
	require.NoError(t, err)
	assert.Equal(t, transport.TraceStatusFailed, trace.Status)
	assert.NotEmpty(t, trace.FailReason)
}

func TestProcessTask(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(50 * time.Millisecond)
	svc := generation.NewService(mock.New(mock.WithInterval(0), mock.WithScript("done")))
	h := tasks.NewGenerateTaskHandler(tr, svc)

	p := payload("go")
	task, err := tasks.NewGenerateTask(p)
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))

	text, err := mustStream(t, tr, p.TraceID).Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func mustStream(t *testing.T, tr transport.Transport, id string) transport.MessageStream {
	ms, err := tr.GetMessageStream(id)
	require.NoError(t, err)
	return ms
}

func TestLocalDispatcher(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(50 * time.Millisecond)
	svc := generation.NewService(mock.New(mock.WithInterval(time.Millisecond), mock.WithMaxWords(10)))
	d := tasks.NewLocalDispatcher(tasks.NewGenerateTaskHandler(tr, svc))
	defer d.Close()

	p := payload("local")
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, p))
	// the generation outlives the dispatching context
	cancel()

	msgs := drain(t, tr, p.TraceID)
	assert.Equal(t, transport.StatusDone, msgs[len(msgs)-1].Status)
}

func TestLocalDispatcherCancel(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(50 * time.Millisecond)
	svc := generation.NewService(mock.New(mock.WithInterval(20 * time.Millisecond)))
	d := tasks.NewLocalDispatcher(tasks.NewGenerateTaskHandler(tr, svc))
	defer d.Close()

	p := payload("stop me")
	require.NoError(t, d.Dispatch(context.Background(), p))

	// wait for the first snapshot before canceling
	ms := mustStream(t, tr, p.TraceID)
	for {
		first, err := ms.Recv(context.Background())
		if errors.Is(err, transport.ErrNoMessage) {
			continue
		}
		require.NoError(t, err)
		require.Equal(t, transport.StatusOK, first.Status)
		break
	}
	require.NoError(t, d.Cancel(p.TraceID))

	msgs := drain(t, tr, p.TraceID)
	last := msgs[len(msgs)-1]
	assert.Equal(t, transport.StatusErr, last.Status)
	assert.Equal(t, api.KindCanceled, last.ErrKind)

	assert.ErrorIs(t, d.Cancel(uuid.NewString()), tasks.ErrUnknownTask)
}

func TestQueueDispatcher(t *testing.T) {
	opt := asynq.RedisClientOpt{Addr: "localhost:6379", DB: 1}
	rdb := redis.NewClient(&redis.Options{Addr: opt.Addr, DB: opt.DB})
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	d := tasks.NewQueueDispatcher(opt, "scholar-test")
	defer d.Close()

	p := payload("queued")
	require.NoError(t, d.Dispatch(context.Background(), p))

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	info, err := inspector.GetTaskInfo("scholar-test", p.TraceID)
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeGenerate, info.Type)
	assert.Equal(t, 0, info.MaxRetry)

	// nothing processes the queue, so the task is still pending
	require.NoError(t, d.Cancel(p.TraceID))
	_, err = inspector.GetTaskInfo("scholar-test", p.TraceID)
	assert.ErrorIs(t, err, asynq.ErrTaskNotFound)

	assert.ErrorIs(t, d.Cancel(p.TraceID), tasks.ErrUnknownTask)
}

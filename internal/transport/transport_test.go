package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/transport"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func exerciseTransport(t *testing.T, tr transport.Transport) {
	ctx := context.Background()
	id := uuid.NewString()

	writer, err := tr.GetMessageStream(id)
	require.NoError(t, err)
	assert.Equal(t, id, writer.GetID())

	reader, err := tr.GetMessageStream(id)
	require.NoError(t, err)

	// nothing sent yet
	_, err = reader.Recv(ctx)
	assert.ErrorIs(t, err, transport.ErrNoMessage)

	require.NoError(t, writer.Send(ctx, transport.ProgressPayload(api.ProgressEvent{Seq: 0, Text: "Hello"})))
	require.NoError(t, writer.Send(ctx, transport.ProgressPayload(api.ProgressEvent{Seq: 1, Text: "Hello world"})))
	require.NoError(t, writer.Send(ctx, transport.ResultPayload(2, &api.GenerationResult{
		Text:      "Hello world",
		Citations: []string{"10.1/x"},
	})))

	p, err := reader.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, transport.StatusOK, p.Status)
	assert.Equal(t, "Hello", p.Content)
	assert.False(t, p.Terminal())

	text, err := reader.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	// a fresh stream replays from the start
	replay, err := tr.GetMessageStream(id)
	require.NoError(t, err)
	var got []transport.MessageStreamPayload
	for {
		p, err := replay.Recv(ctx)
		require.NoError(t, err)
		got = append(got, *p)
		if p.Terminal() {
			break
		}
	}
	require.Len(t, got, 3)
	assert.Equal(t, transport.StatusDone, got[2].Status)
	assert.Equal(t, []string{"10.1/x"}, got[2].Citations)

	trace := &transport.RequestTrace{
		ID:        id,
		Status:    transport.TraceStatusRunning,
		StartedAt: time.Now().Unix(),
		Prompt:    "Write 3 words",
		User:      "u-1",
	}
	require.NoError(t, tr.SetTrace(ctx, trace))

	trace.Status = transport.TraceStatusCompleted
	trace.CompletedAt = time.Now().Unix()
	require.NoError(t, tr.SetTrace(ctx, trace))

	stored, err := tr.GetTrace(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *trace, *stored)

	_, err = tr.GetTrace(ctx, uuid.NewString())
	assert.ErrorIs(t, err, transport.ErrTraceNotFound)

	_, err = tr.GetMessageStream("")
	assert.ErrorIs(t, err, transport.ErrInvalidID)
}

func TestMemoryTransport(t *testing.T) {
	exerciseTransport(t, transport.NewMemoryTransport().WithBlock(20*time.Millisecond))
}

func TestRedisTransport(t *testing.T) {
	rdb := redisClient(t)
	exerciseTransport(t, transport.NewRedisTransport(rdb).WithBlock(50*time.Millisecond))
}

func TestMemoryStreamWakesReader(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(time.Second)
	reader, err := tr.GetMessageStream("wake")
	require.NoError(t, err)
	writer, err := tr.GetMessageStream("wake")
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		writer.Send(context.Background(), transport.ProgressPayload(api.ProgressEvent{Text: "late"}))
	}()

	p, err := reader.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", p.Content)
}

func TestMemoryStreamHonorsContext(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(0)
	reader, err := tr.GetMessageStream("ctx")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = reader.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTextReturnsStreamFailure(t *testing.T) {
	tr := transport.NewMemoryTransport().WithBlock(20 * time.Millisecond)
	ms, err := tr.GetMessageStream("fail")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ms.Send(ctx, transport.ProgressPayload(api.ProgressEvent{Text: "partial"})))
	require.NoError(t, ms.Send(ctx, transport.ErrorPayload(1, api.ErrQuotaExceeded)))

	text, err := ms.Text(ctx)
	assert.Equal(t, "partial", text)
	assert.True(t, errors.Is(err, api.ErrQuotaExceeded))
}

func TestErrorPayloadKinds(t *testing.T) {
	p := transport.ErrorPayload(0, api.ServiceFailure{Cause: context.Canceled})
	assert.Equal(t, api.KindCanceled, p.ErrKind)
	assert.True(t, p.Terminal())
	assert.ErrorIs(t, p.Err(), context.Canceled)

	p = transport.ProgressPayload(api.ProgressEvent{Text: "x"})
	assert.NoError(t, p.Err())
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	streamKeyPrefix = "scholar:stream:"
	traceKeyPrefix  = "scholar:trace:"
)

type RedisTransport struct {
	rdb   *redis.Client
	block time.Duration
}

func NewRedisTransport(rdb *redis.Client) *RedisTransport {
	return &RedisTransport{
		rdb:   rdb,
		block: DefaultBlock,
	}
}

// WithBlock sets how long stream reads wait for new messages.
func (t *RedisTransport) WithBlock(d time.Duration) *RedisTransport {
	t.block = d
	return t
}

func (t *RedisTransport) GetMessageStream(id string) (MessageStream, error) {
	if len(id) == 0 {
		return nil, ErrInvalidID
	}
	rs := &RedisStream{
		id:          id,
		key:         streamKeyPrefix + id,
		lastRedisID: "0",
		block:       t.block,
		rdb:         t.rdb,
	}
	return rs, nil
}

func (t *RedisTransport) SetTrace(ctx context.Context, trace *RequestTrace) error {
	if trace == nil || trace.ID == "" {
		return fmt.Errorf("cannot store trace without ID")
	}

	key := traceKeyPrefix + trace.ID
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, trace)
		pipe.Expire(ctx, key, TraceExpiry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store trace '%s': %w", trace.ID, err)
	}
	return nil
}

func (t *RedisTransport) GetTrace(ctx context.Context, traceId string) (*RequestTrace, error) {
	res := t.rdb.HGetAll(ctx, traceKeyPrefix+traceId)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace '%s': %w", traceId, err)
	}
	if len(res.Val()) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrTraceNotFound, traceId)
	}

	var trace RequestTrace
	if err := res.Scan(&trace); err != nil {
		return nil, fmt.Errorf("failed to decode trace '%s': %w", traceId, err)
	}
	return &trace, nil
}

type RedisStream struct {
	id          string
	key         string
	lastRedisID string
	block       time.Duration

	rdb *redis.Client
}

func (s RedisStream) Send(ctx context.Context, payload MessageStreamPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.key,
			ID:     "*",
			Values: map[string]any{
				"payload": string(payloadJSON),
			},
		})
		pipe.Expire(ctx, s.key, TraceExpiry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to send to stream '%s': %w", s.id, err)
	}

	slog.Debug("sent message to stream", "stream", s.id, "msg", payload.ID, "status", payload.Status)
	return nil
}

func (s *RedisStream) Recv(ctx context.Context) (*MessageStreamPayload, error) {
	rstreams, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.key, s.lastRedisID},
		Count:   1,
		Block:   s.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoMessage
	}
	if err != nil {
		return nil, err
	}
	if len(rstreams) == 0 || len(rstreams[0].Messages) == 0 {
		return nil, ErrNoMessage
	}

	msg := rstreams[0].Messages[0]
	s.lastRedisID = msg.ID
	payloadJSON, ok := msg.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("failed to read payload from stream message")
	}

	var payload MessageStreamPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to deserialize stream message payload: %w", err)
	}

	return &payload, nil
}

func (s *RedisStream) Text(ctx context.Context) (string, error) {
	return readText(ctx, s)
}

func (s *RedisStream) GetID() string {
	return s.id
}

package client

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/generation"
	"github.com/alan-mat/scholar/internal/quota"
	"github.com/alan-mat/scholar/internal/rpc"
	"github.com/alan-mat/scholar/internal/session"
)

var errNoResult = errors.New("generation stream ended without a result")

// RemoteBackend runs generations on a scholar server.
type RemoteBackend struct {
	client rpc.GenerationServiceClient
	conn   *grpc.ClientConn
}

// Dial connects to the server at target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*RemoteBackend, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}

	b := NewRemoteBackend(conn)
	b.conn = conn
	return b, nil
}

func NewRemoteBackend(cc grpc.ClientConnInterface) *RemoteBackend {
	return &RemoteBackend{
		client: rpc.NewGenerationServiceClient(cc),
	}
}

func (b *RemoteBackend) Generate(ctx context.Context, sess session.Session, req api.GenerationRequest) *generation.Generation {
	return generation.Start(ctx, func(ctx context.Context, emit generation.Emitter) (*api.GenerationResult, error) {
		stream, err := b.client.Generate(ctx, &rpc.GenerateRequest{Session: sess, Request: req})
		if err != nil {
			return nil, rpc.ErrorFromStatus(err)
		}
		return follow(stream, emit)
	})
}

// Attach follows the generation of an earlier request from its start.
func (b *RemoteBackend) Attach(ctx context.Context, traceID string) *generation.Generation {
	return generation.Start(ctx, func(ctx context.Context, emit generation.Emitter) (*api.GenerationResult, error) {
		stream, err := b.client.Attach(ctx, &rpc.AttachRequest{TraceId: traceID})
		if err != nil {
			return nil, rpc.ErrorFromStatus(err)
		}
		return follow(stream, emit)
	})
}

func (b *RemoteBackend) Trace(ctx context.Context, traceID string) (*rpc.TraceResponse, error) {
	return b.client.Trace(ctx, &rpc.TraceRequest{TraceId: traceID})
}

func (b *RemoteBackend) Usage(ctx context.Context, sess session.Session) (quota.Usage, error) {
	resp, err := b.client.Usage(ctx, &rpc.UsageRequest{Session: sess})
	if err != nil {
		return quota.Usage{}, err
	}
	return quota.Usage{Used: resp.Used, Limit: resp.Limit}, nil
}

func (b *RemoteBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

func follow(stream grpc.ServerStreamingClient[rpc.GenerateResponse], emit generation.Emitter) (*api.GenerationResult, error) {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil, api.ServiceFailure{Cause: errNoResult}
		}
		if err != nil {
			return nil, rpc.ErrorFromStatus(err)
		}

		if resp.Status == rpc.StatusDone {
			return &api.GenerationResult{
				Text:      resp.Content,
				Citations: resp.Citations,
			}, nil
		}
		emit(resp.Content)
	}
}

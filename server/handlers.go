package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alan-mat/scholar/internal/rpc"
	"github.com/alan-mat/scholar/internal/tasks"
	"github.com/alan-mat/scholar/internal/transport"
)

func generateResponse(msg *transport.MessageStreamPayload, traceID string) *rpc.GenerateResponse {
	return &rpc.GenerateResponse{
		MsgId:     int32(msg.ID),
		TraceId:   traceID,
		Status:    string(msg.Status),
		Content:   msg.Content,
		Citations: msg.Citations,
	}
}

func (s *Server) Generate(req *rpc.GenerateRequest, stream grpc.ServerStreamingServer[rpc.GenerateResponse]) error {
	ctx := stream.Context()
	slog.Debug("received generate request", "user", req.Session.Caller(), "tool", string(req.Request.Tool))

	traceID := uuid.NewString()
	err := s.dispatcher.Dispatch(ctx, tasks.GeneratePayload{
		TraceID: traceID,
		Session: req.Session,
		Request: req.Request,
	})
	if err != nil {
		slog.Error("failed to dispatch generation", "trace", traceID, "err", err)
		return status.Errorf(codes.Internal, "internal server error")
	}

	if err := stream.SendHeader(metadata.Pairs(rpc.TraceIDHeader, traceID)); err != nil {
		slog.Warn("failed to send header", "trace", traceID, "err", err)
	}

	tstream, err := s.transport.GetMessageStream(traceID)
	if err != nil {
		slog.Error("failed to retrieve stream", "trace", traceID)
		return status.Errorf(codes.Internal, "internal server error")
	}

	terminal, err := handleMessageStream(ctx, s.config, traceID, tstream, stream, generateResponse)
	if !terminal {
		// the caller went away or the relay gave up, stop generating for nobody
		if cerr := s.dispatcher.Cancel(traceID); cerr != nil && !errors.Is(cerr, tasks.ErrUnknownTask) {
			slog.Warn("failed to cancel generation", "trace", traceID, "err", cerr)
		}
	}
	return err
}

// Attach replays the message stream of a trace from the start and
// follows it until it terminates.
func (s *Server) Attach(req *rpc.AttachRequest, stream grpc.ServerStreamingServer[rpc.GenerateResponse]) error {
	trace, err := s.transport.GetTrace(stream.Context(), req.TraceId)
	if err != nil {
		return status.Errorf(codes.NotFound, "trace with given id does not exist")
	}

	tstream, err := s.transport.GetMessageStream(trace.ID)
	if err != nil {
		slog.Error("failed to retrieve stream", "trace", trace.ID)
		return status.Errorf(codes.Internal, "internal server error")
	}

	_, err = handleMessageStream(stream.Context(), s.config, trace.ID, tstream, stream, generateResponse)
	return err
}

func (s *Server) Trace(ctx context.Context, req *rpc.TraceRequest) (*rpc.TraceResponse, error) {
	trace, err := s.transport.GetTrace(ctx, req.TraceId)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "trace with given id does not exist")
	}

	resp := &rpc.TraceResponse{
		TraceId:     trace.ID,
		Status:      trace.Status,
		StartedAt:   trace.StartedAt,
		CompletedAt: trace.CompletedAt,
		Prompt:      trace.Prompt,
		Tool:        trace.Tool,
		User:        trace.User,
		FailReason:  trace.FailReason,
	}
	return resp, nil
}

func (s *Server) Usage(ctx context.Context, req *rpc.UsageRequest) (*rpc.UsageResponse, error) {
	usage, err := s.quota.Usage(ctx, req.Session)
	if err != nil {
		slog.Error("failed to read quota usage", "user", req.Session.Caller(), "err", err)
		return nil, status.Errorf(codes.Internal, "internal server error")
	}

	return &rpc.UsageResponse{
		Used:      usage.Used,
		Limit:     usage.Limit,
		Remaining: usage.Remaining(),
	}, nil
}

// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alan-mat/scholar/internal/rpc"
	"github.com/alan-mat/scholar/internal/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var readRetryDelay = 100 * time.Millisecond

type messageResponseFunc[T any] func(msg *transport.MessageStreamPayload, traceID string) *T

// handleMessageStream relays tstream to stream until a terminal message.
// DONE is relayed and ends the call, ERR ends it with the matching status.
// terminal reports whether the relay saw DONE or ERR; when it did not,
// the generation behind tstream may still be running.
func handleMessageStream[T any](
	ctx context.Context,
	config ServerConfig,
	traceID string,
	tstream transport.MessageStream,
	stream grpc.ServerStreamingServer[T],
	respFunc messageResponseFunc[T],
) (terminal bool, err error) {
	readFails := 0
	lastMsg := time.Now()
	for {
		msg, err := tstream.Recv(ctx)

		if ctx.Err() != nil {
			return false, status.FromContextError(ctx.Err()).Err()
		}

		if errors.Is(err, transport.ErrNoMessage) {
			if config.IdleTimeout > 0 && time.Since(lastMsg) > config.IdleTimeout {
				slog.Error("message stream idle for too long", "trace", traceID, "idle", time.Since(lastMsg))
				return false, status.Errorf(codes.DeadlineExceeded, "no progress within %s", config.IdleTimeout)
			}
			continue
		}

		if err != nil {
			slog.Warn("failed to read from stream", "trace", traceID, "err", err)
			readFails += 1
			if readFails >= config.MaxReadFails {
				slog.Error("exceeded stream read attempts, failed", "trace", traceID)
				return false, status.Errorf(codes.Internal, "internal server error")
			}

			select {
			case <-time.After(readRetryDelay):
			case <-ctx.Done():
				return false, status.FromContextError(ctx.Err()).Err()
			}
			continue
		}
		readFails = 0
		lastMsg = time.Now()

		if msg.Status == transport.StatusErr {
			slog.Debug("message stream failed", "trace", traceID, "kind", msg.ErrKind)
			return true, rpc.StatusFromError(msg.Err())
		}

		resp := respFunc(msg, traceID)
		if err := stream.Send(resp); err != nil {
			return false, err
		}

		if msg.Status == transport.StatusDone {
			slog.Debug("message stream done", "trace", traceID)
			return true, nil
		}
	}
}

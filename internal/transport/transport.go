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

// Package transport carries generation messages from the worker that
// produces them to the server that relays them, and records request traces.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/alan-mat/scholar/internal/api"
)

var (
	TraceExpiry = time.Hour * 24

	// DefaultBlock is how long Recv waits for a message before
	// returning ErrNoMessage.
	DefaultBlock = time.Second
)

var (
	ErrNoMessage     = errors.New("no message received within block timeout")
	ErrTraceNotFound = errors.New("trace not found")
	ErrInvalidID     = errors.New("invalid stream ID")
)

type Transport interface {
	GetMessageStream(id string) (MessageStream, error)
	SetTrace(ctx context.Context, trace *RequestTrace) error
	GetTrace(ctx context.Context, traceId string) (*RequestTrace, error)
}

// MessageStream is an append-only log of payloads. Each stream value reads
// the log from the start with its own cursor.
type MessageStream interface {
	Send(ctx context.Context, payload MessageStreamPayload) error

	// Recv returns the next payload, or ErrNoMessage if none arrived
	// within the block timeout.
	Recv(ctx context.Context) (*MessageStreamPayload, error)

	// Text reads the stream until its terminal payload and returns the
	// final content.
	Text(ctx context.Context) (string, error)

	GetID() string
}

type MessageStreamPayload struct {
	ID     int         `json:"id"`
	Status Status      `json:"status"`
	Type   MessageType `json:"type"`

	Content   string   `json:"content"`
	Citations []string `json:"citations,omitempty"`

	ErrKind api.ErrorKind `json:"err_kind,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Terminal reports whether no payload follows p.
func (p MessageStreamPayload) Terminal() bool {
	return p.Status == StatusDone || p.Status == StatusErr
}

// Err rebuilds the failure carried by an ERR payload.
func (p MessageStreamPayload) Err() error {
	if p.Status != StatusErr {
		return nil
	}
	return api.FromKind(p.ErrKind, p.Error)
}

type Status string

const (
	StatusOK   Status = "OK"
	StatusDone Status = "DONE"
	StatusErr  Status = "ERR"
)

type MessageType int

const (
	MessageTypeOther MessageType = iota
	MessageTypeContent
	MessageTypeResult
	MessageTypeError
)

func ProgressPayload(ev api.ProgressEvent) MessageStreamPayload {
	return MessageStreamPayload{
		ID:      ev.Seq,
		Status:  StatusOK,
		Type:    MessageTypeContent,
		Content: ev.Text,
	}
}

func ResultPayload(id int, res *api.GenerationResult) MessageStreamPayload {
	return MessageStreamPayload{
		ID:        id,
		Status:    StatusDone,
		Type:      MessageTypeResult,
		Content:   res.Text,
		Citations: res.Citations,
	}
}

func ErrorPayload(id int, err error) MessageStreamPayload {
	return MessageStreamPayload{
		ID:      id,
		Status:  StatusErr,
		Type:    MessageTypeError,
		ErrKind: api.Kind(err),
		Error:   err.Error(),
	}
}

type RequestTrace struct {
	ID          string `redis:"id"`
	Status      string `redis:"status"`
	StartedAt   int64  `redis:"started_at"`
	CompletedAt int64  `redis:"completed_at"`
	Prompt      string `redis:"prompt"`
	Tool        string `redis:"tool"`
	User        string `redis:"user"`
	FailReason  string `redis:"fail_reason"`
}

const (
	TraceStatusUnspecified = ""
	TraceStatusRunning     = "running"
	TraceStatusCompleted   = "completed"
	TraceStatusFailed      = "failed"
)

// readText is shared by the MessageStream implementations.
func readText(ctx context.Context, ms MessageStream) (string, error) {
	var content string
	for {
		payload, err := ms.Recv(ctx)
		if errors.Is(err, ErrNoMessage) {
			continue
		}
		if err != nil {
			return content, err
		}

		if payload.Status == StatusErr {
			return content, payload.Err()
		}
		content = payload.Content
		if payload.Terminal() {
			return content, nil
		}
	}
}

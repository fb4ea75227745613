package rpc

import (
	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/session"
)

const (
	StatusOK   = "OK"
	StatusDone = "DONE"
	StatusErr  = "ERR"
)

// TraceIDHeader carries the trace ID of a Generate call in the response header.
const TraceIDHeader = "x-trace-id"

type GenerateRequest struct {
	Session session.Session       `json:"session"`
	Request api.GenerationRequest `json:"request"`
}

// GenerateResponse carries the cumulative content generated so far.
// The last response of a successful call has status DONE and carries
// the citations.
type GenerateResponse struct {
	MsgId     int32    `json:"msg_id"`
	TraceId   string   `json:"trace_id"`
	Status    string   `json:"status"`
	Content   string   `json:"content"`
	Citations []string `json:"citations,omitempty"`
}

type AttachRequest struct {
	TraceId string `json:"trace_id"`
}

type TraceRequest struct {
	TraceId string `json:"trace_id"`
}

type TraceResponse struct {
	TraceId     string `json:"trace_id"`
	Status      string `json:"status"`
	StartedAt   int64  `json:"started_at"`
	CompletedAt int64  `json:"completed_at"`
	Prompt      string `json:"prompt"`
	Tool        string `json:"tool,omitempty"`
	User        string `json:"user"`
	FailReason  string `json:"fail_reason,omitempty"`
}

type UsageRequest struct {
	Session session.Session `json:"session"`
}

type UsageResponse struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

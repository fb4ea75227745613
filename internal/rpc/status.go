package rpc

import (
	"context"
	"errors"

	"github.com/alan-mat/scholar/internal/api"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "scholar"

var kindCodes = map[api.ErrorKind]codes.Code{
	api.KindEmptyInput:     codes.InvalidArgument,
	api.KindInvalidConfig:  codes.InvalidArgument,
	api.KindQuotaExceeded:  codes.ResourceExhausted,
	api.KindCanceled:       codes.Canceled,
	api.KindTimeout:        codes.DeadlineExceeded,
	api.KindServiceFailure: codes.Internal,
}

// StatusFromError converts a generation failure into a gRPC status error.
// The error kind travels as ErrorInfo reason so ErrorFromStatus can
// rebuild it. Service failures are reported without their cause.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}

	kind := api.Kind(err)
	code := kindCodes[kind]

	msg := err.Error()
	if kind == api.KindServiceFailure {
		msg = "internal server error"
	}

	st := status.New(code, msg)
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(kind),
		Domain: errorDomain,
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorFromStatus maps an error returned by a GenerationService call
// back to the api errors.
func ErrorFromStatus(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return api.ServiceFailure{Cause: err}
	}

	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return api.FromKind(api.ErrorKind(info.GetReason()), st.Message())
		}
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return api.InvalidConfigError{Field: "config", Value: st.Message()}
	case codes.ResourceExhausted:
		return api.ErrQuotaExceeded
	case codes.Canceled:
		return api.ServiceFailure{Cause: context.Canceled}
	case codes.DeadlineExceeded:
		return api.ServiceFailure{Cause: context.DeadlineExceeded}
	default:
		return api.ServiceFailure{Cause: errors.New(st.Message())}
	}
}

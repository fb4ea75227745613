package api

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyInput    = errors.New("nothing to generate: prompt is empty")
	ErrQuotaExceeded = errors.New("generation quota exceeded")
)

// ServiceFailure is the catch-all for failures that are not
// caused by the caller's input or allotment.
type ServiceFailure struct {
	Cause error
}

func (e ServiceFailure) Error() string {
	if e.Cause == nil {
		return "generation service failure"
	}
	return fmt.Sprintf("generation service failure: %v", e.Cause)
}

func (e ServiceFailure) Unwrap() error {
	return e.Cause
}

type InvalidConfigError struct {
	Field string
	Value string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid generation config: unsupported %s '%s'", e.Field, e.Value)
}

type ErrorKind string

const (
	KindEmptyInput     ErrorKind = "empty_input"
	KindQuotaExceeded  ErrorKind = "quota_exceeded"
	KindInvalidConfig  ErrorKind = "invalid_config"
	KindCanceled       ErrorKind = "canceled"
	KindTimeout        ErrorKind = "timeout"
	KindServiceFailure ErrorKind = "service_failure"
)

// Kind classifies err. Nil errors have no kind.
func Kind(err error) ErrorKind {
	var cfgErr InvalidConfigError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.As(err, &cfgErr):
		return KindInvalidConfig
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindServiceFailure
	}
}

// FromKind rebuilds an error that classifies as kind,
// e.g. after it crossed a transport as a string.
func FromKind(kind ErrorKind, msg string) error {
	switch kind {
	case KindEmptyInput:
		return ErrEmptyInput
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindInvalidConfig:
		return InvalidConfigError{Field: "config", Value: msg}
	case KindCanceled:
		return ServiceFailure{Cause: context.Canceled}
	case KindTimeout:
		return ServiceFailure{Cause: context.DeadlineExceeded}
	default:
		return ServiceFailure{Cause: errors.New(msg)}
	}
}

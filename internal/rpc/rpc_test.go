package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

func TestStatusRoundTrip(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
		kind api.ErrorKind
	}{
		{api.ErrEmptyInput, codes.InvalidArgument, api.KindEmptyInput},
		{api.InvalidConfigError{Field: "language", Value: "Klingon"}, codes.InvalidArgument, api.KindInvalidConfig},
		{api.ErrQuotaExceeded, codes.ResourceExhausted, api.KindQuotaExceeded},
		{api.ServiceFailure{Cause: context.Canceled}, codes.Canceled, api.KindCanceled},
		{api.ServiceFailure{Cause: context.DeadlineExceeded}, codes.DeadlineExceeded, api.KindTimeout},
		{api.ServiceFailure{Cause: errors.New("provider down")}, codes.Internal, api.KindServiceFailure},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			serr := StatusFromError(tc.err)
			assert.Equal(t, tc.code, status.Code(serr))

			back := ErrorFromStatus(serr)
			assert.Equal(t, tc.kind, api.Kind(back))
		})
	}
}

func TestServiceFailureIsOpaque(t *testing.T) {
	serr := StatusFromError(api.ServiceFailure{Cause: errors.New("secret upstream detail")})
	assert.NotContains(t, status.Convert(serr).Message(), "secret")
}

func TestErrorFromStatusWithoutDetails(t *testing.T) {
	assert.ErrorIs(t, ErrorFromStatus(status.Error(codes.ResourceExhausted, "no")), api.ErrQuotaExceeded)
	assert.ErrorIs(t, ErrorFromStatus(status.Error(codes.Canceled, "gone")), context.Canceled)
	assert.Equal(t, api.KindInvalidConfig, api.Kind(ErrorFromStatus(status.Error(codes.InvalidArgument, "bad"))))
	assert.Equal(t, api.KindServiceFailure, api.Kind(ErrorFromStatus(status.Error(codes.Unavailable, "down"))))
	assert.Equal(t, api.KindServiceFailure, api.Kind(ErrorFromStatus(errors.New("plain"))))
	assert.NoError(t, ErrorFromStatus(nil))
	assert.NoError(t, StatusFromError(nil))
}

func TestJSONCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(ContentSubtype)
	require.NotNil(t, c)

	in := &GenerateResponse{MsgId: 2, TraceId: "t-1", Status: StatusDone, Content: "Hello", Citations: []string{"10.1/x"}}
	data, err := c.Marshal(in)
	require.NoError(t, err)

	var out GenerateResponse
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, *in, out)
}

// Package rpc holds the wire types and service descriptor of the
// scholar.v1.GenerationService gRPC API.
//
// Messages are plain structs encoded as JSON. Clients select the codec
// with grpc.CallContentSubtype(ContentSubtype), which the generated
// client does for every call.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const ContentSubtype = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return ContentSubtype
}

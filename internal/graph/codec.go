package graph

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets Client speak to the graph store's gRPC service without a
// protoc-generated stub: request/response types are plain Go structs and
// the wire format is JSON instead of protobuf. Real deployments behind a
// genuine schema-language store (the store is an external collaborator per
// spec §1) are expected to register their own protobuf codec under the
// "proto" subtype; "json" is the default here because it keeps the adapter
// self-contained.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                      { return codecName }

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

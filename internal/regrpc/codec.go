package regrpc

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this module negotiates. Clients
// opt into it with grpc.CallContentSubtype(codecName); the server picks it
// up automatically because it is registered via encoding.RegisterCodec.
const codecName = "gob"

// gobCodec implements encoding.Codec using encoding/gob instead of
// protobuf wire encoding. This module hand-authors its RPC message types
// and grpc.ServiceDesc rather than running protoc (see proto/registry.proto
// and DESIGN.md), so it needs a codec that does not require generated
// proto.Message implementations.
type gobCodec struct{}

func init() {
	encoding.RegisterCodec(gobCodec{})
}

func (gobCodec) Name() string { return codecName }

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("regrpc: gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("regrpc: gob unmarshal: %w", err)
	}
	return nil
}

// Package rpccodec registers the JSON encoding.Codec shared by the gRPC
// transport server and client (a2asrv/grpc, a2aclient/grpc). Both sides
// import this package for its init() side effect and force CodecName as
// the call content-subtype, so no protoc-generated/protobuf-encoded
// messages are ever required on the wire.
package rpccodec

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is negotiated as the gRPC content-subtype.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

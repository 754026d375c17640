// Package grpc implements the gRPC transport server, grounded on the
// teacher's runtime/a2a/server.go dispatch shape but using a hand-written
// grpc.ServiceDesc instead of protoc-generated stubs: request/response
// messages are the same a2a.* structs used by the other two transports,
// carried over the wire by the JSON encoding.Codec registered in
// a2a/rpccodec.
package grpc

import (
	_ "github.com/a2arelay/a2arelay/a2a/rpccodec"
)

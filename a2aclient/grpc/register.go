package grpc

import (
	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2aclient"
	"github.com/a2arelay/a2arelay/a2aclient/interceptor"
)

// Register adds the GRPC transport producer to r. It lives in this
// separate package (rather than a2aclient.NewDefaultRegistry) so a caller
// that never uses gRPC doesn't pull the grpc/protobuf dependency tree in
// transitively; callers that want it import this package and call:
//
//	r := a2aclient.NewDefaultRegistry()
//	grpctransport.Register(r)
func Register(r *a2aclient.Registry) {
	r.Register(a2aclient.TransportGRPC, producer)
}

func producer(card *a2a.AgentCard, url string, cfg a2aclient.Config, interceptors []interceptor.Interceptor) (a2aclient.Transport, error) {
	return New(url, WithInterceptors(interceptor.Chain(interceptors), card))
}

package a2aclient

import (
	"net/http"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2aclient/interceptor"
	jsonrpctransport "github.com/a2arelay/a2arelay/a2aclient/jsonrpc"
	resttransport "github.com/a2arelay/a2arelay/a2aclient/rest"
	"github.com/a2arelay/a2arelay/httputil"
)

// NewDefaultRegistry returns a Registry with the JSONRPC and HTTP+JSON
// (REST) transport producers registered. gRPC is registered separately by
// callers that import a2aclient/grpc, since it pulls in the grpc/protobuf
// dependency tree that not every caller needs.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TransportJSONRPC, jsonrpcProducer)
	r.Register(TransportREST, restProducer)
	return r
}

// httpClientFor builds the http.Client shared by both HTTP-based transport
// producers: the interceptor chain is wired in as a RoundTripper so every
// outbound request, regardless of which transport built it, carries the
// same auth/extension headers. The base client comes from httputil's
// shared timeout defaults rather than a bare &http.Client{}.
func httpClientFor(card *a2a.AgentCard, interceptors []interceptor.Interceptor) *http.Client {
	c := httputil.NewHTTPClient(httputil.DefaultToolTimeout)
	c.Transport = &interceptor.RoundTripper{
		Chain: interceptor.Chain(interceptors),
		Card:  card,
	}
	return c
}

func jsonrpcProducer(card *a2a.AgentCard, url string, cfg Config, interceptors []interceptor.Interceptor) (Transport, error) {
	opts := []jsonrpctransport.Option{jsonrpctransport.WithHTTPClient(httpClientFor(card, interceptors))}
	if len(cfg.Extensions) > 0 {
		opts = append(opts, jsonrpctransport.WithExtensions(cfg.Extensions...))
	}
	return jsonrpctransport.New(url, opts...), nil
}

func restProducer(card *a2a.AgentCard, url string, cfg Config, interceptors []interceptor.Interceptor) (Transport, error) {
	opts := []resttransport.Option{resttransport.WithHTTPClient(httpClientFor(card, interceptors))}
	if len(cfg.Extensions) > 0 {
		opts = append(opts, resttransport.WithExtensions(cfg.Extensions...))
	}
	return resttransport.New(url, opts...), nil
}

package interceptor

import (
	"net/http"

	"github.com/a2arelay/a2arelay/a2a"
)

// RoundTripper applies a Chain to every outbound HTTP request by running
// Intercept with a nil payload (HTTP transports carry the payload in the
// request body, already built by the time RoundTrip runs) and copying the
// resulting TransportOptions.Headers onto the request. This is how the
// interceptor chain reaches the wire for the JSON-RPC and REST transports,
// both of which are plain net/http clients.
type RoundTripper struct {
	Chain   Chain
	Card    *a2a.AgentCard
	CallCtx func(*http.Request) CallContext
	Base    http.RoundTripper
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	callCtx := CallContext{}
	if rt.CallCtx != nil {
		callCtx = rt.CallCtx(req)
	}
	_, opts, err := rt.Chain.Apply(req.Method+" "+req.URL.Path, nil, TransportOptions{}, rt.Card, callCtx)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	base := rt.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Package interceptor implements the middleware chain applied to every
// outbound call: an ordered list of pure transformations applied to every
// outbound request before it is sent, plus the authentication interceptor
// that consults an AgentCard's security schemes.
package interceptor

import (
	"context"

	"github.com/a2arelay/a2arelay/a2a"
)

// CallContext carries caller-scoped information an interceptor may need,
// notably the session id used to key credential lookups.
type CallContext struct {
	SessionID string
	Extra     map[string]any
}

// TransportOptions carries per-request transport knobs — timeouts are
// per-request options carried on transport_options.timeout — plus headers
// an interceptor may add.
type TransportOptions struct {
	Headers map[string]string
	TimeoutMs int64
}

// Interceptor transforms an outbound request before it is sent. It must
// be a pure transformation: no indefinite blocking, no retained references
// to mutable state across calls.
type Interceptor interface {
	Intercept(methodName string, payload any, opts TransportOptions, card *a2a.AgentCard, callCtx CallContext) (any, TransportOptions, error)
}

// Chain applies a sequence of Interceptors in order.
type Chain []Interceptor

// Apply runs every interceptor in order, threading the (payload, opts)
// pair through each.
func (c Chain) Apply(methodName string, payload any, opts TransportOptions, card *a2a.AgentCard, callCtx CallContext) (any, TransportOptions, error) {
	for _, ic := range c {
		var err error
		payload, opts, err = ic.Intercept(methodName, payload, opts, card, callCtx)
		if err != nil {
			return nil, TransportOptions{}, err
		}
	}
	return payload, opts, nil
}

// CredentialService resolves a bearer token (or other credential material)
// for a given (session, scheme) pair, keyed by
// (call_context.session_id, scheme_name). Implementations:
// interceptor/oauth2.go, interceptor/aws.go, interceptor/azure.go.
type CredentialService interface {
	Credential(ctx context.Context, sessionID, schemeName string) (token string, ok bool)
}

// AuthInterceptor attaches credentials per the card's security[] /
// securitySchemes{}. Missing credentials are skipped silently; a
// downstream 401 is how the caller learns.
type AuthInterceptor struct {
	Credentials CredentialService
}

func (a *AuthInterceptor) Intercept(_ string, payload any, opts TransportOptions, card *a2a.AgentCard, callCtx CallContext) (any, TransportOptions, error) {
	if card == nil || a.Credentials == nil {
		return payload, opts, nil
	}
	if opts.Headers == nil {
		opts.Headers = make(map[string]string)
	}

	for _, requirement := range card.Security {
		for schemeName := range requirement {
			scheme, ok := card.SecuritySchemes[schemeName]
			if !ok {
				continue
			}
			token, ok := a.Credentials.Credential(context.Background(), callCtx.SessionID, schemeName)
			if !ok || token == "" {
				continue
			}
			switch scheme.Type {
			case "http", "oauth2", "openIdConnect":
				opts.Headers["Authorization"] = "Bearer " + token
			case "apiKey":
				switch scheme.In {
				case "header":
					opts.Headers[scheme.Name] = token
				case "query", "cookie":
					// Left to the transport: it reads opts.Headers for a
					// synthetic marker and relocates it when building the
					// request, since query/cookie placement is transport-
					// specific plumbing, not a header.
					opts.Headers["x-a2a-credential-"+scheme.In+"-"+scheme.Name] = token
				}
			}
		}
	}
	return payload, opts, nil
}

// ExtensionHeaderInterceptor sets the X-A2A-Extensions header from a
// static list configured at client construction.
type ExtensionHeaderInterceptor struct {
	Extensions []string
}

func (e *ExtensionHeaderInterceptor) Intercept(_ string, payload any, opts TransportOptions, _ *a2a.AgentCard, _ CallContext) (any, TransportOptions, error) {
	if len(e.Extensions) == 0 {
		return payload, opts, nil
	}
	if opts.Headers == nil {
		opts.Headers = make(map[string]string)
	}
	joined := ""
	for i, uri := range e.Extensions {
		if i > 0 {
			joined += ","
		}
		joined += uri
	}
	opts.Headers["X-A2A-Extensions"] = joined
	return payload, opts, nil
}

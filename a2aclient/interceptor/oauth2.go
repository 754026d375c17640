package interceptor

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/a2arelay/a2arelay/logger"
)

// OAuth2Credentials backs CredentialService with an OAuth2 client-
// credentials token source per scheme name. It is a thin wiring of
// golang.org/x/oauth2's client-credentials flow, which the caller
// configures per scheme.
type OAuth2Credentials struct {
	mu      sync.Mutex
	sources map[string]oauth2.TokenSource // scheme name -> source
}

// NewOAuth2Credentials returns an empty backend; register schemes with
// RegisterScheme.
func NewOAuth2Credentials() *OAuth2Credentials {
	return &OAuth2Credentials{sources: make(map[string]oauth2.TokenSource)}
}

// RegisterScheme binds a scheme name (matching AgentCard.SecuritySchemes
// keys) to a client-credentials configuration.
func (o *OAuth2Credentials) RegisterScheme(ctx context.Context, schemeName string, cfg clientcredentials.Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources[schemeName] = cfg.TokenSource(ctx)
}

func (o *OAuth2Credentials) Credential(_ context.Context, _ string, schemeName string) (string, bool) {
	o.mu.Lock()
	src, ok := o.sources[schemeName]
	o.mu.Unlock()
	if !ok {
		return "", false
	}
	tok, err := src.Token()
	if err != nil {
		logger.Warn("oauth2 credential service: token fetch failed", "scheme", schemeName, "err", err)
		return "", false
	}
	return tok.AccessToken, true
}

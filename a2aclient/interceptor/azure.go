package interceptor

import (
	"context"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/a2arelay/a2arelay/logger"
)

// AzureCredentials backs CredentialService with an Azure AD token,
// acquired via azidentity, for agents fronted by Azure AD-protected
// endpoints.
type AzureCredentials struct {
	mu     sync.Mutex
	cred   *azidentity.DefaultAzureCredential
	scheme string
	scopes []string
}

// NewAzureCredentials wraps azidentity.NewDefaultAzureCredential for the
// given scheme name and OAuth2 scopes.
func NewAzureCredentials(scheme string, scopes []string) (*AzureCredentials, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return &AzureCredentials{cred: cred, scheme: scheme, scopes: scopes}, nil
}

func (a *AzureCredentials) Credential(ctx context.Context, _ string, schemeName string) (string, bool) {
	if schemeName != a.scheme {
		return "", false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	tok, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: a.scopes})
	if err != nil {
		logger.Warn("azure credential service: token fetch failed", "scheme", schemeName, "err", err)
		return "", false
	}
	return tok.Token, true
}

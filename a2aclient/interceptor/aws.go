package interceptor

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/a2arelay/a2arelay/logger"
)

// AWSCredentials backs CredentialService for agents fronted by an
// AWS-hosted peer that accepts the caller's resolved AWS credentials
// (access key) as a bearer token, e.g. via API Gateway IAM auth fronted by
// a token-exchange proxy. It wraps aws.CredentialsProvider so any of the
// SDK's standard providers (static, shared config, SSO, web identity) can
// back it.
type AWSCredentials struct {
	mu       sync.Mutex
	provider aws.CredentialsProvider
	scheme   string
}

// NewAWSCredentials wraps a CredentialsProvider (e.g.
// credentials.NewStaticCredentialsProvider or one produced by
// config.LoadDefaultConfig) for the given scheme name.
func NewAWSCredentials(scheme string, provider aws.CredentialsProvider) *AWSCredentials {
	return &AWSCredentials{provider: provider, scheme: scheme}
}

// NewAWSStaticCredentials is a convenience constructor over
// credentials.NewStaticCredentialsProvider for tests and simple
// deployments that pin an access key rather than assuming a role.
func NewAWSStaticCredentials(scheme, accessKeyID, secretAccessKey, sessionToken string) *AWSCredentials {
	return NewAWSCredentials(scheme, credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken))
}

func (a *AWSCredentials) Credential(ctx context.Context, _ string, schemeName string) (string, bool) {
	if schemeName != a.scheme {
		return "", false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	creds, err := a.provider.Retrieve(ctx)
	if err != nil {
		logger.Warn("aws credential service: retrieve failed", "scheme", schemeName, "err", err)
		return "", false
	}
	if creds.SessionToken != "" {
		return creds.SessionToken, true
	}
	return creds.AccessKeyID + ":" + creds.SecretAccessKey, true
}

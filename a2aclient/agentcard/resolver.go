// Package agentcard implements CardResolver: fetching and verifying an
// AgentCard from its well-known path, grounded on the teacher's client.go
// Discover method.
package agentcard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver/v3"

	"github.com/a2arelay/a2arelay/a2a"
)

// WellKnownPath is the default agent-card path.
const WellKnownPath = "/.well-known/agent-card.json"

// Verifier is a caller-supplied pure function invoked after each card
// fetch.
type Verifier func(card *a2a.AgentCard) error

// Resolver fetches and caches an AgentCard.
type Resolver struct {
	httpClient *http.Client
	path       string
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithPath overrides the default well-known path.
func WithPath(path string) Option {
	return func(r *Resolver) { r.path = path }
}

// New returns a Resolver with sane defaults.
func New(opts ...Option) *Resolver {
	r := &Resolver{httpClient: http.DefaultClient, path: WellKnownPath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get fetches `<url><path>`, parses the body into an AgentCard, and invokes
// verifier if non-nil.
func (r *Resolver) Get(ctx context.Context, url string, verifier Verifier) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+r.path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, a2a.NewHTTPError(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a2a.NewHTTPError(resp.StatusCode, fmt.Sprintf("agent card fetch failed with status %d", resp.StatusCode))
	}

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, a2a.NewJSONError("decoding agent card", err)
	}

	if verifier != nil {
		if err := verifier(&card); err != nil {
			return nil, err
		}
	}
	return &card, nil
}

// CheckProtocolCompatibility gates a client's own supported protocol
// version range against the card's declared protocolVersion, using
// Masterminds/semver for the constraint check. An empty card version or
// constraint is treated as compatible (best-effort interop with older
// cards that predate protocolVersion).
func CheckProtocolCompatibility(cardVersion, constraint string) error {
	if cardVersion == "" || constraint == "" {
		return nil
	}
	v, err := semver.NewVersion(cardVersion)
	if err != nil {
		return a2a.NewJSONError("parsing agent card protocolVersion", err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return a2a.NewInvalidArgsError("invalid protocol version constraint: " + err.Error())
	}
	if !c.Check(v) {
		return a2a.NewCapabilityUnsupportedError(fmt.Sprintf("agent card protocolVersion %s does not satisfy %s", cardVersion, constraint))
	}
	return nil
}

// Package a2aclient implements the client-side facade: a transport
// factory that picks a wire encoding from an AgentCard, plus the Client
// type that exposes the uniform operation set over whichever transport
// was selected.
package a2aclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2aclient/agentcard"
	"github.com/a2arelay/a2arelay/a2aclient/interceptor"
)

// Transport label constants.
const (
	TransportJSONRPC = "JSONRPC"
	TransportREST    = "HTTP+JSON"
	TransportGRPC    = "GRPC"
)

// Transport is the uniform operation set every wire encoding implements.
// Transport packages (a2aclient/jsonrpc, .../rest, .../grpc) each provide a
// compatible adapter.
type Transport interface {
	SendMessage(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, *a2a.Message, error)
	SendMessageStream(ctx context.Context, params a2a.MessageSendParams) (<-chan a2a.Event, <-chan error, error)
	GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error)
	CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error)
	SetTaskCallback(ctx context.Context, cfg a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)
	GetTaskCallback(ctx context.Context, params a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error)
	Resubscribe(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.Event, <-chan error, error)
	GetCard(ctx context.Context) (*a2a.AgentCard, error)
}

// TransportProducer constructs a concrete Transport for one selected
// protocol label.
type TransportProducer func(card *a2a.AgentCard, url string, cfg Config, interceptors []interceptor.Interceptor) (Transport, error)

// Registry is the transport-producer registry, its lifecycle tied to the
// factory instance that owns it rather than to the process.
type Registry struct {
	mu        sync.RWMutex
	producers map[string]TransportProducer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{producers: make(map[string]TransportProducer)}
}

// Register adds or replaces the producer for label.
func (r *Registry) Register(label string, producer TransportProducer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[label] = producer
}

func (r *Registry) get(label string) (TransportProducer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.producers[label]
	return p, ok
}

// Config configures transport selection and client behavior.
type Config struct {
	SupportedTransports  []string // default [JSONRPC]
	UseClientPreference  bool
	Streaming            bool
	Polling              bool
	Extensions           []string
	CardPath             string
	Verifier             agentcard.Verifier
}

// Factory selects and builds a Transport for a given AgentCard.
type Factory struct {
	registry *Registry
	resolver *agentcard.Resolver
}

// NewFactory returns a Factory bound to its own Registry and CardResolver.
func NewFactory(registry *Registry, resolver *agentcard.Resolver) *Factory {
	return &Factory{registry: registry, resolver: resolver}
}

// serverSet builds {preferred_transport: url} ∪ {iface.transport: iface.url}
// from the card.
func serverSet(card *a2a.AgentCard) map[string]string {
	set := map[string]string{card.PreferredTransport: card.URL}
	for _, iface := range card.AdditionalInterfaces {
		set[iface.Transport] = iface.URL
	}
	return set
}

// SelectTransport intersects the client's supported transports with the
// card's advertised ones and returns the chosen (protocol, url).
func SelectTransport(card *a2a.AgentCard, cfg Config) (protocol, url string, err error) {
	clientSet := cfg.SupportedTransports
	if len(clientSet) == 0 {
		clientSet = []string{TransportJSONRPC}
	}
	servers := serverSet(card)

	if cfg.UseClientPreference {
		for _, c := range clientSet {
			if u, ok := servers[c]; ok {
				return c, u, nil
			}
		}
	} else {
		// Iterate server set "in card order": preferred transport first,
		// then additional interfaces in declaration order.
		ordered := append([]string{card.PreferredTransport}, ifaceTransports(card)...)
		for _, s := range ordered {
			u, ok := servers[s]
			if !ok {
				continue
			}
			for _, c := range clientSet {
				if c == s {
					return s, u, nil
				}
			}
		}
	}
	return "", "", a2a.NewInvalidArgsError("no compatible transports found")
}

func ifaceTransports(card *a2a.AgentCard) []string {
	out := make([]string, 0, len(card.AdditionalInterfaces))
	for _, iface := range card.AdditionalInterfaces {
		out = append(out, iface.Transport)
	}
	return out
}

// Build resolves a transport from an already-known AgentCard.
func (f *Factory) Build(card *a2a.AgentCard, cfg Config, interceptors []interceptor.Interceptor) (Transport, error) {
	protocol, url, err := SelectTransport(card, cfg)
	if err != nil {
		return nil, err
	}
	producer, ok := f.registry.get(protocol)
	if !ok {
		return nil, a2a.NewCapabilityUnsupportedError(fmt.Sprintf("no transport producer registered for %q", protocol))
	}
	return producer(card, url, cfg, interceptors)
}

// BuildFromURL resolves the card at url first, then builds a transport for
// it, handling the authenticated-extended-card upgrade.
func (f *Factory) BuildFromURL(ctx context.Context, url string, cfg Config, interceptors []interceptor.Interceptor) (Transport, *a2a.AgentCard, error) {
	card, err := f.resolver.Get(ctx, url, cfg.Verifier)
	if err != nil {
		return nil, nil, err
	}
	transport, err := f.Build(card, cfg, interceptors)
	if err != nil {
		return nil, nil, err
	}
	if card.SupportsAuthenticatedExtendedCard {
		extended, err := transport.GetCard(ctx)
		if err == nil && extended != nil {
			if cfg.Verifier != nil {
				if verr := cfg.Verifier(extended); verr != nil {
					return transport, card, nil
				}
			}
			card = extended
		}
	}
	return transport, card, nil
}

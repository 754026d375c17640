package grpc

import (
	"context"

	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2aclient/interceptor"
)

// unaryChainInterceptor runs the interceptor chain before each unary call
// and carries opts.Headers as outgoing gRPC metadata, the gRPC counterpart
// of interceptor.RoundTripper for the two HTTP transports.
func unaryChainInterceptor(chain interceptor.Chain, card *a2a.AgentCard) ggrpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *ggrpc.ClientConn, invoker ggrpc.UnaryInvoker, opts ...ggrpc.CallOption) error {
		ctx, err := applyChain(ctx, chain, method, card)
		if err != nil {
			return err
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// streamChainInterceptor is the streaming-call counterpart of
// unaryChainInterceptor.
func streamChainInterceptor(chain interceptor.Chain, card *a2a.AgentCard) ggrpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *ggrpc.StreamDesc, cc *ggrpc.ClientConn, method string, streamer ggrpc.Streamer, opts ...ggrpc.CallOption) (ggrpc.ClientStream, error) {
		ctx, err := applyChain(ctx, chain, method, card)
		if err != nil {
			return nil, err
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}

func applyChain(ctx context.Context, chain interceptor.Chain, method string, card *a2a.AgentCard) (context.Context, error) {
	if len(chain) == 0 {
		return ctx, nil
	}
	_, opts, err := chain.Apply(method, nil, interceptor.TransportOptions{}, card, interceptor.CallContext{})
	if err != nil {
		return ctx, err
	}
	if len(opts.Headers) == 0 {
		return ctx, nil
	}
	md := metadata.New(opts.Headers)
	return metadata.NewOutgoingContext(ctx, md), nil
}

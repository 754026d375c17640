// Package grpc implements the gRPC transport client, grounded on
// the teacher's runtime/a2a/client.go call shape: the same Transport
// operation set as the JSON-RPC and REST clients, this time dialed with
// grpc.NewClient and dispatched with the bare grpc.Invoke/NewStream calls
// instead of protoc-generated stub methods, since the server side
// (a2asrv/grpc) exposes a hand-written grpc.ServiceDesc rather than
// generated ones.
package grpc

import (
	"context"
	"fmt"
	"io"

	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2a/rpccodec"
	"github.com/a2arelay/a2arelay/a2aclient/interceptor"
)

const serviceName = "a2a.A2AService"

// Client is a gRPC transport client for one agent endpoint.
type Client struct {
	conn *ggrpc.ClientConn
}

// Option configures a Client.
type Option func(*dialConfig)

type dialConfig struct {
	dialOpts []ggrpc.DialOption
}

// WithDialOptions appends additional grpc.DialOption values, e.g. TLS
// transport credentials for a non-development deployment.
func WithDialOptions(opts ...ggrpc.DialOption) Option {
	return func(c *dialConfig) { c.dialOpts = append(c.dialOpts, opts...) }
}

// WithInterceptors wires the interceptor chain into every outbound unary
// and streaming call, the gRPC counterpart of a2aclient.httpClientFor's
// RoundTripper wiring for the HTTP transports.
func WithInterceptors(chain interceptor.Chain, card *a2a.AgentCard) Option {
	return func(c *dialConfig) {
		c.dialOpts = append(c.dialOpts,
			ggrpc.WithChainUnaryInterceptor(unaryChainInterceptor(chain, card)),
			ggrpc.WithChainStreamInterceptor(streamChainInterceptor(chain, card)),
		)
	}
}

// New dials target (host:port, not a URL — per the AgentCard's
// additional_interfaces[{transport:"GRPC", url:"host:port"}] convention)
// and returns a Client. Callers that need production TLS pass
// WithDialOptions(grpc.WithTransportCredentials(...)); the default is
// insecure, matching local/dev use of the other two transports' plain-HTTP
// defaults.
func New(target string, opts ...Option) (*Client, error) {
	cfg := &dialConfig{dialOpts: []ggrpc.DialOption{
		ggrpc.WithTransportCredentials(insecure.NewCredentials()),
	}}
	for _, opt := range opts {
		opt(cfg)
	}
	conn, err := ggrpc.NewClient(target, cfg.dialOpts...)
	if err != nil {
		return nil, a2a.NewHTTPError(0, fmt.Sprintf("dialing grpc target %s: %v", target, err))
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func methodFullName(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

func (c *Client) callOpts() []ggrpc.CallOption {
	return []ggrpc.CallOption{ggrpc.CallContentSubtype(rpccodec.CodecName)}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if err := c.conn.Invoke(ctx, methodFullName(method), in, out, c.callOpts()...); err != nil {
		return translateErr(err)
	}
	return nil
}

type sendMessageResponse struct {
	Task    *a2a.Task    `json:"task,omitempty"`
	Message *a2a.Message `json:"message,omitempty"`
}

type listPushConfigResponse struct {
	Configs []a2a.TaskPushNotificationConfig `json:"configs"`
}

type emptyResponse struct{}

// SendMessage implements message/send.
func (c *Client) SendMessage(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, *a2a.Message, error) {
	out := new(sendMessageResponse)
	if err := c.invoke(ctx, "SendMessage", &params, out); err != nil {
		return nil, nil, err
	}
	return out.Task, out.Message, nil
}

// GetTask implements tasks/get.
func (c *Client) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	out := new(a2a.Task)
	if err := c.invoke(ctx, "GetTask", &params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelTask implements tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	out := new(a2a.Task)
	if err := c.invoke(ctx, "CancelTask", &params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetTaskCallback implements tasks/pushNotificationConfig/set.
func (c *Client) SetTaskCallback(ctx context.Context, cfg a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	out := new(a2a.TaskPushNotificationConfig)
	if err := c.invoke(ctx, "SetTaskCallback", &cfg, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTaskCallback implements tasks/pushNotificationConfig/get.
func (c *Client) GetTaskCallback(ctx context.Context, params a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error) {
	out := new(a2a.TaskPushNotificationConfig)
	if err := c.invoke(ctx, "GetTaskCallback", &params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTaskCallback implements tasks/pushNotificationConfig/list, an
// extended operation beyond the minimal Transport interface.
func (c *Client) ListTaskCallback(ctx context.Context, params a2a.TaskIDParams) ([]a2a.TaskPushNotificationConfig, error) {
	out := new(listPushConfigResponse)
	if err := c.invoke(ctx, "ListTaskCallback", &params, out); err != nil {
		return nil, err
	}
	return out.Configs, nil
}

// DeleteTaskCallback implements tasks/pushNotificationConfig/delete.
func (c *Client) DeleteTaskCallback(ctx context.Context, params a2a.GetTaskPushNotificationConfigParams) error {
	return c.invoke(ctx, "DeleteTaskCallback", &params, new(emptyResponse))
}

// ListTasks implements tasks/list.
func (c *Client) ListTasks(ctx context.Context, params a2a.ListTasksParams) (*a2a.ListTasksResult, error) {
	out := new(a2a.ListTasksResult)
	if err := c.invoke(ctx, "ListTasks", &params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCard implements agent/getAuthenticatedExtendedCard.
func (c *Client) GetCard(ctx context.Context) (*a2a.AgentCard, error) {
	out := new(a2a.AgentCard)
	if err := c.invoke(ctx, "GetCard", new(emptyResponse), out); err != nil {
		return nil, err
	}
	return out, nil
}

// streamCall opens a server-streaming call and decodes each received
// message as an a2a.SSEFrame, mirroring the other transports' incremental
// event decoding: never buffer the full sequence.
func (c *Client) streamCall(ctx context.Context, method string, req any) (<-chan a2a.Event, <-chan error, error) {
	desc := &ggrpc.StreamDesc{StreamName: method, ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, methodFullName(method), c.callOpts()...)
	if err != nil {
		return nil, nil, translateErr(err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, nil, translateErr(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, nil, translateErr(err)
	}

	events := make(chan a2a.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		for {
			var frame a2a.SSEFrame
			if err := stream.RecvMsg(&frame); err != nil {
				if err != io.EOF {
					errs <- translateErr(err)
				}
				return
			}
			event, ok := a2a.DecodeEventFrame(frame)
			if !ok {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs, nil
}

// SendMessageStream implements message/stream.
func (c *Client) SendMessageStream(ctx context.Context, params a2a.MessageSendParams) (<-chan a2a.Event, <-chan error, error) {
	return c.streamCall(ctx, "SendMessageStream", &params)
}

// Resubscribe implements tasks/resubscribe.
func (c *Client) Resubscribe(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.Event, <-chan error, error) {
	return c.streamCall(ctx, "Resubscribe", &params)
}

// translateErr maps a grpc status error onto the abstract a2a.Kind
// taxonomy, the mirror image of a2asrv/grpc's grpcError.
func translateErr(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return a2a.NewHTTPError(0, err.Error())
	}
	msg := st.Message()
	switch st.Code() {
	case codes.NotFound:
		return a2a.NewNotFoundError(msg)
	case codes.InvalidArgument:
		return a2a.NewInvalidArgsError(msg)
	case codes.FailedPrecondition:
		return a2a.NewInvalidStateError(msg)
	case codes.Unimplemented:
		return a2a.NewCapabilityUnsupportedError(msg)
	case codes.DeadlineExceeded:
		return a2a.NewTimeoutError(msg)
	default:
		return a2a.NewHTTPError(0, msg)
	}
}

package grpc

import (
	"context"
	"fmt"
	"net"

	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/logger"
)

const serviceName = "a2a.A2AService"

// A2AServer is the HandlerType grpc.ServiceDesc expects RegisterService's
// second argument to implement. It carries no methods: the handler funcs
// below type-assert to *Server directly (there are no protoc-generated
// server interfaces to satisfy), so any concrete type registers cleanly.
type A2AServer interface{}

// Server adapts a2asrv.DefaultRequestHandler onto the hand-written
// A2AService gRPC surface.
type Server struct {
	handler *a2asrv.DefaultRequestHandler
	card    a2a.AgentCard
}

// NewServer wires a transport server to an already-constructed request
// handler and the AgentCard served by GetCard.
func NewServer(handler *a2asrv.DefaultRequestHandler, card a2a.AgentCard) *Server {
	return &Server{handler: handler, card: card}
}

// Register attaches the A2AService to an *grpc.Server, e.g.:
//
//	s := grpc.NewServer()
//	grpca2a.Register(s, grpca2a.NewServer(handler, card))
func Register(s *ggrpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}

// Listener wraps a plain grpc.Server bound to this service, mirroring
// server/a2a's ListenAndServe/Shutdown pair (and cuemby-warren's
// net.Listen + GracefulStop shape) so callers don't have to repeat the
// grpc.NewServer/Register/Serve boilerplate themselves.
type Listener struct {
	grpcSrv *ggrpc.Server
	handler *a2asrv.DefaultRequestHandler
}

// NewListener builds a *grpc.Server, registers the A2AService on it, and
// returns a Listener ready for ListenAndServe.
func NewListener(handler *a2asrv.DefaultRequestHandler, card a2a.AgentCard, opts ...ggrpc.ServerOption) *Listener {
	grpcSrv := ggrpc.NewServer(opts...)
	Register(grpcSrv, NewServer(handler, card))
	return &Listener{grpcSrv: grpcSrv, handler: handler}
}

// ListenAndServe binds addr and blocks serving gRPC until Shutdown stops
// the server or a fatal accept error occurs.
func (l *Listener) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return l.grpcSrv.Serve(lis)
}

// Shutdown gracefully stops the gRPC server and drains the request
// handler's background work.
func (l *Listener) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		l.grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		l.grpcSrv.Stop()
	}
	return l.handler.Shutdown(ctx)
}

type sendMessageResponse struct {
	Task    *a2a.Task    `json:"task,omitempty"`
	Message *a2a.Message `json:"message,omitempty"`
}

func (s *Server) sendMessage(ctx context.Context, params *a2a.MessageSendParams) (*sendMessageResponse, error) {
	result, err := s.handler.OnMessageSend(ctx, *params)
	if err != nil {
		return nil, grpcError(err)
	}
	switch v := result.(type) {
	case *a2a.Message:
		return &sendMessageResponse{Message: v}, nil
	case *a2a.Task:
		return &sendMessageResponse{Task: v}, nil
	default:
		return &sendMessageResponse{}, nil
	}
}

func (s *Server) sendMessageStream(params *a2a.MessageSendParams, stream ggrpc.ServerStream) error {
	events, err := s.handler.OnMessageSendStream(stream.Context(), *params)
	if err != nil {
		return grpcError(err)
	}
	return streamEvents(stream, events)
}

func (s *Server) getTask(_ context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	task, err := s.handler.OnGetTask(*params)
	if err != nil {
		return nil, grpcError(err)
	}
	return task, nil
}

func (s *Server) cancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	task, err := s.handler.OnCancelTask(ctx, *params)
	if err != nil {
		return nil, grpcError(err)
	}
	return task, nil
}

func (s *Server) resubscribe(params *a2a.TaskIDParams, stream ggrpc.ServerStream) error {
	events, err := s.handler.OnResubscribeToTask(stream.Context(), *params)
	if err != nil {
		return grpcError(err)
	}
	return streamEvents(stream, events)
}

func (s *Server) setTaskCallback(_ context.Context, cfg *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	out, err := s.handler.OnSetTaskPushNotificationConfig(*cfg)
	if err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}

func (s *Server) getTaskCallback(_ context.Context, params *a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error) {
	out, err := s.handler.OnGetTaskPushNotificationConfig(*params)
	if err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}

type listPushConfigResponse struct {
	Configs []a2a.TaskPushNotificationConfig `json:"configs"`
}

func (s *Server) listTaskCallback(_ context.Context, params *a2a.TaskIDParams) (*listPushConfigResponse, error) {
	out, err := s.handler.OnListTaskPushNotificationConfig(params.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &listPushConfigResponse{Configs: out}, nil
}

type emptyResponse struct{}

func (s *Server) deleteTaskCallback(_ context.Context, params *a2a.GetTaskPushNotificationConfigParams) (*emptyResponse, error) {
	if err := s.handler.OnDeleteTaskPushNotificationConfig(*params); err != nil {
		return nil, grpcError(err)
	}
	return &emptyResponse{}, nil
}

func (s *Server) listTasks(_ context.Context, params *a2a.ListTasksParams) (*a2a.ListTasksResult, error) {
	out, err := s.handler.OnListTasks(*params)
	if err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}

func (s *Server) getCard(context.Context, *emptyResponse) (*a2a.AgentCard, error) {
	return &s.card, nil
}

// streamEvents drains events onto stream one SendMsg per event, framed the
// same way as the HTTP transports' SSE payloads: never buffer the full
// sequence, each event is sent as soon as it is folded off the queue.
func streamEvents(stream ggrpc.ServerStream, events <-chan a2a.Event) error {
	for e := range events {
		frame := a2a.EncodeEventFrame(e)
		if err := stream.SendMsg(&frame); err != nil {
			logger.Warn("grpc: failed sending stream frame", "err", err)
			return err
		}
	}
	return nil
}

// grpcError maps an a2a.Error onto the nearest grpc status code; each
// transport maps the abstract error kinds onto its own code space.
func grpcError(err error) error {
	aerr, ok := err.(*a2a.Error)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(grpcCodeForKind(aerr.Kind), aerr.Message)
}

func grpcCodeForKind(kind a2a.Kind) codes.Code {
	switch kind {
	case a2a.KindNotFound:
		return codes.NotFound
	case a2a.KindInvalidArgs, a2a.KindJSON:
		return codes.InvalidArgument
	case a2a.KindInvalidState, a2a.KindNotCancelable:
		return codes.FailedPrecondition
	case a2a.KindCapabilityUnsupported:
		return codes.Unimplemented
	case a2a.KindTimeout:
		return codes.DeadlineExceeded
	case a2a.KindHTTP:
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}

func methodFullName(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

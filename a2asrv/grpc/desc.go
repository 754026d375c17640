package grpc

import (
	"context"

	ggrpc "google.golang.org/grpc"

	"github.com/a2arelay/a2arelay/a2a"
)

// ServiceDesc is the hand-written stand-in for what protoc would normally
// generate from an a2a.proto: the same method/stream names and the same
// unary-vs-server-streaming shape, dispatching onto *Server. Every request
// and response type is decoded with the jsonCodec registered in codec.go,
// never protobuf wire format.
var ServiceDesc = ggrpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*A2AServer)(nil),
	Methods: []ggrpc.MethodDesc{
		{MethodName: "SendMessage", Handler: sendMessageHandler},
		{MethodName: "GetTask", Handler: getTaskHandler},
		{MethodName: "CancelTask", Handler: cancelTaskHandler},
		{MethodName: "SetTaskCallback", Handler: setTaskCallbackHandler},
		{MethodName: "GetTaskCallback", Handler: getTaskCallbackHandler},
		{MethodName: "ListTaskCallback", Handler: listTaskCallbackHandler},
		{MethodName: "DeleteTaskCallback", Handler: deleteTaskCallbackHandler},
		{MethodName: "ListTasks", Handler: listTasksHandler},
		{MethodName: "GetCard", Handler: getCardHandler},
	},
	Streams: []ggrpc.StreamDesc{
		{StreamName: "SendMessageStream", Handler: sendMessageStreamHandler, ServerStreams: true},
		{StreamName: "Resubscribe", Handler: resubscribeHandler, ServerStreams: true},
	},
	Metadata: "a2a.json-over-grpc",
}

func sendMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.MessageSendParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).sendMessage(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("SendMessage")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).sendMessage(ctx, req.(*a2a.MessageSendParams))
	}
	return interceptor(ctx, in, info, handler)
}

func getTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.TaskQueryParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).getTask(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("GetTask")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).getTask(ctx, req.(*a2a.TaskQueryParams))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.TaskIDParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).cancelTask(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("CancelTask")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).cancelTask(ctx, req.(*a2a.TaskIDParams))
	}
	return interceptor(ctx, in, info, handler)
}

func setTaskCallbackHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.TaskPushNotificationConfig)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).setTaskCallback(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("SetTaskCallback")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).setTaskCallback(ctx, req.(*a2a.TaskPushNotificationConfig))
	}
	return interceptor(ctx, in, info, handler)
}

func getTaskCallbackHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.GetTaskPushNotificationConfigParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).getTaskCallback(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("GetTaskCallback")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).getTaskCallback(ctx, req.(*a2a.GetTaskPushNotificationConfigParams))
	}
	return interceptor(ctx, in, info, handler)
}

func listTaskCallbackHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.TaskIDParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).listTaskCallback(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("ListTaskCallback")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).listTaskCallback(ctx, req.(*a2a.TaskIDParams))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteTaskCallbackHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.GetTaskPushNotificationConfigParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).deleteTaskCallback(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("DeleteTaskCallback")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).deleteTaskCallback(ctx, req.(*a2a.GetTaskPushNotificationConfigParams))
	}
	return interceptor(ctx, in, info, handler)
}

func listTasksHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(a2a.ListTasksParams)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).listTasks(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("ListTasks")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).listTasks(ctx, req.(*a2a.ListTasksParams))
	}
	return interceptor(ctx, in, info, handler)
}

func getCardHandler(srv any, ctx context.Context, dec func(any) error, interceptor ggrpc.UnaryServerInterceptor) (any, error) {
	in := new(emptyResponse)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).getCard(ctx, in)
	}
	info := &ggrpc.UnaryServerInfo{Server: srv, FullMethod: methodFullName("GetCard")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).getCard(ctx, req.(*emptyResponse))
	}
	return interceptor(ctx, in, info, handler)
}

func sendMessageStreamHandler(srv any, stream ggrpc.ServerStream) error {
	in := new(a2a.MessageSendParams)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(*Server).sendMessageStream(in, stream)
}

func resubscribeHandler(srv any, stream ggrpc.ServerStream) error {
	in := new(a2a.TaskIDParams)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(*Server).resubscribe(in, stream)
}

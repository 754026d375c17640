package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/a2asrv/eventqueue"
	servergrpc "github.com/a2arelay/a2arelay/a2asrv/grpc"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
	clientgrpc "github.com/a2arelay/a2arelay/a2aclient/grpc"
)

type scriptedExecutor struct{ events []a2a.Event }

func (s *scriptedExecutor) Execute(_ context.Context, _ *a2asrv.RequestContext, q *eventqueue.Queue) error {
	for _, e := range s.events {
		q.Enqueue(e)
	}
	q.Close(false)
	return nil
}
func (s *scriptedExecutor) Cancel(context.Context, string) error { return nil }

// dialBufconn starts a gRPC server on an in-memory listener and returns a
// connected *clientgrpc.Client plus a teardown func, avoiding a real TCP
// port for the test.
func dialBufconn(t *testing.T, handler *a2asrv.DefaultRequestHandler, card a2a.AgentCard) (*clientgrpc.Client, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	grpcSrv := ggrpc.NewServer()
	servergrpc.Register(grpcSrv, servergrpc.NewServer(handler, card))
	go func() { _ = grpcSrv.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	c, err := clientgrpc.New("passthrough:///bufnet", clientgrpc.WithDialOptions(
		ggrpc.WithContextDialer(dialer),
		ggrpc.WithTransportCredentials(insecure.NewCredentials()),
	))
	require.NoError(t, err)

	return c, func() {
		_ = c.Close()
		grpcSrv.Stop()
	}
}

func TestGRPC_MessageStream_EndToEnd(t *testing.T) {
	exec := &scriptedExecutor{events: []a2a.Event{
		a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}, Final: true},
	}}
	handler := a2asrv.NewDefaultRequestHandler(exec, taskstore.NewMemory(), eventqueue.NewManager())
	client, teardown := dialBufconn(t, handler, a2a.AgentCard{Name: "test-agent"})
	defer teardown()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	events, errs, err := client.SendMessageStream(ctx, a2a.MessageSendParams{
		Message: a2a.Message{MessageID: "m1", Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("hi")}},
	})
	require.NoError(t, err)

	var got []a2a.Event
loop:
	for {
		select {
		case e, ok := <-events:
			if !ok {
				break loop
			}
			got = append(got, e)
		case err := <-errs:
			if err != nil {
				t.Fatalf("stream error: %v", err)
			}
		case <-ctx.Done():
			t.Fatal("timed out")
		}
	}

	require.Len(t, got, 3)
	task, ok := got[0].(a2a.Task)
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
}

func TestGRPC_GetTask_NotFound(t *testing.T) {
	handler := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, taskstore.NewMemory(), eventqueue.NewManager())
	client, teardown := dialBufconn(t, handler, a2a.AgentCard{Name: "test-agent"})
	defer teardown()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	_, err := client.GetTask(ctx, a2a.TaskQueryParams{ID: "missing"})
	require.Error(t, err)
	aerr, ok := err.(*a2a.Error)
	require.True(t, ok)
	assert.Equal(t, a2a.KindNotFound, aerr.Kind)
}

func TestGRPC_CancelTask(t *testing.T) {
	store := taskstore.NewMemory()
	require.NoError(t, store.Save(a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}))
	handler := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, store, eventqueue.NewManager())
	client, teardown := dialBufconn(t, handler, a2a.AgentCard{Name: "test-agent"})
	defer teardown()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	task, err := client.CancelTask(ctx, a2a.TaskIDParams{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCanceled, task.Status.State)
}

func TestGRPC_SetAndGetPushConfig(t *testing.T) {
	handler := a2asrv.NewDefaultRequestHandler(
		&scriptedExecutor{},
		taskstore.NewMemory(),
		eventqueue.NewManager(),
		a2asrv.WithPushConfigStore(taskstore.NewMemoryPushConfigStore()),
	)
	client, teardown := dialBufconn(t, handler, a2a.AgentCard{Name: "test-agent"})
	defer teardown()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	saved, err := client.SetTaskCallback(ctx, a2a.TaskPushNotificationConfig{
		TaskID:                 "t1",
		PushNotificationConfig: a2a.PushNotificationConfig{ID: "cfg1", URL: "https://example.com/hook"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cfg1", saved.PushNotificationConfig.ID)

	got, err := client.GetTaskCallback(ctx, a2a.GetTaskPushNotificationConfigParams{ID: "t1", PushNotificationConfigID: "cfg1"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", got.PushNotificationConfig.URL)
}

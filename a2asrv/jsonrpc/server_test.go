package jsonrpc_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/a2asrv/eventqueue"
	serverjsonrpc "github.com/a2arelay/a2arelay/a2asrv/jsonrpc"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
	clientjsonrpc "github.com/a2arelay/a2arelay/a2aclient/jsonrpc"
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

func TestJSONRPC_SendMessageStream_EndToEnd(t *testing.T) {
	exec := &scriptedExecutor{events: []a2a.Event{
		a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}, Final: true},
	}}
	handler := a2asrv.NewDefaultRequestHandler(exec, taskstore.NewMemory(), eventqueue.NewManager())
	srv := serverjsonrpc.NewServer(handler, a2a.AgentCard{Name: "test-agent"})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := clientjsonrpc.New(ts.URL + "/a2a")
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

func TestJSONRPC_GetTask_NotFound(t *testing.T) {
	handler := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, taskstore.NewMemory(), eventqueue.NewManager())
	srv := serverjsonrpc.NewServer(handler, a2a.AgentCard{Name: "test-agent"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := clientjsonrpc.New(ts.URL + "/a2a")
	_, err := client.GetTask(t.Context(), a2a.TaskQueryParams{ID: "missing"})
	require.Error(t, err)

	var a2aErr *a2a.Error
	require.ErrorAs(t, err, &a2aErr)
	assert.Equal(t, a2a.KindRPC, a2aErr.Kind)
	assert.Equal(t, a2a.RPCNotFound, a2aErr.Code)
}

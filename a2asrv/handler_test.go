package a2asrv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/a2asrv/eventqueue"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
)

// scriptedExecutor publishes a fixed sequence of events and then closes the
// queue, mirroring the teacher's runConversation but driven by a literal
// script instead of an LLM call.
type scriptedExecutor struct {
	events []a2a.Event
}

func (s *scriptedExecutor) Execute(_ context.Context, _ *a2asrv.RequestContext, q *eventqueue.Queue) error {
	for _, e := range s.events {
		q.Enqueue(e)
	}
	q.Close(false)
	return nil
}

func (s *scriptedExecutor) Cancel(context.Context, string) error { return nil }

func drain(t *testing.T, ch <-chan a2a.Event) []a2a.Event {
	t.Helper()
	var out []a2a.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out draining stream")
		}
	}
}

func TestHandler_StreamingStatusProgression(t *testing.T) {
	exec := &scriptedExecutor{events: []a2a.Event{
		a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}, Final: true},
	}}
	h := a2asrv.NewDefaultRequestHandler(exec, taskstore.NewMemory(), eventqueue.NewManager())

	stream, err := h.OnMessageSendStream(t.Context(), a2a.MessageSendParams{
		Message: a2a.Message{MessageID: "m1", Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("hi")}},
	})
	require.NoError(t, err)

	events := drain(t, stream)
	require.Len(t, events, 3)

	task, err := h.OnGetTask(a2a.TaskQueryParams{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
}

func TestHandler_StreamingArtifactAppend(t *testing.T) {
	exec := &scriptedExecutor{events: []a2a.Event{
		a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}},
		&a2a.TaskArtifactUpdateEvent{TaskID: "t1", Artifact: a2a.Artifact{ArtifactID: "a1", Parts: []a2a.Part{a2a.TextPart("Hel")}}},
		&a2a.TaskArtifactUpdateEvent{TaskID: "t1", Artifact: a2a.Artifact{ArtifactID: "a1", Parts: []a2a.Part{a2a.TextPart("lo")}}, Append: true},
		&a2a.TaskStatusUpdateEvent{TaskID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}, Final: true},
	}}
	h := a2asrv.NewDefaultRequestHandler(exec, taskstore.NewMemory(), eventqueue.NewManager())

	stream, err := h.OnMessageSendStream(t.Context(), a2a.MessageSendParams{
		Message: a2a.Message{MessageID: "m1", Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("hi")}},
	})
	require.NoError(t, err)
	drain(t, stream)

	task, err := h.OnGetTask(a2a.TaskQueryParams{ID: "t1"})
	require.NoError(t, err)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, []a2a.Part{a2a.TextPart("Hel"), a2a.TextPart("lo")}, task.Artifacts[0].Parts)
}

func TestHandler_CancelAlreadyTerminalTask(t *testing.T) {
	store := taskstore.NewMemory()
	require.NoError(t, store.Save(a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}))

	h := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, store, eventqueue.NewManager())
	_, err := h.OnCancelTask(t.Context(), a2a.TaskIDParams{ID: "t1"})

	var a2aErr *a2a.Error
	require.ErrorAs(t, err, &a2aErr)
	assert.Equal(t, a2a.KindNotCancelable, a2aErr.Kind)
}

func TestHandler_CancelTaskNotPersistedIsNotFound(t *testing.T) {
	h := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, taskstore.NewMemory(), eventqueue.NewManager())
	_, err := h.OnCancelTask(t.Context(), a2a.TaskIDParams{ID: "missing"})

	var a2aErr *a2a.Error
	require.ErrorAs(t, err, &a2aErr)
	assert.Equal(t, a2a.KindNotFound, a2aErr.Kind)
}

func TestHandler_ResubscribeUnknownTaskIsNotFound(t *testing.T) {
	h := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, taskstore.NewMemory(), eventqueue.NewManager())
	_, err := h.OnResubscribeToTask(t.Context(), a2a.TaskIDParams{ID: "missing"})

	var a2aErr *a2a.Error
	require.ErrorAs(t, err, &a2aErr)
	assert.Equal(t, a2a.KindNotFound, a2aErr.Kind)
}

func TestHandler_ResubscribeAfterCompletionIsEmptyStream(t *testing.T) {
	// Resubscribe after the queue has closed and been reaped returns an
	// empty stream when the task IS known to the store, NotFound only
	// when the task is entirely unknown.
	store := taskstore.NewMemory()
	require.NoError(t, store.Save(a2a.Task{ID: "t1", Status: a2a.TaskStatus{State: a2a.TaskStateCompleted}}))

	h := a2asrv.NewDefaultRequestHandler(&scriptedExecutor{}, store, eventqueue.NewManager())
	stream, err := h.OnResubscribeToTask(t.Context(), a2a.TaskIDParams{ID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, drain(t, stream))
}

func TestHandler_OnMessageSend_NonStreaming(t *testing.T) {
	exec := &scriptedExecutor{events: []a2a.Event{
		a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted}},
	}}
	h := a2asrv.NewDefaultRequestHandler(exec, taskstore.NewMemory(), eventqueue.NewManager())

	result, err := h.OnMessageSend(t.Context(), a2a.MessageSendParams{
		Message: a2a.Message{MessageID: "m1", Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("hi")}},
	})
	require.NoError(t, err)
	task, ok := result.(*a2a.Task)
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
}

func TestHandler_DirectReplyMessage(t *testing.T) {
	// S4.
	exec := &scriptedExecutor{events: []a2a.Event{
		&a2a.Message{MessageID: "m2", Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart("ok")}},
	}}
	h := a2asrv.NewDefaultRequestHandler(exec, taskstore.NewMemory(), eventqueue.NewManager())

	result, err := h.OnMessageSend(t.Context(), a2a.MessageSendParams{
		Message: a2a.Message{MessageID: "m1", Role: a2a.RoleUser, Parts: []a2a.Part{a2a.TextPart("hi")}, TaskID: ""},
	})
	require.NoError(t, err)
	msg, ok := result.(*a2a.Message)
	require.True(t, ok)
	assert.Equal(t, "m2", msg.MessageID)
}

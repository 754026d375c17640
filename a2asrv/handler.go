// Package a2asrv implements the server-side choreography: the
// DefaultRequestHandler coordinates an AgentExecutor, a TaskStore, a
// QueueManager, and optional push-notification plumbing to answer every
// operation in the uniform transport surface.
package a2asrv

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2a/fold"
	"github.com/a2arelay/a2arelay/a2asrv/eventqueue"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
	"github.com/a2arelay/a2arelay/logger"
)

// AgentExecutor is the external collaborator that actually runs an agent;
// it is consumed, not implemented, here.
type AgentExecutor interface {
	// Execute runs the agent to completion, publishing events into q. It
	// must close q on exit (successful or not).
	Execute(ctx context.Context, reqCtx *RequestContext, q *eventqueue.Queue) error
	// Cancel requests cooperative cancellation of an in-flight task.
	Cancel(ctx context.Context, taskID string) error
}

// RequestContext bundles the inputs an AgentExecutor needs to process one
// message/send or message/stream call.
type RequestContext struct {
	TaskID      string
	ContextID   string
	Message     a2a.Message
	CurrentTask *a2a.Task // nil for a brand-new task
}

// RequestContextBuilder constructs a RequestContext for a send/stream call.
// The default implementation just fills in the fields directly; it exists
// as an interface so hosts can enrich the context (e.g. attach auth
// principal) without forking the handler.
type RequestContextBuilder interface {
	Build(taskID, contextID string, msg a2a.Message, current *a2a.Task) *RequestContext
}

type defaultContextBuilder struct{}

func (defaultContextBuilder) Build(taskID, contextID string, msg a2a.Message, current *a2a.Task) *RequestContext {
	return &RequestContext{TaskID: taskID, ContextID: contextID, Message: msg, CurrentTask: current}
}

// PushNotificationSender delivers a task snapshot to configured webhooks.
// Implemented by a2asrv/push.
type PushNotificationSender interface {
	Send(ctx context.Context, task a2a.Task)
}

// HandlerOption configures a DefaultRequestHandler.
type HandlerOption func(*DefaultRequestHandler)

func WithPushConfigStore(store taskstore.PushConfigStore) HandlerOption {
	return func(h *DefaultRequestHandler) { h.pushConfigStore = store }
}

func WithPushNotificationSender(sender PushNotificationSender) HandlerOption {
	return func(h *DefaultRequestHandler) { h.pushSender = sender }
}

func WithRequestContextBuilder(b RequestContextBuilder) HandlerOption {
	return func(h *DefaultRequestHandler) { h.ctxBuilder = b }
}

func WithQueueCapacity(n int) HandlerOption {
	return func(h *DefaultRequestHandler) { h.queueCapacity = n }
}

// WithSkillInputSchemas enables validation of Part.Kind == data parts
// against a skill's declared AgentSkill.InputSchema. A skill author opts in
// by publishing a schema; messages not naming a skill via
// Metadata["skillId"] are left unvalidated.
func WithSkillInputSchemas(schemas map[string]json.RawMessage) HandlerOption {
	return func(h *DefaultRequestHandler) { h.skillSchemas = schemas }
}

// DefaultRequestHandler implements the server-side request choreography.
type DefaultRequestHandler struct {
	executor        AgentExecutor
	store           taskstore.Store
	queues          *eventqueue.Manager
	pushConfigStore taskstore.PushConfigStore
	pushSender      PushNotificationSender
	ctxBuilder      RequestContextBuilder
	queueCapacity   int
	skillSchemas    map[string]json.RawMessage

	mu             sync.Mutex
	runningAgents  map[string]context.CancelFunc // task_id -> producer cancel
	drainWG        sync.WaitGroup
}

// NewDefaultRequestHandler wires the four required collaborators plus any
// options.
func NewDefaultRequestHandler(executor AgentExecutor, store taskstore.Store, queues *eventqueue.Manager, opts ...HandlerOption) *DefaultRequestHandler {
	h := &DefaultRequestHandler{
		executor:      executor,
		store:         store,
		queues:        queues,
		ctxBuilder:    defaultContextBuilder{},
		runningAgents: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnGetTask implements get_task.
func (h *DefaultRequestHandler) OnGetTask(params a2a.TaskQueryParams) (*a2a.Task, error) {
	task, err := h.store.Get(params.ID)
	if err != nil {
		return nil, err
	}
	if params.HistoryLength >= 1 {
		t := task.ApplyHistoryLength(params.HistoryLength)
		return &t, nil
	}
	return task, nil
}

// OnCancelTask implements cancel_task.
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	task, err := h.store.Get(params.ID)
	if err != nil {
		return nil, err
	}
	if task.Status.State.IsTerminal() {
		return nil, a2a.NewNotCancelableError("task " + params.ID + " is already terminal")
	}

	if err := h.executor.Cancel(ctx, params.ID); err != nil {
		logger.Warn("executor cancel failed", "taskId", params.ID, "err", err)
	}

	task.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled}
	if err := h.store.Save(*task); err != nil {
		return nil, err
	}
	return task, nil
}

// OnMessageSend implements the non-streaming message/send operation by
// running the streaming path in-process and folding until final.
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params a2a.MessageSendParams) (any, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel() // if we stop reading before the channel closes, this signals forward() to drain in the background instead of leaking on a blocked send.

	events, err := h.OnMessageSendStream(streamCtx, params)
	if err != nil {
		return nil, err
	}
	f := fold.New()
	for e := range events {
		if err := f.Apply(e); err != nil {
			return nil, err
		}
		if f.Final() {
			break
		}
	}
	if f.Message() != nil {
		return f.Message(), nil
	}
	return f.Task(), nil
}

// OnMessageSendStream implements the central streaming choreography. It
// returns a channel of a2a.Event (plus the synthetic streamErrorEvent)
// that the caller (a transport server, or OnMessageSend itself) drains;
// the channel is closed when the stream finalizes.
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params a2a.MessageSendParams) (<-chan a2a.Event, error) {
	if err := h.validateDataParts(params.Message); err != nil {
		return nil, err
	}

	taskID := params.Message.TaskID
	var current *a2a.Task

	switch {
	case taskID != "":
		t, err := h.store.Get(taskID)
		if err != nil {
			return nil, a2a.NewNotFoundError("task " + taskID + " not found")
		}
		if t.Status.State.IsTerminal() {
			return nil, a2a.NewInvalidStateError("task " + taskID + " is terminal")
		}
		current = t
	default:
		taskID = uuid.NewString()
	}

	contextID := params.Message.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}

	reqCtx := h.ctxBuilder.Build(taskID, contextID, params.Message, current)

	if params.Configuration != nil && params.Configuration.PushNotificationConfig != nil && h.pushConfigStore != nil {
		_ = h.pushConfigStore.Save(a2a.TaskPushNotificationConfig{
			TaskID:                 taskID,
			PushNotificationConfig: *params.Configuration.PushNotificationConfig,
		})
	}

	q, _ := h.queues.CreateOrTap(taskID, h.queueCapacity)

	execCtx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.runningAgents[taskID] = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.runningAgents, taskID)
			h.mu.Unlock()
		}()
		if err := h.executor.Execute(execCtx, reqCtx, q); err != nil {
			q.Enqueue(&a2a.TaskStatusUpdateEvent{
				TaskID:    taskID,
				ContextID: contextID,
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateFailed,
					Message: &a2a.Message{Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart(err.Error())}},
				},
				Final: true,
			})
			q.Close(true)
		}
	}()

	out := make(chan a2a.Event, 1)
	go h.forward(ctx, taskID, q, out)

	return out, nil
}

// validateDataParts checks every Kind==data part of msg against the schema
// registered for the skill named in msg.Metadata["skillId"], if any.
func (h *DefaultRequestHandler) validateDataParts(msg a2a.Message) error {
	if len(h.skillSchemas) == 0 {
		return nil
	}
	skillID, _ := msg.Metadata["skillId"].(string)
	schema, ok := h.skillSchemas[skillID]
	if !ok {
		return nil
	}
	for _, part := range msg.Parts {
		if part.Kind != a2a.PartKindData {
			continue
		}
		if err := a2a.ValidateDataPart(schema, part); err != nil {
			return err
		}
	}
	return nil
}

// forward folds every event from q into the task store AND forwards it to
// out, best-effort-notifying push subscribers on status changes. If the
// caller's ctx is canceled (client disconnect), it spawns a background
// drain so the producer's remaining events still land in the store for a
// later resubscribe.
func (h *DefaultRequestHandler) forward(ctx context.Context, taskID string, q *eventqueue.Queue, out chan<- a2a.Event) {
	f := fold.New()
	defer close(out)

	for {
		e, err := q.Dequeue(true)
		if err != nil { // eventqueue.ErrClosed
			break
		}
		if ferr := f.Apply(e); ferr != nil {
			logger.Warn("fold rejected event", "taskId", taskID, "err", ferr)
		}
		if f.Task() != nil {
			_ = h.store.Save(*f.Task())
			if h.pushSender != nil && isStatusEvent(e) {
				h.pushSender.Send(context.Background(), *f.Task())
			}
		}

		select {
		case out <- e:
		case <-ctx.Done():
			h.drain(taskID, q, f)
			return
		}

		if f.Final() && !f.Interruptible() {
			break
		}
	}
	h.queues.Close(taskID, false)
}

// drain keeps consuming in the background after a disconnect, so the
// store reflects the final state by the time a resubscribe or get_task
// arrives.
func (h *DefaultRequestHandler) drain(taskID string, q *eventqueue.Queue, f *fold.Fold) {
	h.drainWG.Add(1)
	go func() {
		defer h.drainWG.Done()
		for {
			e, err := q.Dequeue(true)
			if err != nil {
				break
			}
			if ferr := f.Apply(e); ferr != nil {
				logger.Warn("drain fold rejected event", "taskId", taskID, "err", ferr)
			}
			if f.Task() != nil {
				_ = h.store.Save(*f.Task())
				if h.pushSender != nil && isStatusEvent(e) {
					h.pushSender.Send(context.Background(), *f.Task())
				}
			}
			if f.Final() && !f.Interruptible() {
				break
			}
		}
		h.queues.Close(taskID, false)
	}()
}

// isStatusEvent reports whether e carries the task's own status: a Task
// snapshot or a TaskStatusUpdateEvent. Artifact updates and direct-reply
// messages fold into the task snapshot too, but don't represent a state
// change worth pushing to a webhook subscriber on their own.
func isStatusEvent(e a2a.Event) bool {
	switch e.(type) {
	case a2a.Task, *a2a.TaskStatusUpdateEvent:
		return true
	default:
		return false
	}
}

// OnResubscribeToTask implements resubscribe. A tap that closes without
// events yields an empty, successfully-closed channel. This implementation
// returns an empty stream (not NotFound) when the task has already
// finished and its queue was closed and reaped, UNLESS the task itself is
// entirely unknown to the store, in which case NotFound is raised — the
// two cases are distinguished by store presence, not queue presence, so
// behavior is deterministic rather than racy against queue reaping.
func (h *DefaultRequestHandler) OnResubscribeToTask(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.Event, error) {
	q := h.queues.Tap(params.ID)
	if q == nil {
		if _, err := h.store.Get(params.ID); err != nil {
			return nil, a2a.NewNotFoundError("task " + params.ID + " not found")
		}
		empty := make(chan a2a.Event)
		close(empty)
		return empty, nil
	}

	out := make(chan a2a.Event, 1)
	go func() {
		defer close(out)
		f := fold.New()
		for {
			e, err := q.Dequeue(true)
			if err != nil {
				return
			}
			_ = f.Apply(e)
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
			if f.Final() && !f.Interruptible() {
				return
			}
		}
	}()
	return out, nil
}

// OnSetTaskPushNotificationConfig implements tasks/pushNotificationConfig/set.
func (h *DefaultRequestHandler) OnSetTaskPushNotificationConfig(cfg a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	if h.pushConfigStore == nil {
		return nil, a2a.NewCapabilityUnsupportedError("push notifications not configured")
	}
	if err := h.pushConfigStore.Save(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OnGetTaskPushNotificationConfig implements tasks/pushNotificationConfig/get.
func (h *DefaultRequestHandler) OnGetTaskPushNotificationConfig(params a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error) {
	if h.pushConfigStore == nil {
		return nil, a2a.NewCapabilityUnsupportedError("push notifications not configured")
	}
	return h.pushConfigStore.Get(params.ID, params.PushNotificationConfigID)
}

// OnListTaskPushNotificationConfig implements tasks/pushNotificationConfig/list.
func (h *DefaultRequestHandler) OnListTaskPushNotificationConfig(taskID string) ([]a2a.TaskPushNotificationConfig, error) {
	if h.pushConfigStore == nil {
		return nil, a2a.NewCapabilityUnsupportedError("push notifications not configured")
	}
	return h.pushConfigStore.List(taskID)
}

// OnDeleteTaskPushNotificationConfig implements tasks/pushNotificationConfig/delete.
func (h *DefaultRequestHandler) OnDeleteTaskPushNotificationConfig(params a2a.GetTaskPushNotificationConfigParams) error {
	if h.pushConfigStore == nil {
		return a2a.NewCapabilityUnsupportedError("push notifications not configured")
	}
	return h.pushConfigStore.Delete(params.ID, params.PushNotificationConfigID)
}

// OnListTasks implements tasks/list.
func (h *DefaultRequestHandler) OnListTasks(params a2a.ListTasksParams) (*a2a.ListTasksResult, error) {
	tasks, err := h.store.List(params.ContextID, params.PageSize)
	if err != nil {
		return nil, err
	}
	return &a2a.ListTasksResult{Tasks: tasks}, nil
}

// Shutdown cancels every running producer and waits for background
// drains to finish. Every background task is registered so it can be
// awaited on shutdown.
func (h *DefaultRequestHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for _, cancel := range h.runningAgents {
		cancel()
	}
	h.runningAgents = make(map[string]context.CancelFunc)
	h.mu.Unlock()

	h.queues.CloseAll(false)

	done := make(chan struct{})
	go func() {
		h.drainWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

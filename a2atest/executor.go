// Package a2atest provides a configurable AgentExecutor test double,
// adapted from the teacher's runtime/a2a/mock package: the same
// skill-matching/latency/error-injection rule set, now implementing
// a2asrv.AgentExecutor directly against a real eventqueue.Queue instead of
// running its own parallel httptest.Server — callers wire it into
// a2asrv.NewDefaultRequestHandler and get streaming events through any of
// this repo's three real transports for free.
package a2atest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/a2asrv/eventqueue"
)

// Response holds the parts returned by a matched rule as a completed
// task's sole artifact.
type Response struct {
	Parts []a2a.Part
}

type rule struct {
	skillID  string
	matcher  func(a2a.Message) bool
	response *Response
	errMsg   string
}

// Executor is a scripted a2asrv.AgentExecutor: each Execute call is
// matched against an ordered rule set (first match wins) and emits the
// corresponding status-update sequence onto the task queue.
type Executor struct {
	rules   []rule
	latency time.Duration
	taskSeq atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithSkillResponse adds a rule that completes the task with response for
// the given skill ID.
func WithSkillResponse(skillID string, response Response) Option {
	return func(e *Executor) {
		e.rules = append(e.rules, rule{skillID: skillID, response: &response})
	}
}

// WithSkillError adds a rule that fails the task with errMsg for the
// given skill ID.
func WithSkillError(skillID, errMsg string) Option {
	return func(e *Executor) {
		e.rules = append(e.rules, rule{skillID: skillID, errMsg: errMsg})
	}
}

// WithLatency delays every Execute call by d before evaluating rules,
// simulating a slow downstream agent.
func WithLatency(d time.Duration) Option {
	return func(e *Executor) { e.latency = d }
}

// WithInputMatcher adds a rule that fires when fn returns true for the
// incoming message, scoped to skillID (empty matches any skill). Rules
// are evaluated in order; first match wins.
func WithInputMatcher(skillID string, fn func(a2a.Message) bool, response Response) Option {
	return func(e *Executor) {
		e.rules = append(e.rules, rule{skillID: skillID, matcher: fn, response: &response})
	}
}

// New returns a scripted Executor ready to pass to
// a2asrv.NewDefaultRequestHandler.
func New(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements a2asrv.AgentExecutor. It emits a submitted task, a
// working status update, then a completed/failed terminal update per the
// first matching rule, or fails the task if no rule matches.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, q *eventqueue.Queue) error {
	if e.latency > 0 {
		select {
		case <-time.After(e.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	taskID := reqCtx.TaskID
	contextID := reqCtx.ContextID
	skillID := skillIDOf(reqCtx.Message)

	q.Enqueue(a2a.Task{
		ID:        taskID,
		ContextID: contextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
	})
	q.Enqueue(&a2a.TaskStatusUpdateEvent{
		TaskID: taskID, ContextID: contextID,
		Status: a2a.TaskStatus{State: a2a.TaskStateWorking},
	})

	for _, r := range e.rules {
		if r.skillID != "" && r.skillID != skillID {
			continue
		}
		if r.matcher != nil && !r.matcher(reqCtx.Message) {
			continue
		}

		seq := e.taskSeq.Add(1)
		if r.errMsg != "" {
			q.Enqueue(&a2a.TaskStatusUpdateEvent{
				TaskID: taskID, ContextID: contextID,
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateFailed,
					Message: &a2a.Message{Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart(r.errMsg)}},
				},
				Final: true,
			})
			q.Close(false)
			return nil
		}

		q.Enqueue(&a2a.TaskArtifactUpdateEvent{
			TaskID: taskID, ContextID: contextID,
			Artifact: a2a.Artifact{ArtifactID: fmt.Sprintf("artifact-%d", seq), Parts: r.response.Parts},
		})
		q.Enqueue(&a2a.TaskStatusUpdateEvent{
			TaskID: taskID, ContextID: contextID,
			Status: a2a.TaskStatus{State: a2a.TaskStateCompleted},
			Final:  true,
		})
		q.Close(false)
		return nil
	}

	q.Enqueue(&a2a.TaskStatusUpdateEvent{
		TaskID: taskID, ContextID: contextID,
		Status: a2a.TaskStatus{
			State:   a2a.TaskStateFailed,
			Message: &a2a.Message{Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart("a2atest: no matching rule")}},
		},
		Final: true,
	})
	q.Close(false)
	return nil
}

// Cancel implements a2asrv.AgentExecutor; the scripted executor has no
// long-running work to interrupt.
func (e *Executor) Cancel(context.Context, string) error { return nil }

func skillIDOf(msg a2a.Message) string {
	if v, ok := msg.Metadata["skillId"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

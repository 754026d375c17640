// Package fold implements the deterministic task-state reducer: it consumes
// a2a.Event values one at a time and maintains a current a2a.Task snapshot,
// applying the same rules on both the client and the server so that, given
// the same event prefix, both sides converge on byte-identical snapshots.
package fold

import (
	"fmt"

	"github.com/a2arelay/a2arelay/a2a"
)

// ErrDuplicateInitialTask is returned by Apply when a second Task event
// arrives on a fold that already has a snapshot.
var ErrDuplicateInitialTask = fmt.Errorf("fold: duplicate initial task event")

// Fold accumulates a Task snapshot from a sequence of events, or — in the
// direct-reply case — a single terminal Message. It is not safe for
// concurrent use; callers serialize access to one Fold per task/stream.
type Fold struct {
	task       *a2a.Task
	message    *a2a.Message // set in the direct-reply case
	eventCount int
	final      bool
	interrupt  bool
}

// New returns an empty Fold.
func New() *Fold { return &Fold{} }

// Task returns the current snapshot, or nil if no Task/TaskStatusUpdateEvent
// has been folded yet.
func (f *Fold) Task() *a2a.Task { return f.task }

// Message returns the direct-reply Message, if the stream took that form.
func (f *Fold) Message() *a2a.Message { return f.message }

// Final reports whether the fold has observed a finalizing event: a Message
// event, a TaskStatusUpdateEvent with Final=true, or a
// Task/TaskStatusUpdateEvent in a terminal, input-required, or unknown
// state. auth-required is reported via Interruptible, not Final.
func (f *Fold) Final() bool { return f.final }

// Interruptible reports whether the task is in auth-required state: the
// stream may resume after external action rather than being truly done.
func (f *Fold) Interruptible() bool { return f.interrupt }

// EventCount returns the number of events folded so far (used by tests to
// check stream length).
func (f *Fold) EventCount() int { return f.eventCount }

// Apply folds one event into the snapshot, applying the reducer's rules in
// order. It returns ErrDuplicateInitialTask, a2a.InvalidState-style errors,
// or nil.
func (f *Fold) Apply(e a2a.Event) error {
	if f.message != nil {
		return a2a.NewInvalidStateError("fold: event received after direct-reply message finalized the stream")
	}
	if f.final && !f.interrupt {
		return a2a.NewInvalidStateError("fold: event received after stream finalized")
	}

	f.eventCount++

	switch ev := e.(type) {
	case a2a.Task:
		if f.task != nil {
			return ErrDuplicateInitialTask
		}
		snapshot := ev
		f.task = &snapshot
		f.updateFinality(snapshot.Status.State, false)

	case *a2a.TaskStatusUpdateEvent:
		f.applyStatusUpdate(ev)

	case *a2a.TaskArtifactUpdateEvent:
		f.applyArtifactUpdate(ev)

	case *a2a.Message:
		if f.eventCount != 1 {
			return a2a.NewInvalidStateError("fold: Message event must be the sole, first event in a stream")
		}
		f.message = ev
		f.final = true

	default:
		return a2a.NewInvalidArgsError("fold: unrecognized event type")
	}
	return nil
}

func (f *Fold) applyStatusUpdate(ev *a2a.TaskStatusUpdateEvent) {
	if f.task == nil {
		f.task = &a2a.Task{
			ID:        ev.TaskID,
			ContextID: ev.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateUnknown},
		}
	}

	if ev.Status.Message != nil {
		f.task.History = append(f.task.History, *ev.Status.Message)
	}

	if ev.Metadata != nil {
		if f.task.Metadata == nil {
			f.task.Metadata = make(map[string]any, len(ev.Metadata))
		}
		for k, v := range ev.Metadata {
			f.task.Metadata[k] = v
		}
	}

	f.task.Status = ev.Status
	f.updateFinality(ev.Status.State, ev.Final)
}

func (f *Fold) applyArtifactUpdate(ev *a2a.TaskArtifactUpdateEvent) {
	if f.task == nil {
		f.task = &a2a.Task{ID: ev.TaskID, ContextID: ev.ContextID}
	}

	existing := f.task.FindArtifact(ev.Artifact.ArtifactID)

	switch {
	case !ev.Append:
		if existing != nil {
			*existing = ev.Artifact
		} else {
			f.task.Artifacts = append(f.task.Artifacts, ev.Artifact)
		}
	case existing != nil:
		existing.Parts = append(existing.Parts, ev.Artifact.Parts...)
	default:
		// append=true with no matching artifact: drop silently.
	}
}

// updateFinality applies the "Finality detection" rule for Task and
// TaskStatusUpdateEvent observations.
func (f *Fold) updateFinality(state a2a.TaskState, explicitFinal bool) {
	switch {
	case explicitFinal:
		f.final = true
		f.interrupt = false
	case state == a2a.TaskStateAuthRequired:
		f.final = true
		f.interrupt = true
	case state.IsTerminal() || state == a2a.TaskStateInputRequired || state == a2a.TaskStateUnknown:
		f.final = true
		f.interrupt = false
	}
}

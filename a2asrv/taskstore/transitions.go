package taskstore

import "github.com/a2arelay/a2arelay/a2a"

// validTransitions mirrors runtime/a2a/task_store.go's validTransitions
// table, generalized to the full TaskState enum. It exists to let callers
// (the default request handler, cancel_task) reject an event that would
// move a task out of a terminal state before it reaches the fold.
var validTransitions = map[a2a.TaskState]map[a2a.TaskState]bool{
	a2a.TaskStateSubmitted: {
		a2a.TaskStateWorking: true,
		a2a.TaskStateCanceled: true,
		a2a.TaskStateRejected: true,
	},
	a2a.TaskStateWorking: {
		a2a.TaskStateCompleted:     true,
		a2a.TaskStateFailed:        true,
		a2a.TaskStateCanceled:      true,
		a2a.TaskStateInputRequired: true,
		a2a.TaskStateAuthRequired:  true,
	},
	a2a.TaskStateInputRequired: {
		a2a.TaskStateWorking:  true,
		a2a.TaskStateCanceled: true,
	},
	a2a.TaskStateAuthRequired: {
		a2a.TaskStateWorking:  true,
		a2a.TaskStateCanceled: true,
	},
}

// ValidateTransition reports whether moving a task from `from` to `to` is
// allowed. Terminal states never transition out; a transition into the
// same state is always a no-op and allowed.
func ValidateTransition(from, to a2a.TaskState) error {
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return a2a.NewInvalidStateError("task is in terminal state " + string(from) + ", cannot transition to " + string(to))
	}
	if allowed, ok := validTransitions[from]; ok && allowed[to] {
		return nil
	}
	return a2a.NewInvalidStateError("invalid transition from " + string(from) + " to " + string(to))
}

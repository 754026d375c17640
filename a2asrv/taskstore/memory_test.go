package taskstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
)

func TestMemory_SaveGetDelete(t *testing.T) {
	s := taskstore.NewMemory()
	task := a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted}}
	require.NoError(t, s.Save(task))

	got, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, task, *got)

	require.NoError(t, s.Delete("t1"))
	_, err = s.Get("t1")
	assert.Error(t, err)
}

func TestMemory_GetMissingIsNotFound(t *testing.T) {
	s := taskstore.NewMemory()
	_, err := s.Get("missing")
	var a2aErr *a2a.Error
	require.ErrorAs(t, err, &a2aErr)
	assert.Equal(t, a2a.KindNotFound, a2aErr.Kind)
}

func TestMemory_ListFiltersByContext(t *testing.T) {
	s := taskstore.NewMemory()
	require.NoError(t, s.Save(a2a.Task{ID: "t1", ContextID: "c1"}))
	require.NoError(t, s.Save(a2a.Task{ID: "t2", ContextID: "c2"}))

	tasks, err := s.List("c1", 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestMemory_SweepEvictsOldTasks(t *testing.T) {
	s := taskstore.NewMemory(taskstore.WithTTL(time.Millisecond))
	require.NoError(t, s.Save(a2a.Task{ID: "t1"}))

	removed := s.Sweep(time.Now().Add(time.Hour))
	assert.Equal(t, 1, removed)
	_, err := s.Get("t1")
	assert.Error(t, err)
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, taskstore.ValidateTransition(a2a.TaskStateSubmitted, a2a.TaskStateWorking))
	assert.NoError(t, taskstore.ValidateTransition(a2a.TaskStateWorking, a2a.TaskStateCompleted))
	assert.Error(t, taskstore.ValidateTransition(a2a.TaskStateCompleted, a2a.TaskStateWorking))
	assert.Error(t, taskstore.ValidateTransition(a2a.TaskStateSubmitted, a2a.TaskStateCompleted))
	assert.NoError(t, taskstore.ValidateTransition(a2a.TaskStateWorking, a2a.TaskStateWorking))
}

func TestMemoryPushConfigStore(t *testing.T) {
	s := taskstore.NewMemoryPushConfigStore()
	cfg := a2a.TaskPushNotificationConfig{TaskID: "t1", PushNotificationConfig: a2a.PushNotificationConfig{URL: "https://example.com/hook"}}
	require.NoError(t, s.Save(cfg))

	got, err := s.Get("t1", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", got.PushNotificationConfig.URL)

	list, err := s.List("t1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Delete("t1", ""))
	_, err = s.Get("t1", "")
	assert.Error(t, err)
}

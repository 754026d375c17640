package taskstore_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
)

func newRedisStore(t *testing.T) *taskstore.Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return taskstore.NewRedis(client)
}

func TestRedis_SaveGetDelete(t *testing.T) {
	s := newRedisStore(t)
	task := a2a.Task{ID: "t1", ContextID: "c1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}
	require.NoError(t, s.Save(task))

	got, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Status.State, got.Status.State)

	require.NoError(t, s.Delete("t1"))
	_, err = s.Get("t1")
	assert.Error(t, err)
}

func TestRedis_ListByContext(t *testing.T) {
	s := newRedisStore(t)
	require.NoError(t, s.Save(a2a.Task{ID: "t1", ContextID: "c1"}))
	require.NoError(t, s.Save(a2a.Task{ID: "t2", ContextID: "c2"}))

	tasks, err := s.List("c1", 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

package taskstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/a2arelay/a2arelay/a2a"
	errctx "github.com/a2arelay/a2arelay/errctx"
)

// Redis is a network-backed Store implementation exercising
// github.com/redis/go-redis/v9, supplementing the required in-memory store
// with a concrete networked one. Tasks are stored as JSON under
// "a2a:task:<id>"; a per-context set "a2a:ctx:<contextID>" tracks member
// task IDs for List.
type Redis struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedis wraps an existing *redis.Client. Callers own the client's
// lifecycle (Close).
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, ctx: context.Background()}
}

func taskKey(id string) string { return "a2a:task:" + id }
func ctxKey(contextID string) string { return "a2a:ctx:" + contextID }

func (r *Redis) Get(id string) (*a2a.Task, error) {
	raw, err := r.client.Get(r.ctx, taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, a2a.NewNotFoundError("task " + id + " not found")
	}
	if err != nil {
		return nil, errctx.New("taskstore.redis", "Get", err)
	}
	var task a2a.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, errctx.New("taskstore.redis", "Get", err).WithDetails(map[string]any{"reason": "malformed task JSON"})
	}
	return &task, nil
}

func (r *Redis) Save(task a2a.Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return errctx.New("taskstore.redis", "Save", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(r.ctx, taskKey(task.ID), raw, 0)
	if task.ContextID != "" {
		pipe.SAdd(r.ctx, ctxKey(task.ContextID), task.ID)
	}
	if _, err := pipe.Exec(r.ctx); err != nil {
		return errctx.New("taskstore.redis", "Save", err)
	}
	return nil
}

func (r *Redis) Delete(id string) error {
	if err := r.client.Del(r.ctx, taskKey(id)).Err(); err != nil {
		return errctx.New("taskstore.redis", "Delete", err)
	}
	return nil
}

func (r *Redis) List(contextID string, pageSize int) ([]a2a.Task, error) {
	var ids []string
	if contextID != "" {
		members, err := r.client.SMembers(r.ctx, ctxKey(contextID)).Result()
		if err != nil {
			return nil, errctx.New("taskstore.redis", "List", err)
		}
		ids = members
	} else {
		keys, err := r.client.Keys(r.ctx, "a2a:task:*").Result()
		if err != nil {
			return nil, errctx.New("taskstore.redis", "List", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, "a2a:task:"))
		}
	}
	if pageSize > 0 && len(ids) > pageSize {
		ids = ids[:pageSize]
	}

	out := make([]a2a.Task, 0, len(ids))
	for _, id := range ids {
		task, err := r.Get(id)
		if err != nil {
			if a2aErr, ok := err.(*a2a.Error); ok && a2aErr.Kind == a2a.KindNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, *task)
	}
	return out, nil
}

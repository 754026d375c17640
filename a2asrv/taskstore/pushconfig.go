package taskstore

import (
	"sync"

	"github.com/a2arelay/a2arelay/a2a"
)

// PushConfigStore persists per-task push notification webhook configs.
type PushConfigStore interface {
	Save(cfg a2a.TaskPushNotificationConfig) error
	Get(taskID, configID string) (*a2a.TaskPushNotificationConfig, error)
	List(taskID string) ([]a2a.TaskPushNotificationConfig, error)
	Delete(taskID, configID string) error
}

// MemoryPushConfigStore is an in-memory PushConfigStore.
type MemoryPushConfigStore struct {
	mu      sync.RWMutex
	configs map[string]map[string]a2a.TaskPushNotificationConfig // taskID -> configID -> cfg
}

func NewMemoryPushConfigStore() *MemoryPushConfigStore {
	return &MemoryPushConfigStore{configs: make(map[string]map[string]a2a.TaskPushNotificationConfig)}
}

func (s *MemoryPushConfigStore) Save(cfg a2a.TaskPushNotificationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := cfg.PushNotificationConfig.ID
	if id == "" {
		id = "default"
		cfg.PushNotificationConfig.ID = id
	}
	byID, ok := s.configs[cfg.TaskID]
	if !ok {
		byID = make(map[string]a2a.TaskPushNotificationConfig)
		s.configs[cfg.TaskID] = byID
	}
	byID[id] = cfg
	return nil
}

func (s *MemoryPushConfigStore) Get(taskID, configID string) (*a2a.TaskPushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.configs[taskID]
	if !ok {
		return nil, a2a.NewNotFoundError("no push config for task " + taskID)
	}
	if configID == "" {
		configID = "default"
	}
	cfg, ok := byID[configID]
	if !ok {
		return nil, a2a.NewNotFoundError("push config " + configID + " not found")
	}
	return &cfg, nil
}

func (s *MemoryPushConfigStore) List(taskID string) ([]a2a.TaskPushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.configs[taskID]
	out := make([]a2a.TaskPushNotificationConfig, 0, len(byID))
	for _, cfg := range byID {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *MemoryPushConfigStore) Delete(taskID, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.configs[taskID]
	if !ok {
		return nil
	}
	if configID == "" {
		configID = "default"
	}
	delete(byID, configID)
	return nil
}

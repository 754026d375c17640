package eventqueue

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager maps task_id -> Queue and is safe for concurrent callers.
type Manager struct {
	mu    sync.Mutex
	queues map[string]*Queue
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{queues: make(map[string]*Queue)}
}

// Add registers a new queue for taskID. It errors if one already exists.
func (m *Manager) Add(taskID string, q *Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[taskID]; ok {
		return fmt.Errorf("eventqueue: queue already exists for task %q", taskID)
	}
	m.queues[taskID] = q
	return nil
}

// Get returns the queue for taskID, or nil if absent.
func (m *Manager) Get(taskID string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[taskID]
}

// Tap returns a tap of the queue for taskID, or nil if no queue is
// registered for that task.
func (m *Manager) Tap(taskID string) *Queue {
	m.mu.Lock()
	q := m.queues[taskID]
	m.mu.Unlock()
	if q == nil {
		return nil
	}
	return q.Tap()
}

// CreateOrTap atomically either creates a fresh queue for taskID (if none
// exists) or taps the existing one, returning (queue, created).
func (m *Manager) CreateOrTap(taskID string, capacity int) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[taskID]; ok {
		return q.Tap(), false
	}
	q := New(capacity)
	m.queues[taskID] = q
	return q, true
}

// Close closes and removes the queue registered for taskID, if any.
func (m *Manager) Close(taskID string, immediate bool) {
	m.mu.Lock()
	q, ok := m.queues[taskID]
	if ok {
		delete(m.queues, taskID)
	}
	m.mu.Unlock()
	if ok {
		q.Close(immediate)
	}
}

// CloseAll closes every still-registered queue concurrently, used on
// server shutdown so a large number of in-flight tasks doesn't serialize
// behind one slow Close call.
func (m *Manager) CloseAll(immediate bool) {
	m.mu.Lock()
	queues := make([]*Queue, 0, len(m.queues))
	for taskID, q := range m.queues {
		queues = append(queues, q)
		delete(m.queues, taskID)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, q := range queues {
		q := q
		g.Go(func() error {
			q.Close(immediate)
			return nil
		})
	}
	_ = g.Wait()
}

// Package tasks tracks background analysis runs so clients can poll for
// results instead of holding a request open.
package tasks

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Task struct {
	ID        string          `json:"task_id"`
	Status    Status          `json:"status"`
	Query     string          `json:"query"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store holds tasks in memory. Tasks do not survive a restart, which is
// acceptable for poll-until-done lifetimes.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewStore() *Store {
	return &Store{tasks: make(map[string]Task)}
}

func (s *Store) Create(query string) string {
	id := uuid.New().String()
	now := time.Now().UTC()

	s.mu.Lock()
	s.tasks[id] = Task{
		ID:        id,
		Status:    StatusStarted,
		Query:     query,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Unlock()

	return id
}

func (s *Store) Complete(id string, result json.RawMessage) {
	s.update(id, func(t *Task) {
		t.Status = StatusCompleted
		t.Result = result
	})
}

func (s *Store) Fail(id string, errMsg string) {
	s.update(id, func(t *Task) {
		t.Status = StatusFailed
		t.Error = errMsg
	})
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *Store) update(id string, fn func(*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return
	}
	fn(&t)
	t.UpdatedAt = time.Now().UTC()
	s.tasks[id] = t
}

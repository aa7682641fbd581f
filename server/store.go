// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"sync"

	"github.com/agentwire/agentwire"
)

// TaskStore is the authoritative in-memory task map. Every code path,
// synchronous or streaming, writes through it, so tasks/get always agrees
// with what a concurrently running stream has already emitted.
//
// Mutations on one task id are serialized by a per-task lock; operations on
// different ids do not contend beyond the map lookup.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[string]*storedTask
}

type storedTask struct {
	mu   sync.Mutex
	task *agentwire.Task
}

// NewTaskStore returns an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*storedTask)}
}

// lookup returns the entry for id, creating it when create is set. The map
// lock is held only for the lookup, never across a task mutation.
func (s *TaskStore) lookup(id string, create bool) (*storedTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[id]
	if !ok && create {
		st = &storedTask{}
		s.tasks[id] = st
		ok = true
	}
	return st, ok
}

// Upsert creates the task if absent, submitted with msg as the sole history
// entry, or appends msg to the existing task's history leaving its state
// untouched. Concurrent upserts for the same id create the task at most once.
func (s *TaskStore) Upsert(id, contextID string, msg *agentwire.Message) (*agentwire.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("upsert: task id cannot be empty")
	}
	st, _ := s.lookup(id, true)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.task == nil {
		st.task = agentwire.NewTask(id, contextID, msg)
	} else if msg != nil {
		st.task.History = append(st.task.History, msg)
	}
	return st.task.Snapshot(nil), nil
}

// UpdateStatus replaces the task's status, appends the status message to
// history, merges artifacts under the append-by-id rule and returns the new
// snapshot. The stored timestamp never moves backwards.
func (s *TaskStore) UpdateStatus(id string, status agentwire.TaskStatus, artifacts []*agentwire.Artifact) (*agentwire.Task, error) {
	st, ok := s.lookup(id, false)
	if !ok {
		return nil, fmt.Errorf("update status %q: %w", id, agentwire.ErrTaskNotFound)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.task == nil {
		return nil, fmt.Errorf("update status %q: %w", id, agentwire.ErrTaskNotFound)
	}
	if status.Timestamp == "" {
		status.Timestamp = agentwire.NewTaskStatus(status.State).Timestamp
	}
	if status.Time().Before(st.task.Status.Time()) {
		status.Timestamp = st.task.Status.Timestamp
	}
	st.task.Status = status
	if status.Message != nil {
		st.task.History = append(st.task.History, status.Message)
	}
	for _, artifact := range artifacts {
		st.task.AppendArtifact(artifact)
	}
	return st.task.Snapshot(nil), nil
}

// Get returns a snapshot of the task. A non-nil historyLength truncates the
// snapshot's history to the most recent N entries; the stored history is
// never mutated.
func (s *TaskStore) Get(id string, historyLength *int) (*agentwire.Task, error) {
	st, ok := s.lookup(id, false)
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, agentwire.ErrTaskNotFound)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.task == nil {
		return nil, fmt.Errorf("get %q: %w", id, agentwire.ErrTaskNotFound)
	}
	return st.task.Snapshot(historyLength), nil
}

// Cancel transitions the task to canceled if its current state is
// non-terminal, and fails with [agentwire.ErrTaskNotCancelable] otherwise.
func (s *TaskStore) Cancel(id string) (*agentwire.Task, error) {
	st, ok := s.lookup(id, false)
	if !ok {
		return nil, fmt.Errorf("cancel %q: %w", id, agentwire.ErrTaskNotFound)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.task == nil {
		return nil, fmt.Errorf("cancel %q: %w", id, agentwire.ErrTaskNotFound)
	}
	if st.task.Status.State.Terminal() {
		return nil, fmt.Errorf("cancel %q in state %q: %w", id, st.task.Status.State, agentwire.ErrTaskNotCancelable)
	}
	status := agentwire.NewTaskStatus(agentwire.TaskStateCanceled)
	if status.Time().Before(st.task.Status.Time()) {
		status.Timestamp = st.task.Status.Timestamp
	}
	st.task.Status = status
	return st.task.Snapshot(nil), nil
}

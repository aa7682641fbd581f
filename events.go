// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

// Event kind discriminator values for streaming events.
const (
	EventKindStatusUpdate   = "status-update"
	EventKindArtifactUpdate = "artifact-update"
)

// Event is a streaming update for one task: either a TaskStatusUpdateEvent or
// a TaskArtifactUpdateEvent, discriminated on the wire by the "kind" field.
type Event interface {
	EventKind() string
	EventTaskID() string
}

// TaskStatusUpdateEvent announces a status change for a task. A Final event
// terminates the task's event stream.
type TaskStatusUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId,omitzero"`
	Kind      string         `json:"kind"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTaskStatusUpdateEvent returns a status update event with the kind
// discriminator set.
func NewTaskStatusUpdateEvent(taskID, contextID string, status TaskStatus, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      EventKindStatusUpdate,
		Status:    status,
		Final:     final,
	}
}

// EventKind returns the event kind discriminator.
func (e *TaskStatusUpdateEvent) EventKind() string { return EventKindStatusUpdate }

// EventTaskID returns the id of the task the event belongs to.
func (e *TaskStatusUpdateEvent) EventTaskID() string { return e.TaskID }

// TaskArtifactUpdateEvent carries a new or continued artifact chunk for a
// task. Append and LastChunk mirror the artifact's aggregation flags.
// Artifact events are never final on their own; a status event follows.
type TaskArtifactUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId,omitzero"`
	Kind      string         `json:"kind"`
	Artifact  *Artifact      `json:"artifact"`
	Append    bool           `json:"append,omitzero"`
	LastChunk bool           `json:"lastChunk,omitzero"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTaskArtifactUpdateEvent returns an artifact update event with the kind
// discriminator set and the aggregation flags lifted from the artifact.
func NewTaskArtifactUpdateEvent(taskID, contextID string, artifact *Artifact) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      EventKindArtifactUpdate,
		Artifact:  artifact,
		Append:    artifact.Append,
		LastChunk: artifact.LastChunk,
	}
}

// EventKind returns the event kind discriminator.
func (e *TaskArtifactUpdateEvent) EventKind() string { return EventKindArtifactUpdate }

// EventTaskID returns the id of the task the event belongs to.
func (e *TaskArtifactUpdateEvent) EventTaskID() string { return e.TaskID }

// IsFinalEvent reports whether e terminates its task's event stream.
func IsFinalEvent(e Event) bool {
	se, ok := e.(*TaskStatusUpdateEvent)
	return ok && se.Final
}

// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentwire provides the wire vocabulary for the Agent-to-Agent (A2A)
// task protocol: tasks, messages, parts, artifacts, streaming events, push
// notification configuration, the agent card, and the JSON-RPC 2.0 envelope
// that carries all of them.
package agentwire

import (
	"fmt"
	"time"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

// Task lifecycle states.
const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
	TaskStateFailed        TaskState = "failed"
	TaskStateUnknown       TaskState = "unknown"
)

// Terminal reports whether the state ends the task lifecycle. Terminal tasks
// accept no further status updates through cancelation.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateRejected, TaskStateFailed:
		return true
	default:
		return false
	}
}

// TaskStatus captures the current state of a task together with an optional
// interim agent message and the time of the write.
type TaskStatus struct {
	State TaskState `json:"state"`
	// Message carries interim agent output for working or input-required
	// states.
	Message   *Message `json:"message,omitzero"`
	Timestamp string   `json:"timestamp,omitzero"`
}

// Timestamp layout for TaskStatus. Nanosecond precision keeps successive
// writes on the same task distinguishable.
const timestampLayout = time.RFC3339Nano

// NewTaskStatus returns a TaskStatus for state with the timestamp set to now.
func NewTaskStatus(state TaskState) TaskStatus {
	return TaskStatus{
		State:     state,
		Timestamp: time.Now().UTC().Format(timestampLayout),
	}
}

// Time parses the status timestamp. Returns the zero time if the timestamp is
// absent or malformed.
func (s TaskStatus) Time() time.Time {
	t, err := time.Parse(timestampLayout, s.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Task is a unit of work tracked by id with a state machine, accumulated
// artifacts and an append-only message history.
// KindTask is the wire discriminator carried by every Task.
const KindTask = "task"

type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId,omitzero"`
	Kind      string         `json:"kind,omitzero"`
	Status    TaskStatus     `json:"status"`
	Artifacts []*Artifact    `json:"artifacts,omitzero"`
	History   []*Message     `json:"history,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Artifact is a named, possibly incrementally built output attached to a task.
type Artifact struct {
	ArtifactID  string `json:"artifactId"`
	Name        string `json:"name,omitzero"`
	Description string `json:"description,omitzero"`
	Parts       Parts  `json:"parts"`
	// Append concatenates Parts onto the artifact already stored under
	// ArtifactID instead of replacing it.
	Append bool `json:"append,omitzero"`
	// LastChunk marks the end of an incrementally built artifact.
	LastChunk bool           `json:"lastChunk,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Artifact is well formed.
func (a *Artifact) Validate() error {
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact id cannot be empty")
	}
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact %q must contain at least one part", a.ArtifactID)
	}
	for i, p := range a.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("artifact %q part %d: %w", a.ArtifactID, i, err)
		}
	}
	return nil
}

// PushNotificationConfig describes where and how task state changes are
// delivered out of band.
type PushNotificationConfig struct {
	URL            string                          `json:"url"`
	Token          string                          `json:"token,omitzero"`
	Authentication *PushNotificationAuthentication `json:"authentication,omitzero"`
}

// PushNotificationAuthentication describes the authentication scheme the
// callback endpoint expects.
type PushNotificationAuthentication struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitzero"`
}

// Validate ensures the config names a callback URL.
func (c *PushNotificationConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("push notification url cannot be empty")
	}
	return nil
}

// TaskPushNotificationConfig binds a push notification config to a task id.
// It is both the params and the result shape of tasks/pushNotification/set.
type TaskPushNotificationConfig struct {
	ID                     string                 `json:"id"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// AgentCapabilities advertises the optional protocol surfaces an agent
// supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitzero"`
	PushNotifications      bool `json:"pushNotifications,omitzero"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentProvider identifies the organization behind an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitzero"`
}

// AgentSkill describes one capability an agent offers.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitzero"`
	Tags        []string `json:"tags,omitzero"`
	Examples    []string `json:"examples,omitzero"`
	InputModes  []string `json:"inputModes,omitzero"`
	OutputModes []string `json:"outputModes,omitzero"`
}

// AgentCard is the static, process-wide descriptor served unauthenticated at
// the well-known discovery paths.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitzero"`
	URL                string            `json:"url"`
	Provider           *AgentProvider    `json:"provider,omitzero"`
	Version            string            `json:"version"`
	ProtocolVersion    string            `json:"protocolVersion,omitzero"`
	DocumentationURL   string            `json:"documentationUrl,omitzero"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitzero"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitzero"`
	Skills             []AgentSkill      `json:"skills"`
}

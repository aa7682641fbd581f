// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"slices"

	"github.com/google/uuid"
)

// NewTask returns a freshly submitted task with msg as the first history
// entry. Empty id or contextID are filled with generated UUIDs.
func NewTask(id, contextID string, msg *Message) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}
	var history []*Message
	if msg != nil {
		history = []*Message{msg}
	}
	return &Task{
		ID:        id,
		ContextID: contextID,
		Kind:      KindTask,
		Status:    NewTaskStatus(TaskStateSubmitted),
		History:   history,
	}
}

// AppendArtifact merges artifact into the task's artifact list under the
// append-by-id rule: without the append flag the artifact replaces any
// existing artifact with the same id (or is added); with the append flag its
// parts are concatenated onto the existing artifact, and a chunk for an id
// never seen before is dropped.
//
// It reports whether the task changed.
func (t *Task) AppendArtifact(artifact *Artifact) bool {
	if artifact == nil {
		return false
	}
	existing := -1
	for i, a := range t.Artifacts {
		if a.ArtifactID == artifact.ArtifactID {
			existing = i
			break
		}
	}
	switch {
	case !artifact.Append:
		if existing == -1 {
			t.Artifacts = append(t.Artifacts, artifact)
		} else {
			t.Artifacts[existing] = artifact
		}
		return true
	case existing != -1:
		t.Artifacts[existing].Parts = append(t.Artifacts[existing].Parts, artifact.Parts...)
		if artifact.LastChunk {
			t.Artifacts[existing].LastChunk = true
		}
		return true
	default:
		// Append chunk for an artifact id never seen: nothing to attach
		// it to, drop it.
		return false
	}
}

// Snapshot returns a copy of the task safe to hand to callers. Artifacts are
// deep-copied so later append chunks merged into the store do not show
// through; if historyLength is non-nil the copy's history is truncated to the
// most recent N entries.
func (t *Task) Snapshot(historyLength *int) *Task {
	snap := &Task{
		ID:        t.ID,
		ContextID: t.ContextID,
		Kind:      t.Kind,
		Status:    t.Status,
		Metadata:  t.Metadata,
	}
	if t.Artifacts != nil {
		snap.Artifacts = make([]*Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			clone := *a
			clone.Parts = slices.Clone(a.Parts)
			snap.Artifacts[i] = &clone
		}
	}
	history := t.History
	if historyLength != nil && *historyLength < len(history) {
		history = history[len(history)-*historyLength:]
	}
	if history != nil {
		snap.History = make([]*Message, len(history))
		copy(snap.History, history)
	}
	return snap
}

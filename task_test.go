// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	msg := NewUserTextMessage("hello")

	task := NewTask("t1", "c1", msg)
	if task.ID != "t1" || task.ContextID != "c1" {
		t.Errorf("ids not preserved: got %q/%q", task.ID, task.ContextID)
	}
	if task.Kind != KindTask {
		t.Errorf("kind = %q, want %q", task.Kind, KindTask)
	}
	if task.Status.State != TaskStateSubmitted {
		t.Errorf("state = %q, want %q", task.Status.State, TaskStateSubmitted)
	}
	if task.Status.Timestamp == "" {
		t.Error("timestamp not set")
	}
	if len(task.History) != 1 || task.History[0] != msg {
		t.Errorf("history = %v, want the initial message", task.History)
	}

	generated := NewTask("", "", msg)
	if generated.ID == "" || generated.ContextID == "" {
		t.Error("empty ids must be generated")
	}
}

func TestTaskAppendArtifact(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		existing    []*Artifact
		artifact    *Artifact
		wantChanged bool
		want        []*Artifact
	}{
		"success: add new artifact": {
			artifact:    &Artifact{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}},
			wantChanged: true,
			want:        []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}}},
		},
		"success: replace existing artifact": {
			existing:    []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("old")}}},
			artifact:    &Artifact{ArtifactID: "a1", Parts: Parts{NewTextPart("new")}},
			wantChanged: true,
			want:        []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("new")}}},
		},
		"success: append parts to existing artifact": {
			existing:    []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}}},
			artifact:    &Artifact{ArtifactID: "a1", Append: true, LastChunk: true, Parts: Parts{NewTextPart("two")}},
			wantChanged: true,
			want: []*Artifact{{
				ArtifactID: "a1",
				LastChunk:  true,
				Parts:      Parts{NewTextPart("one"), NewTextPart("two")},
			}},
		},
		"success: append chunk for unknown id is dropped": {
			existing:    []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}}},
			artifact:    &Artifact{ArtifactID: "a2", Append: true, Parts: Parts{NewTextPart("two")}},
			wantChanged: false,
			want:        []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}}},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			task := &Task{ID: "t1", Artifacts: tt.existing}
			changed := task.AppendArtifact(tt.artifact)
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if diff := cmp.Diff(tt.want, task.Artifacts); diff != "" {
				t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskSnapshotHistoryTruncation(t *testing.T) {
	t.Parallel()

	task := NewTask("t1", "c1", NewUserTextMessage("first"))
	task.History = append(task.History, NewAgentTextMessage("second"), NewUserTextMessage("third"))

	limit := 2
	snap := task.Snapshot(&limit)
	if len(snap.History) != 2 {
		t.Fatalf("snapshot history length = %d, want 2", len(snap.History))
	}
	if snap.History[0].Text() != "second" || snap.History[1].Text() != "third" {
		t.Errorf("snapshot must keep the most recent entries, got %q then %q",
			snap.History[0].Text(), snap.History[1].Text())
	}
	// Stored history stays intact.
	if len(task.History) != 3 {
		t.Errorf("stored history length = %d, want 3", len(task.History))
	}

	full := task.Snapshot(nil)
	if len(full.History) != 3 {
		t.Errorf("unlimited snapshot history length = %d, want 3", len(full.History))
	}
	full.History[0] = NewUserTextMessage("mutated")
	if task.History[0].Text() != "first" {
		t.Error("mutating a snapshot must not touch the stored task")
	}
}

func TestTaskSnapshotArtifactIsolation(t *testing.T) {
	t.Parallel()

	task := NewTask("t1", "c1", NewUserTextMessage("start"))
	task.AppendArtifact(&Artifact{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}})

	snap := task.Snapshot(nil)

	// An append chunk merged after the snapshot must not show through.
	task.AppendArtifact(&Artifact{
		ArtifactID: "a1",
		Append:     true,
		LastChunk:  true,
		Parts:      Parts{NewTextPart("two")},
	})

	want := []*Artifact{{ArtifactID: "a1", Parts: Parts{NewTextPart("one")}}}
	if diff := cmp.Diff(want, snap.Artifacts); diff != "" {
		t.Errorf("snapshot artifacts mismatch (-want +got):\n%s", diff)
	}
	if got := task.Artifacts[0].Parts.Text(); got != "onetwo" {
		t.Errorf("stored artifact text = %q, want %q", got, "onetwo")
	}
	if !task.Artifacts[0].LastChunk {
		t.Error("stored artifact must carry the last-chunk flag")
	}
}

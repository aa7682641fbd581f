// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
)

func TestUnmarshalPart(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		want    Part
		wantErr bool
	}{
		"success: text part": {
			input: `{"kind":"text","text":"hello"}`,
			want:  &TextPart{Kind: "text", Text: "hello"},
		},
		"success: data part": {
			input: `{"kind":"data","data":{"answer":true}}`,
			want:  &DataPart{Kind: "data", Data: map[string]any{"answer": true}},
		},
		"success: file part with uri": {
			input: `{"kind":"file","file":{"name":"report.pdf","uri":"https://example.com/report.pdf"}}`,
			want: &FilePart{Kind: "file", File: FileContent{
				Name: "report.pdf",
				URI:  "https://example.com/report.pdf",
			}},
		},
		"error: unknown kind": {
			input:   `{"kind":"video","url":"https://example.com/clip"}`,
			wantErr: true,
		},
		"error: missing kind": {
			input:   `{"text":"hello"}`,
			wantErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := UnmarshalPart([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("part mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPartsRoundTrip(t *testing.T) {
	t.Parallel()

	msg := &Message{
		Role: RoleAgent,
		Parts: Parts{
			NewTextPart("result: "),
			NewDataPart(map[string]any{"score": 0.5}),
		},
		MessageID: "m1",
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(msg, &got); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
	if got.Text() != "result: " {
		t.Errorf("Text() = %q, want %q", got.Text(), "result: ")
	}
}

func TestFileContentValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		file    FileContent
		wantErr bool
	}{
		"success: bytes only": {file: FileContent{Bytes: "aGVsbG8="}},
		"success: uri only":   {file: FileContent{URI: "https://example.com/f"}},
		"error: neither":      {file: FileContent{Name: "empty"}, wantErr: true},
		"error: both":         {file: FileContent{Bytes: "aGVsbG8=", URI: "https://example.com/f"}, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.file.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

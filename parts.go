// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Part kind discriminator values.
const (
	PartKindText = "text"
	PartKindFile = "file"
	PartKindData = "data"
)

// Part is one payload unit of a message or artifact. It is a tagged union
// discriminated by the "kind" field: exactly one of text, file or data.
type Part interface {
	PartKind() string
	Validate() error
}

// TextPart carries a plain text segment.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart returns a TextPart with the kind discriminator set.
func NewTextPart(text string) *TextPart {
	return &TextPart{Kind: PartKindText, Text: text}
}

// PartKind returns the part kind discriminator.
func (p *TextPart) PartKind() string { return PartKindText }

// Validate ensures the TextPart is well formed.
func (p *TextPart) Validate() error {
	if p.Kind != PartKindText {
		return fmt.Errorf("text part kind must be %q, got %q", PartKindText, p.Kind)
	}
	return nil
}

// FileContent is the payload of a FilePart. Exactly one of Bytes (base64) or
// URI must be set.
type FileContent struct {
	Name     string `json:"name,omitzero"`
	MimeType string `json:"mimeType,omitzero"`
	Bytes    string `json:"bytes,omitzero"`
	URI      string `json:"uri,omitzero"`
}

// Validate enforces the bytes/uri mutual exclusion.
func (f *FileContent) Validate() error {
	switch {
	case f.Bytes == "" && f.URI == "":
		return fmt.Errorf("file content must set one of bytes or uri")
	case f.Bytes != "" && f.URI != "":
		return fmt.Errorf("file content cannot set both bytes and uri")
	}
	return nil
}

// FilePart carries a file, inline or by reference.
type FilePart struct {
	Kind     string         `json:"kind"`
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// PartKind returns the part kind discriminator.
func (p *FilePart) PartKind() string { return PartKindFile }

// Validate ensures the FilePart is well formed.
func (p *FilePart) Validate() error {
	if p.Kind != PartKindFile {
		return fmt.Errorf("file part kind must be %q, got %q", PartKindFile, p.Kind)
	}
	return p.File.Validate()
}

// DataPart carries structured data.
type DataPart struct {
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewDataPart returns a DataPart with the kind discriminator set.
func NewDataPart(data map[string]any) *DataPart {
	return &DataPart{Kind: PartKindData, Data: data}
}

// PartKind returns the part kind discriminator.
func (p *DataPart) PartKind() string { return PartKindData }

// Validate ensures the DataPart is well formed.
func (p *DataPart) Validate() error {
	if p.Kind != PartKindData {
		return fmt.Errorf("data part kind must be %q, got %q", PartKindData, p.Kind)
	}
	if p.Data == nil {
		return fmt.Errorf("data part data cannot be nil")
	}
	return nil
}

// Parts is an ordered part sequence that decodes the kind-tagged union.
type Parts []Part

// UnmarshalPart decodes a single kind-tagged part object.
func UnmarshalPart(data []byte) (Part, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode part kind: %w", err)
	}
	switch head.Kind {
	case PartKindText:
		p := new(TextPart)
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("unmarshal text part: %w", err)
		}
		return p, nil
	case PartKindFile:
		p := new(FilePart)
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("unmarshal file part: %w", err)
		}
		return p, nil
	case PartKindData:
		p := new(DataPart)
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("unmarshal data part: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part kind %q", head.Kind)
	}
}

// UnmarshalJSON decodes each element through the kind discriminator.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raws []jsontext.Value
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Parts, 0, len(raws))
	for i, raw := range raws {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		out = append(out, p)
	}
	*ps = out
	return nil
}

// Text concatenates the text of every text part in order.
func (ps Parts) Text() string {
	var out string
	for _, p := range ps {
		if tp, ok := p.(*TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

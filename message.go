// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the sender of a message.
type Role string

// Message roles.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one turn of a task conversation: a role plus an ordered sequence
// of parts. TaskID and ContextID are set on messages sent through the
// message/send and message/stream methods to address an existing task or
// conversation.
type Message struct {
	Role      Role           `json:"role"`
	Parts     Parts          `json:"parts"`
	MessageID string         `json:"messageId,omitzero"`
	TaskID    string         `json:"taskId,omitzero"`
	ContextID string         `json:"contextId,omitzero"`
	Kind      string         `json:"kind,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// KindMessage is the wire discriminator carried by every Message.
const KindMessage = "message"

// NewUserTextMessage returns a user message with a single text part and a
// fresh message id.
func NewUserTextMessage(text string) *Message {
	return &Message{
		Role:      RoleUser,
		Parts:     Parts{NewTextPart(text)},
		MessageID: uuid.NewString(),
		Kind:      KindMessage,
	}
}

// NewAgentTextMessage returns an agent message with a single text part and a
// fresh message id.
func NewAgentTextMessage(text string) *Message {
	return &Message{
		Role:      RoleAgent,
		Parts:     Parts{NewTextPart(text)},
		MessageID: uuid.NewString(),
		Kind:      KindMessage,
	}
}

// Text concatenates the text of every text part of the message.
func (m *Message) Text() string {
	return m.Parts.Text()
}

// Validate ensures the Message is well formed.
func (m *Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("message part %d: %w", i, err)
		}
	}
	return nil
}

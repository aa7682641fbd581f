// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the AgentWire task lifecycle engine: the JSON-RPC
// request router, the in-memory task store and its state machine, the
// server-sent-event fan-out hub, and the push notification registry. Domain
// agents plug in through the [Agent] interface; the engine never inspects how
// they produce content.
package server

import (
	"context"
)

// Reply is one unit of agent output. On the synchronous path the agent
// returns a single Reply; on the streaming path it yields a sequence of them.
type Reply struct {
	// Content is the text produced so far or the final answer.
	Content string

	// TaskComplete marks the reply as the final answer.
	TaskComplete bool

	// RequireUserInput pauses the task waiting for the caller's next
	// message. Mutually exclusive with TaskComplete.
	RequireUserInput bool

	// Err aborts a stream. The engine records the task as failed and
	// closes the event stream; later replies on the channel are ignored.
	Err error
}

// Agent produces content for tasks. Implementations are free to call out to
// models, subprocesses or remote services; the engine only sees replies.
//
// Invoke and Stream receive the concatenated text of the caller's message and
// the task's context id so multi-turn agents can keep per-conversation state.
type Agent interface {
	// SupportedContentTypes lists the output content types the agent can
	// produce, matched against a request's acceptedOutputModes.
	SupportedContentTypes() []string

	// Invoke runs the query to completion.
	Invoke(ctx context.Context, query, contextID string) (*Reply, error)

	// Stream runs the query incrementally. The returned channel yields
	// interim replies and is closed after the final one.
	Stream(ctx context.Context, query, contextID string) (<-chan Reply, error)
}

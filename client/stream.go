// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	"github.com/agentwire/agentwire"
)

// EventStream reads task events off a server-sent-event response. Close the
// stream to release the connection when abandoning it early; a stream that
// delivered its final event is already released.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Next returns the next event. It returns io.EOF after the final event's
// frame has been consumed and the server closed the stream.
func (s *EventStream) Next() (agentwire.Event, error) {
	for s.scanner.Scan() {
		data, ok := strings.CutPrefix(s.scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var envelope response
		if err := json.Unmarshal([]byte(data), &envelope); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		if envelope.Error != nil {
			return nil, envelope.Error
		}
		return decodeEvent(envelope.Result)
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying connection.
func (s *EventStream) Close() error {
	return s.body.Close()
}

// decodeEvent discriminates a raw stream result into a status or artifact
// update event by its kind field.
func decodeEvent(raw jsontext.Value) (agentwire.Event, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode event kind: %w", err)
	}
	switch head.Kind {
	case agentwire.EventKindStatusUpdate:
		ev := new(agentwire.TaskStatusUpdateEvent)
		if err := json.Unmarshal(raw, ev); err != nil {
			return nil, fmt.Errorf("decode status event: %w", err)
		}
		return ev, nil
	case agentwire.EventKindArtifactUpdate:
		ev := new(agentwire.TaskArtifactUpdateEvent)
		if err := json.Unmarshal(raw, ev); err != nil {
			return nil, fmt.Errorf("decode artifact event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unrecognized stream event kind %q: %s", head.Kind, raw)
	}
}

// stream performs one JSON-RPC round trip expecting a text/event-stream
// response.
func (c *Client) stream(ctx context.Context, method string, params any) (*EventStream, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(agentwire.NewRequest(uuid.NewString(), method, raw))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		// The server rejected the request with a single JSON response.
		defer resp.Body.Close()
		var envelope response
		if err := json.UnmarshalRead(resp.Body, &envelope); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", method, err)
		}
		if envelope.Error != nil {
			return nil, envelope.Error
		}
		return nil, fmt.Errorf("%s: expected event stream, got %q", method, ct)
	}
	return &EventStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// SendMessageStream sends a message and streams the task's updates.
func (c *Client) SendMessageStream(ctx context.Context, params *agentwire.MessageSendParams) (*EventStream, error) {
	return c.stream(ctx, agentwire.MethodMessageStream, params)
}

// SendTaskSubscribe sends a task and streams its updates.
func (c *Client) SendTaskSubscribe(ctx context.Context, params *agentwire.TaskSendParams) (*EventStream, error) {
	return c.stream(ctx, agentwire.MethodTasksSendSubscribe, params)
}

// Resubscribe reattaches to an in-flight task's updates. Events published
// before the reattach are not replayed.
func (c *Client) Resubscribe(ctx context.Context, params *agentwire.TaskIDParams) (*EventStream, error) {
	return c.stream(ctx, agentwire.MethodTasksResubscribe, params)
}

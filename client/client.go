// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package client talks to AgentWire servers: JSON-RPC calls over HTTP,
// server-sent-event streams for the subscribe methods, and agent card
// discovery.
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	"github.com/agentwire/agentwire"
)

// Client is a JSON-RPC client for one agent endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient returns a client for the agent at endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response mirrors the JSON-RPC response envelope with the result kept raw.
type response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      any              `json:"id"`
	Result  jsontext.Value   `json:"result,omitzero"`
	Error   *agentwire.Error `json:"error,omitzero"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
// A server-side error comes back as an *agentwire.Error.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(agentwire.NewRequest(uuid.NewString(), method, raw))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope response
	if err := json.UnmarshalRead(resp.Body, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// SendMessage sends a message and waits for the task to settle.
func (c *Client) SendMessage(ctx context.Context, params *agentwire.MessageSendParams) (*agentwire.Task, error) {
	task := new(agentwire.Task)
	if err := c.call(ctx, agentwire.MethodMessageSend, params, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SendTask sends a task and waits for it to settle.
func (c *Client) SendTask(ctx context.Context, params *agentwire.TaskSendParams) (*agentwire.Task, error) {
	task := new(agentwire.Task)
	if err := c.call(ctx, agentwire.MethodTasksSend, params, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask retrieves a task snapshot.
func (c *Client) GetTask(ctx context.Context, params *agentwire.TaskQueryParams) (*agentwire.Task, error) {
	task := new(agentwire.Task)
	if err := c.call(ctx, agentwire.MethodTasksGet, params, task); err != nil {
		return nil, err
	}
	return task, nil
}

// CancelTask cancels a non-terminal task.
func (c *Client) CancelTask(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.Task, error) {
	task := new(agentwire.Task)
	if err := c.call(ctx, agentwire.MethodTasksCancel, params, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SetTaskPushNotification registers a push notification config for a task.
func (c *Client) SetTaskPushNotification(ctx context.Context, config *agentwire.TaskPushNotificationConfig) (*agentwire.TaskPushNotificationConfig, error) {
	out := new(agentwire.TaskPushNotificationConfig)
	if err := c.call(ctx, agentwire.MethodTasksPushNotificationSet, config, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTaskPushNotification retrieves the push notification config of a task.
func (c *Client) GetTaskPushNotification(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.TaskPushNotificationConfig, error) {
	out := new(agentwire.TaskPushNotificationConfig)
	if err := c.call(ctx, agentwire.MethodTasksPushNotificationGet, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

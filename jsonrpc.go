// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

// Version is the JSON-RPC protocol version carried by every envelope.
const Version = "2.0"

// A2A RPC method names.
const (
	// MethodMessageSend sends a message and waits for the task to settle.
	MethodMessageSend = "message/send"
	// MethodMessageStream sends a message and streams task updates.
	MethodMessageStream = "message/stream"
	// MethodTasksSend sends a task and waits for it to settle.
	MethodTasksSend = "tasks/send"
	// MethodTasksSendSubscribe sends a task and subscribes to its updates.
	MethodTasksSendSubscribe = "tasks/sendSubscribe"
	// MethodTasksGet retrieves a task snapshot.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel cancels a non-terminal task.
	MethodTasksCancel = "tasks/cancel"
	// MethodTasksPushNotificationSet registers a push notification config.
	MethodTasksPushNotificationSet = "tasks/pushNotification/set"
	// MethodTasksPushNotificationGet retrieves a push notification config.
	MethodTasksPushNotificationGet = "tasks/pushNotification/get"
	// MethodTasksResubscribe reattaches to an in-flight task's updates.
	MethodTasksResubscribe = "tasks/resubscribe"
)

// Request is a JSON-RPC 2.0 request envelope. ID is a string, a number
// (decoded as float64), or nil.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

// NewRequest returns a request envelope for method carrying params.
func NewRequest(id any, method string, params jsontext.Value) *Request {
	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Validate checks the envelope shape. It does not inspect params.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("jsonrpc version must be %q, got %q", Version, r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("method cannot be empty")
	}
	switch r.ID.(type) {
	case nil, string, float64:
	default:
		return fmt.Errorf("id must be a string, a number, or null")
	}
	return nil
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result and
// Error is set; ID always appears, null when the request id is unknown.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitzero"`
	Error   *Error `json:"error,omitzero"`
}

// NewResponse returns a success response echoing id.
func NewResponse(id, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse returns an error response echoing id.
func NewErrorResponse(id any, rpcErr *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: rpcErr}
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitzero"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// A2A protocol error codes.
const (
	CodeTaskNotFound                 = -32001
	CodeTaskNotCancelable            = -32002
	CodePushNotificationNotSupported = -32003
	CodeUnsupportedOperation         = -32004
	CodeContentTypeNotSupported      = -32005
	CodeInvalidAgentResponse         = -32006
)

// NewParseError returns the error for unparseable request payloads.
func NewParseError(data any) *Error {
	return &Error{Code: CodeParseError, Message: "Invalid JSON payload", Data: data}
}

// NewInvalidRequestError returns the error for malformed request envelopes.
func NewInvalidRequestError(data any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Request payload validation error", Data: data}
}

// NewMethodNotFoundError returns the error for unknown method names.
func NewMethodNotFoundError() *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found"}
}

// NewInvalidParamsError returns the error for params that fail the method's
// required shape.
func NewInvalidParamsError(data any) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid parameters", Data: data}
}

// NewInternalError returns the error for failures inside the server.
func NewInternalError(data any) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}

// NewTaskNotFoundError returns the error for operations on unknown task ids.
func NewTaskNotFoundError() *Error {
	return &Error{Code: CodeTaskNotFound, Message: "Task not found"}
}

// NewTaskNotCancelableError returns the error for canceling terminal tasks.
func NewTaskNotCancelableError() *Error {
	return &Error{Code: CodeTaskNotCancelable, Message: "Task cannot be canceled"}
}

// NewPushNotificationNotSupportedError returns the error for push methods on
// agents without the capability.
func NewPushNotificationNotSupportedError() *Error {
	return &Error{Code: CodePushNotificationNotSupported, Message: "Push Notification is not supported"}
}

// NewUnsupportedOperationError returns the error for operations the agent
// does not support.
func NewUnsupportedOperationError() *Error {
	return &Error{Code: CodeUnsupportedOperation, Message: "This operation is not supported"}
}

// NewContentTypeNotSupportedError returns the error for content type
// mismatches between caller and agent.
func NewContentTypeNotSupportedError() *Error {
	return &Error{Code: CodeContentTypeNotSupported, Message: "Incompatible content types"}
}

// NewInvalidAgentResponseError returns the error for agent output the engine
// cannot represent.
func NewInvalidAgentResponseError() *Error {
	return &Error{Code: CodeInvalidAgentResponse, Message: "Invalid agent response"}
}

// MessageSendParams is the params shape of message/send and message/stream.
// Task and context ids travel on the message itself.
type MessageSendParams struct {
	Message  *Message       `json:"message"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the params are well formed.
func (p *MessageSendParams) Validate() error {
	if p.Message == nil {
		return fmt.Errorf("message cannot be nil")
	}
	return p.Message.Validate()
}

// TaskSendParams is the params shape of tasks/send and tasks/sendSubscribe.
type TaskSendParams struct {
	ID                  string                  `json:"id"`
	SessionID           string                  `json:"sessionId,omitzero"`
	Message             *Message                `json:"message"`
	AcceptedOutputModes []string                `json:"acceptedOutputModes,omitzero"`
	PushNotification    *PushNotificationConfig `json:"pushNotification,omitzero"`
	HistoryLength       *int                    `json:"historyLength,omitzero"`
	Metadata            map[string]any          `json:"metadata,omitzero"`
}

// Validate ensures the params are well formed.
func (p *TaskSendParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if p.Message == nil {
		return fmt.Errorf("message cannot be nil")
	}
	return p.Message.Validate()
}

// TaskQueryParams is the params shape of tasks/get.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitzero"`
	Metadata      map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the params are well formed.
func (p *TaskQueryParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return fmt.Errorf("historyLength cannot be negative")
	}
	return nil
}

// TaskIDParams is the params shape of tasks/cancel, tasks/resubscribe and
// tasks/pushNotification/get.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the params are well formed.
func (p *TaskIDParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	return nil
}

// Validate ensures the config names a task and a callback URL.
func (c *TaskPushNotificationConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	return c.PushNotificationConfig.Validate()
}

// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import "errors"

// Sentinel errors for task lifecycle failures. Transport layers translate
// them to the matching JSON-RPC error codes.
var (
	// ErrTaskNotFound reports an operation on an unknown task id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskNotCancelable reports a cancel on a task already in a
	// terminal state.
	ErrTaskNotCancelable = errors.New("task cannot be canceled")
	// ErrPushNotificationNotSupported reports a push notification method
	// on an agent without the capability.
	ErrPushNotificationNotSupported = errors.New("push notification is not supported")
	// ErrPushNotificationConfigNotFound reports a push notification lookup
	// for a task with no registered config.
	ErrPushNotificationConfigNotFound = errors.New("push notification config not found")
	// ErrPushVerificationFailed reports a callback URL that did not answer
	// the ownership challenge.
	ErrPushVerificationFailed = errors.New("push notification url verification failed")
	// ErrContentTypeNotSupported reports a content type mismatch between
	// caller and agent.
	ErrContentTypeNotSupported = errors.New("incompatible content types")
	// ErrStreamNotActive reports a resubscribe to a task that is not
	// streaming, either unknown or already finalized.
	ErrStreamNotActive = errors.New("task stream is not active")
	// ErrStreamActive reports a second producer registration for a task
	// that already has one.
	ErrStreamActive = errors.New("task stream already active")
)

// RPCError converts err to a JSON-RPC error object. Unrecognized errors map
// to an internal error carrying the error text.
func RPCError(err error) *Error {
	var rpcErr *Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrStreamNotActive):
		return NewTaskNotFoundError()
	case errors.Is(err, ErrTaskNotCancelable):
		return NewTaskNotCancelableError()
	case errors.Is(err, ErrPushNotificationNotSupported):
		return NewPushNotificationNotSupportedError()
	case errors.Is(err, ErrPushVerificationFailed):
		return NewInvalidParamsError(err.Error())
	case errors.Is(err, ErrContentTypeNotSupported):
		return NewContentTypeNotSupportedError()
	default:
		return NewInternalError(err.Error())
	}
}

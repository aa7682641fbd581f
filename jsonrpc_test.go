// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		req     Request
		wantErr bool
	}{
		"success: string id": {
			req: Request{JSONRPC: "2.0", ID: "1", Method: MethodTasksGet},
		},
		"success: numeric id": {
			req: Request{JSONRPC: "2.0", ID: float64(7), Method: MethodTasksGet},
		},
		"success: absent id": {
			req: Request{JSONRPC: "2.0", Method: MethodTasksGet},
		},
		"error: wrong version": {
			req:     Request{JSONRPC: "1.0", ID: "1", Method: MethodTasksGet},
			wantErr: true,
		},
		"error: missing method": {
			req:     Request{JSONRPC: "2.0", ID: "1"},
			wantErr: true,
		},
		"error: object id": {
			req:     Request{JSONRPC: "2.0", ID: map[string]any{}, Method: MethodTasksGet},
			wantErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResponseMarshalNullID(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewErrorResponse(nil, NewParseError("bad json")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"id":null`) {
		t.Errorf("response must carry an explicit null id: %s", data)
	}
}

func TestResponseResultErrorExclusive(t *testing.T) {
	t.Parallel()

	for name, resp := range map[string]*Response{
		"success response": NewResponse("1", &Task{ID: "t1"}),
		"error response":   NewErrorResponse("1", NewTaskNotFoundError()),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			hasResult := strings.Contains(string(data), `"result"`)
			hasError := strings.Contains(string(data), `"error"`)
			if hasResult == hasError {
				t.Errorf("exactly one of result and error must appear: %s", data)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *Error
		code int
	}{
		"parse error":                   {NewParseError(nil), -32700},
		"invalid request":               {NewInvalidRequestError(nil), -32600},
		"method not found":              {NewMethodNotFoundError(), -32601},
		"invalid params":                {NewInvalidParamsError(nil), -32602},
		"internal error":                {NewInternalError(nil), -32603},
		"task not found":                {NewTaskNotFoundError(), -32001},
		"task not cancelable":           {NewTaskNotCancelableError(), -32002},
		"push notification unsupported": {NewPushNotificationNotSupportedError(), -32003},
		"unsupported operation":         {NewUnsupportedOperationError(), -32004},
		"content type not supported":    {NewContentTypeNotSupportedError(), -32005},
		"invalid agent response":        {NewInvalidAgentResponseError(), -32006},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if tt.err.Code != tt.code {
				t.Errorf("code = %d, want %d", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("message cannot be empty")
			}
		})
	}
}

func TestRPCError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err      error
		wantCode int
	}{
		"task not found":         {ErrTaskNotFound, CodeTaskNotFound},
		"wrapped task not found": {fmt.Errorf("get t1: %w", ErrTaskNotFound), CodeTaskNotFound},
		"stream not active":      {ErrStreamNotActive, CodeTaskNotFound},
		"task not cancelable":    {ErrTaskNotCancelable, CodeTaskNotCancelable},
		"push unsupported":       {ErrPushNotificationNotSupported, CodePushNotificationNotSupported},
		"push verification":      {ErrPushVerificationFailed, CodeInvalidParams},
		"content type":           {ErrContentTypeNotSupported, CodeContentTypeNotSupported},
		"already an rpc error":   {NewMethodNotFoundError(), CodeMethodNotFound},
		"anything else":          {errors.New("boom"), CodeInternalError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := RPCError(tt.err); got.Code != tt.wantCode {
				t.Errorf("RPCError(%v).Code = %d, want %d", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

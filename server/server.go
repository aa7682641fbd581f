// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/agentwire/agentwire"
)

// maxRequestBody bounds what the router reads from one request.
const maxRequestBody = 4 << 20

// shutdownTimeout bounds the drain of in-flight requests once the serve
// context is canceled.
const shutdownTimeout = 10 * time.Second

// Config holds everything a Server needs.
type Config struct {
	// AgentCard is served at the well-known discovery paths. Its
	// capabilities gate the streaming and push notification methods.
	AgentCard agentwire.AgentCard

	// TaskManager handles the protocol methods.
	TaskManager TaskManager

	// PushNotifications, when set, has its JWKS mounted at
	// /.well-known/jwks.json so receivers can verify deliveries.
	PushNotifications *PushNotificationRegistry

	// Addr is the listen address for ListenAndServe. Defaults to ":8080".
	Addr string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the HTTP front of the task lifecycle engine: a single JSON-RPC
// endpoint at POST / plus the unauthenticated discovery routes.
type Server struct {
	card    agentwire.AgentCard
	manager TaskManager
	addr    string
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewServer validates cfg and builds the route table.
func NewServer(cfg Config) (*Server, error) {
	if cfg.TaskManager == nil {
		return nil, fmt.Errorf("task manager is required")
	}
	if cfg.AgentCard.Name == "" {
		return nil, fmt.Errorf("agent card name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	s := &Server{
		card:    cfg.AgentCard,
		manager: cfg.TaskManager,
		addr:    addr,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /{$}", s.handleRPC)
	s.mux.HandleFunc("GET /.well-known/agent.json", s.handleAgentCard)
	s.mux.HandleFunc("GET /.well-known/agent-card.json", s.handleAgentCard)
	if cfg.PushNotifications != nil {
		s.mux.HandleFunc("GET /.well-known/jwks.json", cfg.PushNotifications.ServeJWKS)
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is canceled,
// then drains in-flight requests with a graceful shutdown. It returns nil
// after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{Addr: s.addr, Handler: s.mux}
	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()
	s.logger.Info("server listening", slog.String("addr", s.addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(s.card)
	if err != nil {
		http.Error(w, "failed to encode agent card", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleRPC parses one JSON-RPC envelope and dispatches it. Every outcome,
// including parse failures, is a well-formed JSON-RPC response.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeResponse(w, agentwire.NewErrorResponse(nil, agentwire.NewParseError(err.Error())))
		return
	}
	var req agentwire.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeResponse(w, agentwire.NewErrorResponse(nil, agentwire.NewParseError(err.Error())))
		return
	}
	if err := req.Validate(); err != nil {
		s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.NewInvalidRequestError(err.Error())))
		return
	}
	s.logger.Info("handling request",
		slog.String("method", req.Method), slog.Any("id", req.ID))
	s.dispatch(w, r, &req)
}

// dispatch discriminates the method name and invokes exactly one task
// lifecycle operation. Streaming methods hand the connection to writeStream;
// everything else writes a single response.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *agentwire.Request) {
	ctx := r.Context()
	switch req.Method {
	case agentwire.MethodMessageSend:
		params := new(agentwire.MessageSendParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		s.respond(w, req.ID, func() (any, error) { return s.manager.OnSendMessage(ctx, params) })

	case agentwire.MethodMessageStream:
		params := new(agentwire.MessageSendParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		if !s.streamingEnabled(w, req) {
			return
		}
		consumer, err := s.manager.OnSendMessageStream(ctx, params)
		if err != nil {
			s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.RPCError(err)))
			return
		}
		s.writeStream(w, r, req.ID, consumer)

	case agentwire.MethodTasksSend:
		params := new(agentwire.TaskSendParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		s.respond(w, req.ID, func() (any, error) { return s.manager.OnSendTask(ctx, params) })

	case agentwire.MethodTasksSendSubscribe:
		params := new(agentwire.TaskSendParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		if !s.streamingEnabled(w, req) {
			return
		}
		consumer, err := s.manager.OnSendTaskSubscribe(ctx, params)
		if err != nil {
			s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.RPCError(err)))
			return
		}
		s.writeStream(w, r, req.ID, consumer)

	case agentwire.MethodTasksGet:
		params := new(agentwire.TaskQueryParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		s.respond(w, req.ID, func() (any, error) { return s.manager.OnGetTask(ctx, params) })

	case agentwire.MethodTasksCancel:
		params := new(agentwire.TaskIDParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		s.respond(w, req.ID, func() (any, error) { return s.manager.OnCancelTask(ctx, params) })

	case agentwire.MethodTasksPushNotificationSet:
		config := new(agentwire.TaskPushNotificationConfig)
		if !s.decodeParams(w, req, config) {
			return
		}
		if !s.pushEnabled(w, req) {
			return
		}
		s.respond(w, req.ID, func() (any, error) { return s.manager.OnSetTaskPushNotification(ctx, config) })

	case agentwire.MethodTasksPushNotificationGet:
		params := new(agentwire.TaskIDParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		if !s.pushEnabled(w, req) {
			return
		}
		s.respond(w, req.ID, func() (any, error) { return s.manager.OnGetTaskPushNotification(ctx, params) })

	case agentwire.MethodTasksResubscribe:
		params := new(agentwire.TaskIDParams)
		if !s.decodeParams(w, req, params) {
			return
		}
		if !s.streamingEnabled(w, req) {
			return
		}
		consumer, err := s.manager.OnResubscribeToTask(ctx, params)
		if err != nil {
			s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.RPCError(err)))
			return
		}
		s.writeStream(w, r, req.ID, consumer)

	default:
		s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.NewMethodNotFoundError()))
	}
}

// decodeParams unmarshals req.Params into v, answering an invalid params
// error on failure.
func (s *Server) decodeParams(w http.ResponseWriter, req *agentwire.Request, v any) bool {
	if len(req.Params) == 0 {
		s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.NewInvalidParamsError("params are required")))
		return false
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.NewInvalidParamsError(err.Error())))
		return false
	}
	return true
}

func (s *Server) streamingEnabled(w http.ResponseWriter, req *agentwire.Request) bool {
	if !s.card.Capabilities.Streaming {
		s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.NewUnsupportedOperationError()))
		return false
	}
	return true
}

func (s *Server) pushEnabled(w http.ResponseWriter, req *agentwire.Request) bool {
	if !s.card.Capabilities.PushNotifications {
		s.writeResponse(w, agentwire.NewErrorResponse(req.ID, agentwire.NewPushNotificationNotSupportedError()))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, id any, op func() (any, error)) {
	result, err := op()
	if err != nil {
		s.writeResponse(w, agentwire.NewErrorResponse(id, agentwire.RPCError(err)))
		return
	}
	s.writeResponse(w, agentwire.NewResponse(id, result))
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *agentwire.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// writeStream drains consumer onto the connection as server-sent events.
// Each data frame is a JSON-RPC response wrapping one task event; the frame
// carrying final=true is the termination signal. A client disconnect
// detaches this consumer only.
func (s *Server) writeStream(w http.ResponseWriter, r *http.Request, id any, consumer *SSEConsumer) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeResponse(w, agentwire.NewErrorResponse(id, agentwire.NewInternalError("streaming unsupported by connection")))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			consumer.Close()
			return
		case ev, ok := <-consumer.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(agentwire.NewResponse(id, ev))
			if err != nil {
				s.logger.Error("failed to encode event",
					slog.String("task_id", consumer.TaskID()), slog.Any("error", err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

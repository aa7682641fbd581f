// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/client"
	"github.com/agentwire/agentwire/server"
)

// scriptedAgent answers every invoke with a fixed reply and every stream
// with a fixed reply sequence.
type scriptedAgent struct {
	reply  server.Reply
	stream []server.Reply
}

func (a *scriptedAgent) SupportedContentTypes() []string { return []string{"text"} }

func (a *scriptedAgent) Invoke(context.Context, string, string) (*server.Reply, error) {
	reply := a.reply
	return &reply, nil
}

func (a *scriptedAgent) Stream(context.Context, string, string) (<-chan server.Reply, error) {
	ch := make(chan server.Reply, len(a.stream))
	for _, r := range a.stream {
		ch <- r
	}
	close(ch)
	return ch, nil
}

func startServer(t *testing.T, agent server.Agent) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	manager := server.NewAgentTaskManager(agent, server.NewTaskStore(), server.NewSSEHub(logger, 0), nil, logger)
	s, err := server.NewServer(server.Config{
		AgentCard: agentwire.AgentCard{
			Name:         "scripted-agent",
			URL:          "http://127.0.0.1",
			Version:      "0.1.0",
			Capabilities: agentwire.AgentCapabilities{Streaming: true},
			Skills:       []agentwire.AgentSkill{{ID: "scripted", Name: "Scripted"}},
		},
		TaskManager: manager,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendTask(t *testing.T) {
	t.Parallel()

	srv := startServer(t, &scriptedAgent{reply: server.Reply{Content: "Hi", TaskComplete: true}})
	c := client.NewClient(srv.URL)

	task, err := c.SendTask(t.Context(), &agentwire.TaskSendParams{
		ID:      "T1",
		Message: agentwire.NewUserTextMessage("Hello"),
	})
	if err != nil {
		t.Fatalf("SendTask: %v", err)
	}
	if task.Status.State != agentwire.TaskStateCompleted {
		t.Errorf("state = %q, want %q", task.Status.State, agentwire.TaskStateCompleted)
	}
	if len(task.Artifacts) != 1 || task.Artifacts[0].Parts.Text() != "Hi" {
		t.Errorf("artifacts = %+v, want one text artifact saying Hi", task.Artifacts)
	}

	fetched, err := c.GetTask(t.Context(), &agentwire.TaskQueryParams{ID: "T1"})
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if fetched.Status.State != agentwire.TaskStateCompleted {
		t.Errorf("fetched state = %q, want %q", fetched.Status.State, agentwire.TaskStateCompleted)
	}
}

func TestClientServerErrors(t *testing.T) {
	t.Parallel()

	srv := startServer(t, &scriptedAgent{reply: server.Reply{Content: "ok", TaskComplete: true}})
	c := client.NewClient(srv.URL)

	_, err := c.GetTask(t.Context(), &agentwire.TaskQueryParams{ID: "missing"})
	var rpcErr *agentwire.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want *agentwire.Error", err)
	}
	if rpcErr.Code != agentwire.CodeTaskNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, agentwire.CodeTaskNotFound)
	}
}

func TestClientSendTaskSubscribe(t *testing.T) {
	t.Parallel()

	srv := startServer(t, &scriptedAgent{stream: []server.Reply{
		{Content: "thinking"},
		{Content: "42", TaskComplete: true},
	}})
	c := client.NewClient(srv.URL)

	stream, err := c.SendTaskSubscribe(t.Context(), &agentwire.TaskSendParams{
		ID:      "T2",
		Message: agentwire.NewUserTextMessage("question"),
	})
	if err != nil {
		t.Fatalf("SendTaskSubscribe: %v", err)
	}
	defer stream.Close()

	var events []agentwire.Event
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if se, ok := events[0].(*agentwire.TaskStatusUpdateEvent); !ok || se.Status.State != agentwire.TaskStateWorking {
		t.Errorf("event 0 = %#v, want working status", events[0])
	}
	if ae, ok := events[1].(*agentwire.TaskArtifactUpdateEvent); !ok || ae.Artifact.Parts.Text() != "42" {
		t.Errorf("event 1 = %#v, want artifact saying 42", events[1])
	}
	if !agentwire.IsFinalEvent(events[2]) {
		t.Errorf("event 2 = %#v, want the final status", events[2])
	}
}

func TestClientResubscribeUnknownTask(t *testing.T) {
	t.Parallel()

	srv := startServer(t, &scriptedAgent{})
	c := client.NewClient(srv.URL)

	_, err := c.Resubscribe(t.Context(), &agentwire.TaskIDParams{ID: "never-created"})
	var rpcErr *agentwire.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want *agentwire.Error", err)
	}
	if rpcErr.Code != agentwire.CodeTaskNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, agentwire.CodeTaskNotFound)
	}
}

func TestCardResolver(t *testing.T) {
	t.Parallel()

	srv := startServer(t, &scriptedAgent{})

	card, err := client.NewCardResolver(srv.URL).Resolve(t.Context())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if card.Name != "scripted-agent" {
		t.Errorf("card name = %q, want %q", card.Name, "scripted-agent")
	}
	if !card.Capabilities.Streaming {
		t.Error("card must advertise streaming")
	}
}

// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/agentwire/agentwire"
)

// TaskManager implements the protocol method semantics over the store, the
// hub and the push registry. The request router calls exactly one of these
// per request.
type TaskManager interface {
	// OnSendMessage handles message/send.
	OnSendMessage(ctx context.Context, params *agentwire.MessageSendParams) (*agentwire.Task, error)

	// OnSendMessageStream handles message/stream.
	OnSendMessageStream(ctx context.Context, params *agentwire.MessageSendParams) (*SSEConsumer, error)

	// OnSendTask handles tasks/send.
	OnSendTask(ctx context.Context, params *agentwire.TaskSendParams) (*agentwire.Task, error)

	// OnSendTaskSubscribe handles tasks/sendSubscribe.
	OnSendTaskSubscribe(ctx context.Context, params *agentwire.TaskSendParams) (*SSEConsumer, error)

	// OnGetTask handles tasks/get.
	OnGetTask(ctx context.Context, params *agentwire.TaskQueryParams) (*agentwire.Task, error)

	// OnCancelTask handles tasks/cancel.
	OnCancelTask(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.Task, error)

	// OnSetTaskPushNotification handles tasks/pushNotification/set.
	OnSetTaskPushNotification(ctx context.Context, config *agentwire.TaskPushNotificationConfig) (*agentwire.TaskPushNotificationConfig, error)

	// OnGetTaskPushNotification handles tasks/pushNotification/get.
	OnGetTaskPushNotification(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.TaskPushNotificationConfig, error)

	// OnResubscribeToTask handles tasks/resubscribe.
	OnResubscribeToTask(ctx context.Context, params *agentwire.TaskIDParams) (*SSEConsumer, error)
}

// AgentTaskManager is the TaskManager over an [Agent]. Task state lives in a
// [TaskStore], streaming consumers hang off an [SSEHub], and push callbacks
// go through an optional [PushNotificationRegistry].
type AgentTaskManager struct {
	agent  Agent
	store  *TaskStore
	hub    *SSEHub
	push   *PushNotificationRegistry
	logger *slog.Logger
}

// NewAgentTaskManager returns a manager driving agent. The push registry may
// be nil when the agent card does not advertise push notifications.
func NewAgentTaskManager(agent Agent, store *TaskStore, hub *SSEHub, push *PushNotificationRegistry, logger *slog.Logger) *AgentTaskManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentTaskManager{
		agent:  agent,
		store:  store,
		hub:    hub,
		push:   push,
		logger: logger,
	}
}

var _ TaskManager = (*AgentTaskManager)(nil)

// checkContentTypes rejects requests whose accepted output modes have no
// overlap with what the agent produces. An empty accepted list means the
// caller takes anything.
func (m *AgentTaskManager) checkContentTypes(accepted []string) error {
	if len(accepted) == 0 {
		return nil
	}
	for _, mode := range m.agent.SupportedContentTypes() {
		if slices.Contains(accepted, mode) {
			return nil
		}
	}
	return fmt.Errorf("accepted output modes %v: %w", accepted, agentwire.ErrContentTypeNotSupported)
}

// taskParams converts message/send params to the tasks/send shape, minting
// ids the message does not carry.
func taskParams(params *agentwire.MessageSendParams) *agentwire.TaskSendParams {
	msg := params.Message
	id := msg.TaskID
	if id == "" {
		id = uuid.NewString()
	}
	return &agentwire.TaskSendParams{
		ID:        id,
		SessionID: msg.ContextID,
		Message:   msg,
		Metadata:  params.Metadata,
	}
}

// OnSendMessage handles message/send. The message's taskId and contextId
// address the task; missing ids are generated. The task goes through the
// store exactly like tasks/send so tasks/get stays consistent.
func (m *AgentTaskManager) OnSendMessage(ctx context.Context, params *agentwire.MessageSendParams) (*agentwire.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	return m.processSend(ctx, taskParams(params))
}

// OnSendMessageStream handles message/stream.
func (m *AgentTaskManager) OnSendMessageStream(ctx context.Context, params *agentwire.MessageSendParams) (*SSEConsumer, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	return m.processSendSubscribe(ctx, taskParams(params))
}

// OnSendTask handles tasks/send.
func (m *AgentTaskManager) OnSendTask(ctx context.Context, params *agentwire.TaskSendParams) (*agentwire.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	return m.processSend(ctx, params)
}

// processSend runs the synchronous path: upsert, working, one agent call,
// then a terminal or input-required status.
func (m *AgentTaskManager) processSend(ctx context.Context, params *agentwire.TaskSendParams) (*agentwire.Task, error) {
	if err := m.checkContentTypes(params.AcceptedOutputModes); err != nil {
		return nil, err
	}
	if err := m.registerPush(ctx, params); err != nil {
		return nil, err
	}
	task, err := m.store.Upsert(params.ID, params.SessionID, params.Message)
	if err != nil {
		return nil, err
	}
	working, err := m.store.UpdateStatus(params.ID, agentwire.NewTaskStatus(agentwire.TaskStateWorking), nil)
	if err != nil {
		return nil, err
	}
	m.notifyPush(ctx, working)

	reply, err := m.agent.Invoke(ctx, params.Message.Text(), task.ContextID)
	if err != nil {
		m.logger.Error("agent invocation failed",
			slog.String("task_id", params.ID), slog.Any("error", err))
		return m.finishTask(ctx, params.ID, failedStatus(err), nil, params.HistoryLength)
	}

	status, artifacts := replyOutcome(reply)
	return m.finishTask(ctx, params.ID, status, artifacts, params.HistoryLength)
}

// finishTask writes the closing status, fires the push notification, and
// returns a snapshot honoring historyLength.
func (m *AgentTaskManager) finishTask(ctx context.Context, taskID string, status agentwire.TaskStatus, artifacts []*agentwire.Artifact, historyLength *int) (*agentwire.Task, error) {
	task, err := m.store.UpdateStatus(taskID, status, artifacts)
	if err != nil {
		return nil, err
	}
	m.notifyPush(ctx, task)
	return task.Snapshot(historyLength), nil
}

// replyOutcome maps a final agent reply onto its task status and artifacts.
func replyOutcome(reply *Reply) (agentwire.TaskStatus, []*agentwire.Artifact) {
	if reply.RequireUserInput {
		status := agentwire.NewTaskStatus(agentwire.TaskStateInputRequired)
		status.Message = agentwire.NewAgentTextMessage(reply.Content)
		return status, nil
	}
	artifact := &agentwire.Artifact{
		ArtifactID: uuid.NewString(),
		Parts:      agentwire.Parts{agentwire.NewTextPart(reply.Content)},
	}
	return agentwire.NewTaskStatus(agentwire.TaskStateCompleted), []*agentwire.Artifact{artifact}
}

func failedStatus(err error) agentwire.TaskStatus {
	status := agentwire.NewTaskStatus(agentwire.TaskStateFailed)
	status.Message = agentwire.NewAgentTextMessage(err.Error())
	return status
}

// OnSendTaskSubscribe handles tasks/sendSubscribe.
func (m *AgentTaskManager) OnSendTaskSubscribe(ctx context.Context, params *agentwire.TaskSendParams) (*SSEConsumer, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	return m.processSendSubscribe(ctx, params)
}

// processSendSubscribe runs the streaming path: upsert, register the
// producer, attach the caller's consumer, then drive the agent stream from a
// background goroutine.
func (m *AgentTaskManager) processSendSubscribe(ctx context.Context, params *agentwire.TaskSendParams) (*SSEConsumer, error) {
	if err := m.checkContentTypes(params.AcceptedOutputModes); err != nil {
		return nil, err
	}
	if err := m.registerPush(ctx, params); err != nil {
		return nil, err
	}
	task, err := m.store.Upsert(params.ID, params.SessionID, params.Message)
	if err != nil {
		return nil, err
	}
	if err := m.hub.OpenProducer(params.ID); err != nil {
		return nil, err
	}
	consumer, err := m.hub.Subscribe(params.ID)
	if err != nil {
		return nil, err
	}

	// The producer outlives the subscribing request: a disconnecting
	// client must not cancel the agent run.
	go m.produce(context.WithoutCancel(ctx), params.ID, params.Message.Text(), task.ContextID)
	return consumer, nil
}

// produce drives the agent stream for one task, writing every update through
// the store before publishing it to the hub.
func (m *AgentTaskManager) produce(ctx context.Context, taskID, query, contextID string) {
	ch, err := m.agent.Stream(ctx, query, contextID)
	if err != nil {
		m.failStream(ctx, taskID, contextID, err)
		return
	}
	for reply := range ch {
		if reply.Err != nil {
			m.failStream(ctx, taskID, contextID, reply.Err)
			return
		}
		switch {
		case reply.TaskComplete:
			artifact := &agentwire.Artifact{
				ArtifactID: uuid.NewString(),
				Parts:      agentwire.Parts{agentwire.NewTextPart(reply.Content)},
				LastChunk:  true,
			}
			status := agentwire.NewTaskStatus(agentwire.TaskStateCompleted)
			task, err := m.store.UpdateStatus(taskID, status, []*agentwire.Artifact{artifact})
			if err != nil {
				m.failStream(ctx, taskID, contextID, err)
				return
			}
			m.notifyPush(ctx, task)
			m.hub.Publish(taskID, agentwire.NewTaskArtifactUpdateEvent(taskID, contextID, artifact))
			m.hub.Publish(taskID, agentwire.NewTaskStatusUpdateEvent(taskID, contextID, status, true))
			return

		case reply.RequireUserInput:
			status := agentwire.NewTaskStatus(agentwire.TaskStateInputRequired)
			status.Message = agentwire.NewAgentTextMessage(reply.Content)
			task, err := m.store.UpdateStatus(taskID, status, nil)
			if err != nil {
				m.failStream(ctx, taskID, contextID, err)
				return
			}
			m.notifyPush(ctx, task)
			m.hub.Publish(taskID, agentwire.NewTaskStatusUpdateEvent(taskID, contextID, status, true))
			return

		default:
			status := agentwire.NewTaskStatus(agentwire.TaskStateWorking)
			status.Message = agentwire.NewAgentTextMessage(reply.Content)
			task, err := m.store.UpdateStatus(taskID, status, nil)
			if err != nil {
				m.failStream(ctx, taskID, contextID, err)
				return
			}
			m.notifyPush(ctx, task)
			m.hub.Publish(taskID, agentwire.NewTaskStatusUpdateEvent(taskID, contextID, status, false))
		}
	}
	// The agent closed its stream without a final reply. Record the task
	// as failed so it does not hang in working forever.
	m.failStream(ctx, taskID, contextID, fmt.Errorf("agent stream ended without a final reply"))
}

// failStream records the task as failed and terminates its event stream.
func (m *AgentTaskManager) failStream(ctx context.Context, taskID, contextID string, cause error) {
	m.logger.Error("agent stream failed",
		slog.String("task_id", taskID), slog.Any("error", cause))
	status := failedStatus(cause)
	if task, err := m.store.UpdateStatus(taskID, status, nil); err != nil {
		m.logger.Error("failed to record stream failure",
			slog.String("task_id", taskID), slog.Any("error", err))
	} else {
		m.notifyPush(ctx, task)
	}
	m.hub.Publish(taskID, agentwire.NewTaskStatusUpdateEvent(taskID, contextID, status, true))
}

// OnGetTask handles tasks/get.
func (m *AgentTaskManager) OnGetTask(ctx context.Context, params *agentwire.TaskQueryParams) (*agentwire.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	return m.store.Get(params.ID, params.HistoryLength)
}

// OnCancelTask handles tasks/cancel. Cancellation is advisory: it records
// the canceled state but does not interrupt an in-flight agent call.
func (m *AgentTaskManager) OnCancelTask(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	task, err := m.store.Cancel(params.ID)
	if err != nil {
		return nil, err
	}
	m.notifyPush(ctx, task)
	return task, nil
}

// OnSetTaskPushNotification handles tasks/pushNotification/set.
func (m *AgentTaskManager) OnSetTaskPushNotification(ctx context.Context, config *agentwire.TaskPushNotificationConfig) (*agentwire.TaskPushNotificationConfig, error) {
	if m.push == nil {
		return nil, agentwire.ErrPushNotificationNotSupported
	}
	if err := config.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	if err := m.push.Register(ctx, config.ID, &config.PushNotificationConfig); err != nil {
		return nil, err
	}
	return config, nil
}

// OnGetTaskPushNotification handles tasks/pushNotification/get.
func (m *AgentTaskManager) OnGetTaskPushNotification(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.TaskPushNotificationConfig, error) {
	if m.push == nil {
		return nil, agentwire.ErrPushNotificationNotSupported
	}
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	config, ok := m.push.Config(params.ID)
	if !ok {
		return nil, fmt.Errorf("task %q: %w", params.ID, agentwire.ErrPushNotificationConfigNotFound)
	}
	return &agentwire.TaskPushNotificationConfig{ID: params.ID, PushNotificationConfig: *config}, nil
}

// OnResubscribeToTask handles tasks/resubscribe, reattaching a consumer to a
// task that is still streaming. Earlier events are not replayed.
func (m *AgentTaskManager) OnResubscribeToTask(ctx context.Context, params *agentwire.TaskIDParams) (*SSEConsumer, error) {
	if err := params.Validate(); err != nil {
		return nil, agentwire.NewInvalidParamsError(err.Error())
	}
	if _, err := m.store.Get(params.ID, nil); err != nil {
		return nil, err
	}
	return m.hub.Subscribe(params.ID)
}

// registerPush verifies and stores an inline push notification config
// supplied with a send request.
func (m *AgentTaskManager) registerPush(ctx context.Context, params *agentwire.TaskSendParams) error {
	if params.PushNotification == nil {
		return nil
	}
	if m.push == nil {
		return agentwire.ErrPushNotificationNotSupported
	}
	return m.push.Register(ctx, params.ID, params.PushNotification)
}

func (m *AgentTaskManager) notifyPush(ctx context.Context, task *agentwire.Task) {
	if m.push == nil {
		return
	}
	m.push.Notify(ctx, task)
}

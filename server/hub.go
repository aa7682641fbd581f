// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/agentwire/agentwire"
)

// DefaultConsumerBuffer is the per-consumer event queue depth used when the
// hub is constructed with a non-positive buffer size.
const DefaultConsumerBuffer = 1024

// SSEHub fans task events out from one producer per task to any number of
// stream consumers. Consumers that attach late only see future events; there
// is no replay log. Each consumer drains a bounded queue, and a producer
// never blocks on a slow consumer: when a queue is full the oldest queued
// event is dropped to make room.
type SSEHub struct {
	mu        sync.Mutex
	logger    *slog.Logger
	buffer    int
	producers map[string]struct{}
	consumers map[string]map[*SSEConsumer]struct{}
}

// SSEConsumer is one attached event stream reader.
type SSEConsumer struct {
	hub    *SSEHub
	taskID string
	ch     chan agentwire.Event
	closed bool
}

// TaskID returns the id of the task the consumer is attached to.
func (c *SSEConsumer) TaskID() string { return c.taskID }

// Events returns the consumer's event channel. The channel is closed after a
// final event is delivered or the consumer is detached.
func (c *SSEConsumer) Events() <-chan agentwire.Event { return c.ch }

// Close detaches the consumer from its hub.
func (c *SSEConsumer) Close() {
	c.hub.CloseConsumer(c)
}

// NewSSEHub returns a hub whose consumers buffer up to buffer events; a
// non-positive buffer selects [DefaultConsumerBuffer].
func NewSSEHub(logger *slog.Logger, buffer int) *SSEHub {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultConsumerBuffer
	}
	return &SSEHub{
		logger:    logger,
		buffer:    buffer,
		producers: make(map[string]struct{}),
		consumers: make(map[string]map[*SSEConsumer]struct{}),
	}
}

// OpenProducer registers the task as actively streaming. Registering a task
// that already has a producer is a logic error and fails fast with
// [agentwire.ErrStreamActive].
func (h *SSEHub) OpenProducer(taskID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.producers[taskID]; ok {
		return fmt.Errorf("open producer %q: %w", taskID, agentwire.ErrStreamActive)
	}
	h.producers[taskID] = struct{}{}
	return nil
}

// Active reports whether the task currently has a registered producer.
func (h *SSEHub) Active(taskID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.producers[taskID]
	return ok
}

// Subscribe attaches a new consumer to the task's stream. It fails with
// [agentwire.ErrStreamNotActive] when the task has no registered producer,
// which covers both unknown tasks and already finalized ones.
func (h *SSEHub) Subscribe(taskID string) (*SSEConsumer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.producers[taskID]; !ok {
		return nil, fmt.Errorf("subscribe %q: %w", taskID, agentwire.ErrStreamNotActive)
	}
	c := &SSEConsumer{hub: h, taskID: taskID, ch: make(chan agentwire.Event, h.buffer)}
	if h.consumers[taskID] == nil {
		h.consumers[taskID] = make(map[*SSEConsumer]struct{})
	}
	h.consumers[taskID][c] = struct{}{}
	return c, nil
}

// Publish enqueues ev for every consumer currently attached to the task.
// When a consumer's queue is full the oldest queued event is dropped so the
// producer never blocks. A final event closes all consumers and discards the
// task's producer registration.
func (h *SSEHub) Publish(taskID string, ev agentwire.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.consumers[taskID] {
		h.enqueueLocked(c, ev)
	}
	if agentwire.IsFinalEvent(ev) {
		for c := range h.consumers[taskID] {
			c.closed = true
			close(c.ch)
		}
		delete(h.consumers, taskID)
		delete(h.producers, taskID)
	}
}

// enqueueLocked delivers ev to one consumer, dropping the oldest queued
// event if its buffer is full. Caller holds h.mu.
func (h *SSEHub) enqueueLocked(c *SSEConsumer, ev agentwire.Event) {
	for {
		select {
		case c.ch <- ev:
			return
		default:
		}
		select {
		case dropped := <-c.ch:
			h.logger.Warn("event queue full, dropping oldest event",
				slog.String("task_id", c.taskID),
				slog.String("event_kind", dropped.EventKind()))
		default:
		}
	}
}

// CloseConsumer detaches one consumer, typically on client disconnect. The
// producer and other consumers of the same task are unaffected.
func (h *SSEHub) CloseConsumer(c *SSEConsumer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c == nil || c.closed {
		return
	}
	if set, ok := h.consumers[c.taskID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.consumers, c.taskID)
		}
	}
	c.closed = true
	close(c.ch)
}

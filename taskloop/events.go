package taskloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of task event.
type EventKind string

const (
	EventTaskStart        EventKind = "task_start"
	EventTaskEnd          EventKind = "task_end"
	EventAPIRequest       EventKind = "api_request"
	EventAssistantText    EventKind = "assistant_text"
	EventAssistantThought EventKind = "assistant_thinking"
	EventToolStart        EventKind = "tool_start"
	EventToolResult       EventKind = "tool_result"
	EventToolDenied       EventKind = "tool_denied"
	EventNotification     EventKind = "notification"
	EventError            EventKind = "error"
)

// TaskEvent is a typed event emitted by a running task.
type TaskEvent struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	TaskID    string                 `json:"task_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a channel.
type EventEmitter struct {
	taskID string
	ch     chan TaskEvent
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(taskID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		taskID: taskID,
		ch:     make(chan TaskEvent, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is closed, the event is
// silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := TaskEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		TaskID:    e.taskID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop event to avoid blocking the task loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan TaskEvent {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// Package taskloop drives a task's turn-based control flow: it requests model
// completions, parses the responses into blocks, enforces the approval policy,
// dispatches tool executions, and keeps the conversation inside the model's
// context window.
package taskloop

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ktully/quill/config"
	"github.com/ktully/quill/history"
	"github.com/ktully/quill/llmclient"
	"github.com/ktully/quill/tools"
)

var (
	// ErrAborted is returned when the task is cancelled externally or the
	// operator declines to continue.
	ErrAborted = errors.New("task aborted")

	// ErrTooManyMistakes is returned after three consecutive tool-free model
	// responses; the task needs operator feedback before it can continue.
	ErrTooManyMistakes = errors.New("too many consecutive mistakes")
)

// Operator is the human in the loop. Ask blocks until the operator answers
// yes or no; AskInput blocks for a free-form line, where an empty string means
// the operator had nothing to add; Notify is fire-and-forget.
type Operator interface {
	Ask(question string) (bool, error)
	AskInput(prompt string) (string, error)
	Notify(subtitle, message string)
}

// Options configures a Task.
type Options struct {
	Client       llmclient.Client
	Registry     *tools.Registry
	Store        *history.Store
	Operator     Operator
	AutoApproval config.AutoApprovalSettings
	Cwd          string
	Logger       *zap.Logger

	// RetryBackoff overrides the pause before the single automatic retry of
	// a failed model request. Zero means the default.
	RetryBackoff time.Duration

	// longRunningNotifyDelay is how long an auto-approved command may run
	// before the operator is notified. Overridden in tests.
	longRunningNotifyDelay time.Duration
}

// Task owns all mutable state for one agent task. A Task is used by a single
// goroutine; only Abort may be called concurrently.
type Task struct {
	id      string
	opts    Options
	emitter *EventEmitter
	logger  *zap.Logger

	mu      sync.Mutex
	aborted bool

	consecutiveMistakes     int
	consecutiveAutoApproved int

	totalInputTokens  int
	totalOutputTokens int
	totalCacheWrites  int
	totalCacheReads   int
	totalCost         float64
	lastRequestTokens int

	deletedRange *TruncationRange
	apiHistory   []llmclient.Message
	uiMessages   []history.UIMessage
}

// New creates a fresh task with a new identifier.
func New(opts Options) (*Task, error) {
	return newTask(history.NewTaskID(), opts, nil, nil)
}

// Resume loads a stored task's conversation state and returns a Task ready to
// continue it.
func Resume(taskID string, opts Options) (*Task, error) {
	apiHistory, err := opts.Store.LoadAPIHistory(taskID)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", taskID, err)
	}
	if len(apiHistory) == 0 {
		return nil, fmt.Errorf("task %s has no stored history", taskID)
	}
	uiMessages, err := opts.Store.LoadUIMessages(taskID)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", taskID, err)
	}
	return newTask(taskID, opts, apiHistory, uiMessages)
}

func newTask(id string, opts Options, apiHistory []llmclient.Message, uiMessages []history.UIMessage) (*Task, error) {
	if opts.Client == nil || opts.Registry == nil || opts.Store == nil || opts.Operator == nil {
		return nil, errors.New("client, registry, store, and operator are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = llmclient.DefaultRetryBackoff
	}
	if opts.longRunningNotifyDelay <= 0 {
		opts.longRunningNotifyDelay = 30 * time.Second
	}
	if opts.AutoApproval.MaxRequests <= 0 {
		opts.AutoApproval.MaxRequests = config.DefaultAutoApprovalSettings().MaxRequests
	}
	return &Task{
		id:         id,
		opts:       opts,
		emitter:    NewEventEmitter(id, 0),
		logger:     opts.Logger.With(zap.String("task_id", id)),
		apiHistory: apiHistory,
		uiMessages: uiMessages,
	}, nil
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Events returns the task's event channel. The channel is closed when Run
// returns.
func (t *Task) Events() <-chan TaskEvent { return t.emitter.Events() }

// Abort requests cooperative cancellation. The current tool or model request
// runs to completion; the loop stops at the next iteration boundary.
func (t *Task) Abort() {
	t.mu.Lock()
	t.aborted = true
	t.mu.Unlock()
}

func (t *Task) isAborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// TotalCost returns the accumulated request cost in dollars.
func (t *Task) TotalCost() float64 { return t.totalCost }

// TokenTotals returns cumulative input and output token counts.
func (t *Task) TokenTotals() (input, output int) {
	return t.totalInputTokens, t.totalOutputTokens
}

func (t *Task) addUIMessage(kind, text string) {
	t.uiMessages = append(t.uiMessages, history.UIMessage{
		Ts:   time.Now().Unix(),
		Kind: kind,
		Text: text,
	})
}

func (t *Task) persist() {
	if err := t.opts.Store.SaveAPIHistory(t.id, t.apiHistory); err != nil {
		t.logger.Warn("failed to persist api history", zap.Error(err))
	}
	if err := t.opts.Store.SaveUIMessages(t.id, t.uiMessages); err != nil {
		t.logger.Warn("failed to persist ui messages", zap.Error(err))
	}
}

func (t *Task) notify(subtitle, message string) {
	t.emitter.Emit(EventNotification, map[string]interface{}{
		"subtitle": subtitle,
		"message":  message,
	})
	t.opts.Operator.Notify(subtitle, message)
}

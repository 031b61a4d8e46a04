// Package history persists per-task conversation state.
//
// Each task owns a directory under the history root keyed by its task ID,
// holding two JSON files: the full API conversation history and the UI-facing
// message log. Both are read at resume and rewritten after every turn.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ktully/quill/llmclient"
)

const (
	apiHistoryFile = "api_conversation_history.json"
	uiMessagesFile = "ui_messages.json"
)

// UIMessage is one entry in the operator-facing message log.
type UIMessage struct {
	Ts   int64  `json:"ts"`
	Kind string `json:"kind"` // text, thinking, tool_result, error, api_req
	Text string `json:"text"`
}

// TaskMeta summarizes a stored task.
type TaskMeta struct {
	ID   string `json:"id"`
	Ts   int64  `json:"ts"`
	Task string `json:"task"`
	Size int64  `json:"size"`
}

// Store reads and writes task state under a root directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// DefaultDir returns the default history root.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "quill", "history"), nil
}

func (s *Store) taskDir(taskID string) (string, error) {
	dir := filepath.Join(s.root, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating task directory: %w", err)
	}
	return dir, nil
}

// SaveAPIHistory writes the full API conversation history for a task.
func (s *Store) SaveAPIHistory(taskID string, messages []llmclient.Message) error {
	return s.writeJSON(taskID, apiHistoryFile, messages)
}

// LoadAPIHistory reads a task's API conversation history. A task with no
// stored history yields an empty slice, not an error.
func (s *Store) LoadAPIHistory(taskID string) ([]llmclient.Message, error) {
	var messages []llmclient.Message
	if err := s.readJSON(taskID, apiHistoryFile, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveUIMessages writes a task's UI message log.
func (s *Store) SaveUIMessages(taskID string, messages []UIMessage) error {
	return s.writeJSON(taskID, uiMessagesFile, messages)
}

// LoadUIMessages reads a task's UI message log.
func (s *Store) LoadUIMessages(taskID string) ([]UIMessage, error) {
	var messages []UIMessage
	if err := s.readJSON(taskID, uiMessagesFile, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Store) writeJSON(taskID, name string, v any) error {
	dir, err := s.taskDir(taskID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func (s *Store) readJSON(taskID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.root, taskID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// Tasks lists stored tasks, newest first. Tasks with an unreadable or empty
// history are skipped.
func (s *Store) Tasks() ([]TaskMeta, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	var tasks []TaskMeta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		taskID := entry.Name()
		messages, err := s.LoadAPIHistory(taskID)
		if err != nil || len(messages) == 0 {
			continue
		}

		meta := TaskMeta{ID: taskID, Task: firstText(messages)}
		if ts, err := strconv.ParseInt(taskID, 10, 64); err == nil {
			meta.Ts = ts
		} else if info, err := entry.Info(); err == nil {
			meta.Ts = info.ModTime().Unix()
		}
		meta.Size = dirSize(filepath.Join(s.root, taskID))
		tasks = append(tasks, meta)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Ts > tasks[j].Ts })
	return tasks, nil
}

// LatestTaskID returns the most recent task's ID, or "" if none exist.
func (s *Store) LatestTaskID() (string, error) {
	tasks, err := s.Tasks()
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}
	return tasks[0].ID, nil
}

// NewTaskID generates a timestamp-based task identifier.
func NewTaskID() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

func firstText(messages []llmclient.Message) string {
	for _, m := range messages {
		if text := m.TextContent(); text != "" {
			return text
		}
	}
	return ""
}

func dirSize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

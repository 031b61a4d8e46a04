// Package tools implements the local-effect tool executors the task loop
// dispatches to: file read/write, fuzzy patching, search, directory listing,
// command execution, and the two terminal tools.
//
// Every executor returns a fresh Result per invocation and never panics
// outward; filesystem and subprocess side effects live entirely here.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/ktully/quill/assistantmsg"
)

// Params carries the parsed tool parameters from an assistant message block.
type Params map[assistantmsg.ParamName]string

// Get returns the named parameter, or "" if absent.
func (p Params) Get(name assistantmsg.ParamName) string { return p[name] }

// HasParam reports whether the named parameter was supplied, even if empty.
func (p Params) HasParam(name assistantmsg.ParamName) bool {
	_, ok := p[name]
	return ok
}

// FileChange records a write produced by a file-mutating tool, used to render
// a diff for operator visibility.
type FileChange struct {
	Path            string
	NewContent      string
	IsNew           bool
	OriginalContent string
}

// Result is the outcome of one tool execution. It is immutable once returned
// and consumed exactly once by the loop to build the next user turn.
type Result struct {
	Success    bool
	Message    string
	Content    string
	FileChange *FileChange
	TimedOut   bool
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Tool is one named local capability.
type Tool interface {
	Name() assistantmsg.ToolName
	Execute(ctx context.Context, params Params) Result
}

// Registry maps tool names to executors. Dispatch is a table lookup rather
// than a conditional chain so hosts can register or replace capabilities.
type Registry struct {
	tools map[assistantmsg.ToolName]Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[assistantmsg.ToolName]Tool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name assistantmsg.ToolName) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns the registered tool names.
func (r *Registry) Names() []assistantmsg.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]assistantmsg.ToolName, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// CoreOptions configures NewCoreRegistry.
type CoreOptions struct {
	CommandTimeoutSeconds int
	RipgrepPath           string // defaults to "rg" on PATH
}

// NewCoreRegistry builds a registry with the standard quill toolset rooted at
// cwd.
func NewCoreRegistry(cwd string, opts CoreOptions) *Registry {
	if opts.CommandTimeoutSeconds <= 0 {
		opts.CommandTimeoutSeconds = 600
	}
	if opts.RipgrepPath == "" {
		opts.RipgrepPath = "rg"
	}

	r := NewRegistry()
	r.Register(NewReadFileTool(cwd))
	r.Register(NewWriteToFileTool(cwd))
	r.Register(NewReplaceInFileTool(cwd))
	r.Register(NewListFilesTool(cwd))
	r.Register(NewListCodeDefinitionsTool(cwd))
	r.Register(NewSearchFilesTool(cwd, opts.RipgrepPath))
	r.Register(NewExecuteCommandTool(cwd, opts.CommandTimeoutSeconds))
	r.Register(NewAttemptCompletionTool())
	r.Register(NewAskFollowupQuestionTool())
	r.Register(NewPlanModeResponseTool())
	return r
}

package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ktully/quill/assistantmsg"
)

// WriteToFileTool writes complete file content, creating parent directories
// as needed. Content is normalized to end with exactly one trailing newline.
type WriteToFileTool struct {
	cwd string
}

func NewWriteToFileTool(cwd string) *WriteToFileTool { return &WriteToFileTool{cwd: cwd} }

func (t *WriteToFileTool) Name() assistantmsg.ToolName { return assistantmsg.ToolWriteToFile }

func (t *WriteToFileTool) Execute(_ context.Context, params Params) Result {
	relPath := params.Get(assistantmsg.ParamPath)
	if relPath == "" {
		return failure("Missing required parameter: path")
	}
	if !params.HasParam(assistantmsg.ParamContent) {
		return failure("Missing required parameter: content")
	}

	absPath, err := resolveWithin(t.cwd, relPath)
	if err != nil {
		return failure("Invalid path: %v", err)
	}

	var originalContent string
	exists := false
	if data, err := os.ReadFile(absPath); err == nil {
		originalContent = string(data)
		exists = true
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return failure("Error writing file: %v", err)
	}

	content := SanitizeModelContent(params.Get(assistantmsg.ParamContent))
	content = strings.TrimRight(content, " \t\r\n") + "\n"

	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return failure("Error writing file: %v", err)
	}

	display := displayPath(t.cwd, absPath)
	action := "created"
	message := "Successfully created file: " + display
	if exists {
		action = "modified"
		diff := PrettyDiff(originalContent, content)
		if diff == "" {
			diff = "[No Changes Found]"
		}
		message = "Successfully " + action + " file: " + display + "\n\nChanges made:\n" + diff
	}

	return Result{
		Success: true,
		Message: message,
		FileChange: &FileChange{
			Path:            display,
			NewContent:      content,
			IsNew:           !exists,
			OriginalContent: originalContent,
		},
	}
}

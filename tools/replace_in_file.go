package tools

import (
	"context"
	"os"

	"github.com/ktully/quill/assistantmsg"
	"github.com/ktully/quill/patch"
)

// ReplaceInFileTool applies SEARCH/REPLACE blocks to an existing file.
type ReplaceInFileTool struct {
	cwd string
}

func NewReplaceInFileTool(cwd string) *ReplaceInFileTool { return &ReplaceInFileTool{cwd: cwd} }

func (t *ReplaceInFileTool) Name() assistantmsg.ToolName { return assistantmsg.ToolReplaceInFile }

func (t *ReplaceInFileTool) Execute(_ context.Context, params Params) Result {
	relPath := params.Get(assistantmsg.ParamPath)
	if relPath == "" {
		return failure("Missing required parameter: path")
	}
	diff := params.Get(assistantmsg.ParamDiff)
	if diff == "" {
		return failure("Missing required parameter: diff")
	}

	absPath, err := resolveWithin(t.cwd, relPath)
	if err != nil {
		return failure("Invalid path: %v", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return failure("File not found: %s", relPath)
		}
		return failure("Error reading file: %v", err)
	}
	originalContent := string(data)

	newContent, err := patch.Apply(originalContent, SanitizeModelContent(diff))
	if err != nil {
		return failure("Error applying diff: %v", err)
	}

	if err := os.WriteFile(absPath, []byte(newContent), 0o644); err != nil {
		return failure("Error writing file: %v", err)
	}

	display := displayPath(t.cwd, absPath)
	return Result{
		Success: true,
		Message: "Successfully updated " + display,
		Content: "Updated content:\n" + newContent,
		FileChange: &FileChange{
			Path:            display,
			NewContent:      newContent,
			OriginalContent: originalContent,
		},
	}
}

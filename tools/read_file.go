package tools

import (
	"context"
	"os"

	"github.com/ktully/quill/assistantmsg"
)

// ReadFileTool returns the full text of a file under the working directory.
type ReadFileTool struct {
	cwd string
}

func NewReadFileTool(cwd string) *ReadFileTool { return &ReadFileTool{cwd: cwd} }

func (t *ReadFileTool) Name() assistantmsg.ToolName { return assistantmsg.ToolReadFile }

func (t *ReadFileTool) Execute(_ context.Context, params Params) Result {
	relPath := params.Get(assistantmsg.ParamPath)
	if relPath == "" {
		return failure("Missing required parameter: path")
	}

	absPath, err := resolveWithin(t.cwd, relPath)
	if err != nil {
		return failure("Invalid path: %v", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return failure("File does not exist: %s", relPath)
		}
		return failure("Error reading file: %v", err)
	}
	if info.IsDir() {
		return failure("Path is not a file: %s", relPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return failure("Error reading file: %v", err)
	}

	return Result{
		Success: true,
		Message: "Successfully read file: " + displayPath(t.cwd, absPath),
		Content: string(data),
	}
}

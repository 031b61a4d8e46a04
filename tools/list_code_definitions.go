package tools

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ktully/quill/assistantmsg"
)

// Top-level definition patterns per language family. Lightweight regex
// extraction, not a full parse; good enough for a code map.
var (
	goDefPattern = regexp.MustCompile(`(?m)^(?:func(?:\s+\([^)]+\))?|type|var|const)\s+(\w+)`)
	pyDefPattern = regexp.MustCompile(`(?m)^(?:def|class)\s+(\w+)`)
	jsDefPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^(?:export\s+)?class\s+(\w+)`),
		regexp.MustCompile(`(?m)^(?:export\s+)?function\s+(\w+)`),
		regexp.MustCompile(`(?m)^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=`),
		regexp.MustCompile(`(?m)^export\s+(?:interface|type)\s+(\w+)`),
	}
)

// ListCodeDefinitionsTool lists top-level code definition names in the source
// files directly under a directory.
type ListCodeDefinitionsTool struct {
	cwd string
}

func NewListCodeDefinitionsTool(cwd string) *ListCodeDefinitionsTool {
	return &ListCodeDefinitionsTool{cwd: cwd}
}

func (t *ListCodeDefinitionsTool) Name() assistantmsg.ToolName {
	return assistantmsg.ToolListCodeDefinitionNames
}

func (t *ListCodeDefinitionsTool) Execute(_ context.Context, params Params) Result {
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
		return failure("Directory does not exist: %s", relPath)
	}
	if !info.IsDir() {
		return failure("Path is not a directory: %s", relPath)
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return failure("Error listing code definitions: %v", err)
	}

	type fileDefs struct {
		path string
		defs []string
	}
	var files []fileDefs
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		defs := extractDefinitions(filepath.Join(absPath, entry.Name()))
		if len(defs) == 0 {
			continue
		}
		sort.Strings(defs)
		files = append(files, fileDefs{path: displayPath(t.cwd, filepath.Join(absPath, entry.Name())), defs: defs})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

	content := "No definitions found."
	if len(files) > 0 {
		var sb strings.Builder
		for _, f := range files {
			sb.WriteString("\nFile: " + f.path + "\n")
			for _, d := range f.defs {
				sb.WriteString("  " + d + "\n")
			}
		}
		content = strings.TrimRight(sb.String(), "\n")
	}

	return Result{
		Success: true,
		Message: "Successfully listed code definitions in: " + displayPath(t.cwd, absPath),
		Content: content,
	}
}

func extractDefinitions(path string) []string {
	var patterns []*regexp.Regexp
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		patterns = []*regexp.Regexp{goDefPattern}
	case ".py":
		patterns = []*regexp.Regexp{pyDefPattern}
	case ".js", ".ts", ".jsx", ".tsx":
		patterns = jsDefPatterns
	default:
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var defs []string
	for _, pattern := range patterns {
		for _, m := range pattern.FindAllStringSubmatch(string(data), -1) {
			name := m[len(m)-1]
			if name != "" && !seen[name] {
				seen[name] = true
				defs = append(defs, name)
			}
		}
	}
	return defs
}

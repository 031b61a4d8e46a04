package tools

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ktully/quill/assistantmsg"
)

const listFilesLimit = 200

// Directory names skipped during recursive listings. Hidden directories are
// skipped by prefix.
var listIgnoreDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"env":          true,
	"venv":         true,
	"dist":         true,
	"out":          true,
	"bundle":       true,
	"vendor":       true,
	"tmp":          true,
	"temp":         true,
	"deps":         true,
	"pkg":          true,
	"Pods":         true,
}

// ListFilesTool lists directory contents, optionally recursively, capped at
// 200 entries.
type ListFilesTool struct {
	cwd string
}

func NewListFilesTool(cwd string) *ListFilesTool { return &ListFilesTool{cwd: cwd} }

func (t *ListFilesTool) Name() assistantmsg.ToolName { return assistantmsg.ToolListFiles }

func (t *ListFilesTool) Execute(_ context.Context, params Params) Result {
	relPath := params.Get(assistantmsg.ParamPath)
	if relPath == "" {
		return failure("Missing required parameter: path")
	}

	absPath := relPath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(t.cwd, relPath)
	}
	absPath = filepath.Clean(absPath)

	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return failure("Directory does not exist: %s", relPath)
	}

	// Refuse to enumerate filesystem and home roots wholesale.
	if home, err := os.UserHomeDir(); err == nil && absPath == filepath.Clean(home) {
		return Result{Success: true, Message: "Files listed successfully", Content: home}
	}
	if absPath == string(filepath.Separator) {
		return Result{Success: true, Message: "Files listed successfully", Content: absPath}
	}

	recursive := strings.EqualFold(params.Get(assistantmsg.ParamRecursive), "true")

	entries, hitLimit, err := listEntries(absPath, recursive, listFilesLimit)
	if err != nil {
		return failure("Error listing files: %v", err)
	}

	message := "Files listed successfully"
	return Result{
		Success: true,
		Message: message,
		Content: FormatFilesList(entries, hitLimit),
	}
}

// listEntries returns paths relative to dir, directories suffixed with "/".
func listEntries(dir string, recursive bool, limit int) ([]string, bool, error) {
	var entries []string
	hitLimit := false

	pattern := "*"
	if recursive {
		pattern = "**"
	}

	errLimit := errors.New("listing limit reached")
	err := doublestar.GlobWalk(os.DirFS(dir), pattern, func(p string, d fs.DirEntry) error {
		if p == "." {
			return nil
		}
		if d.IsDir() {
			base := d.Name()
			if recursive && (listIgnoreDirs[base] || strings.HasPrefix(base, ".")) {
				return filepath.SkipDir
			}
			p += "/"
		}
		if len(entries) >= limit {
			hitLimit = true
			return errLimit
		}
		entries = append(entries, p)
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, false, err
	}
	return entries, hitLimit, nil
}

// FormatFilesList sorts posix-style relative paths so files appear under
// their directories, compared case-insensitively per component.
func FormatFilesList(entries []string, hitLimit bool) string {
	sorted := append([]string(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		a := strings.Split(strings.ToLower(sorted[i]), "/")
		b := strings.Split(strings.ToLower(sorted[j]), "/")
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})

	if hitLimit {
		return strings.Join(sorted, "\n") +
			"\n\n(File list truncated. Use list_files on specific subdirectories if you need to explore further.)"
	}
	if len(sorted) == 0 || (len(sorted) == 1 && sorted[0] == "") {
		return "No files found."
	}
	return strings.Join(sorted, "\n")
}

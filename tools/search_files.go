package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ktully/quill/assistantmsg"
)

const searchMaxResults = 300

// SearchFilesTool runs a regex search over a directory tree via ripgrep and
// formats the matches with one line of surrounding context.
type SearchFilesTool struct {
	cwd    string
	rgPath string
}

func NewSearchFilesTool(cwd, rgPath string) *SearchFilesTool {
	return &SearchFilesTool{cwd: cwd, rgPath: rgPath}
}

func (t *SearchFilesTool) Name() assistantmsg.ToolName { return assistantmsg.ToolSearchFiles }

func (t *SearchFilesTool) Execute(ctx context.Context, params Params) Result {
	relPath := params.Get(assistantmsg.ParamPath)
	if relPath == "" {
		return failure("Missing required parameter: path")
	}
	regex := params.Get(assistantmsg.ParamRegex)
	if regex == "" {
		return failure("Missing required parameter: regex")
	}

	absPath := relPath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(t.cwd, relPath)
	}
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		return failure("Directory does not exist: %s", relPath)
	}

	filePattern := params.Get(assistantmsg.ParamFilePattern)
	if filePattern == "" {
		filePattern = "*"
	}

	content, err := t.regexSearch(ctx, absPath, regex, filePattern)
	if err != nil {
		return failure("Error performing file search: %v", err)
	}

	return Result{Success: true, Message: "Search completed successfully", Content: content}
}

// searchMatch is one ripgrep hit plus its context lines.
type searchMatch struct {
	file   string
	line   int
	text   string
	before []string
	after  []string
}

// rgEvent is the subset of ripgrep's --json output we consume.
type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
	} `json:"data"`
}

func (t *SearchFilesTool) regexSearch(ctx context.Context, dir, regex, filePattern string) (string, error) {
	if _, err := exec.LookPath(t.rgPath); err != nil {
		return "", fmt.Errorf("ripgrep (rg) not found on PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.rgPath,
		"--json", "-e", regex, "--glob", filePattern, "--context", "1", dir)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	var (
		matches []*searchMatch
		current *searchMatch
	)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineCount := 0
	maxLines := searchMaxResults * 5

	for scanner.Scan() {
		if lineCount >= maxLines {
			_ = cmd.Process.Kill()
			break
		}
		lineCount++

		var ev rgEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "match":
			if current != nil {
				matches = append(matches, current)
			}
			current = &searchMatch{
				file: ev.Data.Path.Text,
				line: ev.Data.LineNumber,
				text: ev.Data.Lines.Text,
			}
		case "context":
			if current == nil {
				continue
			}
			if ev.Data.LineNumber < current.line {
				current.before = append(current.before, ev.Data.Lines.Text)
			} else {
				current.after = append(current.after, ev.Data.Lines.Text)
			}
		}
	}
	if current != nil {
		matches = append(matches, current)
	}

	// rg exits 1 on zero matches; that is not an error.
	_ = cmd.Wait()

	if len(matches) == 0 {
		return "No results found", nil
	}
	return formatSearchResults(matches, t.cwd), nil
}

func formatSearchResults(matches []*searchMatch, cwd string) string {
	var sb strings.Builder
	if len(matches) >= searchMaxResults {
		matches = matches[:searchMaxResults]
		fmt.Fprintf(&sb, "Showing first %d of %d+ results. Use a more specific search if necessary.\n\n",
			searchMaxResults, searchMaxResults)
	} else {
		plural := "s"
		if len(matches) == 1 {
			plural = ""
		}
		fmt.Fprintf(&sb, "Found %d result%s.\n\n", len(matches), plural)
	}

	grouped := make(map[string][]*searchMatch)
	var order []string
	for _, m := range matches {
		rel := m.file
		if r, err := filepath.Rel(cwd, m.file); err == nil {
			rel = filepath.ToSlash(r)
		}
		if _, seen := grouped[rel]; !seen {
			order = append(order, rel)
		}
		grouped[rel] = append(grouped[rel], m)
	}

	for _, file := range order {
		sb.WriteString(file + "\n│----\n")
		fileMatches := grouped[file]
		for i, m := range fileMatches {
			lines := make([]string, 0, len(m.before)+1+len(m.after))
			lines = append(lines, m.before...)
			lines = append(lines, m.text)
			lines = append(lines, m.after...)
			for _, line := range lines {
				sb.WriteString("│" + strings.TrimRight(line, "\r\n") + "\n")
			}
			if i < len(fileMatches)-1 {
				sb.WriteString("│----\n")
			}
		}
		sb.WriteString("│----\n\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

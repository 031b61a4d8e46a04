// Package patch applies SEARCH/REPLACE edit blocks to file content.
//
// The instruction syntax is the one emitted by the replace_in_file tool:
//
//	<<<<<<< SEARCH
//	old lines
//	=======
//	new lines
//	>>>>>>> REPLACE
//
// Blocks are applied strictly in document order against a monotonic cursor:
// each search region must be located at or after the end of the previous
// match, so earlier edits constrain where later ones may land. Three match
// strategies are tried in order, first success wins: exact substring,
// line-trimmed, and block-anchor. Block-anchor matching ignores the interior
// of the search block entirely and is best-effort by design; tightening it
// would change observable patch semantics.
package patch

import (
	"fmt"
	"strings"
)

const (
	searchMarker  = "<<<<<<< SEARCH"
	dividerMarker = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

// MatchError reports a search block that could not be located in the file by
// any strategy. The whole patch application is abandoned when this happens;
// no partial result is produced.
type MatchError struct {
	Search string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("The SEARCH block:\n%s\n...does not match anything in the file.",
		strings.TrimRight(e.Search, "\n"))
}

// Apply reconstructs file content by applying every SEARCH/REPLACE block in
// diff to original. An empty search block inserts the replacement at the
// current cursor; on an empty or new file that amounts to writing the whole
// file. The error, if any, is a *MatchError and original is left untouched
// conceptually (Apply never mutates its inputs).
func Apply(original, diff string) (string, error) {
	var out strings.Builder
	lastProcessed := 0

	var searchContent strings.Builder
	inSearch := false
	inReplace := false
	matchStart := -1
	matchEnd := -1

	lines := strings.Split(diff, "\n")

	// The model may stop mid-marker on the final line; drop the fragment.
	if n := len(lines); n > 0 {
		last := lines[n-1]
		if last != searchMarker && last != dividerMarker && last != replaceMarker &&
			(strings.HasPrefix(last, "<") || strings.HasPrefix(last, "=") || strings.HasPrefix(last, ">")) {
			lines = lines[:n-1]
		}
	}

	for _, line := range lines {
		switch line {
		case searchMarker:
			inSearch = true
			inReplace = false
			searchContent.Reset()
			continue

		case dividerMarker:
			inSearch = false
			inReplace = true

			search := searchContent.String()
			if search == "" {
				// Insert at cursor; a fresh file gets the replacement as its
				// entire content.
				matchStart = lastProcessed
				matchEnd = lastProcessed
			} else {
				start, end, err := locate(original, search, lastProcessed)
				if err != nil {
					return "", err
				}
				matchStart, matchEnd = start, end
			}

			out.WriteString(original[lastProcessed:matchStart])
			continue

		case replaceMarker:
			lastProcessed = matchEnd
			inSearch = false
			inReplace = false
			searchContent.Reset()
			matchStart = -1
			matchEnd = -1
			continue
		}

		if inSearch {
			searchContent.WriteString(line)
			searchContent.WriteString("\n")
		} else if inReplace && matchStart != -1 {
			out.WriteString(line)
			out.WriteString("\n")
		}
	}

	if lastProcessed < len(original) {
		out.WriteString(original[lastProcessed:])
	}

	return out.String(), nil
}

// locate finds the search content in original at or after the cursor, trying
// exact, line-trimmed, then block-anchor matching.
func locate(original, search string, cursor int) (int, int, error) {
	if idx := strings.Index(original[cursor:], search); idx != -1 {
		start := cursor + idx
		return start, start + len(search), nil
	}
	if start, end, ok := lineTrimmedMatch(original, search, cursor); ok {
		return start, end, nil
	}
	if start, end, ok := blockAnchorMatch(original, search, cursor); ok {
		return start, end, nil
	}
	return 0, 0, &MatchError{Search: search}
}

// lineTrimmedMatch looks for a contiguous run of original lines whose trimmed
// content equals the search lines' trimmed content line-for-line, starting at
// the line containing the cursor. Line counts must match exactly; there is no
// similarity scoring.
func lineTrimmedMatch(original, search string, cursor int) (int, int, bool) {
	originalLines := strings.Split(original, "\n")
	searchLines := strings.Split(search, "\n")
	if n := len(searchLines); n > 0 && searchLines[n-1] == "" {
		searchLines = searchLines[:n-1]
	}
	if len(searchLines) == 0 {
		return 0, 0, false
	}

	startLine := lineAt(originalLines, cursor)

	for i := startLine; i <= len(originalLines)-len(searchLines); i++ {
		matches := true
		for j := range searchLines {
			if strings.TrimSpace(originalLines[i+j]) != strings.TrimSpace(searchLines[j]) {
				matches = false
				break
			}
		}
		if matches {
			return lineSpan(original, originalLines, i, len(searchLines))
		}
	}
	return 0, 0, false
}

// blockAnchorMatch locates a run of lines whose first and last trimmed lines
// equal the search block's first and last trimmed lines, ignoring everything
// in between. Only attempted for search blocks of three or more lines.
func blockAnchorMatch(original, search string, cursor int) (int, int, bool) {
	originalLines := strings.Split(original, "\n")
	searchLines := strings.Split(search, "\n")
	if n := len(searchLines); n > 0 && searchLines[n-1] == "" {
		searchLines = searchLines[:n-1]
	}
	if len(searchLines) < 3 {
		return 0, 0, false
	}

	first := strings.TrimSpace(searchLines[0])
	last := strings.TrimSpace(searchLines[len(searchLines)-1])
	size := len(searchLines)

	startLine := lineAt(originalLines, cursor)

	for i := startLine; i <= len(originalLines)-size; i++ {
		if strings.TrimSpace(originalLines[i]) != first {
			continue
		}
		if strings.TrimSpace(originalLines[i+size-1]) != last {
			continue
		}
		return lineSpan(original, originalLines, i, size)
	}
	return 0, 0, false
}

// lineAt returns the index of the first line whose start offset is at or
// after the given byte offset. A cursor resting inside a line skips that
// line entirely: an earlier match already consumed part of it, and matching
// it again would move the cursor backwards.
func lineAt(lines []string, offset int) int {
	pos := 0
	for i := range lines {
		if pos >= offset {
			return i
		}
		pos += len(lines[i]) + 1
	}
	return len(lines)
}

// lineSpan converts a (line index, line count) run into byte offsets within
// original, clamping the end to the content length when the final line has no
// trailing newline.
func lineSpan(original string, lines []string, start, count int) (int, int, bool) {
	begin := 0
	for i := 0; i < start; i++ {
		begin += len(lines[i]) + 1
	}
	end := begin
	for i := 0; i < count; i++ {
		end += len(lines[start+i]) + 1
	}
	if end > len(original) {
		end = len(original)
	}
	return begin, end, true
}

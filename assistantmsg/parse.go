package assistantmsg

import "strings"

const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
)

// Parse converts an assistant response into an ordered sequence of content
// blocks. Text before each tool block is flushed as text (with thinking
// extraction applied); a tool opening tag with no matching closing tag turns
// the entire remaining tail, opening tag included, into plain text so that
// partial streamed responses survive a parse round-trip.
func Parse(message string) []ContentBlock {
	var blocks []ContentBlock
	var text strings.Builder

	flush := func() {
		blocks = append(blocks, extractThinking(text.String())...)
		text.Reset()
	}

	rest := message
	for rest != "" {
		start, name := findOpeningTag(rest)
		if start == -1 {
			text.WriteString(rest)
			break
		}

		closing := "</" + string(name) + ">"
		relEnd := strings.Index(rest[start:], closing)
		if relEnd == -1 {
			// Unclosed tool block: keep everything, including the opening
			// tag, as text. The caller may re-parse when more arrives.
			text.WriteString(rest)
			break
		}

		text.WriteString(rest[:start])
		flush()

		span := rest[start : start+relEnd+len(closing)]
		rest = rest[start+relEnd+len(closing):]

		if tu, ok := parseToolBlock(span, name); ok {
			blocks = append(blocks, tu)
		}
	}

	flush()
	return blocks
}

// findOpeningTag returns the byte offset and tool name of the earliest
// occurrence of any known tool opening tag, or (-1, "") if none is present.
func findOpeningTag(s string) (int, ToolName) {
	earliest := -1
	var found ToolName
	for _, name := range ToolNames {
		pos := strings.Index(s, "<"+string(name)+">")
		if pos != -1 && (earliest == -1 || pos < earliest) {
			earliest = pos
			found = name
		}
	}
	return earliest, found
}

// parseToolBlock parses one complete tool span (opening tag through closing
// tag) into a ToolUse block. A span whose leading tag is not a known tool
// yields no block. Parameter bodies are not re-parsed, so a tool tag quoted
// inside a parameter value does not confuse the result.
func parseToolBlock(span string, name ToolName) (ContentBlock, bool) {
	open := "<" + string(name) + ">"
	closing := "</" + string(name) + ">"
	if !strings.HasPrefix(span, open) {
		return ContentBlock{}, false
	}
	end := strings.LastIndex(span, closing)
	if end == -1 {
		return ContentBlock{}, false
	}
	inner := span[len(open):end]

	params := make(map[ParamName]string)
	for _, p := range ParamNames {
		pOpen := "<" + string(p) + ">"
		pClose := "</" + string(p) + ">"
		pStart := strings.Index(inner, pOpen)
		if pStart == -1 {
			continue
		}
		pEnd := strings.Index(inner[pStart:], pClose)
		if pEnd == -1 {
			continue
		}
		value := inner[pStart+len(pOpen) : pStart+pEnd]
		params[p] = strings.TrimSpace(value)
	}

	return ToolUseBlock(name, params), true
}

// extractThinking post-processes a flushed text span. Every paired
// <thinking>...</thinking> region becomes its own thinking block, emitted
// ahead of the leftover narration; the non-thinking fragments are
// concatenated in place and trimmed as a whole. Unpaired thinking tags are
// left in the text untouched. Whitespace-only spans produce no blocks.
func extractThinking(s string) []ContentBlock {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var thinking []ContentBlock
	var leftover strings.Builder

	rest := s
	for {
		open := strings.Index(rest, thinkingOpen)
		if open == -1 {
			break
		}
		rel := strings.Index(rest[open:], thinkingClose)
		if rel == -1 {
			break
		}
		body := rest[open+len(thinkingOpen) : open+rel]
		if strings.TrimSpace(body) != "" {
			thinking = append(thinking, ThinkingBlock(strings.TrimSpace(body)))
		}
		leftover.WriteString(rest[:open])
		rest = rest[open+rel+len(thinkingClose):]
	}
	leftover.WriteString(rest)

	blocks := thinking
	if remaining := strings.TrimSpace(leftover.String()); remaining != "" {
		blocks = append(blocks, TextBlock(remaining))
	}
	return blocks
}

package llmclient

import "strings"

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPart is one part of a message. Only text parts travel through the
// core today; the struct leaves room for richer kinds without changing the
// persisted shape.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// Message is the fundamental unit of the API conversation history.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// UserMessage creates a user message from content parts.
func UserMessage(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Content: parts}
}

// AssistantMessage creates an assistant message holding plain text.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// TextContent returns the concatenated text of all parts.
func (m Message) TextContent() string {
	var b strings.Builder
	for i, part := range m.Content {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// Usage holds token accounting for one completion.
type Usage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
}

// Total returns the sum of all token counters.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CacheWriteTokens + u.CacheReadTokens
}

// Response is a completed model response.
type Response struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

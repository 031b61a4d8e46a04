package llmclient

import "context"

// Client is the interface the task loop depends on. Implementations own all
// transport and authentication concerns; the loop only sees text and usage.
type Client interface {
	// CreateMessage requests one completion for the given system prompt and
	// ordered message history.
	CreateMessage(ctx context.Context, systemPrompt string, messages []Message) (*Response, error)

	// Model returns catalog information for the configured model.
	Model() ModelInfo
}

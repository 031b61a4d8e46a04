package llmclient

import (
	"context"
	"strings"

	"github.com/teilomillet/gollm"
)

// GollmClient implements Client on top of a gollm.LLM instance. gollm's
// prompt model is single-shot, so the conversation history is folded into one
// prompt with role prefixes; the system prompt rides along with ephemeral
// caching where the provider supports it.
type GollmClient struct {
	llm   gollm.LLM
	model ModelInfo
}

// NewGollmClient builds a client for the given provider and model. An empty
// apiKey leaves key discovery to gollm's environment lookup.
func NewGollmClient(provider, modelID, apiKey string) (*GollmClient, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(modelID),
		gollm.SetMaxRetries(0), // the loop owns retry policy
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ClientError{Message: "failed to initialize model backend", Cause: err}
	}

	info, _ := GetModelInfo(modelID)
	return &GollmClient{llm: llm, model: info}, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM instance; used by tests
// and hosts that configure gollm themselves.
func NewGollmClientFromLLM(llm gollm.LLM, modelID string) *GollmClient {
	info, _ := GetModelInfo(modelID)
	return &GollmClient{llm: llm, model: info}
}

// Model returns catalog information for the configured model.
func (c *GollmClient) Model() ModelInfo { return c.model }

// CreateMessage requests one completion.
func (c *GollmClient) CreateMessage(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	prompt := c.buildPrompt(systemPrompt, messages)

	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, c.translateError(err)
	}

	return &Response{
		Text: text,
		// gollm does not expose provider usage; estimate at roughly four
		// characters per token so truncation decisions stay in the right
		// order of magnitude.
		Usage: Usage{
			InputTokens:  estimateTokens(systemPrompt) + estimateMessagesTokens(messages),
			OutputTokens: estimateTokens(text),
		},
	}, nil
}

func (c *GollmClient) buildPrompt(systemPrompt string, messages []Message) *gollm.Prompt {
	var parts []string
	for _, msg := range messages {
		text := msg.TextContent()
		if text == "" {
			continue
		}
		if msg.Role == RoleAssistant {
			parts = append(parts, "[Assistant]: "+text)
		} else {
			parts = append(parts, text)
		}
	}
	promptText := strings.Join(parts, "\n")

	var opts []gollm.PromptOption
	if systemPrompt != "" {
		opts = append(opts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if c.model.MaxOutputTokens > 0 {
		opts = append(opts, gollm.WithMaxLength(c.model.MaxOutputTokens))
	}
	return gollm.NewPrompt(promptText, opts...)
}

func (c *GollmClient) translateError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		return ErrorFromStatusCode(429, msg, c.model.Provider)
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return ErrorFromStatusCode(413, msg, c.model.Provider)
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key"):
		return ErrorFromStatusCode(401, msg, c.model.Provider)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return &RequestTimeoutError{ClientError: ClientError{Message: msg, Cause: err}}
	case strings.Contains(lower, "connection") || strings.Contains(lower, "network"):
		return &NetworkError{ClientError: ClientError{Message: msg, Cause: err}}
	default:
		return ErrorFromStatusCode(500, msg, c.model.Provider)
	}
}

func estimateTokens(s string) int {
	return len(s) / 4
}

func estimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m.TextContent())
	}
	return total
}

// Package llmclient provides the model client used by the task loop.
//
// The loop treats a completion as an opaque single request/response:
// CreateMessage takes a system prompt plus the ordered conversation history
// and returns the full response text with token usage. The concrete client
// wraps gollm so any provider gollm speaks (anthropic, openai, deepseek, ...)
// works unchanged. Errors carry a retryable classification that the loop's
// retry policy keys off.
package llmclient

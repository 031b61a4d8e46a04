package llmclient

import (
	"context"
	"time"
)

// DefaultRetryBackoff is the fixed delay before the single automatic retry.
const DefaultRetryBackoff = 2 * time.Second

// CreateMessageWithRetry calls CreateMessage and, if the failure class is
// retryable, retries exactly once after the fixed backoff. Anything beyond
// that single retry is the caller's decision (the loop escalates to the
// operator).
func CreateMessageWithRetry(ctx context.Context, client Client, backoff time.Duration, systemPrompt string, messages []Message) (*Response, error) {
	resp, err := client.CreateMessage(ctx, systemPrompt, messages)
	if err == nil {
		return resp, nil
	}
	if !IsRetryable(err) {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(backoff):
	}

	return client.CreateMessage(ctx, systemPrompt, messages)
}

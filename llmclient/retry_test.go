package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	responses []func() (*Response, error)
	calls     int
	model     ModelInfo
}

func (c *scriptedClient) CreateMessage(_ context.Context, _ string, _ []Message) (*Response, error) {
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return c.responses[idx]()
}

func (c *scriptedClient) Model() ModelInfo { return c.model }

func ok(text string) func() (*Response, error) {
	return func() (*Response, error) { return &Response{Text: text}, nil }
}

func fail(err error) func() (*Response, error) {
	return func() (*Response, error) { return nil, err }
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	c := &scriptedClient{responses: []func() (*Response, error){ok("hi")}}
	resp, err := CreateMessageWithRetry(context.Background(), c, time.Millisecond, "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
}

func TestRetryOnceOnRetryableError(t *testing.T) {
	serverErr := ErrorFromStatusCode(503, "overloaded", "anthropic")
	c := &scriptedClient{responses: []func() (*Response, error){fail(serverErr), ok("recovered")}}
	resp, err := CreateMessageWithRetry(context.Background(), c, time.Millisecond, "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, 2, c.calls)
}

func TestNoRetryOnNonRetryableError(t *testing.T) {
	authErr := ErrorFromStatusCode(401, "bad key", "anthropic")
	c := &scriptedClient{responses: []func() (*Response, error){fail(authErr), ok("never")}}
	_, err := CreateMessageWithRetry(context.Background(), c, time.Millisecond, "sys", nil)
	require.Error(t, err)
	assert.Equal(t, 1, c.calls)
}

func TestRetryGivesUpAfterSecondFailure(t *testing.T) {
	serverErr := ErrorFromStatusCode(500, "still down", "openai")
	c := &scriptedClient{responses: []func() (*Response, error){fail(serverErr), fail(serverErr)}}
	_, err := CreateMessageWithRetry(context.Background(), c, time.Millisecond, "sys", nil)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	serverErr := ErrorFromStatusCode(503, "overloaded", "anthropic")
	c := &scriptedClient{responses: []func() (*Response, error){fail(serverErr), ok("never")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CreateMessageWithRetry(ctx, c, time.Hour, "sys", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

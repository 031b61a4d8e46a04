package llmclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{408, true},
		{413, false},
		{422, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{599, true}, // unknown defaults to retryable
	}
	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "boom", "anthropic")
		assert.Equal(t, tt.retryable, IsRetryable(err), "status %d", tt.status)
	}
}

func TestErrorTypes(t *testing.T) {
	err := ErrorFromStatusCode(429, "slow down", "openai")
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 429, rl.StatusCode)
	assert.Contains(t, err.Error(), "openai")

	err = ErrorFromStatusCode(401, "bad key", "anthropic")
	var auth *AuthenticationError
	require.ErrorAs(t, err, &auth)
	assert.False(t, IsRetryable(err))
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &ClientError{Message: "wrapper", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "wrapper")
	assert.Contains(t, err.Error(), "underlying")
}

func TestNetworkErrorRetryable(t *testing.T) {
	err := &NetworkError{ClientError: ClientError{Message: "connection reset"}}
	assert.True(t, IsRetryable(err))
}

package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewCompleter_UnknownType(t *testing.T) {
	_, err := NewCompleter(ProviderConfig{Type: "claude", APIKey: "k"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewCompleter_MissingKey(t *testing.T) {
	_, err := NewCompleter(ProviderConfig{Type: ProviderGroq}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewCompleter_GroqDefaultsBaseURL(t *testing.T) {
	c, err := NewCompleter(ProviderConfig{Type: ProviderGroq, APIKey: "k", ModelName: "llama"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	info := c.GetModelInfo()
	assert.Equal(t, "groq", info["provider"])
	assert.Equal(t, "https://api.groq.com/openai/v1", info["base_url"])
}

func TestNewCompleter_WrapsRateLimit(t *testing.T) {
	c, err := NewCompleter(ProviderConfig{Type: ProviderOpenRouter, APIKey: "k", RequestsPerMinute: 30}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*RateLimitedCompleter)
	assert.True(t, ok)
	assert.InDelta(t, 30.0, c.GetModelInfo()["requests_per_minute"], 0.001)
}

func TestRateLimitedCompleter_HonoursContext(t *testing.T) {
	fc := &fakeCompleter{reply: constReply("{}")}
	rl := NewRateLimitedCompleter(fc, 1)

	_, err := rl.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = rl.Complete(ctx, "second")
	assert.Error(t, err)
	assert.Len(t, fc.prompts, 1)
}

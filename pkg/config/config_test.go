package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.True(t, cfg.VerifySignature)
	assert.Equal(t, "commands,chat:write,channels:read", cfg.SlackOAuthScopes)
	assert.InDelta(t, 0.45, cfg.QueryWeightRole, 1e-9)
	assert.InDelta(t, 0.35, cfg.QueryWeightUser, 1e-9)
	assert.InDelta(t, 0.20, cfg.QueryWeightPhase, 1e-9)
	assert.InDelta(t, 0.90, cfg.UserEmbedAlpha, 1e-9)
	assert.InDelta(t, 14, cfg.UserDecayDays, 1e-9)
	assert.InDelta(t, 0.05, cfg.UserDecayBlend, 1e-9)
	assert.InDelta(t, 24, cfg.RetrievalWindowHours, 1e-9)
	assert.Equal(t, 1024, cfg.Queue.BufferSize)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("QUERY_WEIGHT_ROLE", "0.5")
	t.Setenv("QUERY_WEIGHT_USER", "0.3")
	t.Setenv("QUERY_WEIGHT_PHASE", "0.2")
	t.Setenv("RETRIEVAL_WINDOW_HOURS", "6")
	t.Setenv("QUEUE_BUFFER_SIZE", "16")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.HTTPPort)
	assert.InDelta(t, 0.5, cfg.QueryWeightRole, 1e-9)
	assert.InDelta(t, 0.3, cfg.QueryWeightUser, 1e-9)
	assert.InDelta(t, 0.2, cfg.QueryWeightPhase, 1e-9)
	assert.InDelta(t, 6, cfg.RetrievalWindowHours, 1e-9)
	assert.Equal(t, 16, cfg.Queue.BufferSize)
}

func TestLoadFromEnv_InvalidFloat(t *testing.T) {
	t.Setenv("USER_EMBED_ALPHA", "not-a-number")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USER_EMBED_ALPHA")
}

func TestSignatureVerificationToggle(t *testing.T) {
	for _, value := range []string{"0", "false", "no", "FALSE", "No"} {
		t.Setenv("SLACK_VERIFY_SIGNATURE", value)
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.False(t, cfg.VerifySignature, "value %q should disable verification", value)
	}

	for _, value := range []string{"1", "true", "yes", "anything"} {
		t.Setenv("SLACK_VERIFY_SIGNATURE", value)
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.VerifySignature, "value %q should keep verification on", value)
	}
}

func TestRetrievalWindowSeconds(t *testing.T) {
	t.Setenv("RETRIEVAL_WINDOW_HOURS", "2")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 7200, cfg.RetrievalWindowSeconds(), 1e-9)
}

func TestDefaultQueueConfig(t *testing.T) {
	qc := DefaultQueueConfig()
	assert.Equal(t, 1024, qc.BufferSize)
	assert.Equal(t, 1, qc.WorkersPerLane)
	assert.NotZero(t, qc.ShutdownTimeout)
}

// Package config loads digestd configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the service.
type Config struct {
	// HTTPPort is the port the API server listens on.
	HTTPPort string

	// Slack intake and OAuth settings.
	SlackSigningSecret string
	VerifySignature    bool
	SlackClientID      string
	SlackClientSecret  string
	SlackRedirectURI   string
	SlackOAuthScopes   string

	// Query vector composition weights.
	QueryWeightRole  float64
	QueryWeightUser  float64
	QueryWeightPhase float64

	// Feedback loop parameters.
	UserEmbedAlpha float64
	UserDecayDays  float64
	UserDecayBlend float64

	// RetrievalWindowHours bounds candidate selection and the recency
	// denominator.
	RetrievalWindowHours float64

	// Queue holds worker/queue tuning.
	Queue *QueueConfig
}

// LoadFromEnv builds a Config from environment variables, applying defaults
// for everything optional.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnvOrDefault("HTTP_PORT", "8080"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		VerifySignature:    signatureVerificationEnabled(),
		SlackClientID:      os.Getenv("SLACK_CLIENT_ID"),
		SlackClientSecret:  os.Getenv("SLACK_CLIENT_SECRET"),
		SlackRedirectURI:   os.Getenv("SLACK_REDIRECT_URI"),
		SlackOAuthScopes:   getEnvOrDefault("SLACK_OAUTH_SCOPES", "commands,chat:write,channels:read"),
		Queue:              DefaultQueueConfig(),
	}

	var err error
	if cfg.QueryWeightRole, err = getEnvFloat("QUERY_WEIGHT_ROLE", 0.45); err != nil {
		return nil, err
	}
	if cfg.QueryWeightUser, err = getEnvFloat("QUERY_WEIGHT_USER", 0.35); err != nil {
		return nil, err
	}
	if cfg.QueryWeightPhase, err = getEnvFloat("QUERY_WEIGHT_PHASE", 0.20); err != nil {
		return nil, err
	}
	if cfg.UserEmbedAlpha, err = getEnvFloat("USER_EMBED_ALPHA", 0.90); err != nil {
		return nil, err
	}
	if cfg.UserDecayDays, err = getEnvFloat("USER_DECAY_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.UserDecayBlend, err = getEnvFloat("USER_DECAY_BLEND", 0.05); err != nil {
		return nil, err
	}
	if cfg.RetrievalWindowHours, err = getEnvFloat("RETRIEVAL_WINDOW_HOURS", 24); err != nil {
		return nil, err
	}
	if bufSize, err := getEnvInt("QUEUE_BUFFER_SIZE", cfg.Queue.BufferSize); err != nil {
		return nil, err
	} else {
		cfg.Queue.BufferSize = bufSize
	}

	return cfg, nil
}

// RetrievalWindowSeconds returns the candidate window in seconds.
func (c *Config) RetrievalWindowSeconds() float64 {
	return c.RetrievalWindowHours * 3600
}

// signatureVerificationEnabled reports whether intake requests must carry a
// valid Slack signature. Disabled only by an explicit 0/false/no.
func signatureVerificationEnabled() bool {
	value := strings.ToLower(getEnvOrDefault("SLACK_VERIFY_SIGNATURE", "true"))
	switch value {
	case "0", "false", "no":
		return false
	}
	return true
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

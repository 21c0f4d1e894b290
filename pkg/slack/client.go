// Package slack wraps the pieces of the Slack platform digestd touches:
// request signature verification, the OAuth v2 install flow, and digest
// delivery into direct-message channels.
package slack

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/digestkit/digestd/pkg/models"
)

// apiTimeout bounds every outbound Web API call.
const apiTimeout = 10 * time.Second

// Client is a thin wrapper over the slack-go SDK, bound to one workspace
// access token.
type Client struct {
	api *goslack.Client
}

// NewClient creates a client for a workspace token.
func NewClient(token string) *Client {
	return &Client{api: goslack.New(token)}
}

// NewClientWithAPIURL creates a client pointed at a custom API base URL.
// Used by tests to target a mock Slack server.
func NewClientWithAPIURL(token, apiURL string) *Client {
	return &Client{api: goslack.New(token, goslack.OptionAPIURL(apiURL))}
}

// OpenDM opens (or resolves) the direct-message conversation with a user
// and returns its channel id.
func (c *Client) OpenDM(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	channel, _, _, err := c.api.OpenConversationContext(ctx, &goslack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", fmt.Errorf("conversations.open failed: %w", err)
	}
	return channel.ID, nil
}

// PostDigest posts the rendered digest into a channel and returns the
// message timestamp.
func (c *Client) PostDigest(ctx context.Context, channelID string, items []models.DigestEntry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		goslack.MsgOptionText(BuildDigestText(items), false),
		goslack.MsgOptionBlocks(BuildDigestBlocks(items)...),
	)
	if err != nil {
		return "", fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return ts, nil
}

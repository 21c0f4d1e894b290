package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	goslack "github.com/slack-go/slack"
)

// authorizeURL is the Slack OAuth v2 consent page.
const authorizeURL = "https://slack.com/oauth/v2/authorize"

// BuildInstallURL returns the OAuth v2 authorize URL that starts the app
// install flow.
func BuildInstallURL(clientID, scopes, redirectURI string) string {
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("scope", scopes)
	query.Set("redirect_uri", redirectURI)
	return authorizeURL + "?" + query.Encode()
}

// ExchangeCode trades an OAuth v2 authorization code for a workspace access
// token via oauth.v2.access.
func ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*goslack.OAuthV2Response, error) {
	httpClient := &http.Client{Timeout: apiTimeout}
	resp, err := goslack.GetOAuthV2ResponseContext(ctx, httpClient, clientID, clientSecret, code, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("oauth.v2.access failed: %w", err)
	}
	return resp, nil
}

package slack

import (
	"fmt"
	"net/http"

	goslack "github.com/slack-go/slack"
)

// VerifyRequest checks the Slack signature headers against the raw request
// body: HMAC-SHA256 over "v0:<timestamp>:<body>" with the signing secret,
// compared in constant time. Requests with a timestamp older than five
// minutes are rejected.
func VerifyRequest(signingSecret string, header http.Header, body []byte) error {
	verifier, err := goslack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("reading signature headers: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return fmt.Errorf("hashing request body: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}

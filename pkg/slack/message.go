package slack

import (
	"fmt"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/digestkit/digestd/pkg/models"
)

// BuildDigestText renders the plain-text fallback for a digest message.
func BuildDigestText(items []models.DigestEntry) string {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "Daily Digest")
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("• %s — %s", titleOrFallback(item), item.WhyShown))
	}
	return strings.Join(lines, "\n")
}

// BuildDigestBlocks renders the Block Kit body: a header section followed
// by one section per item.
func BuildDigestBlocks(items []models.DigestEntry) []goslack.Block {
	blocks := make([]goslack.Block, 0, len(items)+1)
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, "*Daily Digest*", false, false), nil, nil))
	for _, item := range items {
		text := fmt.Sprintf("• *%s*\n_%s_", titleOrFallback(item), item.WhyShown)
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil))
	}
	return blocks
}

func titleOrFallback(item models.DigestEntry) string {
	if item.Title == "" {
		return "Untitled"
	}
	return item.Title
}

// Package enrich derives labels, entities, urgency, title, and summary for
// a thread from its message set. All vocabularies are closed; no model
// calls are involved.
package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/digestkit/digestd/pkg/models"
)

var labelKeywords = []struct {
	label    string
	keywords []string
}{
	{"DECISION", []string{"decision", "approve", "vote", "choose"}},
	{"RISK", []string{"risk", "concern", "issue", "safer"}},
	{"BLOCKER", []string{"blocker", "blocked", "cannot proceed"}},
	{"ACTION", []string{"action", "todo", "follow up", "need to"}},
	{"FYI", []string{"fyi", "for your info", "heads up"}},
}

var (
	materials = []string{"carbon fiber", "aluminum", "aluminium"}
	phaseHints = []string{"evt", "dvt", "pvt"}
	vendors    = []string{"vendor a", "vendor b"}
	deadlines  = []string{"by friday", "by eod", "by end of day", "by monday", "by tuesday"}

	leadTimePattern = regexp.MustCompile(`(?i)\b(\d+)\s+weeks\b`)
	phasePatterns   = compilePhasePatterns()
)

func compilePhasePatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(phaseHints))
	for _, phase := range phaseHints {
		patterns[phase] = regexp.MustCompile(fmt.Sprintf(`\b%s\b`, phase))
	}
	return patterns
}

// Result is the full enrichment output for one thread.
type Result struct {
	Title    string
	Labels   []string
	Entities models.EntitySet
	Urgency  float64
	Summary  string
}

// Enrich computes the enrichment result from the thread's messages in ts
// order.
func Enrich(messages []models.Message) Result {
	text := ThreadText(messages)
	entities := Entities(text)
	return Result{
		Title:    Title(entities),
		Labels:   Labels(text),
		Entities: entities,
		Urgency:  Urgency(text, messages),
		Summary:  Summary(messages),
	}
}

// ThreadText joins the text of non-deleted messages, newline-separated.
func ThreadText(messages []models.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.IsDeleted || msg.Text == "" {
			continue
		}
		parts = append(parts, msg.Text)
	}
	return strings.Join(parts, "\n")
}

// Labels returns the sorted set of labels whose keyword lists match the
// case-folded text.
func Labels(text string) []string {
	lowered := strings.ToLower(text)
	labels := make([]string, 0, len(labelKeywords))
	for _, def := range labelKeywords {
		for _, keyword := range def.keywords {
			if strings.Contains(lowered, keyword) {
				labels = append(labels, def.label)
				break
			}
		}
	}
	sort.Strings(labels)
	return labels
}

// Entities extracts the five closed-vocabulary entity lists. Lead times are
// matched against the original text so the raw casing survives.
func Entities(text string) models.EntitySet {
	lowered := strings.ToLower(text)
	set := models.EntitySet{
		Materials: []string{},
		Phases:    []string{},
		Deadlines: []string{},
		Vendors:   []string{},
		LeadTimes: []string{},
	}
	for _, material := range materials {
		if strings.Contains(lowered, material) {
			set.Materials = append(set.Materials, material)
		}
	}
	for _, phase := range phaseHints {
		if phasePatterns[phase].MatchString(lowered) {
			set.Phases = append(set.Phases, strings.ToUpper(phase))
		}
	}
	for _, deadline := range deadlines {
		if strings.Contains(lowered, deadline) {
			set.Deadlines = append(set.Deadlines, deadline)
		}
	}
	for _, vendor := range vendors {
		if strings.Contains(lowered, vendor) {
			set.Vendors = append(set.Vendors, titleCase(vendor))
		}
	}
	set.LeadTimes = append(set.LeadTimes, leadTimePattern.FindAllString(text, -1)...)
	return set
}

// Urgency scores the thread in [0, 1]: deadlines 0.35, urgent/blocker terms
// 0.25, decision terms 0.10, phase hints 0.15, and a rotating_light reaction
// on any message 0.20.
func Urgency(text string, messages []models.Message) float64 {
	lowered := strings.ToLower(text)
	score := 0.0
	for _, deadline := range deadlines {
		if strings.Contains(lowered, deadline) {
			score += 0.35
			break
		}
	}
	if strings.Contains(lowered, "urgent") || strings.Contains(lowered, "blocker") || strings.Contains(lowered, "blocked") {
		score += 0.25
	}
	if strings.Contains(lowered, "decision") {
		score += 0.10
	}
	for _, phase := range phaseHints {
		if strings.Contains(lowered, phase) {
			score += 0.15
			break
		}
	}
	if hasRotatingLight(messages) {
		score += 0.20
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hasRotatingLight(messages []models.Message) bool {
	for _, msg := range messages {
		for _, r := range msg.Reactions {
			if strings.Contains(r.Name, "rotating_light") {
				return true
			}
		}
	}
	return false
}

// Title derives the item title from the extracted materials.
func Title(entities models.EntitySet) string {
	seen := make(map[string]bool, len(entities.Materials))
	lower := make([]string, 0, len(entities.Materials))
	for _, material := range entities.Materials {
		m := strings.ToLower(material)
		if !seen[m] {
			seen[m] = true
			lower = append(lower, m)
		}
	}
	if contains(lower, "carbon fiber") && (contains(lower, "aluminum") || contains(lower, "aluminium")) {
		return "Material change proposal: aluminum -> carbon fiber"
	}
	if len(lower) > 0 {
		sort.Strings(lower)
		return "Material discussion: " + strings.Join(lower, ", ")
	}
	return "Thread update"
}

// Summary lists the root message and up to five replies as bullet lines.
// The reply window is cut before filtering, so a deleted or empty reply
// consumes one of the five slots.
func Summary(messages []models.Message) string {
	if len(messages) == 0 {
		return ""
	}
	root := messages[0]
	end := len(messages)
	if end > 6 {
		end = 6
	}
	replies := messages[1:end]

	lines := make([]string, 0, 6)
	if !root.IsDeleted && root.Text != "" {
		lines = append(lines, "- "+root.Text)
	}
	for _, reply := range replies {
		if reply.IsDeleted || reply.Text == "" {
			continue
		}
		lines = append(lines, "- "+reply.Text)
	}
	return strings.Join(lines, "\n")
}

func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

package services

import (
	"sort"
	"strings"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/vector"
)

// diversityLambda weights the MMR penalty against the base score.
const diversityLambda = 0.2

// Base score weights.
const (
	weightSim       = 0.55
	weightUrgency   = 0.20
	weightOwnership = 0.15
	weightRecency   = 0.10
)

// Candidate is one retrieval unit: an enriched item joined with its
// embedding and the scores accumulated through the ranking stages.
type Candidate struct {
	Item             models.DigestItem
	Vector           []float64
	Sim              float64
	Recency          float64
	Ownership        float64
	Base             float64
	DiversityPenalty float64
	Final            float64
	ForceIncluded    bool
}

// View renders the candidate for the debug endpoints.
func (c Candidate) View() models.CandidateView {
	return models.CandidateView{
		ThreadTS:         c.Item.ThreadTS,
		Title:            c.Item.Title,
		Labels:           c.Item.Labels,
		Urgency:          c.Item.Urgency,
		UpdatedAt:        c.Item.UpdatedAt,
		Sim:              c.Sim,
		Recency:          c.Recency,
		Ownership:        c.Ownership,
		Base:             c.Base,
		DiversityPenalty: c.DiversityPenalty,
		Final:            c.Final,
		ForceIncluded:    c.ForceIncluded,
	}
}

// Breakdown renders the candidate's score components.
func (c Candidate) Breakdown() models.ScoreBreakdown {
	return models.ScoreBreakdown{
		FinalScore:       c.Final,
		Sim:              c.Sim,
		Urgency:          c.Item.Urgency,
		Ownership:        c.Ownership,
		Recency:          c.Recency,
		DiversityPenalty: c.DiversityPenalty,
	}
}

func (c Candidate) hasLabel(label string) bool {
	for _, l := range c.Item.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// sortTopK orders candidates by similarity, urgency, then update recency,
// with thread_ts as the deterministic final tie-break.
func sortTopK(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Sim != b.Sim {
			return a.Sim > b.Sim
		}
		if a.Item.Urgency != b.Item.Urgency {
			return a.Item.Urgency > b.Item.Urgency
		}
		if a.Item.UpdatedAt != b.Item.UpdatedAt {
			return a.Item.UpdatedAt > b.Item.UpdatedAt
		}
		return a.Item.ThreadTS < b.Item.ThreadTS
	})
}

// topK returns the k best candidates by the retrieval ordering.
func topK(cands []Candidate, k int) []Candidate {
	sortTopK(cands)
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// computeBase fills the weighted base score from the per-signal fields.
func (c *Candidate) computeBase() {
	c.Base = weightSim*c.Sim +
		weightUrgency*c.Item.Urgency +
		weightOwnership*c.Ownership +
		weightRecency*c.Recency
	c.Final = c.Base
}

// recencyScore maps an item age onto [0, 1]: 1 for fresh, linearly down to
// 0 at the window edge.
func recencyScore(updatedAt, now, windowSeconds float64) float64 {
	age := now - updatedAt
	if age <= 0 {
		return 1.0
	}
	if age >= windowSeconds {
		return 0.0
	}
	return 1.0 - age/windowSeconds
}

// mentionsUser reports whether the user authored or is @-mentioned in any
// of the thread's messages.
func mentionsUser(messages []models.Message, userID string) bool {
	mention := "<@" + userID + ">"
	for _, msg := range messages {
		if msg.User == userID || strings.Contains(msg.Text, mention) {
			return true
		}
	}
	return false
}

// rerank applies the must-include rule and MMR diversity selection,
// returning up to n candidates in final order. Candidates must already
// carry their base scores.
func rerank(cands []Candidate, n int) []Candidate {
	remaining := append([]Candidate(nil), cands...)
	selected := make([]Candidate, 0, n)

	// An urgent BLOCKER or DECISION bypasses diversity and leads the digest.
	best := -1
	for i := range remaining {
		c := remaining[i]
		if c.Item.Urgency < 0.8 || !(c.hasLabel("BLOCKER") || c.hasLabel("DECISION")) {
			continue
		}
		if best == -1 || mustIncludeLess(c, remaining[best]) {
			best = i
		}
	}
	// The forced pick is appended even when it exceeds the size budget.
	if best >= 0 {
		forced := remaining[best]
		forced.ForceIncluded = true
		selected = append(selected, forced)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	for len(remaining) > 0 && len(selected) < n {
		// The penalty is recomputed each round against everything picked so
		// far, so near-duplicates of a selected thread sink together.
		for i := range remaining {
			var maxSim float64
			if len(selected) > 0 {
				maxSim = vector.Dot(remaining[i].Vector, selected[0].Vector)
				for _, sel := range selected[1:] {
					if sim := vector.Dot(remaining[i].Vector, sel.Vector); sim > maxSim {
						maxSim = sim
					}
				}
			}
			remaining[i].DiversityPenalty = diversityLambda * maxSim
			remaining[i].Final = remaining[i].Base - remaining[i].DiversityPenalty
		}
		sort.SliceStable(remaining, func(i, j int) bool {
			return finalLess(remaining[i], remaining[j])
		})
		selected = append(selected, remaining[0])
		remaining = remaining[1:]
	}
	return selected
}

// mustIncludeLess is the ordering for picking the forced candidate:
// base score, urgency, update recency, then thread_ts.
func mustIncludeLess(a, b Candidate) bool {
	if a.Base != b.Base {
		return a.Base > b.Base
	}
	if a.Item.Urgency != b.Item.Urgency {
		return a.Item.Urgency > b.Item.Urgency
	}
	if a.Item.UpdatedAt != b.Item.UpdatedAt {
		return a.Item.UpdatedAt > b.Item.UpdatedAt
	}
	return a.Item.ThreadTS < b.Item.ThreadTS
}

// finalLess is the MMR selection ordering: penalized score first, then the
// must-include key.
func finalLess(a, b Candidate) bool {
	if a.Final != b.Final {
		return a.Final > b.Final
	}
	return mustIncludeLess(a, b)
}

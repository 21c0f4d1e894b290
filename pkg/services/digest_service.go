package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/pkg/vector"
)

// Retrieval and digest sizing defaults.
const (
	DefaultTopK       = 50
	DefaultDigestSize = 10
)

// roleSignalKeywords mark supply-chain roles for the why-shown reasons.
var roleSignalKeywords = []string{"supply", "procure", "vendor", "lead time"}

// DigestService builds personalized digests: query composition, candidate
// retrieval inside the window, multi-factor scoring, and MMR rerank.
type DigestService struct {
	store    *store.Store
	profiles *ProfileService
	cfg      *config.Config
	now      func() float64
}

// NewDigestService creates the digest service.
func NewDigestService(st *store.Store, profiles *ProfileService, cfg *config.Config) *DigestService {
	return &DigestService{store: st, profiles: profiles, cfg: cfg, now: epochNow}
}

// CheckAccess enforces digest scoping: the user must be a member of every
// channel the project covers, and the project must cover at least one.
func (s *DigestService) CheckAccess(ctx context.Context, userID, projectID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrProjectNotFound
	}

	projectChannels, err := s.store.ListProjectChannels(ctx, projectID)
	if err != nil {
		return err
	}
	if len(projectChannels) == 0 {
		return ErrAccessDenied
	}
	userChannels, err := s.store.ListUserChannels(ctx, userID)
	if err != nil {
		return err
	}
	member := make(map[string]bool, len(userChannels))
	for _, ch := range userChannels {
		member[ch] = true
	}
	for _, ch := range projectChannels {
		if !member[ch] {
			return ErrAccessDenied
		}
	}
	return nil
}

// Retrieve composes the query vector and returns the top-k candidates with
// their similarity scores. A project whose channel set is empty yields no
// candidates.
func (s *DigestService) Retrieve(ctx context.Context, userID, projectID string, labelFilter []string, k int) ([]Candidate, *models.QueryVector, error) {
	queryVec, err := s.profiles.ComposeQueryVector(ctx, userID, projectID)
	if err != nil {
		return nil, nil, err
	}
	cands, err := s.loadCandidates(ctx, queryVec.Vector, projectID, labelFilter)
	if err != nil {
		return nil, nil, err
	}
	return topK(cands, k), queryVec, nil
}

// loadCandidates pulls items inside the retrieval window (channel-scoped
// when a project is given), drops those without an embedding, applies the
// optional label filter, and computes similarities.
func (s *DigestService) loadCandidates(ctx context.Context, queryVec []float64, projectID string, labelFilter []string) ([]Candidate, error) {
	since := s.now() - s.cfg.RetrievalWindowSeconds()
	var channels []string
	if projectID != "" {
		var err error
		channels, err = s.store.ListProjectChannels(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if len(channels) == 0 {
			return nil, nil
		}
	}
	items, vectors, err := s.store.ListCandidateItems(ctx, since, channels)
	if err != nil {
		return nil, err
	}

	filter := make([]string, 0, len(labelFilter))
	for _, label := range labelFilter {
		filter = append(filter, strings.ToUpper(label))
	}

	cands := make([]Candidate, 0, len(items))
	for _, item := range items {
		vec, ok := vectors[item.ThreadTS]
		if !ok {
			continue
		}
		if len(filter) > 0 && !hasAnyLabel(item.Labels, filter) {
			continue
		}
		cands = append(cands, Candidate{
			Item:   item,
			Vector: vec,
			Sim:    vector.Dot(queryVec, vec),
		})
	}
	return cands, nil
}

// Score fills recency, ownership, and the weighted base score for each
// candidate.
func (s *DigestService) Score(ctx context.Context, cands []Candidate, userID string) error {
	now := s.now()
	window := s.cfg.RetrievalWindowSeconds()
	for i := range cands {
		cands[i].Recency = recencyScore(cands[i].Item.UpdatedAt, now, window)
		messages, err := s.store.ListThreadMessages(ctx, cands[i].Item.ThreadTS)
		if err != nil {
			return err
		}
		if mentionsUser(messages, userID) {
			cands[i].Ownership = 1.0
		}
		cands[i].computeBase()
	}
	return nil
}

// Rank runs the full pipeline short of persistence: retrieve, score,
// rerank down to n entries.
func (s *DigestService) Rank(ctx context.Context, userID, projectID string, n int) ([]Candidate, *models.QueryVector, error) {
	cands, queryVec, err := s.Retrieve(ctx, userID, projectID, nil, DefaultTopK)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Score(ctx, cands, userID); err != nil {
		return nil, nil, err
	}
	return rerank(cands, n), queryVec, nil
}

// BuildDigest builds and persists a digest under a fresh id.
func (s *DigestService) BuildDigest(ctx context.Context, userID, projectID string, n int) (*models.DigestView, error) {
	return s.BuildDigestWithID(ctx, userID, projectID, n, newID("dig"))
}

// BuildDigestWithID builds a digest snapshot under a caller-chosen id.
// Scheduled runs use a deterministic id so a snapshot is replaced, never
// duplicated.
func (s *DigestService) BuildDigestWithID(ctx context.Context, userID, projectID string, n int, digestID string) (*models.DigestView, error) {
	ranked, queryVec, err := s.Rank(ctx, userID, projectID, n)
	if err != nil {
		return nil, err
	}

	roleDescription := ""
	if queryVec.RoleID != "" {
		role, err := s.store.GetRole(ctx, queryVec.RoleID)
		if err != nil {
			return nil, err
		}
		if role != nil {
			roleDescription = role.Description
		}
	}

	entries := make([]models.DigestEntry, 0, len(ranked))
	for _, cand := range ranked {
		entries = append(entries, models.DigestEntry{
			ThreadTS:       cand.Item.ThreadTS,
			Title:          cand.Item.Title,
			Summary:        cand.Item.Summary,
			Labels:         cand.Item.Labels,
			Entities:       cand.Item.Entities.Data(),
			Urgency:        cand.Item.Urgency,
			WhyShown:       whyShown(cand, roleDescription, queryVec.PhaseKey),
			ScoreBreakdown: cand.Breakdown(),
		})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encoding digest items: %w", err)
	}
	digest := &models.Digest{
		DigestID:  digestID,
		UserID:    userID,
		ProjectID: projectID,
		CreatedAt: s.now(),
		Items:     datatypes.JSON(payload),
	}
	if err := s.store.SaveDigest(ctx, digest); err != nil {
		return nil, err
	}
	return &models.DigestView{DigestID: digestID, Items: entries}, nil
}

// whyShown derives the single strongest reason an entry made the digest.
func whyShown(cand Candidate, roleDescription, phaseKey string) string {
	reasons := make([]string, 0, 3)
	if cand.Item.Urgency >= 0.8 {
		reasons = append(reasons, "High urgency")
	}
	entities := cand.Item.Entities.Data()
	if len(entities.Vendors) > 0 || len(entities.LeadTimes) > 0 {
		loweredRole := strings.ToLower(roleDescription)
		for _, keyword := range roleSignalKeywords {
			if strings.Contains(loweredRole, keyword) {
				reasons = append(reasons, "Role match: vendor/lead time")
				break
			}
		}
	}
	if phaseKey != "" && matchesPhase(cand.Item, phaseKey) {
		reasons = append(reasons, "Phase match: "+strings.ToUpper(phaseKey))
	}
	if len(reasons) == 0 {
		return "Semantic similarity"
	}
	return strings.Join(reasons, "; ")
}

// matchesPhase reports whether the phase key is among the item's extracted
// phase entities. Prose mentions in the title or summary do not count.
func matchesPhase(item models.DigestItem, phaseKey string) bool {
	upper := strings.ToUpper(phaseKey)
	for _, phase := range item.Entities.Data().Phases {
		if phase == upper {
			return true
		}
	}
	return false
}

func hasAnyLabel(labels []string, wanted []string) bool {
	for _, label := range labels {
		upper := strings.ToUpper(label)
		for _, w := range wanted {
			if upper == w {
				return true
			}
		}
	}
	return false
}

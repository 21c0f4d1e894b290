package services

import (
	"context"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/pkg/vector"
)

var (
	positiveActions = map[string]bool{"click": true, "save": true, "thumbs_up": true}
	negativeActions = map[string]bool{"thumbs_down": true, "dismiss": true}
)

// FeedbackService moves user personalization vectors in response to
// explicit feedback on digest items.
type FeedbackService struct {
	store *store.Store
	cfg   *config.Config
	now   func() float64
}

// NewFeedbackService creates the feedback service.
func NewFeedbackService(st *store.Store, cfg *config.Config) *FeedbackService {
	return &FeedbackService{store: st, cfg: cfg, now: epochNow}
}

// Apply records one interaction and nudges the user vector toward (positive
// action) or away from (negative action) the thread's embedding. The
// result is always re-normalized to unit length.
func (s *FeedbackService) Apply(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackResult, error) {
	positive := positiveActions[req.Action]
	if !positive && !negativeActions[req.Action] {
		return nil, ErrInvalidAction
	}

	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	role, err := s.store.GetRole(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	emb, err := s.store.GetEmbedding(ctx, req.ThreadTS)
	if err != nil {
		return nil, err
	}
	if emb == nil {
		return nil, ErrEmbeddingNotFound
	}

	roleVec := []float64(role.Vector)
	userVec := []float64(user.Vector)
	if len(userVec) == 0 {
		userVec = roleVec
	}
	current := vector.Normalize(userVec)

	// A vector idle past the decay threshold first drifts back toward the
	// role baseline, so stale preferences fade.
	now := s.now()
	lastUpdated := user.UpdatedAt
	if lastUpdated == 0 {
		lastUpdated = now
	}
	if now-lastUpdated > s.cfg.UserDecayDays*86400 {
		blend := s.cfg.UserDecayBlend
		mixed := make([]float64, len(current))
		for i := range current {
			r := 0.0
			if i < len(roleVec) {
				r = roleVec[i]
			}
			mixed[i] = (1-blend)*current[i] + blend*r
		}
		current = vector.Normalize(mixed)
	}

	target := vector.Normalize(emb.Vector)
	alpha := s.cfg.UserEmbedAlpha
	sign := 1.0
	direction := "toward"
	if !positive {
		sign = -1.0
		direction = "away"
	}
	moved := make([]float64, len(current))
	for i := range current {
		t := 0.0
		if i < len(target) {
			t = target[i]
		}
		moved[i] = alpha*current[i] + sign*(1-alpha)*t
	}
	moved = vector.Normalize(moved)

	interaction := &models.Interaction{
		InteractionID: newID("int"),
		UserID:        req.UserID,
		ProjectID:     req.ProjectID,
		ThreadTS:      req.ThreadTS,
		Action:        req.Action,
		CreatedAt:     now,
	}
	if err := s.store.InsertInteraction(ctx, interaction); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUserVector(ctx, req.UserID, moved, now); err != nil {
		return nil, err
	}

	return &models.FeedbackResult{
		InteractionID: interaction.InteractionID,
		UserID:        req.UserID,
		ProjectID:     req.ProjectID,
		ThreadTS:      req.ThreadTS,
		Action:        req.Action,
		Direction:     direction,
		NewNorm:       vector.Norm(moved),
	}, nil
}

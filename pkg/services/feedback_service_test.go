package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/pkg/vector"
)

func newFeedbackFixture(t *testing.T) (*FeedbackService, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	cfg := testConfig()
	ctx := context.Background()
	profiles := NewProfileService(st, cfg)
	_, err := profiles.CreateRole(ctx, models.CreateRoleRequest{
		RoleID:      "sourcing",
		Description: "vendor quotes and supply risk",
	})
	require.NoError(t, err)
	_, err = profiles.CreateUser(ctx, models.CreateUserRequest{UserID: "U001", RoleID: "sourcing"})
	require.NoError(t, err)
	require.NoError(t, st.UpsertEmbedding(ctx, "1.000", vector.Embed("carbon fiber tooling lead time"), 1700000000))
	return NewFeedbackService(st, cfg), st
}

func TestFeedback_PositiveMovesToward(t *testing.T) {
	svc, st := newFeedbackFixture(t)
	ctx := context.Background()

	before, err := st.GetUser(ctx, "U001")
	require.NoError(t, err)
	emb, err := st.GetEmbedding(ctx, "1.000")
	require.NoError(t, err)
	simBefore := vector.Dot(before.Vector, emb.Vector)

	result, err := svc.Apply(ctx, models.FeedbackRequest{
		UserID: "U001", ProjectID: "drone", ThreadTS: "1.000", Action: "click",
	})
	require.NoError(t, err)
	assert.Equal(t, "toward", result.Direction)
	assert.Contains(t, result.InteractionID, "int-")
	assert.InDelta(t, 1.0, result.NewNorm, 1e-9)

	after, err := st.GetUser(ctx, "U001")
	require.NoError(t, err)
	assert.Greater(t, vector.Dot(after.Vector, emb.Vector), simBefore)
}

func TestFeedback_NegativeMovesAway(t *testing.T) {
	svc, st := newFeedbackFixture(t)
	ctx := context.Background()

	before, err := st.GetUser(ctx, "U001")
	require.NoError(t, err)
	emb, err := st.GetEmbedding(ctx, "1.000")
	require.NoError(t, err)
	simBefore := vector.Dot(before.Vector, emb.Vector)

	result, err := svc.Apply(ctx, models.FeedbackRequest{
		UserID: "U001", ThreadTS: "1.000", Action: "thumbs_down",
	})
	require.NoError(t, err)
	assert.Equal(t, "away", result.Direction)

	after, err := st.GetUser(ctx, "U001")
	require.NoError(t, err)
	assert.Less(t, vector.Dot(after.Vector, emb.Vector), simBefore)
}

func TestFeedback_RecordsInteraction(t *testing.T) {
	svc, st := newFeedbackFixture(t)
	ctx := context.Background()

	result, err := svc.Apply(ctx, models.FeedbackRequest{
		UserID: "U001", ProjectID: "drone", ThreadTS: "1.000", Action: "save",
	})
	require.NoError(t, err)

	interactions, err := st.ListInteractions(ctx, "U001")
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, result.InteractionID, interactions[0].InteractionID)
	assert.Equal(t, "save", interactions[0].Action)
	assert.Equal(t, "drone", interactions[0].ProjectID)
}

func TestFeedback_InvalidAction(t *testing.T) {
	svc, _ := newFeedbackFixture(t)

	_, err := svc.Apply(context.Background(), models.FeedbackRequest{
		UserID: "U001", ThreadTS: "1.000", Action: "shrug",
	})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestFeedback_UnknownEntities(t *testing.T) {
	svc, _ := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, models.FeedbackRequest{UserID: "missing", ThreadTS: "1.000", Action: "click"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Apply(ctx, models.FeedbackRequest{UserID: "U001", ThreadTS: "9.999", Action: "click"})
	assert.ErrorIs(t, err, ErrEmbeddingNotFound)
}

func TestFeedback_DecayBlendsTowardRole(t *testing.T) {
	svc, st := newFeedbackFixture(t)
	ctx := context.Background()

	// Push the vector away first so it differs from the role baseline, then
	// age it past the decay threshold.
	_, err := svc.Apply(ctx, models.FeedbackRequest{UserID: "U001", ThreadTS: "1.000", Action: "thumbs_down"})
	require.NoError(t, err)
	user, err := st.GetUser(ctx, "U001")
	require.NoError(t, err)
	stale := float64(time.Now().Add(-15*24*time.Hour).UnixNano()) / float64(time.Second)
	require.NoError(t, st.UpdateUserVector(ctx, "U001", user.Vector, stale))

	result, err := svc.Apply(ctx, models.FeedbackRequest{UserID: "U001", ThreadTS: "1.000", Action: "click"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.NewNorm, 1e-9)
}

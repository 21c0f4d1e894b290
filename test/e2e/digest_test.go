package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedWorld registers the sourcing role, EVT phase, drone project on
// channel C001, and user U001 scoped to that channel.
func seedWorld(t *testing.T, app *TestApp) {
	t.Helper()
	app.postJSON(t, "/roles", map[string]any{
		"role_id":     "sourcing",
		"description": "Supply chain, vendor quotes and lead time tracking",
	}, http.StatusOK)
	app.postJSON(t, "/phases", map[string]any{
		"phase_key":   "evt",
		"description": "Engineering validation build",
	}, http.StatusOK)
	app.postJSON(t, "/projects", map[string]any{
		"project_id": "drone", "current_phase": "evt",
	}, http.StatusOK)
	app.postJSON(t, "/projects/drone/channels", map[string]any{"channel_id": "C001"}, http.StatusOK)
	app.postJSON(t, "/users", map[string]any{"user_id": "U001", "role_id": "sourcing"}, http.StatusOK)
	app.postJSON(t, "/users/U001/channels", map[string]any{"channel_id": "C001"}, http.StatusOK)
	app.postJSON(t, "/users/U001/projects/drone", nil, http.StatusOK)
}

func TestE2E_PersonalizedDigest(t *testing.T) {
	app := NewTestApp(t)
	seedWorld(t, app)

	app.postJSON(t, "/seed_mock", nil, http.StatusOK)
	app.waitForItems(t, 1)

	digest := app.getJSON(t, "/digest?user_id=U001&project_id=drone", http.StatusOK)
	assert.Contains(t, digest["digest_id"], "dig-")
	entries := digest["items"].([]any)
	require.Len(t, entries, 1)

	entry := entries[0].(map[string]any)
	assert.Contains(t, entry["why_shown"], "High urgency")
	assert.Contains(t, entry["why_shown"], "Phase match: EVT")
	assert.Equal(t, 1.0, entry["urgency"])

	// The urgent decision thread is force-included even at n=1.
	rerank := app.getJSON(t, "/debug/rerank?user_id=U001&project_id=drone&n=1", http.StatusOK)
	cands := rerank["candidates"].([]any)
	require.Len(t, cands, 1)
	assert.Equal(t, true, cands[0].(map[string]any)["force_included"])
}

func TestE2E_PhaseChangeReshufflesDigest(t *testing.T) {
	app := NewTestApp(t)
	seedWorld(t, app)
	app.postJSON(t, "/phases", map[string]any{
		"phase_key":   "dvt",
		"description": "Design validation build",
	}, http.StatusOK)

	evtThread := "1700000300.000"
	dvtThread := "1700000400.000"
	app.postJSON(t, "/sim/events",
		messageEnvelope("Ev300", "C001", "U002", "evt build fixture readiness check", evtThread, evtThread),
		http.StatusOK)
	app.postJSON(t, "/sim/events",
		messageEnvelope("Ev301", "C001", "U003", "dvt line trial planning", dvtThread, dvtThread),
		http.StatusOK)
	app.waitForItems(t, 2)

	digest := app.getJSON(t, "/digest?user_id=U001&project_id=drone", http.StatusOK)
	assert.Contains(t, digestEntry(t, digest, evtThread)["why_shown"], "Phase match: EVT")
	assert.NotContains(t, digestEntry(t, digest, dvtThread)["why_shown"], "Phase match")

	// Moving the project to DVT flips which thread carries the phase reason.
	updated := app.patchJSON(t, "/projects/drone/phase", map[string]any{"phase_key": "dvt"}, http.StatusOK)
	assert.Equal(t, "dvt", updated["current_phase"])

	digest = app.getJSON(t, "/digest?user_id=U001&project_id=drone", http.StatusOK)
	assert.Contains(t, digestEntry(t, digest, dvtThread)["why_shown"], "Phase match: DVT")
	assert.NotContains(t, digestEntry(t, digest, evtThread)["why_shown"], "Phase match")
}

// digestEntry finds the digest entry for a thread, failing when absent.
func digestEntry(t *testing.T, digest map[string]any, threadTS string) map[string]any {
	t.Helper()
	for _, raw := range digest["items"].([]any) {
		entry := raw.(map[string]any)
		if entry["thread_ts"] == threadTS {
			return entry
		}
	}
	t.Fatalf("no digest entry for thread %s", threadTS)
	return nil
}

func TestE2E_DigestAccessControl(t *testing.T) {
	app := NewTestApp(t)
	seedWorld(t, app)

	// U002 shares the project but covers none of its channels.
	app.postJSON(t, "/users", map[string]any{"user_id": "U002", "role_id": "sourcing"}, http.StatusOK)
	app.postJSON(t, "/users/U002/projects/drone", nil, http.StatusOK)

	body := app.getJSON(t, "/digest?user_id=U002&project_id=drone", http.StatusForbidden)
	assert.Equal(t, "access_denied", body["error"])
}

func TestE2E_FeedbackLoop(t *testing.T) {
	app := NewTestApp(t)
	seedWorld(t, app)

	app.postJSON(t, "/seed_mock", nil, http.StatusOK)
	items := app.waitForItems(t, 1)
	threadTS := items[0].(map[string]any)["thread_ts"].(string)

	result := app.postJSON(t, "/feedback", map[string]any{
		"user_id":    "U001",
		"project_id": "drone",
		"thread_ts":  threadTS,
		"action":     "thumbs_up",
	}, http.StatusOK)
	assert.Equal(t, "toward", result["direction"])
	assert.InDelta(t, 1.0, result["new_norm"].(float64), 1e-9)
	assert.Contains(t, result["interaction_id"], "int-")

	result = app.postJSON(t, "/feedback", map[string]any{
		"user_id":   "U001",
		"thread_ts": threadTS,
		"action":    "dismiss",
	}, http.StatusOK)
	assert.Equal(t, "away", result["direction"])

	// The moved vector still composes into a unit-norm query.
	queryVec := app.getJSON(t, "/debug/query_vector?user_id=U001&project_id=drone", http.StatusOK)
	norms := queryVec["norms"].(map[string]any)
	assert.Greater(t, norms["user"].(float64), 0.0)
}

package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	a := Embed("Carbon fiber decision needed by Friday")
	b := Embed("Carbon fiber decision needed by Friday")
	assert.Equal(t, a, b)
	assert.Len(t, a, Dim)
}

func TestEmbedUnitNorm(t *testing.T) {
	v := Embed("vendor a lead time 8 weeks")
	assert.InDelta(t, 1.0, Norm(v), 1e-6)
}

func TestEmbedEmptyTextIsZero(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		v := Embed(text)
		require.Len(t, v, Dim)
		assert.Zero(t, Norm(v))
	}
}

func TestEmbedCaseFolds(t *testing.T) {
	assert.Equal(t, Embed("URGENT Blocker"), Embed("urgent blocker"))
}

func TestEmbedDistinctTextsDiffer(t *testing.T) {
	a := Embed("aluminum bracket tooling")
	b := Embed("rf test antenna mount")
	assert.NotEqual(t, a, b)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	zero := Normalize([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, zero)
}

func TestNormalizeDoesNotMutate(t *testing.T) {
	v := []float64{3, 4}
	Normalize(v)
	assert.Equal(t, []float64{3, 4}, v)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11, Dot([]float64{1, 2}, []float64{3, 4}), 1e-9)
	assert.InDelta(t, 3, Dot([]float64{1, 2, 5}, []float64{3}), 1e-9, "shorter vector bounds the sum")
}

func TestComposeQueryUnitNorm(t *testing.T) {
	role := Embed("supply chain sourcing vendor lead time")
	user := Embed("procurement quotes")
	phase := Embed("evt build bring-up")

	q := ComposeQuery(role, user, phase, 0.45, 0.35, 0.20)
	assert.InDelta(t, 1.0, Norm(q.Vector), 1e-6)
	assert.InDelta(t, 0.45, q.WeightRole, 1e-9)
	assert.InDelta(t, 0.35, q.WeightUser, 1e-9)
	assert.InDelta(t, 0.20, q.WeightPhase, 1e-9)
	assert.InDelta(t, 0.45, q.NormRole, 1e-6, "unit component scaled by its weight")
	assert.InDelta(t, 0.35, q.NormUser, 1e-6)
	assert.InDelta(t, 0.20, q.NormPhase, 1e-6)
}

func TestComposeQueryMissingPhase(t *testing.T) {
	role := Embed("structural engineer")
	user := Embed("mechanical design")

	q := ComposeQuery(role, user, nil, 0.45, 0.35, 0.20)
	assert.Zero(t, q.WeightPhase)
	assert.Zero(t, q.NormPhase)
	assert.InDelta(t, 0.45, q.WeightRole, 1e-9)
	assert.InDelta(t, 0.35, q.WeightUser, 1e-9)
	assert.InDelta(t, 1.0, Norm(q.Vector), 1e-6)

	// Identical to composing with an explicit zero phase weight.
	same := ComposeQuery(role, user, make([]float64, Dim), 0.45, 0.35, 0)
	assert.InDelta(t, 0, maxAbsDiff(q.Vector, same.Vector), 1e-12)
}

func TestComposeQueryMatchesManualBlend(t *testing.T) {
	role := Embed("role text")
	user := Embed("user text")
	phase := Embed("phase text")

	q := ComposeQuery(role, user, phase, 0.5, 0.3, 0.2)
	manual := make([]float64, Dim)
	for i := range manual {
		manual[i] = 0.5*role[i] + 0.3*user[i] + 0.2*phase[i]
	}
	manual = Normalize(manual)
	assert.InDelta(t, 0, maxAbsDiff(q.Vector, manual), 1e-12)
}

func maxAbsDiff(a, b []float64) float64 {
	diff := 0.0
	for i := range a {
		diff = math.Max(diff, math.Abs(a[i]-b[i]))
	}
	return diff
}

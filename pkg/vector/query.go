package vector

// QueryComposition is a composed query vector plus the weights that were
// applied and the L2 norm each weighted component contributed.
type QueryComposition struct {
	Vector      []float64
	WeightRole  float64
	WeightUser  float64
	WeightPhase float64
	NormRole    float64
	NormUser    float64
	NormPhase   float64
}

// ComposeQuery blends role, user, and phase vectors into a unit-norm query
// vector. A nil or empty phase vector zeroes the phase weight; the role and
// user weights pass through unchanged (final magnitude is handled by the L2
// normalization, not by re-scaling weights to 1).
func ComposeQuery(roleVec, userVec, phaseVec []float64, wRole, wUser, wPhase float64) QueryComposition {
	if len(phaseVec) == 0 {
		wPhase = 0
		phaseVec = make([]float64, Dim)
	}
	combined := make([]float64, Dim)
	for i := range combined {
		combined[i] = wRole*at(roleVec, i) + wUser*at(userVec, i) + wPhase*at(phaseVec, i)
	}
	return QueryComposition{
		Vector:      Normalize(combined),
		WeightRole:  wRole,
		WeightUser:  wUser,
		WeightPhase: wPhase,
		NormRole:    Norm(Scale(roleVec, wRole)),
		NormUser:    Norm(Scale(userVec, wUser)),
		NormPhase:   Norm(Scale(phaseVec, wPhase)),
	}
}

func at(v []float64, i int) float64 {
	if i >= len(v) {
		return 0
	}
	return v[i]
}

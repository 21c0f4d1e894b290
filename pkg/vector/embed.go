package vector

import (
	"crypto/sha256"
	"math/big"
	"strings"
)

// Embed maps text to a unit-norm Dim-dimensional vector. Tokens are the
// whitespace-split pieces of the case-folded text; each token's SHA-256
// digest, read as a big integer modulo Dim, selects a bucket that gains 1.0.
// Empty text yields the zero vector.
func Embed(text string) []float64 {
	v := make([]float64, Dim)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return v
	}
	dim := big.NewInt(Dim)
	for _, token := range tokens {
		digest := sha256.Sum256([]byte(token))
		n := new(big.Int).SetBytes(digest[:])
		idx := n.Mod(n, dim).Int64()
		v[idx] += 1.0
	}
	return Normalize(v)
}

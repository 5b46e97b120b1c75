package scoring

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// VarietyFunc produces the randomVariety signal for a candidate id.
type VarietyFunc func(id string) float64

// HashVariety maps an id uniformly onto [0,1] using FNV-1a.
// The same id always yields the same value, which keeps rankings and
// cached responses reproducible.
func HashVariety(id string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return float64(h.Sum64()) / float64(math.MaxUint64)
}

// RandomVariety ignores the id and draws uniformly from [0,1).
func RandomVariety(string) float64 {
	return rand.Float64()
}

// ParseVariety returns the variety source for a config mode.
// Unknown modes fall back to the deterministic hash source.
func ParseVariety(mode string) VarietyFunc {
	if mode == "random" {
		return RandomVariety
	}
	return HashVariety
}

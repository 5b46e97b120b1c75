package scoring

import (
	"math"
	"sort"
	"sync"

	"github.com/thebtf/inkmatch/pkg/models"
)

// Breakdown explains how a composite score was produced.
type Breakdown struct {
	Signals    models.Signals `json:"signals"`
	Weights    models.Weights `json:"weights"`
	WeightUsed float64        `json:"weight_used"`
}

// Result is a composite score together with its breakdown.
type Result struct {
	Breakdown Breakdown `json:"breakdown"`
	Score     float64   `json:"score"`
}

// Composite combines signals into a single weighted score.
//
//	Score = Σ clamp(signal) × weight / Σ weight
//
// Both sums run only over signals present in signals AND weights, so
// partial weight tables renormalize instead of under-scoring. Negative
// weights are ignored. With no applicable weight the score is 0.
func Composite(signals models.Signals, weights models.Weights) Result {
	normalized := make(models.Signals, len(signals))
	for name, v := range signals {
		normalized[name] = Clamp01(v)
	}

	// Iterate in a fixed order so float summation is reproducible.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum, used float64
	for _, name := range names {
		w := weights[name]
		if w <= 0 {
			continue
		}
		v, ok := normalized[name]
		if !ok {
			continue
		}
		sum += v * w
		used += w
	}

	score := 0.0
	if used > 0 {
		score = Clamp01(sum / used)
	}

	return Result{
		Score: score,
		Breakdown: Breakdown{
			Signals:    normalized,
			Weights:    weights.Clone(),
			WeightUsed: used,
		},
	}
}

// DisplayScore converts a [0,1] score into a 0-100 integer.
func DisplayScore(score float64) int {
	return int(math.Round(Clamp01(score) * 100))
}

// Calculator computes composite scores with a configurable weight table
// and variety source.
type Calculator struct {
	weights models.Weights
	variety VarietyFunc
	mu      sync.RWMutex
}

// NewCalculator creates a new scoring calculator.
// A nil weight table selects models.DefaultWeights, a nil variety source
// selects HashVariety.
func NewCalculator(weights models.Weights, variety VarietyFunc) *Calculator {
	if weights == nil {
		weights = models.DefaultWeights()
	}
	if variety == nil {
		variety = HashVariety
	}
	return &Calculator{weights: weights.Clone(), variety: variety}
}

// Calculate scores the signals of the candidate identified by id.
// A missing randomVariety signal is synthesized from the variety source and
// recorded in the breakdown, so Composite(breakdown.Signals, breakdown.Weights)
// reproduces the score.
func (c *Calculator) Calculate(id string, signals models.Signals) Result {
	c.mu.RLock()
	weights := c.weights
	variety := c.variety
	c.mu.RUnlock()

	if _, ok := signals[models.SignalRandomVariety]; !ok {
		signals = signals.Clone()
		signals[models.SignalRandomVariety] = variety(id)
	}
	return Composite(signals, weights)
}

// UpdateWeights swaps the weight table used by subsequent calculations.
// Nil or empty tables are ignored.
func (c *Calculator) UpdateWeights(weights models.Weights) {
	if len(weights) == 0 {
		return
	}
	c.mu.Lock()
	c.weights = weights.Clone()
	c.mu.Unlock()
}

// Weights returns a copy of the current weight table.
func (c *Calculator) Weights() models.Weights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights.Clone()
}

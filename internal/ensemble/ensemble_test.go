package ensemble

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultEngine() *Engine {
	return NewEngine(0.7, 0.3, 0.5, 0.75)
}

func TestDecideReferenceScenarios(t *testing.T) {
	e := defaultEngine()

	// 0.7*0.9 + 0.3*0.2 = 0.69 → MEDIUM, fraud
	d := e.Decide(0.9, 0.2)
	assert.InDelta(t, 0.69, d.FraudScore, 1e-9)
	assert.Equal(t, TierMedium, d.RiskTier)
	assert.True(t, d.IsFraud)

	// 0.7*0.95 + 0.3*0.9 = 0.935 → HIGH
	d = e.Decide(0.95, 0.9)
	assert.InDelta(t, 0.935, d.FraudScore, 1e-9)
	assert.Equal(t, TierHigh, d.RiskTier)
	assert.True(t, d.IsFraud)

	// Low scores → LOW, not fraud
	d = e.Decide(0.1, 0.2)
	assert.Equal(t, TierLow, d.RiskTier)
	assert.False(t, d.IsFraud)
}

func TestDecideDeterminism(t *testing.T) {
	e := defaultEngine()
	a := e.Decide(0.42, 0.58)
	b := e.Decide(0.42, 0.58)
	assert.Equal(t, a, b)
}

func TestDecideClampsInputs(t *testing.T) {
	e := defaultEngine()

	d := e.Decide(5.0, -2.0)
	assert.Equal(t, 1.0, d.ClassifierScore)
	assert.Equal(t, 0.0, d.AnomalyScore)
	assert.InDelta(t, 0.7, d.FraudScore, 1e-9)

	d = e.Decide(math.NaN(), 0.5)
	assert.GreaterOrEqual(t, d.FraudScore, 0.0)
	assert.LessOrEqual(t, d.FraudScore, 1.0)
}

func TestDecideClampsOverweightedCombination(t *testing.T) {
	// Weights summing above 1 must not leak out of range.
	e := NewEngine(1.0, 1.0, 0.5, 0.75)
	d := e.Decide(0.9, 0.9)
	assert.Equal(t, 1.0, d.FraudScore)
}

func TestTierMonotonicity(t *testing.T) {
	e := defaultEngine()

	severity := map[Tier]int{TierLow: 0, TierMedium: 1, TierHigh: 2}

	prevScore := -1.0
	prevTier := -1
	for s := 0.0; s <= 1.0; s += 0.05 {
		d := e.Decide(s, 0.4)
		assert.GreaterOrEqual(t, d.FraudScore, prevScore, "ensemble non-decreasing in classifier score")
		assert.GreaterOrEqual(t, severity[d.RiskTier], prevTier, "tier never lowers as score rises")
		prevScore = d.FraudScore
		prevTier = severity[d.RiskTier]
	}
}

func TestInvertedThresholdsFallBackToMedium(t *testing.T) {
	// highRisk < fraud is operator error; the engine must not report
	// HIGH (or crash), it degrades to MEDIUM at/above the fraud line.
	e := NewEngine(0.7, 0.3, 0.8, 0.4)

	d := e.Decide(1.0, 1.0)
	assert.Equal(t, TierMedium, d.RiskTier)
	assert.True(t, d.IsFraud)

	d = e.Decide(0.1, 0.1)
	assert.Equal(t, TierLow, d.RiskTier)
}

func TestBoundaryEqualsThreshold(t *testing.T) {
	e := defaultEngine()

	// Exactly at the fraud threshold counts as fraud (>=).
	d := e.Decide(0.5, 0.5)
	assert.InDelta(t, 0.5, d.FraudScore, 1e-9)
	assert.True(t, d.IsFraud)
	assert.Equal(t, TierMedium, d.RiskTier)
}

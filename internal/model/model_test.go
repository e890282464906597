package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fraudscope/fraudscope/internal/enrichment"
	"github.com/fraudscope/fraudscope/internal/features"
	"github.com/fraudscope/fraudscope/internal/velocity"
)

var ts = time.Date(2025, 11, 26, 14, 0, 0, 0, time.UTC)

func benignVector() []float64 {
	return features.Vector(40, ts,
		velocity.Stats{Count24h: 2, Total24h: 80, AvgAmount24h: 40},
		enrichment.EntityMetadata{AccountAgeDays: 400, TotalTransactions: 200, AvgTransactionAmount: 45, Country: "US", Verified: true},
		enrichment.CounterpartyMetadata{Category: "retail", RiskScore: 0.2, Verified: true})
}

func riskyVector() []float64 {
	night := time.Date(2025, 11, 26, 3, 0, 0, 0, time.UTC)
	return features.Vector(5000, night,
		velocity.Stats{Count1h: 8, Count24h: 9, Total1h: 20000, Total24h: 21000, AvgAmount24h: 2300},
		enrichment.EntityMetadata{AccountAgeDays: 5, TotalTransactions: 3, AvgTransactionAmount: 50, Country: "UK", Verified: false},
		enrichment.CounterpartyMetadata{Category: "online", RiskScore: 0.95, Verified: false})
}

func TestClassifierRange(t *testing.T) {
	c := NewClassifier()
	for _, f := range [][]float64{benignVector(), riskyVector(), nil} {
		s := c.Score(f)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestClassifierOrdersRisk(t *testing.T) {
	c := NewClassifier()
	assert.Greater(t, c.Score(riskyVector()), c.Score(benignVector()))
}

func TestScoresBitIdenticalAcrossCalls(t *testing.T) {
	// Weights and reference points are accumulated in a fixed order,
	// so repeated calls must agree to the last bit, not just approximately.
	c := NewClassifier()
	d := NewAnomalyDetector()
	f := riskyVector()

	wantC := c.Score(f)
	wantD := d.Score(f)
	for i := 0; i < 100; i++ {
		assert.Equal(t, wantC, c.Score(f))
		assert.Equal(t, wantD, d.Score(f))
	}
}

func TestUnconfiguredModelsReturnMidpoint(t *testing.T) {
	c := NewClassifierWithWeights(nil, 0)
	assert.Equal(t, Midpoint, c.Score(benignVector()))

	d := NewAnomalyDetectorWithReference(nil, 0)
	assert.Equal(t, Midpoint, d.Score(benignVector()))
}

func TestAnomalyDetectorRangeAndOrdering(t *testing.T) {
	d := NewAnomalyDetector()

	benign := d.Score(benignVector())
	risky := d.Score(riskyVector())

	assert.GreaterOrEqual(t, benign, 0.0)
	assert.LessOrEqual(t, risky, 1.0)
	assert.Greater(t, risky, benign)
}

func TestShortVectorTolerated(t *testing.T) {
	// Scorers must not panic on a short vector; missing features read 0.
	c := NewClassifier()
	d := NewAnomalyDetector()
	short := []float64{1, 2, 3}

	assert.NotPanics(t, func() { c.Score(short) })
	assert.NotPanics(t, func() { d.Score(short) })
}

// Package model provides the two scoring collaborators used by the
// ensemble: a supervised-style classifier and a reconstruction-error
// anomaly detector. Both are deterministic stand-ins for externally
// trained models and satisfy the same one-method capability, so either
// can be swapped for a real model server without touching the ensemble.
package model

import (
	"math"

	"github.com/fraudscope/fraudscope/internal/features"
)

// Scorer turns a feature vector into a risk score in [0,1].
// Implementations must not fail for well-formed input: an unavailable
// model reports the Midpoint instead.
type Scorer interface {
	Score(featureVector []float64) float64
}

// Midpoint is the fallback score when a model has no configured
// parameters. A fixed value keeps unscored traffic deterministic.
const Midpoint = 0.5

// clamp bounds a score to [0,1].
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return Midpoint
	}
	return math.Min(1.0, math.Max(0.0, v))
}

// featureIndex maps feature names to vector positions once at init.
var featureIndex = func() map[string]int {
	m := make(map[string]int, len(features.Names))
	for i, n := range features.Names {
		m[n] = i
	}
	return m
}()

// at reads a named feature, 0 when the vector is short.
func at(f []float64, name string) float64 {
	i, ok := featureIndex[name]
	if !ok || i >= len(f) {
		return 0
	}
	return f[i]
}

// ---------------------------------------------------------------------------
// Classifier
// ---------------------------------------------------------------------------

// Classifier scores fraud likelihood with a logistic combination of
// named features.
type Classifier struct {
	weights map[string]float64
	bias    float64
}

// defaultClassifierWeights approximate the signal directions a trained
// supervised model learns on this feature set: large or off-hours
// amounts, bursty velocity, new or unverified parties push the score up.
var defaultClassifierWeights = map[string]float64{
	"amount_log":               0.35,
	"is_high_value":            0.9,
	"is_round_amount":          0.2,
	"is_night_time":            0.5,
	"txn_count_1h":             0.25,
	"amount_vs_avg_ratio":      0.15,
	"velocity_1h_24h_ratio":    0.4,
	"is_new_entity":            0.7,
	"is_verified_entity":       -0.8,
	"counterparty_risk_score":  1.6,
	"is_verified_counterparty": -0.6,
	"amount_entity_avg_ratio":  0.1,
}

const defaultClassifierBias = -3.2

// NewClassifier creates a classifier with the default weights.
func NewClassifier() *Classifier {
	return &Classifier{weights: defaultClassifierWeights, bias: defaultClassifierBias}
}

// NewClassifierWithWeights creates a classifier with explicit weights.
// A nil map yields an unconfigured model that scores the Midpoint.
func NewClassifierWithWeights(weights map[string]float64, bias float64) *Classifier {
	return &Classifier{weights: weights, bias: bias}
}

// Score returns the fraud probability for the feature vector.
func (c *Classifier) Score(f []float64) float64 {
	if c.weights == nil {
		return Midpoint
	}
	// Accumulate in features.Names order: map iteration order would
	// vary the floating-point summation between calls.
	z := c.bias
	for _, name := range features.Names {
		if w, ok := c.weights[name]; ok {
			z += w * at(f, name)
		}
	}
	return clamp(1.0 / (1.0 + math.Exp(-z)))
}

// ---------------------------------------------------------------------------
// AnomalyDetector
// ---------------------------------------------------------------------------

// AnomalyDetector scores how far a transaction sits from a reference
// profile of normal behavior: a squared-deviation analogue of
// reconstruction error, normalized by a threshold so typical traffic
// lands well below 1.
type AnomalyDetector struct {
	reference map[string]ProfilePoint
	threshold float64
}

// ProfilePoint is one dimension of a reference profile.
type ProfilePoint struct {
	mean  float64
	scale float64 // deviation unit; must be > 0
}

// defaultReference describes unremarkable transaction behavior.
var defaultReference = map[string]ProfilePoint{
	"amount_log":              {mean: 4.5, scale: 1.5},
	"txn_count_1h":            {mean: 0.5, scale: 2.0},
	"txn_count_24h":           {mean: 3.0, scale: 5.0},
	"amount_vs_avg_ratio":     {mean: 1.0, scale: 1.5},
	"counterparty_risk_score": {mean: 0.3, scale: 0.35},
	"amount_entity_avg_ratio": {mean: 1.0, scale: 2.0},
	"is_night_time":           {mean: 0.1, scale: 0.5},
}

const defaultAnomalyThreshold = 4.0

// NewAnomalyDetector creates a detector with the default reference
// profile.
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{reference: defaultReference, threshold: defaultAnomalyThreshold}
}

// NewAnomalyDetectorWithReference creates a detector with an explicit
// reference. A nil reference yields an unconfigured model that scores
// the Midpoint.
func NewAnomalyDetectorWithReference(reference map[string]ProfilePoint, threshold float64) *AnomalyDetector {
	return &AnomalyDetector{reference: reference, threshold: threshold}
}

// Score returns the normalized anomaly score for the feature vector.
func (d *AnomalyDetector) Score(f []float64) float64 {
	if d.reference == nil || len(d.reference) == 0 {
		return Midpoint
	}

	// Fixed accumulation order, as in Classifier.Score.
	var errSum float64
	for _, name := range features.Names {
		p, ok := d.reference[name]
		if !ok {
			continue
		}
		dev := (at(f, name) - p.mean) / p.scale
		errSum += dev * dev
	}
	err := errSum / float64(len(d.reference))

	if d.threshold > 0 {
		return clamp(err / d.threshold)
	}
	return clamp(err)
}

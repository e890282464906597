// Package ensemble combines two model scores into a single fraud
// decision with a risk tier.
package ensemble

import "math"

// Tier is the coarse risk classification of a decision.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// Decision is the outcome of combining two component scores.
type Decision struct {
	ClassifierScore float64 `json:"classifier_score"`
	AnomalyScore    float64 `json:"anomaly_score"`
	FraudScore      float64 `json:"fraud_score"`
	IsFraud         bool    `json:"is_fraud"`
	RiskTier        Tier    `json:"risk_level"`
}

// Engine applies configured weights and thresholds. Weights are used
// as a direct linear combination — they are not normalized, keeping
// them summing to 1 is the operator's responsibility.
type Engine struct {
	classifierWeight  float64
	anomalyWeight     float64
	fraudThreshold    float64
	highRiskThreshold float64
}

// NewEngine creates an ensemble engine.
func NewEngine(classifierWeight, anomalyWeight, fraudThreshold, highRiskThreshold float64) *Engine {
	return &Engine{
		classifierWeight:  classifierWeight,
		anomalyWeight:     anomalyWeight,
		fraudThreshold:    fraudThreshold,
		highRiskThreshold: highRiskThreshold,
	}
}

// Weights returns the configured component weights.
func (e *Engine) Weights() (classifier, anomaly float64) {
	return e.classifierWeight, e.anomalyWeight
}

// Thresholds returns the configured decision thresholds.
func (e *Engine) Thresholds() (fraud, highRisk float64) {
	return e.fraudThreshold, e.highRiskThreshold
}

// Decide combines the two component scores into a decision. Pure
// function: identical inputs always yield identical output. Component
// scores are clamped to [0,1] defensively even though producers are
// expected to clamp, and the combined score is clamped again so
// weights summing above 1 cannot push it out of range.
//
// When highRiskThreshold < fraudThreshold the tiering is ill-formed;
// the fallback is to report MEDIUM for everything at or above the
// fraud threshold rather than failing.
func (e *Engine) Decide(classifierScore, anomalyScore float64) Decision {
	cs := clamp(classifierScore)
	as := clamp(anomalyScore)

	score := clamp(e.classifierWeight*cs + e.anomalyWeight*as)

	tier := TierLow
	switch {
	case score >= e.highRiskThreshold && e.highRiskThreshold >= e.fraudThreshold:
		tier = TierHigh
	case score >= e.fraudThreshold:
		tier = TierMedium
	}

	return Decision{
		ClassifierScore: cs,
		AnomalyScore:    as,
		FraudScore:      score,
		IsFraud:         score >= e.fraudThreshold,
		RiskTier:        tier,
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1.0, math.Max(0.0, v))
}

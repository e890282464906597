// Package explain derives human-readable risk factors from an enriched
// transaction and its velocity statistics.
//
// Factors are informational and independent of the numeric ensemble
// score: a transaction the ensemble rates LOW can still surface
// factors, and a HIGH one can surface none beyond the sentinel.
package explain

import (
	"github.com/fraudscope/fraudscope/internal/enrichment"
	"github.com/fraudscope/fraudscope/internal/velocity"
)

// NoFactors is returned as the sole entry when no rule fires, so the
// result is never empty.
const NoFactors = "No specific risk factors identified"

// Rule thresholds.
const (
	amountSpikeMultiple   = 3.0
	highAmountFloor       = 1000.0
	hourlyVelocityLimit   = 5
	counterpartyRiskLimit = 0.7
	newAccountAgeDays     = 30
)

// Factors evaluates the rule set in fixed order and returns the
// matched descriptions. Each rule contributes at most one entry; the
// amount rules are mutually exclusive, with the spike-vs-average check
// taking priority over the absolute floor.
func Factors(amount float64, v velocity.Stats, em enrichment.EntityMetadata, cm enrichment.CounterpartyMetadata) []string {
	var factors []string

	// Amount relative to the entity's rolling 24h average, falling
	// back to the absolute floor when there is no usable average.
	switch {
	case v.AvgAmount24h > 0 && amount > amountSpikeMultiple*v.AvgAmount24h:
		factors = append(factors, "Unusual transaction amount (3x average)")
	case amount > highAmountFloor:
		factors = append(factors, "High transaction amount")
	}

	if v.Count1h > hourlyVelocityLimit {
		factors = append(factors, "High velocity spending (>5 txns/hour)")
	}

	if cm.RiskScore > counterpartyRiskLimit {
		factors = append(factors, "High-risk counterparty")
	}
	if !cm.Verified {
		factors = append(factors, "Unverified counterparty")
	}

	if em.AccountAgeDays < newAccountAgeDays {
		factors = append(factors, "New user account (<30 days)")
	}
	if !em.Verified {
		factors = append(factors, "Unverified user account")
	}

	if len(factors) == 0 {
		return []string{NoFactors}
	}
	return factors
}

// Package features assembles the numeric vector consumed by the scoring
// models. The layout is fixed: models address features by index, so the
// order here is part of the contract.
package features

import (
	"math"
	"time"

	"github.com/fraudscope/fraudscope/internal/enrichment"
	"github.com/fraudscope/fraudscope/internal/velocity"
)

// Names lists the vector layout in order.
var Names = []string{
	// Transaction
	"amount",
	"amount_log",
	"is_high_value",
	"is_round_amount",
	"hour_of_day",
	"day_of_week",
	"is_weekend",
	"is_night_time",

	// Velocity
	"txn_count_1h",
	"txn_count_24h",
	"txn_count_7d",
	"total_amount_1h",
	"total_amount_24h",
	"total_amount_7d",
	"avg_amount_24h",
	"amount_vs_avg_ratio",
	"velocity_1h_24h_ratio",
	"velocity_24h_7d_ratio",

	// Entity
	"account_age_days",
	"account_age_log",
	"total_entity_transactions",
	"entity_avg_transaction",
	"is_new_entity",
	"is_verified_entity",
	"entity_country_encoded",

	// Counterparty
	"counterparty_category_encoded",
	"counterparty_risk_score",
	"is_verified_counterparty",

	// Derived
	"amount_entity_avg_ratio",
	"unusual_time_flag",
}

// Size is the fixed vector length.
var Size = len(Names)

// Vector builds the feature vector for one transaction. Every encoding
// is a pure function of its inputs.
func Vector(amount float64, ts time.Time, v velocity.Stats, em enrichment.EntityMetadata, cm enrichment.CounterpartyMetadata) []float64 {
	f := make([]float64, 0, Size)

	hour := float64(ts.Hour())
	weekday := ts.Weekday()
	night := boolToF(hour >= 2 && hour <= 5)

	// Transaction
	f = append(f,
		amount,
		math.Log1p(amount),
		boolToF(amount > 1000),
		boolToF(amount == math.Floor(amount) && amount > 100),
		hour,
		float64(weekday),
		boolToF(weekday == time.Saturday || weekday == time.Sunday),
		night,
	)

	// Velocity
	f = append(f,
		float64(v.Count1h),
		float64(v.Count24h),
		float64(v.Count7d),
		v.Total1h,
		v.Total24h,
		v.Total7d,
		v.AvgAmount24h,
		safeRatio(amount, v.AvgAmount24h),
		safeRatio(float64(v.Count1h), float64(v.Count24h)),
		safeRatio(float64(v.Count24h), float64(v.Count7d)),
	)

	// Entity
	f = append(f,
		float64(em.AccountAgeDays),
		math.Log1p(float64(em.AccountAgeDays)),
		float64(em.TotalTransactions),
		em.AvgTransactionAmount,
		boolToF(em.AccountAgeDays < 30),
		boolToF(em.Verified),
		countryCode(em.Country),
	)

	// Counterparty
	f = append(f,
		categoryCode(cm.Category),
		cm.RiskScore,
		boolToF(cm.Verified),
	)

	// Derived
	f = append(f,
		safeRatio(amount, em.AvgTransactionAmount),
		night,
	)

	return f
}

// safeRatio returns a/b, or 0 when b is zero.
func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var countryCodes = map[string]float64{"US": 0, "UK": 1, "CA": 2, "AU": 3}

func countryCode(c string) float64 {
	if v, ok := countryCodes[c]; ok {
		return v
	}
	return 4 // unknown bucket
}

var categoryCodes = map[string]float64{"retail": 0, "food": 1, "travel": 2, "online": 3}

func categoryCode(c string) float64 {
	if v, ok := categoryCodes[c]; ok {
		return v
	}
	return 4
}

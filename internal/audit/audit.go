// Package audit persists scoring events for post-hoc review.
//
// Every scored transaction produces one Event capturing the inputs the
// ensemble saw and the verdict it returned. Recording is best-effort
// from the caller's point of view: a failed write never blocks or
// fails the scoring path.
package audit

import (
	"context"
	"time"
)

// Event is one scored transaction as recorded for the audit trail.
type Event struct {
	ID              string    `json:"id"`
	TransactionID   string    `json:"transaction_id"`
	EntityID        string    `json:"entity_id"`
	CounterpartyID  string    `json:"counterparty_id"`
	Amount          float64   `json:"amount"`
	ClassifierScore float64   `json:"classifier_score"`
	AnomalyScore    float64   `json:"anomaly_score"`
	FraudScore      float64   `json:"fraud_score"`
	IsFraud         bool      `json:"is_fraud"`
	RiskTier        string    `json:"risk_level"`
	Factors         []string  `json:"risk_factors"`
	ProcessingMs    float64   `json:"processing_time_ms"`
	ScoredAt        time.Time `json:"scored_at"`
}

// Store persists scoring events.
type Store interface {
	Record(ctx context.Context, event *Event) error
	ListRecent(ctx context.Context, limit int) ([]*Event, error)
}

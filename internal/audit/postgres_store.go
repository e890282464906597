package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists scoring events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed event store. Schema is
// managed by the goose migrations under migrations/.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO score_events (
			id, transaction_id, entity_id, counterparty_id, amount,
			classifier_score, anomaly_score, fraud_score, is_fraud,
			risk_level, risk_factors, processing_ms, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		event.ID,
		event.TransactionID,
		event.EntityID,
		event.CounterpartyID,
		event.Amount,
		event.ClassifierScore,
		event.AnomalyScore,
		event.FraudScore,
		event.IsFraud,
		event.RiskTier,
		pq.Array(event.Factors),
		event.ProcessingMs,
		event.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record score event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, entity_id, counterparty_id, amount,
		       classifier_score, anomaly_score, fraud_score, is_fraud,
		       risk_level, risk_factors, processing_ms, scored_at
		FROM score_events
		ORDER BY scored_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list score events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.TransactionID, &e.EntityID, &e.CounterpartyID, &e.Amount,
			&e.ClassifierScore, &e.AnomalyScore, &e.FraudScore, &e.IsFraud,
			&e.RiskTier, pq.Array(&e.Factors), &e.ProcessingMs, &e.ScoredAt,
		); err != nil {
			continue
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

// Package enrichment memoizes descriptive profiles for entities and
// counterparties.
//
// Profiles are fetched from a Source exactly once per id (cache-or-create,
// never refreshed) and shared across all requests for the life of the
// process. This mirrors an external profile store queried once and
// cached; staleness is accepted.
package enrichment

// EntityMetadata describes the profiled subject of a transaction.
type EntityMetadata struct {
	AccountAgeDays       int     `json:"account_age_days"`
	TotalTransactions    int     `json:"total_transactions"`
	AvgTransactionAmount float64 `json:"avg_transaction_amount"`
	Country              string  `json:"country"`
	Verified             bool    `json:"is_verified"`
}

// CounterpartyMetadata describes the other party of a transaction.
type CounterpartyMetadata struct {
	Category  string  `json:"category"`
	RiskScore float64 `json:"risk_score"`
	Verified  bool    `json:"is_verified"`
}

// Source supplies profiles on cache miss. Implementations may back onto
// a remote profile store, a static generator, or a test double. Calls
// must be safe for concurrent use; the cache guarantees at most one
// call per id.
type Source interface {
	EntityProfile(id string) EntityMetadata
	CounterpartyProfile(id string) CounterpartyMetadata
}

package enrichment

import (
	"hash/fnv"
	"math/rand"
)

// Profile value ranges, matching the external profile store's domain.
var (
	countries  = []string{"US", "UK", "CA", "AU"}
	categories = []string{"retail", "food", "travel", "online"}
)

// Generator is a deterministic Source: every field is derived from a
// PRNG seeded by the id hash (plus an optional configured seed), so the
// same id always yields the same profile. It stands in for a remote
// profile store in development and tests.
type Generator struct {
	seed int64
}

// NewGenerator creates a generator. The seed perturbs all derived
// profiles; use 0 for the default stream.
func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed}
}

// EntityProfile derives a stable entity profile from the id.
func (g *Generator) EntityProfile(id string) EntityMetadata {
	r := g.rng("entity:" + id)
	return EntityMetadata{
		AccountAgeDays:       30 + r.Intn(971), // 30..1000
		TotalTransactions:    10 + r.Intn(491), // 10..500
		AvgTransactionAmount: 50 + r.Float64()*450,
		Country:              countries[r.Intn(len(countries))],
		Verified:             r.Float64() < 0.8,
	}
}

// CounterpartyProfile derives a stable counterparty profile from the id.
func (g *Generator) CounterpartyProfile(id string) CounterpartyMetadata {
	r := g.rng("counterparty:" + id)
	return CounterpartyMetadata{
		Category:  categories[r.Intn(len(categories))],
		RiskScore: r.Float64(),
		Verified:  r.Float64() < 0.9,
	}
}

func (g *Generator) rng(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(g.seed ^ int64(h.Sum64())))
}

// Package velocity derives time-windowed transaction statistics from
// entity history.
package velocity

import (
	"time"

	"github.com/fraudscope/fraudscope/internal/history"
)

// Window durations for velocity statistics.
const (
	WindowHour = time.Hour
	WindowDay  = 24 * time.Hour
	WindowWeek = 7 * 24 * time.Hour
)

// Stats are trailing-window aggregates for one entity at a reference
// time. A value object: computed on demand, never stored.
type Stats struct {
	Count1h  int     `json:"txn_count_1h"`
	Count24h int     `json:"txn_count_24h"`
	Count7d  int     `json:"txn_count_7d"`
	Total1h  float64 `json:"total_amount_1h"`
	Total24h float64 `json:"total_amount_24h"`
	Total7d  float64 `json:"total_amount_7d"`
	// AvgAmount24h is the arithmetic mean of amounts in the 24h
	// window, 0.0 when the window is empty.
	AvgAmount24h float64 `json:"avg_amount_24h"`
}

// Aggregator computes Stats from a history store.
type Aggregator struct {
	store *history.Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store *history.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Compute returns velocity statistics for the entity at the reference
// time. The three windows share one 7-day read: the 1h and 24h figures
// are derived by re-filtering the 7d records rather than issuing three
// scans. Unseen entities and empty histories yield zeroed stats.
func (a *Aggregator) Compute(entityID string, now time.Time) Stats {
	records := a.store.Window(entityID, now, WindowWeek)
	if len(records) == 0 {
		return Stats{}
	}

	hourCutoff := now.Add(-WindowHour)
	dayCutoff := now.Add(-WindowDay)

	var s Stats
	for _, r := range records {
		s.Count7d++
		s.Total7d += r.Amount
		if !r.Timestamp.Before(dayCutoff) {
			s.Count24h++
			s.Total24h += r.Amount
		}
		if !r.Timestamp.Before(hourCutoff) {
			s.Count1h++
			s.Total1h += r.Amount
		}
	}
	if s.Count24h > 0 {
		s.AvgAmount24h = s.Total24h / float64(s.Count24h)
	}
	return s
}

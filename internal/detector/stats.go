package detector

import (
	"context"
	"sync"
	"time"

	"github.com/fraudscope/fraudscope/internal/audit"
	"github.com/fraudscope/fraudscope/internal/features"
	"github.com/fraudscope/fraudscope/internal/metrics"
)

// scoredBuffer sizes the channel between the hot path and the stats
// loop. Overflow drops events from stats, never from scoring.
const scoredBuffer = 4096

// gaugeInterval is how often tracked-entity gauges are refreshed.
const gaugeInterval = 10 * time.Second

// Broadcaster receives every scored event, e.g. a WebSocket hub.
type Broadcaster interface {
	Broadcast(event *audit.Event)
}

// statsState accumulates running aggregates over scored events.
type statsState struct {
	mu              sync.Mutex
	totalScored     int64
	totalFraud      int64
	sumFraudScore   float64
	sumProcessingMs float64
	tierCounts      map[string]int64
}

func newStatsState() *statsState {
	return &statsState{tierCounts: make(map[string]int64)}
}

func (s *statsState) observe(e *audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalScored++
	s.sumFraudScore += e.FraudScore
	s.sumProcessingMs += e.ProcessingMs
	s.tierCounts[e.RiskTier]++
	if e.IsFraud {
		s.totalFraud++
	}
}

// Stats is a point-in-time snapshot of detector activity.
type Stats struct {
	TotalScored           int64            `json:"total_transactions_scored"`
	FraudDetected         int64            `json:"fraud_detected"`
	LegitimateCount       int64            `json:"legitimate_count"`
	FraudRate             float64          `json:"fraud_rate"`
	AvgFraudScore         float64          `json:"avg_fraud_score"`
	AvgProcessingMs       float64          `json:"avg_processing_time_ms"`
	TierCounts            map[string]int64 `json:"risk_level_counts"`
	EntitiesTracked       int              `json:"entities_tracked"`
	CounterpartiesTracked int              `json:"counterparties_tracked"`
	HistoryRecords        int64            `json:"history_records"`
	UptimeSeconds         float64          `json:"uptime_seconds"`
}

// Stats returns the current aggregate snapshot.
func (d *Detector) Stats() Stats {
	d.stats.mu.Lock()
	snap := Stats{
		TotalScored:     d.stats.totalScored,
		FraudDetected:   d.stats.totalFraud,
		LegitimateCount: d.stats.totalScored - d.stats.totalFraud,
		TierCounts:      make(map[string]int64, len(d.stats.tierCounts)),
	}
	if d.stats.totalScored > 0 {
		snap.FraudRate = float64(d.stats.totalFraud) / float64(d.stats.totalScored)
		snap.AvgFraudScore = d.stats.sumFraudScore / float64(d.stats.totalScored)
		snap.AvgProcessingMs = d.stats.sumProcessingMs / float64(d.stats.totalScored)
	}
	for tier, n := range d.stats.tierCounts {
		snap.TierCounts[tier] = n
	}
	d.stats.mu.Unlock()

	snap.EntitiesTracked = d.cache.EntityCount()
	snap.CounterpartiesTracked = d.cache.CounterpartyCount()
	snap.HistoryRecords = d.history.RecordCount()
	snap.UptimeSeconds = time.Since(d.started).Seconds()
	return snap
}

// Info describes the detector's models and configuration.
type Info struct {
	Models            []string `json:"models"`
	FeatureCount      int      `json:"feature_count"`
	ClassifierWeight  float64  `json:"classifier_weight"`
	AnomalyWeight     float64  `json:"anomaly_weight"`
	FraudThreshold    float64  `json:"fraud_threshold"`
	HighRiskThreshold float64  `json:"high_risk_threshold"`
	RetentionDays     float64  `json:"history_retention_days"`
}

// Info returns the detector's static configuration.
func (d *Detector) Info() Info {
	cw, aw := d.engine.Weights()
	ft, hrt := d.engine.Thresholds()
	return Info{
		Models:            []string{"classifier", "anomaly_detector"},
		FeatureCount:      features.Size,
		ClassifierWeight:  cw,
		AnomalyWeight:     aw,
		FraudThreshold:    ft,
		HighRiskThreshold: hrt,
		RetentionDays:     d.history.Retention().Hours() / 24,
	}
}

// Run consumes scored events, updating aggregates and forwarding to
// the broadcaster, and refreshes tracked-entity gauges. Exits when ctx
// is done. Call in a goroutine; b may be nil.
func (d *Detector) Run(ctx context.Context, b Broadcaster) {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.scored:
			d.stats.observe(e)
			if b != nil {
				b.Broadcast(e)
			}
		case <-ticker.C:
			metrics.EntitiesTracked.Set(float64(d.history.EntityCount()))
			metrics.HistoryRecords.Set(float64(d.history.RecordCount()))
		}
	}
}

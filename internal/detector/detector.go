// Package detector wires the scoring pipeline together: metadata
// enrichment, velocity aggregation, feature extraction, the model
// ensemble, risk factor derivation, and history bookkeeping.
//
// Scoring is pure in-memory computation designed to stay well under
// 100ms per transaction. The audit trail and the realtime feed hang
// off the hot path asynchronously and never fail a score.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fraudscope/fraudscope/internal/audit"
	"github.com/fraudscope/fraudscope/internal/config"
	"github.com/fraudscope/fraudscope/internal/enrichment"
	"github.com/fraudscope/fraudscope/internal/ensemble"
	"github.com/fraudscope/fraudscope/internal/explain"
	"github.com/fraudscope/fraudscope/internal/features"
	"github.com/fraudscope/fraudscope/internal/history"
	"github.com/fraudscope/fraudscope/internal/idgen"
	"github.com/fraudscope/fraudscope/internal/metrics"
	"github.com/fraudscope/fraudscope/internal/model"
	"github.com/fraudscope/fraudscope/internal/retry"
	"github.com/fraudscope/fraudscope/internal/validation"
	"github.com/fraudscope/fraudscope/internal/velocity"
)

// Transaction is a scoring request as received from clients.
type Transaction struct {
	TransactionID  string  `json:"transaction_id"`
	EntityID       string  `json:"entity_id"`
	CounterpartyID string  `json:"counterparty_id"`
	Amount         float64 `json:"amount"`
	// Timestamp is optional RFC 3339; empty means "now".
	Timestamp string `json:"timestamp,omitempty"`
}

// Validate checks the transaction's fields.
func (t *Transaction) Validate() validation.ValidationErrors {
	return validation.Validate(
		validation.Required("transaction_id", t.TransactionID),
		validation.ValidID("transaction_id", t.TransactionID),
		validation.Required("entity_id", t.EntityID),
		validation.ValidID("entity_id", t.EntityID),
		validation.Required("counterparty_id", t.CounterpartyID),
		validation.ValidID("counterparty_id", t.CounterpartyID),
		validation.PositiveAmount("amount", t.Amount),
		validation.ValidTimestamp("timestamp", t.Timestamp),
	)
}

// occurredAt resolves the transaction timestamp, defaulting to now.
// Validate has already guaranteed the field parses.
func (t *Transaction) occurredAt(now time.Time) time.Time {
	if t.Timestamp == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339, t.Timestamp)
	if err != nil {
		return now
	}
	return ts
}

// ScoreResult is the verdict for a single transaction.
type ScoreResult struct {
	TransactionID   string         `json:"transaction_id"`
	EntityID        string         `json:"entity_id"`
	ClassifierScore float64        `json:"classifier_score"`
	AnomalyScore    float64        `json:"anomaly_score"`
	FraudScore      float64        `json:"fraud_score"`
	IsFraud         bool           `json:"is_fraud"`
	RiskTier        string         `json:"risk_level"`
	Factors         []string       `json:"risk_factors"`
	Velocity        velocity.Stats `json:"velocity_metrics"`
	ProcessingMs    float64        `json:"processing_time_ms"`
	ScoredAt        time.Time      `json:"scored_at"`
}

// BatchItem holds either a result or a per-item error. Batch order
// matches the request order.
type BatchItem struct {
	Result *ScoreResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Detector is the scoring facade.
type Detector struct {
	history    *history.Store
	aggregator *velocity.Aggregator
	cache      *enrichment.Cache
	classifier model.Scorer
	anomaly    model.Scorer
	engine     *ensemble.Engine
	auditStore audit.Store
	logger     *slog.Logger
	now        func() time.Time

	source       enrichment.Source
	cacheMaxSize int

	// scored feeds the stats loop; sends never block the hot path.
	scored chan *audit.Event
	// audits feeds the single audit writer; sends never block either.
	audits  chan *audit.Event
	stats   *statsState
	started time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithAuditStore sets the store for the scoring audit trail.
func WithAuditStore(s audit.Store) Option {
	return func(d *Detector) { d.auditStore = s }
}

// WithEnrichmentSource overrides the metadata source backing the
// enrichment cache.
func WithEnrichmentSource(src enrichment.Source) Option {
	return func(d *Detector) { d.source = src }
}

// WithScorers overrides the classifier and anomaly models.
func WithScorers(classifier, anomaly model.Scorer) Option {
	return func(d *Detector) {
		d.classifier = classifier
		d.anomaly = anomaly
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New builds a detector from config. By default metadata comes from
// the deterministic generator and scores go to no audit store.
func New(cfg *config.Config, opts ...Option) *Detector {
	d := &Detector{
		history:    history.NewStore(cfg.RetentionWindow),
		classifier: model.NewClassifier(),
		anomaly:    model.NewAnomalyDetector(),
		engine: ensemble.NewEngine(
			cfg.ClassifierWeight, cfg.AnomalyWeight,
			cfg.FraudThreshold, cfg.HighRiskThreshold,
		),
		logger:       slog.Default(),
		now:          time.Now,
		scored:       make(chan *audit.Event, scoredBuffer),
		audits:       make(chan *audit.Event, auditBuffer),
		stats:        newStatsState(),
		started:      time.Now(),
		source:       enrichment.NewGenerator(0),
		cacheMaxSize: cfg.MetadataCacheSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.aggregator = velocity.NewAggregator(d.history)
	d.cache = enrichment.NewCache(d.source, d.cacheMaxSize)
	if d.auditStore != nil {
		go d.writeAudits()
	}
	return d
}

// Score evaluates one transaction and records it into the entity's
// history. Velocity statistics describe the entity's activity strictly
// before this transaction.
func (d *Detector) Score(ctx context.Context, tx *Transaction) (*ScoreResult, error) {
	if errs := tx.Validate(); len(errs) > 0 {
		return nil, errs
	}

	start := time.Now()
	now := d.now()
	occurred := tx.occurredAt(now)

	em := d.cache.Enrich(tx.EntityID)
	cm := d.cache.EnrichCounterparty(tx.CounterpartyID)

	// Velocity windows and history eviction anchor at the transaction's
	// own timestamp, not the wall clock, so backdated and replayed
	// traffic keeps its velocity signal.
	v := d.aggregator.Compute(tx.EntityID, occurred)

	f := features.Vector(tx.Amount, occurred, v, em, cm)
	classifierScore, err := d.scoreSafely(d.classifier, f, "classifier")
	if err != nil {
		return nil, err
	}
	anomalyScore, err := d.scoreSafely(d.anomaly, f, "anomaly")
	if err != nil {
		return nil, err
	}

	decision := d.engine.Decide(classifierScore, anomalyScore)
	factors := explain.Factors(tx.Amount, v, em, cm)

	d.history.Append(tx.EntityID, history.Record{
		Amount:         tx.Amount,
		Timestamp:      occurred,
		CounterpartyID: tx.CounterpartyID,
	}, occurred)

	result := &ScoreResult{
		TransactionID:   tx.TransactionID,
		EntityID:        tx.EntityID,
		ClassifierScore: decision.ClassifierScore,
		AnomalyScore:    decision.AnomalyScore,
		FraudScore:      decision.FraudScore,
		IsFraud:         decision.IsFraud,
		RiskTier:        string(decision.RiskTier),
		Factors:         factors,
		Velocity:        v,
		ProcessingMs:    float64(time.Since(start).Microseconds()) / 1000.0,
		ScoredAt:        now,
	}

	d.publish(tx, result)

	metrics.TransactionsScoredTotal.WithLabelValues(result.RiskTier).Inc()
	if result.IsFraud {
		metrics.FraudDetectedTotal.Inc()
	}
	metrics.ScoreDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

// ScoreBatch scores transactions in request order. A cancelled context
// stops scoring; remaining items are filled with the context error so
// the response always has one item per input.
func (d *Detector) ScoreBatch(ctx context.Context, txs []*Transaction) []BatchItem {
	items := make([]BatchItem, len(txs))
	metrics.BatchSize.Observe(float64(len(txs)))

	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(txs); j++ {
				items[j] = BatchItem{Error: fmt.Sprintf("not scored: %v", err)}
			}
			break
		}
		result, err := d.Score(ctx, tx)
		if err != nil {
			items[i] = BatchItem{Error: err.Error()}
			continue
		}
		items[i] = BatchItem{Result: result}
	}
	return items
}

// scoreSafely runs a model and converts a panic into an error for this
// transaction only. A misbehaving model must not take down scoring; a
// nil model scores the neutral midpoint.
func (d *Detector) scoreSafely(s model.Scorer, f []float64, name string) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("model panicked", "model", name, "panic", r)
			err = fmt.Errorf("%s model failed: %v", name, r)
		}
	}()
	if s == nil {
		return model.Midpoint, nil
	}
	return s.Score(f), nil
}

// publish builds the audit event, hands it to the stats loop, and
// writes it to the audit store. All best-effort.
func (d *Detector) publish(tx *Transaction, result *ScoreResult) {
	event := &audit.Event{
		ID:              idgen.WithPrefix("score_"),
		TransactionID:   tx.TransactionID,
		EntityID:        tx.EntityID,
		CounterpartyID:  tx.CounterpartyID,
		Amount:          tx.Amount,
		ClassifierScore: result.ClassifierScore,
		AnomalyScore:    result.AnomalyScore,
		FraudScore:      result.FraudScore,
		IsFraud:         result.IsFraud,
		RiskTier:        result.RiskTier,
		Factors:         result.Factors,
		ProcessingMs:    result.ProcessingMs,
		ScoredAt:        result.ScoredAt,
	}

	select {
	case d.scored <- event:
	default:
		// Stats loop is behind; drop rather than stall scoring.
	}

	if d.auditStore != nil {
		select {
		case d.audits <- event:
		default:
			metrics.AuditWriteFailuresTotal.Inc()
			d.logger.Warn("audit queue full, event dropped", "transaction_id", event.TransactionID)
		}
	}
}

// auditBuffer bounds the audit queue. A store that cannot keep up
// costs dropped audit events, never unbounded goroutines or memory.
const auditBuffer = 1024

// writeAudits is the single audit writer. Draining one event at a
// time keeps write order equal to score order and bounds the cost of
// a slow or failing store to this one goroutine's retries.
func (d *Detector) writeAudits() {
	for event := range d.audits {
		err := retry.Do(context.Background(), 3, 100*time.Millisecond, func() error {
			return d.auditStore.Record(context.Background(), event)
		})
		if err != nil {
			metrics.AuditWriteFailuresTotal.Inc()
			d.logger.Warn("audit write failed", "error", err, "transaction_id", event.TransactionID)
		}
	}
}

// History exposes the entity history store, for readiness checks and
// the stats endpoint.
func (d *Detector) History() *history.Store { return d.history }

// Cache exposes the enrichment cache.
func (d *Detector) Cache() *enrichment.Cache { return d.cache }

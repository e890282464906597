package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudscope/fraudscope/internal/detector"
	"github.com/fraudscope/fraudscope/internal/logging"
	"github.com/fraudscope/fraudscope/internal/traces"
	"github.com/fraudscope/fraudscope/internal/validation"
)

// checkFraudHandler handles POST /api/check-fraud
func (s *Server) checkFraudHandler(c *gin.Context) {
	var tx detector.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "detector.Score",
		traces.TransactionID(tx.TransactionID),
		traces.EntityID(tx.EntityID),
		traces.Amount(tx.Amount),
	)
	defer span.End()

	result, err := s.detector.Score(ctx, &tx)
	if err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verrs.Error(),
				"details": verrs,
			})
			return
		}
		logging.L(ctx).Error("scoring failed", "error", err, "transaction_id", tx.TransactionID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to score transaction",
		})
		return
	}

	span.SetAttributes(traces.RiskTier(result.RiskTier))
	c.JSON(http.StatusOK, result)
}

// batchCheckRequest wraps a batch of transactions.
type batchCheckRequest struct {
	Transactions []*detector.Transaction `json:"transactions"`
}

// batchCheckHandler handles POST /api/batch-check
func (s *Server) batchCheckHandler(c *gin.Context) {
	var req batchCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if len(req.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "empty_batch",
			"message": "transactions must contain at least one entry",
		})
		return
	}
	if len(req.Transactions) > s.cfg.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": "batch exceeds maximum size",
			"max":     s.cfg.MaxBatchSize,
		})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "detector.ScoreBatch",
		traces.BatchSize(len(req.Transactions)),
	)
	defer span.End()

	items := s.detector.ScoreBatch(ctx, req.Transactions)

	scored, fraud := 0, 0
	var scoreSum float64
	for _, it := range items {
		if it.Result == nil {
			continue
		}
		scored++
		scoreSum += it.Result.FraudScore
		if it.Result.IsFraud {
			fraud++
		}
	}
	meanScore := 0.0
	if scored > 0 {
		meanScore = scoreSum / float64(scored)
	}

	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"count":   len(items),
		"summary": gin.H{
			"scored":           scored,
			"fraud_count":      fraud,
			"legitimate_count": scored - fraud,
			"mean_fraud_score": meanScore,
		},
	})
}

// statsHandler handles GET /api/stats
func (s *Server) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"detector": s.detector.Stats(),
		"realtime": s.realtimeHub.Stats(),
	})
}

// detectorInfoHandler handles GET /api/detector-info
func (s *Server) detectorInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.detector.Info())
}

// recentEventsHandler handles GET /api/events/recent
func (s *Server) recentEventsHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	events, err := s.auditStore.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list recent events",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// infoHandler handles GET /
func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "FraudScope",
		"description": "Real-time transaction fraud scoring",
		"version":     "0.1.0",
		"endpoints": gin.H{
			"score":  "POST /api/check-fraud",
			"batch":  "POST /api/batch-check",
			"stats":  "GET /api/stats",
			"stream": "GET /ws",
		},
	})
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudscope/fraudscope/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "development",
		LogLevel:          "error",
		ClassifierWeight:  config.DefaultClassifierWeight,
		AnomalyWeight:     config.DefaultAnomalyWeight,
		FraudThreshold:    config.DefaultFraudThreshold,
		HighRiskThreshold: config.DefaultHighRiskThreshold,
		RetentionWindow:   config.DefaultRetentionDays * 24 * time.Hour,
		MaxBatchSize:      config.DefaultMaxBatchSize,
	}
}

// newTestServer creates a server with in-memory dependencies
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	s.router.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/health/live", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/health/ready", "")

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"POST:/api/check-fraud",
		"POST:/api/batch-check",
		"GET:/api/stats",
		"GET:/api/detector-info",
		"GET:/api/events/recent",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Scoring endpoint tests
// ---------------------------------------------------------------------------

func TestCheckFraud(t *testing.T) {
	s := newTestServer(t)

	body := `{"transaction_id":"txn_1","entity_id":"user_1","counterparty_id":"merchant_1","amount":150.00}`
	w := doJSON(s, "POST", "/api/check-fraud", body)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["transaction_id"] != "txn_1" {
		t.Errorf("Expected transaction_id txn_1, got %v", resp["transaction_id"])
	}

	score, ok := resp["fraud_score"].(float64)
	if !ok || score < 0 || score > 1 {
		t.Errorf("Expected fraud_score in [0,1], got %v", resp["fraud_score"])
	}

	tier, _ := resp["risk_level"].(string)
	if tier != "LOW" && tier != "MEDIUM" && tier != "HIGH" {
		t.Errorf("Unexpected risk_level %q", tier)
	}

	if _, ok := resp["risk_factors"].([]interface{}); !ok {
		t.Errorf("Expected risk_factors array, got %v", resp["risk_factors"])
	}
}

func TestCheckFraudValidation(t *testing.T) {
	s := newTestServer(t)

	body := `{"transaction_id":"txn_1","entity_id":"","counterparty_id":"merchant_1","amount":-5}`
	w := doJSON(s, "POST", "/api/check-fraud", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["error"] != "validation_failed" {
		t.Errorf("Expected validation_failed, got %v", resp["error"])
	}
}

func TestCheckFraudMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "POST", "/api/check-fraud", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", w.Code)
	}
}

func TestBatchCheck(t *testing.T) {
	s := newTestServer(t)

	body := `{"transactions":[
		{"transaction_id":"txn_1","entity_id":"user_1","counterparty_id":"m_1","amount":10},
		{"transaction_id":"txn_2","entity_id":"user_1","counterparty_id":"m_1","amount":-1},
		{"transaction_id":"txn_3","entity_id":"user_2","counterparty_id":"m_2","amount":30}
	]}`
	w := doJSON(s, "POST", "/api/batch-check", body)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Results []struct {
			Result *struct {
				TransactionID string `json:"transaction_id"`
			} `json:"result"`
			Error string `json:"error"`
		} `json:"results"`
		Count   int `json:"count"`
		Summary struct {
			Scored          int     `json:"scored"`
			FraudCount      int     `json:"fraud_count"`
			LegitimateCount int     `json:"legitimate_count"`
			MeanFraudScore  float64 `json:"mean_fraud_score"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Count != 3 || resp.Summary.Scored != 2 {
		t.Errorf("Expected count 3, scored 2; got %d, %d", resp.Count, resp.Summary.Scored)
	}
	if resp.Summary.FraudCount+resp.Summary.LegitimateCount != resp.Summary.Scored {
		t.Errorf("Summary counts inconsistent: %+v", resp.Summary)
	}
	if resp.Summary.MeanFraudScore < 0 || resp.Summary.MeanFraudScore > 1 {
		t.Errorf("mean_fraud_score = %v, want in [0,1]", resp.Summary.MeanFraudScore)
	}
	if resp.Results[0].Result == nil || resp.Results[0].Result.TransactionID != "txn_1" {
		t.Errorf("First result should be txn_1: %+v", resp.Results[0])
	}
	if resp.Results[1].Error == "" {
		t.Error("Second item should carry a validation error")
	}
	if resp.Results[2].Result == nil || resp.Results[2].Result.TransactionID != "txn_3" {
		t.Errorf("Third result should be txn_3: %+v", resp.Results[2])
	}
}

func TestBatchCheckEmpty(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "POST", "/api/batch-check", `{"transactions":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty batch, got %d", w.Code)
	}
}

func TestBatchCheckTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBatchSize = 2
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	var sb strings.Builder
	sb.WriteString(`{"transactions":[`)
	for i := 0; i < 3; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"transaction_id":"txn_%d","entity_id":"u","counterparty_id":"m","amount":1}`, i)
	}
	sb.WriteString("]}")

	w := doJSON(s, "POST", "/api/batch-check", sb.String())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for oversized batch, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["error"] != "batch_too_large" {
		t.Errorf("Expected batch_too_large, got %v", resp["error"])
	}
}

// ---------------------------------------------------------------------------
// Info & audit endpoints
// ---------------------------------------------------------------------------

func TestDetectorInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/api/detector-info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["classifier_weight"].(float64) != 0.7 {
		t.Errorf("Expected classifier_weight 0.7, got %v", resp["classifier_weight"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["detector"] == nil || resp["realtime"] == nil {
		t.Errorf("Expected detector and realtime sections: %v", resp)
	}
}

func TestRecentEventsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Score one transaction so an event lands in the audit store.
	body := `{"transaction_id":"txn_evt","entity_id":"user_1","counterparty_id":"m_1","amount":10}`
	if w := doJSON(s, "POST", "/api/check-fraud", body); w.Code != http.StatusOK {
		t.Fatalf("Scoring failed: %d", w.Code)
	}

	// Audit writes are asynchronous; poll briefly.
	deadline := time.Now().Add(time.Second)
	for {
		w := doJSON(s, "GET", "/api/events/recent?limit=10", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if resp.Count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 1 event, got %d", resp.Count)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecentEventsBadLimit(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/api/events/recent?limit=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, "GET", "/api/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

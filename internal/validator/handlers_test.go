package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTestRouter() (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)

	svc := NewService(New(DefaultConfig()))
	handler := NewHandler(svc)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/v1"))
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			buf = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			buf = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validBody = `{
	"transaction_id": "TXN-H-1",
	"transaction_type": "transfer",
	"amount": 1000,
	"currency": "USD",
	"from_account": "ABCD-1234-EFGH-5678",
	"to_account": "WXYZ-9876-STUV-5432",
	"timestamp": "2026-04-14T12:00:00Z",
	"user_id": "USER-001"
}`

func TestHandler_Validate_200(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	w := doJSON(t, router, http.MethodPost, "/v1/transactions/validate", validBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Result struct {
			TransactionID string          `json:"transaction_id"`
			IsValid       bool            `json:"is_valid"`
			FraudScore    int             `json:"fraud_score"`
			Errors        []any           `json:"errors"`
			Compliance    map[string]bool `json:"compliance_checks"`
		} `json:"result"`
		Approved     bool   `json:"approved"`
		RiskLevel    string `json:"riskLevel"`
		ManualReview bool   `json:"manualReview"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TXN-H-1", resp.Result.TransactionID)
	assert.True(t, resp.Result.IsValid)
	assert.Empty(t, resp.Result.Errors)
	assert.True(t, resp.Result.Compliance["AML"])
	assert.True(t, resp.Approved)
	assert.Equal(t, "Low", resp.RiskLevel)
	assert.False(t, resp.ManualReview)
}

func TestHandler_Validate_Duplicate(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	doJSON(t, router, http.MethodPost, "/v1/transactions/validate", validBody)
	w := doJSON(t, router, http.MethodPost, "/v1/transactions/validate", validBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Result.IsValid)
	assert.True(t, resp.Result.HasError(DuplicateTransaction))
}

func TestHandler_Validate_BadRequest(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"transaction_id":`},
		{"unknown type", `{"transaction_id":"X","transaction_type":"barter","amount":1}`},
		{"missing id", `{"transaction_type":"deposit","amount":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/v1/transactions/validate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp["error"])
		})
	}
}

func TestHandler_Validate_MissingTimestamp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(New(DefaultConfig(), WithClock(func() time.Time { return noon })))
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/v1"))

	body := `{
		"transaction_id": "TXN-H-NOTS",
		"transaction_type": "transfer",
		"amount": 1000,
		"currency": "USD",
		"from_account": "ABCD-1234-EFGH-5678",
		"to_account": "WXYZ-9876-STUV-5432",
		"user_id": "USER-001"
	}`
	w := doJSON(t, router, http.MethodPost, "/v1/transactions/validate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Result struct {
			IsValid       bool `json:"is_valid"`
			RiskBreakdown struct {
				TimeRisk int `json:"time_risk"`
			} `json:"risk_breakdown"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.IsValid)
	assert.Equal(t, 0, resp.Result.RiskBreakdown.TimeRisk)
}

func TestHandler_ValidateBatch(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	body := `{"transactions": [
		{"transaction_id":"B-1","transaction_type":"deposit","amount":"250.00","currency":"USD","to_account":"WXYZ-9876-STUV-5432","timestamp":"2026-04-14T12:00:00Z","user_id":"U"},
		{"transaction_id":"B-2","transaction_type":"withdrawal","amount":"-5","currency":"USD","from_account":"ABCD-1234-EFGH-5678","timestamp":"2026-04-14T12:01:00Z","user_id":"U"}
	]}`
	w := doJSON(t, router, http.MethodPost, "/v1/transactions/validate/batch", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Results []ValidateResponse `json:"results"`
		Count   int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.True(t, resp.Results[0].Result.IsValid)
	assert.False(t, resp.Results[1].Result.IsValid)
	assert.True(t, resp.Results[1].Result.HasError(InvalidAmount))
}

func TestHandler_ValidateBatch_Empty(t *testing.T) {
	router, _ := setupHandlerTestRouter()
	w := doJSON(t, router, http.MethodPost, "/v1/transactions/validate/batch", `{"transactions": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Stats(t *testing.T) {
	router, _ := setupHandlerTestRouter()
	doJSON(t, router, http.MethodPost, "/v1/transactions/validate", validBody)

	w := doJSON(t, router, http.MethodGet, "/v1/transactions/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stats Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.TotalProcessed)
	assert.Equal(t, 1, resp.Stats.TotalTransactionsInHistory)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestService_ConcurrentValidate(t *testing.T) {
	svc := NewService(New(DefaultConfig()))
	before := counterValue(t, validationsTotal.WithLabelValues("approved"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx := validTx("C-" + string(rune('A'+i)))
			tx.UserID = "user-" + string(rune('A'+i))
			svc.Validate(context.Background(), tx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, svc.Stats().TotalProcessed)
	assert.Equal(t, before+20, counterValue(t, validationsTotal.WithLabelValues("approved")))
}

func TestService_Evict(t *testing.T) {
	svc := NewService(New(DefaultConfig()))
	ctx := context.Background()

	old := validTx("E-1")
	old.Timestamp = noon.Add(-48 * time.Hour)
	svc.Validate(ctx, old)
	svc.Validate(ctx, validTx("E-2"))

	before := counterValue(t, evictedTotal)
	removed := svc.Evict(ctx, noon, 24*time.Hour)

	// One pipeline entry and one scorer entry.
	assert.Equal(t, 2, removed)
	assert.Equal(t, before+2, counterValue(t, evictedTotal))
	assert.Equal(t, 1, svc.Stats().TotalTransactionsInHistory)
	assert.Equal(t, 2, svc.Stats().TotalProcessed)
}

func TestTimer_RunsEviction(t *testing.T) {
	svc := NewService(New(DefaultConfig()))
	old := validTx("T-1")
	old.Timestamp = time.Now().Add(-72 * time.Hour)
	svc.Validate(context.Background(), old)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	timer := NewTimer(svc, 10*time.Millisecond, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Start(ctx)

	assert.Eventually(t, func() bool {
		return svc.Stats().TotalTransactionsInHistory == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, timer.Running())

	cancel()
	assert.Eventually(t, func() bool { return !timer.Running() }, time.Second, 5*time.Millisecond)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "approved", outcome(&Result{IsValid: true, Errors: []ValidationError{}}))
	assert.Equal(t, "review", outcome(&Result{IsValid: true, FraudScore: 60}))
	assert.Equal(t, "rejected", outcome(&Result{Errors: []ValidationError{{Kind: InvalidAmount}}}))
}

package network

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTestRouter() (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)

	svc := NewService(NewAnalyzer(), DefaultMaxHops)
	handler := NewHandler(svc)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/v1"))
	return r, svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RecordSingleTransfer(t *testing.T) {
	router, svc := setupHandlerTestRouter()

	w := do(router, http.MethodPost, "/v1/network/transfers",
		`{"from":"A","to":"B","amount":"250.50","timestamp":"2026-04-14T09:00:00Z"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	stats, ok := svc.AccountStats(context.Background(), "B")
	require.True(t, ok)
	assert.Equal(t, "250.5", stats.TotalInflow.String())
}

func TestHandler_RecordTransferList(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	w := do(router, http.MethodPost, "/v1/network/transfers", `{"transfers":[
		{"from":"A","to":"B","amount":1000,"timestamp":"2026-04-14T09:00:00Z"},
		{"from":"B","to":"C","amount":1000,"timestamp":"2026-04-14T10:00:00Z"},
		{"from":"C","to":"A","amount":1000,"timestamp":"2026-04-14T11:00:00Z"}
	]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp["recorded"])

	w = do(router, http.MethodGet, "/v1/network/report", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Report struct {
			ID            string `json:"id"`
			CircularFlows []struct {
				Accounts []string `json:"accounts"`
			} `json:"circular_flows"`
			Stats struct {
				NodeCount int `json:"node_count"`
			} `json:"graph_stats"`
		} `json:"report"`
		Suspicious bool `json:"suspicious"`
		Count      int  `json:"suspiciousPatternCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Suspicious)
	assert.Equal(t, 3, report.Count)
	assert.Len(t, report.Report.CircularFlows, 3)
	assert.Equal(t, 3, report.Report.Stats.NodeCount)
	assert.Contains(t, report.Report.ID, "rpt_")

	w = do(router, http.MethodGet, "/v1/network/report?maxHops=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Empty(t, report.Report.CircularFlows)
}

func TestHandler_RecordTransfers_Invalid(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"from":`},
		{"missing to", `{"from":"A","amount":10}`},
		{"zero amount", `{"from":"A","to":"B","amount":0}`},
		{"negative in list", `{"transfers":[{"from":"A","to":"B","amount":-5}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/v1/network/transfers", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_request")
		})
	}
}

func TestHandler_Report_BadMaxHops(t *testing.T) {
	router, _ := setupHandlerTestRouter()

	for _, q := range []string{"abc", "0", "13"} {
		w := do(router, http.MethodGet, "/v1/network/report?maxHops="+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestHandler_GetAccount(t *testing.T) {
	router, svc := setupHandlerTestRouter()
	svc.Record(context.Background(), Transfer{From: "A", To: "B", Amount: d(75), Timestamp: t0})

	w := do(router, http.MethodGet, "/v1/network/accounts/A", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Account struct {
			AccountID    string `json:"account_id"`
			TotalOutflow string `json:"total_outflow"`
			Outgoing     int    `json:"outgoing_connections"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "A", resp.Account.AccountID)
	assert.Equal(t, "75", resp.Account.TotalOutflow)
	assert.Equal(t, 1, resp.Account.Outgoing)

	w = do(router, http.MethodGet, "/v1/network/accounts/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestService_DefaultsMaxHops(t *testing.T) {
	assert.Equal(t, DefaultMaxHops, NewService(NewAnalyzer(), 0).MaxHops())
	assert.Equal(t, 8, NewService(NewAnalyzer(), 8).MaxHops())
}

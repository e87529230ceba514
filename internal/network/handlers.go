package network

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxTransfersPerRequest = 10_000

// Handler provides HTTP endpoints for network analysis.
type Handler struct {
	service *Service
}

// NewHandler creates a new network handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up network routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/network/transfers", h.RecordTransfers)
	r.GET("/network/report", h.Report)
	r.GET("/network/accounts/:id", h.GetAccount)
}

// TransfersRequest accepts either a single transfer or a list.
type TransfersRequest struct {
	Transfer
	Transfers []Transfer `json:"transfers"`
}

// RecordTransfers handles POST /v1/network/transfers
func (h *Handler) RecordTransfers(c *gin.Context) {
	var req TransfersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	transfers := req.Transfers
	if len(transfers) == 0 {
		transfers = []Transfer{req.Transfer}
	}
	if len(transfers) > maxTransfersPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "too many transfers in one request",
		})
		return
	}
	for _, t := range transfers {
		if t.From == "" || t.To == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "from and to are required",
			})
			return
		}
		if !t.Amount.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "amount must be positive",
			})
			return
		}
	}

	h.service.Record(c.Request.Context(), transfers...)
	c.JSON(http.StatusAccepted, gin.H{"recorded": len(transfers)})
}

// Report handles GET /v1/network/report
func (h *Handler) Report(c *gin.Context) {
	maxHops := 0
	if raw := c.Query("maxHops"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "maxHops must be an integer between 1 and 12",
			})
			return
		}
		maxHops = n
	}

	report := h.service.Analyze(c.Request.Context(), maxHops)
	c.JSON(http.StatusOK, gin.H{
		"report":                 report,
		"suspicious":             report.HasSuspiciousActivity(),
		"suspiciousPatternCount": report.SuspiciousPatternCount(),
	})
}

// GetAccount handles GET /v1/network/accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	stats, ok := h.service.AccountStats(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "account not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": stats})
}

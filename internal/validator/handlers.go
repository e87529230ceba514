package validator

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/txguard/internal/transaction"
)

const maxBatchSize = 1000

// Handler provides HTTP endpoints for transaction validation.
type Handler struct {
	service *Service
}

// NewHandler creates a new validation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up validation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions/validate", h.Validate)
	r.POST("/transactions/validate/batch", h.ValidateBatch)
	r.GET("/transactions/stats", h.Stats)
}

// ValidateResponse wraps a Result with its derived predicates.
type ValidateResponse struct {
	Result       *Result `json:"result"`
	Approved     bool    `json:"approved"`
	RiskLevel    string  `json:"riskLevel"`
	ManualReview bool    `json:"manualReview"`
}

// BatchRequest is the body of POST /v1/transactions/validate/batch.
type BatchRequest struct {
	Transactions []*transaction.Transaction `json:"transactions"`
}

func newValidateResponse(r *Result) ValidateResponse {
	return ValidateResponse{
		Result:       r,
		Approved:     r.IsApproved(),
		RiskLevel:    r.RiskLevel(),
		ManualReview: r.RequiresManualReview(),
	}
}

// Validate handles POST /v1/transactions/validate
func (h *Handler) Validate(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if tx.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "transaction_id is required",
		})
		return
	}

	res := h.service.Validate(c.Request.Context(), &tx)
	c.JSON(http.StatusOK, newValidateResponse(res))
}

// ValidateBatch handles POST /v1/transactions/validate/batch
func (h *Handler) ValidateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if len(req.Transactions) == 0 || len(req.Transactions) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "transactions must contain between 1 and 1000 entries",
		})
		return
	}
	for _, tx := range req.Transactions {
		if tx == nil || tx.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "every transaction needs a transaction_id",
			})
			return
		}
	}

	results := h.service.ValidateBatch(c.Request.Context(), req.Transactions)
	out := make([]ValidateResponse, 0, len(results))
	for _, r := range results {
		out = append(out, newValidateResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"results": out,
		"count":   len(out),
	})
}

// Stats handles GET /v1/transactions/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.service.Stats()})
}

package screening

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/txguard/internal/sanctions"
)

const maxNamesPerRequest = 500

// Handler provides HTTP endpoints for screening.
type Handler struct {
	service *Service
}

// NewHandler creates a new screening handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up screening routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/screening/sanctions", h.ScreenSanctions)
	r.POST("/screening/sanctions/entities", h.AddEntity)
	r.POST("/screening/kyc", h.ValidateCustomer)
	r.GET("/screening/geo", h.GeoRisk)
	r.GET("/screening/geo/prohibited", h.Prohibited)
}

// SanctionsRequest screens a single name or a batch.
type SanctionsRequest struct {
	Name  string   `json:"name"`
	Names []string `json:"names"`
}

// AddEntityRequest lists a new party.
type AddEntityRequest struct {
	Name    string   `json:"name" binding:"required"`
	Aliases []string `json:"aliases"`
	List    string   `json:"list" binding:"required"`
}

// ScreenSanctions handles POST /v1/screening/sanctions
func (h *Handler) ScreenSanctions(c *gin.Context) {
	var req SanctionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if len(req.Names) > 0 {
		if len(req.Names) > maxNamesPerRequest {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "too many names in one request",
			})
			return
		}
		results := h.service.Screen(c.Request.Context(), req.Names...)
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "name or names is required",
		})
		return
	}
	results := h.service.Screen(c.Request.Context(), req.Name)
	c.JSON(http.StatusOK, gin.H{"result": results[0]})
}

// AddEntity handles POST /v1/screening/sanctions/entities
func (h *Handler) AddEntity(c *gin.Context) {
	var req AddEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	id := h.service.AddEntity(c.Request.Context(), req.Name, req.Aliases, sanctions.List(strings.ToUpper(req.List)))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ValidateCustomer handles POST /v1/screening/kyc
func (h *Handler) ValidateCustomer(c *gin.Context) {
	var customer map[string]any
	if err := c.ShouldBindJSON(&customer); err != nil || customer == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "body must be a JSON object",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": h.service.ValidateCustomer(c.Request.Context(), customer)})
}

// GeoRisk handles GET /v1/screening/geo
func (h *Handler) GeoRisk(c *gin.Context) {
	origin, destination := c.Query("origin"), c.Query("destination")
	if origin == "" || destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "origin and destination are required",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"risk": h.service.GeoRisk(c.Request.Context(), origin, destination)})
}

// Prohibited handles GET /v1/screening/geo/prohibited
func (h *Handler) Prohibited(c *gin.Context) {
	countries := h.service.ProhibitedCountries()
	c.JSON(http.StatusOK, gin.H{"countries": countries, "count": len(countries)})
}

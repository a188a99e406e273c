package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/sentiment-api/internal/usecase"
)

// HealthHandler handles health, readiness and service info endpoints
type HealthHandler struct {
	sentimentUC usecase.SentimentUsecase
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sentimentUC usecase.SentimentUsecase) *HealthHandler {
	return &HealthHandler{sentimentUC: sentimentUC}
}

// Health handles GET /health. It answers 200 even while the model is not
// loaded; the body tells whether predictions can be served.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentimentUC.Health(c.Request.Context()))
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.sentimentUC.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Info handles GET /
func (h *HealthHandler) Info(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.sentimentUC.Info(c.Request.Context()))
}

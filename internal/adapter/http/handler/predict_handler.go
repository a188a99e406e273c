package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/sentiment-api/internal/usecase"
)

// PredictHandler handles sentiment prediction requests
type PredictHandler struct {
	sentimentUC usecase.SentimentUsecase
}

// NewPredictHandler creates a new predict handler
func NewPredictHandler(sentimentUC usecase.SentimentUsecase) *PredictHandler {
	return &PredictHandler{sentimentUC: sentimentUC}
}

// Predict handles POST /predict
func (h *PredictHandler) Predict(c *gin.Context) {
	var input usecase.PredictInput
	if err := bindJSON(c, &input); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	output, err := h.sentimentUC.Predict(c.Request.Context(), &input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, output)
}

// PredictBatch handles POST /predict/batch
func (h *PredictHandler) PredictBatch(c *gin.Context) {
	var input usecase.PredictBatchInput
	if err := bindJSON(c, &input); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	output, err := h.sentimentUC.PredictBatch(c.Request.Context(), &input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, output)
}

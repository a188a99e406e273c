package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/sentiment-api/internal/usecase"
)

// Error codes returned in the error envelope
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeModelNotReady  = "MODEL_NOT_READY"
	CodeInferenceError = "INFERENCE_ERROR"
	CodeInternalError  = "INTERNAL_ERROR"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapUsecaseError maps usecase errors to HTTP error responses.
// Validation messages are passed through; other causes stay in the logs.
func MapUsecaseError(err error) ErrorResponse {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidRequest,
			Message:    err.Error(),
		}
	case errors.Is(err, usecase.ErrModelNotReady):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       CodeModelNotReady,
			Message:    "model not loaded",
		}
	case errors.Is(err, usecase.ErrInference):
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInferenceError,
			Message:    "prediction failed",
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInternalError,
			Message:    "internal server error",
		}
	}
}

// HandleUsecaseError handles a usecase error by sending an appropriate HTTP response.
func HandleUsecaseError(c *gin.Context, err error) {
	errResp := MapUsecaseError(err)
	_ = c.Error(err)
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}

// HandleInvalidRequest handles a generic invalid request error.
func HandleInvalidRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, CodeInvalidRequest, message)
}

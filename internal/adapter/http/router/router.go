package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/adapter/http/handler"
	"github.com/ressKim-io/sentiment-api/internal/adapter/http/middleware"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/metrics"
	"github.com/ressKim-io/sentiment-api/internal/usecase"
)

// Setup creates and configures the Gin router
func Setup(sentimentUC usecase.SentimentUsecase, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	handler.RegisterValidators()

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())
	if m != nil {
		router.Use(middleware.Metrics(m))
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Service info and health endpoints
	healthHandler := handler.NewHealthHandler(sentimentUC)
	router.GET("/", healthHandler.Info)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prediction routes
	predictHandler := handler.NewPredictHandler(sentimentUC)
	router.POST("/predict", predictHandler.Predict)
	router.POST("/predict/batch", predictHandler.PredictBatch)

	return router
}

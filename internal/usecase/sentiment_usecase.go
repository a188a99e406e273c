package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/metrics"
)

// Error definitions for sentiment usecase
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrModelNotReady  = errors.New("model not ready")
	ErrInference      = errors.New("inference failed")
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Prediction error codes recorded in metrics
const (
	errorCodeInvalid   = "invalid_request"
	errorCodeNotReady  = "model_not_ready"
	errorCodeInference = "inference_error"
)

// ServiceName is reported by Info
const ServiceName = "Sentiment Analysis API"

// PredictInput represents the input for a single prediction
type PredictInput struct {
	Text string `json:"text" binding:"required,notblank"`
}

// PredictBatchInput represents the input for a batch prediction
type PredictBatchInput struct {
	Texts []string `json:"texts" binding:"required,min=1,dive,notblank"`
}

// PredictOutput represents one prediction
type PredictOutput struct {
	Sentiment     string             `json:"sentiment"`
	Score         float64            `json:"score"`
	PositiveScore float64            `json:"positive_score"`
	NegativeScore float64            `json:"negative_score"`
	Scores        map[string]float64 `json:"scores"`
	Text          string             `json:"text"`
}

// PredictBatchOutput represents predictions in input order
type PredictBatchOutput struct {
	Predictions []*PredictOutput `json:"predictions"`
	Count       int              `json:"count"`
}

// HealthOutput represents the liveness view of the service
type HealthOutput struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	State       string `json:"state"`
	ModelID     string `json:"model_id"`
	Error       string `json:"error,omitempty"`
}

// InfoOutput describes the service and how to call it
type InfoOutput struct {
	Service        string            `json:"service"`
	Model          service.ModelInfo `json:"model"`
	Endpoints      map[string]string `json:"endpoints"`
	ExampleRequest map[string]any    `json:"example_request"`
}

// Options bounds the accepted input
type Options struct {
	MaxTextLength int
	MaxBatchSize  int
}

// SentimentUsecase defines the interface for sentiment business logic
type SentimentUsecase interface {
	Health(ctx context.Context) *HealthOutput
	Ready(ctx context.Context) error
	Info(ctx context.Context) *InfoOutput
	Predict(ctx context.Context, input *PredictInput) (*PredictOutput, error)
	PredictBatch(ctx context.Context, input *PredictBatchInput) (*PredictBatchOutput, error)
}

type sentimentUsecase struct {
	model   service.Model
	opts    Options
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewSentimentUsecase creates a new sentiment usecase. m may be nil.
func NewSentimentUsecase(model service.Model, opts Options, m *metrics.Metrics, log *zap.Logger) SentimentUsecase {
	return &sentimentUsecase{
		model:   model,
		opts:    opts,
		metrics: m,
		log:     log,
	}
}

func (u *sentimentUsecase) Health(_ context.Context) *HealthOutput {
	st := u.model.Status()

	out := &HealthOutput{
		Status:      StatusUnhealthy,
		ModelLoaded: st.Loaded,
		Device:      st.Info.Device,
		State:       string(st.State),
		ModelID:     st.Info.ID,
	}
	if st.State.AcceptsPredictions() {
		out.Status = StatusHealthy
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
	}
	return out
}

func (u *sentimentUsecase) Ready(_ context.Context) error {
	st := u.model.Status()
	if !st.State.AcceptsPredictions() {
		return fmt.Errorf("%w: model is %s", ErrModelNotReady, st.State)
	}
	return nil
}

func (u *sentimentUsecase) Info(_ context.Context) *InfoOutput {
	return &InfoOutput{
		Service: ServiceName,
		Model:   u.model.Status().Info,
		Endpoints: map[string]string{
			"GET /":               "Service information",
			"GET /health":         "Health check",
			"GET /ready":          "Readiness check",
			"GET /metrics":        "Prometheus metrics",
			"POST /predict":       "Classify the sentiment of one text",
			"POST /predict/batch": "Classify the sentiment of several texts",
		},
		ExampleRequest: map[string]any{
			"method": "POST",
			"url":    "/predict",
			"body":   map[string]string{"text": "I love this product!"},
		},
	}
}

func (u *sentimentUsecase) Predict(ctx context.Context, input *PredictInput) (*PredictOutput, error) {
	if input == nil {
		return nil, u.reject(fmt.Errorf("%w: text is required", ErrInvalidRequest))
	}
	text, err := u.validateText(input.Text)
	if err != nil {
		return nil, u.reject(err)
	}

	pipeline, err := u.pipeline()
	if err != nil {
		return nil, u.reject(err)
	}

	out, err := u.classify(ctx, pipeline, text)
	if err != nil {
		return nil, u.reject(err)
	}
	return out, nil
}

func (u *sentimentUsecase) PredictBatch(ctx context.Context, input *PredictBatchInput) (*PredictBatchOutput, error) {
	if input == nil || len(input.Texts) == 0 {
		return nil, u.reject(fmt.Errorf("%w: texts must not be empty", ErrInvalidRequest))
	}
	if len(input.Texts) > u.opts.MaxBatchSize {
		return nil, u.reject(fmt.Errorf("%w: at most %d texts per batch", ErrInvalidRequest, u.opts.MaxBatchSize))
	}

	texts := make([]string, len(input.Texts))
	for i, raw := range input.Texts {
		text, err := u.validateText(raw)
		if err != nil {
			return nil, u.reject(fmt.Errorf("texts[%d]: %w", i, err))
		}
		texts[i] = text
	}

	pipeline, err := u.pipeline()
	if err != nil {
		return nil, u.reject(err)
	}

	outputs := make([]*PredictOutput, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			out, err := u.classify(gctx, pipeline, text)
			if err != nil {
				return fmt.Errorf("texts[%d]: %w", i, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, u.reject(err)
	}

	return &PredictBatchOutput{
		Predictions: outputs,
		Count:       len(outputs),
	}, nil
}

func (u *sentimentUsecase) validateText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: text must not be empty", ErrInvalidRequest)
	}
	if n := utf8.RuneCountInString(text); n > u.opts.MaxTextLength {
		return "", fmt.Errorf("%w: text is %d characters, limit is %d", ErrInvalidRequest, n, u.opts.MaxTextLength)
	}
	return text, nil
}

func (u *sentimentUsecase) pipeline() (service.Pipeline, error) {
	pipeline, ok := u.model.Pipeline()
	if !ok {
		return nil, fmt.Errorf("%w: model is %s", ErrModelNotReady, u.model.Status().State)
	}
	return pipeline, nil
}

func (u *sentimentUsecase) classify(ctx context.Context, pipeline service.Pipeline, text string) (*PredictOutput, error) {
	start := time.Now()
	scores, err := pipeline.Predict(ctx, text)
	if err != nil {
		if errors.Is(err, service.ErrPipelineClosed) {
			return nil, fmt.Errorf("%w: %w", ErrModelNotReady, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		u.log.Error("Prediction failed", zap.Int("text_length", len(text)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	prediction, err := entity.NewPrediction(text, scores)
	if err != nil {
		u.log.Error("Model returned invalid scores", zap.Any("scores", scores), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	elapsed := time.Since(start)

	u.metrics.ObservePrediction(prediction.Label, elapsed)
	u.log.Info("Prediction",
		zap.String("sentiment", prediction.Label),
		zap.Float64("score", entity.Round4(prediction.Score)),
		zap.Duration("latency", elapsed),
	)
	return toPredictOutput(prediction), nil
}

// reject records err in metrics and returns it unchanged
func (u *sentimentUsecase) reject(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		u.metrics.ObservePredictionError(errorCodeInvalid)
	case errors.Is(err, ErrModelNotReady):
		u.metrics.ObservePredictionError(errorCodeNotReady)
	case errors.Is(err, ErrInference):
		u.metrics.ObservePredictionError(errorCodeInference)
	}
	return err
}

func toPredictOutput(p *entity.Prediction) *PredictOutput {
	out := &PredictOutput{
		Sentiment: p.Label,
		Score:     entity.Round4(p.Score),
		Scores: lo.SliceToMap(p.Scores, func(s entity.ClassScore) (string, float64) {
			return s.Label, entity.Round4(s.Score)
		}),
		Text: p.Text,
	}

	if p.IsBinarySentiment() {
		// complement keeps the rounded pair summing to 1
		out.PositiveScore = entity.Round4(p.ScoreFor(entity.SentimentPositive))
		out.NegativeScore = entity.Round4(1 - out.PositiveScore)
		out.Scores[entity.SentimentPositive] = out.PositiveScore
		out.Scores[entity.SentimentNegative] = out.NegativeScore
		out.Score = out.Scores[p.Label]
	} else {
		out.PositiveScore = entity.Round4(p.ScoreFor(entity.SentimentPositive))
		out.NegativeScore = entity.Round4(p.ScoreFor(entity.SentimentNegative))
	}
	return out
}

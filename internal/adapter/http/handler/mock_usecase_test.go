package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ressKim-io/sentiment-api/internal/usecase"
)

// MockSentimentUsecase is a mock implementation of SentimentUsecase
type MockSentimentUsecase struct {
	mock.Mock
}

func (m *MockSentimentUsecase) Health(ctx context.Context) *usecase.HealthOutput {
	args := m.Called(ctx)
	return args.Get(0).(*usecase.HealthOutput)
}

func (m *MockSentimentUsecase) Ready(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSentimentUsecase) Info(ctx context.Context) *usecase.InfoOutput {
	args := m.Called(ctx)
	return args.Get(0).(*usecase.InfoOutput)
}

func (m *MockSentimentUsecase) Predict(ctx context.Context, input *usecase.PredictInput) (*usecase.PredictOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PredictOutput), args.Error(1)
}

func (m *MockSentimentUsecase) PredictBatch(ctx context.Context, input *usecase.PredictBatchInput) (*usecase.PredictBatchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PredictBatchOutput), args.Error(1)
}

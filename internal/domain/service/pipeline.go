package service

import (
	"context"
	"errors"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
)

// Pipeline runs text through a loaded classification model
type Pipeline interface {
	// Predict returns the probability of every class the model knows, in model order
	Predict(ctx context.Context, text string) ([]entity.ClassScore, error)
}

// ModelInfo describes a loaded model
type ModelInfo struct {
	ID      string   `json:"id"`
	Backend string   `json:"backend"`
	Device  string   `json:"device"`
	Labels  []string `json:"labels"`
}

// ModelStatus is a point-in-time view of the model lifecycle
type ModelStatus struct {
	State  entity.ModelState
	Info   ModelInfo
	Loaded bool
	Err    error
}

// Model gives access to the process-wide model and its lifecycle
type Model interface {
	// Status returns the current lifecycle state
	Status() ModelStatus

	// Pipeline returns the pipeline if the model accepts predictions
	Pipeline() (Pipeline, bool)
}

// ErrPipelineClosed is returned by pipelines that no longer accept work
var ErrPipelineClosed = errors.New("pipeline closed")

package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
)

// ErrInvalidTransition is returned when the lifecycle forbids a state change
var ErrInvalidTransition = errors.New("invalid model state transition")

// ClosablePipeline is a pipeline owning resources released on Close
type ClosablePipeline interface {
	service.Pipeline
	Close()
	QueueDepth() int
}

// Slot holds the process-wide model and tracks its lifecycle:
// starting -> ready | failed, ready -> shutting_down.
type Slot struct {
	mu       sync.RWMutex
	state    entity.ModelState
	info     service.ModelInfo
	pipeline ClosablePipeline
	err      error
}

var _ service.Model = (*Slot)(nil)

// NewSlot creates a slot in the starting state. info is reported until the
// model itself is loaded.
func NewSlot(info service.ModelInfo) *Slot {
	return &Slot{
		state: entity.ModelStateStarting,
		info:  info,
	}
}

// Status returns the current lifecycle view
func (s *Slot) Status() service.ModelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return service.ModelStatus{
		State:  s.state,
		Info:   s.info,
		Loaded: s.pipeline != nil,
		Err:    s.err,
	}
}

// Pipeline returns the pipeline while the model is ready
func (s *Slot) Pipeline() (service.Pipeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.state.AcceptsPredictions() || s.pipeline == nil {
		return nil, false
	}
	return s.pipeline, true
}

// QueueDepth returns the number of predictions waiting for a worker
func (s *Slot) QueueDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pipeline == nil {
		return 0
	}
	return s.pipeline.QueueDepth()
}

// Ready publishes the loaded pipeline
func (s *Slot) Ready(p ClosablePipeline, info service.ModelInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanTransitionTo(entity.ModelStateReady) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, entity.ModelStateReady)
	}
	s.state = entity.ModelStateReady
	s.pipeline = p
	s.info = info
	return nil
}

// Fail records a load failure
func (s *Slot) Fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanTransitionTo(entity.ModelStateFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, entity.ModelStateFailed)
	}
	s.state = entity.ModelStateFailed
	s.err = err
	return nil
}

// BeginShutdown stops handing out the pipeline. Requests already holding it finish normally.
func (s *Slot) BeginShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CanTransitionTo(entity.ModelStateShuttingDown) {
		s.state = entity.ModelStateShuttingDown
	}
}

// Close shuts down and releases the pipeline, waiting for in-flight predictions
func (s *Slot) Close() {
	s.BeginShutdown()

	s.mu.Lock()
	p := s.pipeline
	s.mu.Unlock()

	if p != nil {
		p.Close()
	}
}

// Loaded reports whether a pipeline has been published
func (s *Slot) Loaded() bool {
	return s.Status().Loaded
}

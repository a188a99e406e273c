package model

import (
	"context"
	"fmt"

	"github.com/ressKim-io/sentiment-api/internal/domain/service"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/config"
)

// Loaded is a materialized model that can hand out independent pipelines
type Loaded struct {
	Info service.ModelInfo

	// NewPipeline builds a fresh pipeline; each worker calls it once
	NewPipeline func() (service.Pipeline, error)
}

// Source acquires a model by its identifier
type Source interface {
	// Name identifies the backend, e.g. "embedded"
	Name() string

	// Load fetches and materializes the model. It blocks until done or ctx ends.
	Load(ctx context.Context) (*Loaded, error)
}

// EmbeddedSource loads lexicon artifacts shipped with the binary or cached on disk
type EmbeddedSource struct {
	cfg *config.ModelConfig
}

var _ Source = (*EmbeddedSource)(nil)

// NewEmbeddedSource creates a source for cfg.ID
func NewEmbeddedSource(cfg *config.ModelConfig) *EmbeddedSource {
	return &EmbeddedSource{cfg: cfg}
}

// Name returns the backend name
func (s *EmbeddedSource) Name() string {
	return config.BackendEmbedded
}

// Load reads, verifies and parses the artifact
func (s *EmbeddedSource) Load(ctx context.Context) (*Loaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := ReadArtifact(s.cfg.ID, s.cfg.Path, s.cfg.SHA256)
	if err != nil {
		return nil, err
	}
	artifact, err := ParseArtifact(raw)
	if err != nil {
		return nil, err
	}
	if artifact.ModelID != s.cfg.ID {
		return nil, fmt.Errorf("%w: artifact is %q, want %q", ErrInvalidArtifact, artifact.ModelID, s.cfg.ID)
	}

	return &Loaded{
		Info: service.ModelInfo{
			ID:      artifact.ModelID,
			Backend: s.Name(),
			Device:  "cpu",
			Labels:  append([]string(nil), artifact.Labels...),
		},
		// Every worker gets its own decoded copy of the weights.
		NewPipeline: func() (service.Pipeline, error) {
			a, err := ParseArtifact(raw)
			if err != nil {
				return nil, err
			}
			return NewLexiconPipeline(a), nil
		},
	}, nil
}

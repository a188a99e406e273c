package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/config"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/model"
)

// Errors returned while attaching to the inference backend
var (
	ErrNotClassifier = errors.New("inference backend does not serve a classifier")
	ErrModelMismatch = errors.New("inference backend serves a different model")
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// RemotePipeline adapts InferenceClient to the Pipeline interface
type RemotePipeline struct {
	client *InferenceClient
	labels []string
}

var _ service.Pipeline = (*RemotePipeline)(nil)

// NewRemotePipeline creates a pipeline returning scores in the order of labels
func NewRemotePipeline(client *InferenceClient, labels []string) *RemotePipeline {
	return &RemotePipeline{client: client, labels: labels}
}

// Predict classifies text on the backend
func (p *RemotePipeline) Predict(ctx context.Context, text string) ([]entity.ClassScore, error) {
	resp, err := p.client.Predict(ctx, text)
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]float64, len(resp))
	for _, r := range resp {
		byLabel[r.Label] = r.Score
	}

	scores := make([]entity.ClassScore, len(p.labels))
	for i, label := range p.labels {
		s, ok := byLabel[label]
		if !ok {
			return nil, fmt.Errorf("inference backend omitted label %q", label)
		}
		scores[i] = entity.ClassScore{Label: label, Score: s}
	}
	return scores, nil
}

// RemoteSource attaches to a running inference backend
type RemoteSource struct {
	client *InferenceClient
	cfg    *config.ModelConfig
	log    *zap.Logger
}

var _ model.Source = (*RemoteSource)(nil)

// NewRemoteSource creates a source for the backend at cfg.BackendURL
func NewRemoteSource(client *InferenceClient, cfg *config.ModelConfig, log *zap.Logger) *RemoteSource {
	return &RemoteSource{client: client, cfg: cfg, log: log}
}

// Name returns the backend name
func (s *RemoteSource) Name() string {
	return config.BackendRemote
}

// Load waits for the backend to become healthy, then checks it serves cfg.ID
func (s *RemoteSource) Load(ctx context.Context) (*model.Loaded, error) {
	if err := s.waitHealthy(ctx); err != nil {
		return nil, err
	}

	info, err := s.client.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info.ModelType.Classifier == nil || len(info.ModelType.Classifier.ID2Label) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrNotClassifier, info.ModelID)
	}
	if s.cfg.ID != "" && info.ModelID != s.cfg.ID {
		return nil, fmt.Errorf("%w: want %q, got %q", ErrModelMismatch, s.cfg.ID, info.ModelID)
	}

	labels, err := orderedLabels(info.ModelType.Classifier.ID2Label)
	if err != nil {
		return nil, err
	}

	return &model.Loaded{
		Info: service.ModelInfo{
			ID:      info.ModelID,
			Backend: s.Name(),
			Device:  s.cfg.Device,
			Labels:  labels,
		},
		NewPipeline: func() (service.Pipeline, error) {
			return NewRemotePipeline(s.client, labels), nil
		},
	}, nil
}

func (s *RemoteSource) waitHealthy(ctx context.Context) error {
	delay := initialBackoff
	for attempt := 1; ; attempt++ {
		err := s.client.Health(ctx)
		if err == nil {
			return nil
		}
		s.log.Debug("Inference backend not ready", zap.Int("attempt", attempt), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("inference backend never became ready: %w", errors.Join(ctx.Err(), err))
		case <-timer.C:
		}

		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

// orderedLabels turns {"0": "NEGATIVE", "1": "POSITIVE"} into model order
func orderedLabels(id2label map[string]string) ([]string, error) {
	type entry struct {
		id    int
		label string
	}
	entries := make([]entry, 0, len(id2label))
	for k, v := range id2label {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad class id %q", ErrNotClassifier, k)
		}
		entries = append(entries, entry{id: id, label: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}
	return labels, nil
}

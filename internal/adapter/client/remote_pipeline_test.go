package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/config"
)

const sst2Info = `{
	"model_id": "distilbert-base-uncased-finetuned-sst-2-english",
	"model_type": {"classifier": {"id2label": {"1": "POSITIVE", "0": "NEGATIVE"}}}
}`

func newBackend(t *testing.T, unhealthyFor int32, info string) *httptest.Server {
	t.Helper()
	var healthCalls atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			if healthCalls.Add(1) <= unhealthyFor {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/info":
			_, _ = w.Write([]byte(info))
		case "/predict":
			_ = json.NewEncoder(w).Encode([]LabelScore{
				{Label: "POSITIVE", Score: 0.9991},
				{Label: "NEGATIVE", Score: 0.0009},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRemotePipeline_Predict(t *testing.T) {
	t.Run("returns scores in model order", func(t *testing.T) {
		server := newBackend(t, 0, sst2Info)
		defer server.Close()

		p := NewRemotePipeline(NewInferenceClient(server.URL, time.Second), []string{"NEGATIVE", "POSITIVE"})
		scores, err := p.Predict(context.Background(), "I love this product!")

		require.NoError(t, err)
		assert.Equal(t, []entity.ClassScore{
			{Label: "NEGATIVE", Score: 0.0009},
			{Label: "POSITIVE", Score: 0.9991},
		}, scores)
	})

	t.Run("missing label is an error", func(t *testing.T) {
		server := newBackend(t, 0, sst2Info)
		defer server.Close()

		p := NewRemotePipeline(NewInferenceClient(server.URL, time.Second), []string{"NEGATIVE", "NEUTRAL", "POSITIVE"})
		_, err := p.Predict(context.Background(), "text")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "NEUTRAL")
	})
}

func TestRemoteSource_Load(t *testing.T) {
	cfg := &config.ModelConfig{
		ID:     "distilbert-base-uncased-finetuned-sst-2-english",
		Device: "cuda",
	}

	t.Run("waits for backend then loads", func(t *testing.T) {
		server := newBackend(t, 2, sst2Info)
		defer server.Close()

		source := NewRemoteSource(NewInferenceClient(server.URL, time.Second), cfg, zap.NewNop())
		loaded, err := source.Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, cfg.ID, loaded.Info.ID)
		assert.Equal(t, "remote", loaded.Info.Backend)
		assert.Equal(t, "cuda", loaded.Info.Device)
		assert.Equal(t, []string{"NEGATIVE", "POSITIVE"}, loaded.Info.Labels)

		p, err := loaded.NewPipeline()
		require.NoError(t, err)
		scores, err := p.Predict(context.Background(), "great")
		require.NoError(t, err)
		assert.Len(t, scores, 2)
	})

	t.Run("gives up when context ends", func(t *testing.T) {
		server := newBackend(t, 1000, sst2Info)
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		source := NewRemoteSource(NewInferenceClient(server.URL, time.Second), cfg, zap.NewNop())
		_, err := source.Load(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "never became ready")
	})

	t.Run("rejects a different model", func(t *testing.T) {
		server := newBackend(t, 0, `{"model_id": "other", "model_type": {"classifier": {"id2label": {"0": "A", "1": "B"}}}}`)
		defer server.Close()

		source := NewRemoteSource(NewInferenceClient(server.URL, time.Second), cfg, zap.NewNop())
		_, err := source.Load(context.Background())

		assert.ErrorIs(t, err, ErrModelMismatch)
	})

	t.Run("rejects embedding models", func(t *testing.T) {
		server := newBackend(t, 0, `{"model_id": "distilbert-base-uncased-finetuned-sst-2-english", "model_type": {"embedding": {"pooling": "cls"}}}`)
		defer server.Close()

		source := NewRemoteSource(NewInferenceClient(server.URL, time.Second), cfg, zap.NewNop())
		_, err := source.Load(context.Background())

		assert.ErrorIs(t, err, ErrNotClassifier)
	})

	t.Run("empty id accepts any classifier", func(t *testing.T) {
		server := newBackend(t, 0, sst2Info)
		defer server.Close()

		anyCfg := &config.ModelConfig{Device: "cpu"}
		source := NewRemoteSource(NewInferenceClient(server.URL, time.Second), anyCfg, zap.NewNop())
		loaded, err := source.Load(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "distilbert-base-uncased-finetuned-sst-2-english", loaded.Info.ID)
	})
}

func TestOrderedLabels(t *testing.T) {
	labels, err := orderedLabels(map[string]string{"2": "positive", "0": "negative", "1": "neutral"})
	require.NoError(t, err)
	assert.Equal(t, []string{"negative", "neutral", "positive"}, labels)

	_, err = orderedLabels(map[string]string{"x": "negative"})
	assert.ErrorIs(t, err, ErrNotClassifier)
}

package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
)

type pipelineFunc func(ctx context.Context, text string) ([]entity.ClassScore, error)

func (f pipelineFunc) Predict(ctx context.Context, text string) ([]entity.ClassScore, error) {
	return f(ctx, text)
}

func echoPipeline(calls *atomic.Int64) pipelineFunc {
	return func(_ context.Context, text string) ([]entity.ClassScore, error) {
		calls.Add(1)
		return []entity.ClassScore{{Label: text, Score: 1}}, nil
	}
}

func pipelines(n int, p service.Pipeline) []service.Pipeline {
	out := make([]service.Pipeline, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func TestPool_Predict(t *testing.T) {
	var calls atomic.Int64
	pool := New(pipelines(2, echoPipeline(&calls)), 4, zap.NewNop())
	defer pool.Close()

	scores, err := pool.Predict(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "hello", scores[0].Label)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 2, pool.Size())
}

func TestPool_ConcurrentPredictions(t *testing.T) {
	var calls atomic.Int64
	pool := New(pipelines(4, echoPipeline(&calls)), 8, zap.NewNop())
	defer pool.Close()

	const n = 100
	var wg sync.WaitGroup
	got := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scores, err := pool.Predict(context.Background(), fmt.Sprintf("text-%d", i))
			errs[i] = err
			if err == nil {
				got[i] = scores[0].Label
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("text-%d", i), got[i])
	}
	assert.Equal(t, int64(n), calls.Load())
	assert.Equal(t, 0, pool.QueueDepth())
}

func TestPool_PanicRecovery(t *testing.T) {
	var calls atomic.Int64
	p := pipelineFunc(func(ctx context.Context, text string) ([]entity.ClassScore, error) {
		if text == "boom" {
			panic("tensor shape mismatch")
		}
		return echoPipeline(&calls)(ctx, text)
	})
	pool := New(pipelines(1, p), 1, zap.NewNop())
	defer pool.Close()

	_, err := pool.Predict(context.Background(), "boom")
	assert.ErrorIs(t, err, ErrWorkerPanic)
	assert.Contains(t, err.Error(), "tensor shape mismatch")

	// the single worker keeps serving
	scores, err := pool.Predict(context.Background(), "still alive")
	require.NoError(t, err)
	assert.Equal(t, "still alive", scores[0].Label)
}

func TestPool_PipelineError(t *testing.T) {
	wantErr := errors.New("out of memory")
	p := pipelineFunc(func(context.Context, string) ([]entity.ClassScore, error) {
		return nil, wantErr
	})
	pool := New(pipelines(1, p), 0, zap.NewNop())
	defer pool.Close()

	_, err := pool.Predict(context.Background(), "text")

	assert.ErrorIs(t, err, wantErr)
}

func TestPool_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := pipelineFunc(func(_ context.Context, text string) ([]entity.ClassScore, error) {
		started <- struct{}{}
		<-release
		return []entity.ClassScore{{Label: text, Score: 1}}, nil
	})
	pool := New(pipelines(1, p), 1, zap.NewNop())
	defer pool.Close()
	defer close(release)

	go func() { _, _ = pool.Predict(context.Background(), "slow") }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := pool.Predict(ctx, "queued")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_Close(t *testing.T) {
	t.Run("drains queued jobs", func(t *testing.T) {
		var calls atomic.Int64
		release := make(chan struct{})
		p := pipelineFunc(func(ctx context.Context, text string) ([]entity.ClassScore, error) {
			<-release
			return echoPipeline(&calls)(ctx, text)
		})
		pool := New(pipelines(1, p), 4, zap.NewNop())

		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := pool.Predict(context.Background(), "queued")
				assert.NoError(t, err)
			}()
		}

		require.Eventually(t, func() bool {
			return pool.QueueDepth() >= 2
		}, time.Second, 5*time.Millisecond)

		close(release)
		wg.Wait()
		pool.Close()

		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("rejects predictions after close", func(t *testing.T) {
		var calls atomic.Int64
		pool := New(pipelines(1, echoPipeline(&calls)), 1, zap.NewNop())
		pool.Close()
		pool.Close()

		_, err := pool.Predict(context.Background(), "late")

		assert.ErrorIs(t, err, service.ErrPipelineClosed)
		assert.Zero(t, calls.Load())
	})
}

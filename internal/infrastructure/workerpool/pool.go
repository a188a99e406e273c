package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/domain/entity"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
)

// ErrWorkerPanic is returned when a pipeline panics while serving a job
var ErrWorkerPanic = errors.New("worker panic")

type result struct {
	scores []entity.ClassScore
	err    error
}

type job struct {
	ctx    context.Context
	text   string
	result chan result
}

// Pool runs predictions on a fixed set of workers. Each worker owns its own
// pipeline; nothing is shared between workers.
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	size    int
	pending atomic.Int64
	log     *zap.Logger
}

var _ service.Pipeline = (*Pool)(nil)

// New starts one worker per pipeline. queueSize bounds how many jobs may wait
// for a free worker.
func New(pipelines []service.Pipeline, queueSize int, log *zap.Logger) *Pool {
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		jobs: make(chan job, queueSize),
		size: len(pipelines),
		log:  log,
	}

	for i, pipeline := range pipelines {
		p.wg.Add(1)
		go p.work(i, pipeline)
	}
	return p
}

// Predict hands text to the next free worker and waits for its result
func (p *Pool) Predict(ctx context.Context, text string) ([]entity.ClassScore, error) {
	j := job{ctx: ctx, text: text, result: make(chan result, 1)}

	if err := p.submit(ctx, j); err != nil {
		return nil, err
	}

	select {
	case r := <-j.result:
		return r.scores, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) submit(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return service.ErrPipelineClosed
	}

	p.pending.Add(1)
	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		p.pending.Add(-1)
		return ctx.Err()
	}
}

func (p *Pool) work(id int, pipeline service.Pipeline) {
	defer p.wg.Done()

	for j := range p.jobs {
		p.pending.Add(-1)

		if err := j.ctx.Err(); err != nil {
			j.result <- result{err: err}
			continue
		}

		scores, err := p.run(id, pipeline, j)
		j.result <- result{scores: scores, err: err}
	}
}

func (p *Pool) run(id int, pipeline service.Pipeline, j job) (scores []entity.ClassScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Pipeline panicked",
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			scores = nil
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()

	return pipeline.Predict(j.ctx, j.text)
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// QueueDepth returns the number of jobs waiting for a worker
func (p *Pool) QueueDepth() int {
	return int(p.pending.Load())
}

// Close stops accepting jobs, drains the queue and waits for the workers
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

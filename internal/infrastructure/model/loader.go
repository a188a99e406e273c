package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/domain/service"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/procstats"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/workerpool"
)

// ErrModelLoad wraps every failure to bring the model up. It is fatal for the process.
var ErrModelLoad = errors.New("model load failed")

// LoaderOptions configures how the loaded model is served
type LoaderOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Loader brings a model from a Source into a Slot
type Loader struct {
	source Source
	slot   *Slot
	opts   LoaderOptions
	log    *zap.Logger
}

// NewLoader creates a loader
func NewLoader(source Source, slot *Slot, opts LoaderOptions, log *zap.Logger) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Loader{
		source: source,
		slot:   slot,
		opts:   opts,
		log:    log.Named("loader"),
	}
}

// Load materializes the model, starts one worker per pipeline and marks the
// slot ready. On failure the slot is marked failed and an ErrModelLoad is returned.
func (l *Loader) Load(ctx context.Context) error {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	l.log.Info("Loading model", zap.String("backend", l.source.Name()), zap.Int("workers", l.opts.Workers))

	loaded, err := l.source.Load(ctx)
	if err != nil {
		return l.fail(err)
	}

	pipelines := make([]service.Pipeline, 0, l.opts.Workers)
	for i := 0; i < l.opts.Workers; i++ {
		p, err := loaded.NewPipeline()
		if err != nil {
			return l.fail(fmt.Errorf("worker %d: %w", i, err))
		}
		pipelines = append(pipelines, p)
	}

	pool := workerpool.New(pipelines, l.opts.QueueSize, l.log.Named("pool"))
	if err := l.slot.Ready(pool, loaded.Info); err != nil {
		pool.Close()
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	fields := []zap.Field{
		zap.String("model", loaded.Info.ID),
		zap.String("device", loaded.Info.Device),
		zap.Strings("labels", loaded.Info.Labels),
		zap.Int("workers", pool.Size()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if stats, err := procstats.Self(); err == nil {
		fields = append(fields, zap.Uint64("rss_bytes", stats.RSSBytes), zap.Uint64("vms_bytes", stats.VMSBytes), zap.Int32("threads", stats.NumThreads))
	}
	l.log.Info("Model loaded successfully", fields...)
	return nil
}

func (l *Loader) fail(cause error) error {
	err := fmt.Errorf("%w: %w", ErrModelLoad, cause)
	if ferr := l.slot.Fail(err); ferr != nil {
		l.log.Warn("Could not mark model as failed", zap.Error(ferr))
	}
	l.log.Error("Error loading model", zap.Error(cause))
	return err
}

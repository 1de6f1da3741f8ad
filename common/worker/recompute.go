package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/queue"
)

// TaskHandler processes one recompute task payload
type TaskHandler interface {
	HandleTask(ctx context.Context, key string, value []byte) error
}

// RecomputeOpts contains options for creating a RecomputeWorker
type RecomputeOpts struct {
	Queue   queue.Queue
	Handler TaskHandler
	Logger  *logger.Logger
	Topic   string // defaults to queue.TopicRollupRecompute

	// MaxAttempts bounds in-process retries of a failing task (default 3)
	MaxAttempts int
	RetryDelay  time.Duration // grows linearly per attempt (default 500ms)
}

// Validate checks if all required fields are present
func (opts *RecomputeOpts) Validate() error {
	if opts.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if opts.Handler == nil {
		return fmt.Errorf("handler is required")
	}
	return nil
}

// RecomputeWorker consumes rollup recompute tasks until its context ends
type RecomputeWorker struct {
	queue   queue.Queue
	handler TaskHandler
	log     *logger.Logger
	topic   string

	maxAttempts int
	retryDelay  time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

// NewRecomputeWorker creates a worker
func NewRecomputeWorker(opts *RecomputeOpts) (*RecomputeWorker, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker opts: %w", err)
	}

	topic := opts.Topic
	if topic == "" {
		topic = queue.TopicRollupRecompute
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	return &RecomputeWorker{
		queue:       opts.Queue,
		handler:     opts.Handler,
		log:         log,
		topic:       topic,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}, nil
}

// Start subscribes to the task topic. A failing task is retried up to
// MaxAttempts unless the failure is permanent. The final error goes back to
// the queue, which keeps it pending for redelivery where it can.
func (w *RecomputeWorker) Start(ctx context.Context) error {
	w.log.Info("recompute worker subscribing", "topic", w.topic, "max_attempts", w.maxAttempts)

	return w.queue.Subscribe(ctx, w.topic, func(ctx context.Context, key string, value []byte) error {
		if err := w.handle(ctx, key, value); err != nil {
			w.failed.Add(1)
			w.log.Error("recompute task failed", "location_id", key, "error", err)
			return err
		}
		w.processed.Add(1)
		return nil
	})
}

func (w *RecomputeWorker) handle(ctx context.Context, key string, value []byte) error {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = w.handler.HandleTask(ctx, key, value)
		if err == nil || errors.Is(err, queue.ErrPermanent) || attempt == w.maxAttempts {
			return err
		}

		w.log.Warn("recompute task attempt failed", "location_id", key, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * w.retryDelay):
		}
	}
	return err
}

// Run starts the worker and blocks until ctx is cancelled
func (w *RecomputeWorker) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	<-ctx.Done()

	w.log.Info("recompute worker stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load(),
	)
	return nil
}

// Stats returns processed and failed task counts
func (w *RecomputeWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}

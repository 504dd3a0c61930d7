package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge/internal/fault"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/video"
)

// JobProcessor executes one delivered job.
type JobProcessor interface {
	Process(ctx context.Context, d *queue.Delivery) error
}

// Pool runs a fixed set of consumers against the queue plus a janitor that
// purges records past their retention window.
type Pool struct {
	queue           queue.Queue
	processor       JobProcessor
	videos          *video.Service
	workers         int
	janitorInterval time.Duration
	logger          *slog.Logger
}

// NewPool creates a pool with the given concurrency. A non-positive worker
// count falls back to one.
func NewPool(q queue.Queue, processor JobProcessor, videos *video.Service, workers int, janitorInterval time.Duration, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if janitorInterval <= 0 {
		janitorInterval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		queue:           q,
		processor:       processor,
		videos:          videos,
		workers:         workers,
		janitorInterval: janitorInterval,
		logger:          logger,
	}
}

// Run blocks until ctx is cancelled. In-flight jobs finish their current
// attempt before the pool returns.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			return p.runWorker(ctx, worker)
		})
	}
	g.Go(func() error {
		return p.runJanitor(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (p *Pool) runWorker(ctx context.Context, id int) error {
	logger := p.logger.With(slog.Int("worker", id))
	logger.Info("worker started")

	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("worker stopped")
				return nil
			}
			logger.Error("dequeue failed", slog.String("error", err.Error()))
			continue
		}

		p.handle(ctx, d, logger)
	}
}

func (p *Pool) handle(ctx context.Context, d *queue.Delivery, logger *slog.Logger) {
	err := p.processor.Process(ctx, d)
	if err == nil {
		if ackErr := p.queue.Ack(ctx, d); ackErr != nil {
			logger.Error("ack failed",
				slog.String("video_id", d.Job.VideoID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	// A shutdown mid-job is not a processing failure. Leave the lease in
	// place so expiry redelivers the job with its attempt count intact.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("job interrupted by shutdown, leaving lease for redelivery",
			slog.String("video_id", d.Job.VideoID),
		)
		return
	}

	requeued, nackErr := p.queue.Nack(ctx, d, err.Error(), fault.Retryable(err))
	if nackErr != nil {
		logger.Error("nack failed",
			slog.String("video_id", d.Job.VideoID),
			slog.String("error", nackErr.Error()),
		)
		return
	}
	if requeued {
		logger.Warn("job requeued for retry",
			slog.String("video_id", d.Job.VideoID),
			slog.Int("attempt", d.Attempt),
		)
	} else {
		logger.Error("job moved to dead set",
			slog.String("video_id", d.Job.VideoID),
			slog.Int("attempt", d.Attempt),
		)
	}
}

func (p *Pool) runJanitor(ctx context.Context) error {
	ticker := time.NewTicker(p.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			purged, err := p.videos.PurgeExpired(ctx, time.Now())
			if err != nil {
				p.logger.Error("retention sweep failed", slog.String("error", err.Error()))
				continue
			}
			if purged > 0 {
				p.logger.Info("retention sweep removed records", slog.Int("purged", purged))
			}
		}
	}
}

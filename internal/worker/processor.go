// Package worker runs the processing pipeline: it consumes queued jobs and
// drives each one through acquisition, probing, clip selection, transcoding,
// publishing, metadata generation and credit settlement.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipforge/clipforge/internal/ai"
	"github.com/clipforge/clipforge/internal/clip"
	"github.com/clipforge/clipforge/internal/credit"
	"github.com/clipforge/clipforge/internal/fault"
	"github.com/clipforge/clipforge/internal/media"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/video"
)

// SourceAcquirer materializes the job's source as a local file.
type SourceAcquirer interface {
	Acquire(ctx context.Context, job queue.Job) (localPath string, temporary bool, err error)
}

// Prober inspects a local media file.
type Prober interface {
	Probe(ctx context.Context, localPath string) (*media.ProbeResult, error)
}

// ClipSelector determines the extraction window.
type ClipSelector interface {
	Select(ctx context.Context, localPath string, sourceDuration float64, startTime, endTime *float64, platform video.Platform) (clip.Window, error)
}

// Transcoder extracts and re-encodes the selected window.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string, window clip.Window, platform video.Platform, outputPath string) error
}

// Publisher uploads a finished artifact and returns its remote URL.
type Publisher interface {
	Publish(ctx context.Context, localPath, videoID string) (string, error)
}

// MetadataGenerator produces the descriptive block for a processed clip.
type MetadataGenerator interface {
	GenerateMetadata(ctx context.Context, outputPath string, platform video.Platform) (ai.Metadata, error)
}

// Processor executes one job end to end and records the outcome on the
// video record.
type Processor struct {
	repo       video.Repository
	credits    credit.Store
	acquirer   SourceAcquirer
	prober     Prober
	selector   ClipSelector
	transcoder Transcoder
	publisher  Publisher
	metadata   MetadataGenerator
	workDir    string
	logger     *slog.Logger
	now        func() time.Time
}

// NewProcessor wires the pipeline stages.
func NewProcessor(
	repo video.Repository,
	credits credit.Store,
	acquirer SourceAcquirer,
	prober Prober,
	selector ClipSelector,
	transcoder Transcoder,
	publisher Publisher,
	metadata MetadataGenerator,
	workDir string,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:       repo,
		credits:    credits,
		acquirer:   acquirer,
		prober:     prober,
		selector:   selector,
		transcoder: transcoder,
		publisher:  publisher,
		metadata:   metadata,
		workDir:    workDir,
		logger:     logger,
		now:        time.Now,
	}
}

// Process runs one delivered job. On success the record is completed and a
// credit is settled; on any failure the record is marked failed with the
// error message and the error is returned so the queue can decide whether
// to retry.
func (p *Processor) Process(ctx context.Context, d *queue.Delivery) (err error) {
	job := d.Job
	logger := p.logger.With(
		slog.String("video_id", job.VideoID),
		slog.String("user_id", job.UserID),
		slog.Int("attempt", d.Attempt),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fault.Errorf(fault.CodeInternal, "panic while processing: %v", r)
		}
		if err != nil {
			p.recordFailure(ctx, job.VideoID, err, logger)
		}
	}()

	v, err := p.repo.FindByID(ctx, job.VideoID)
	if err != nil {
		return fault.Errorf(fault.CodeInternal, "load video record: %v", err)
	}
	if err := v.MarkProcessing(p.now()); err != nil {
		return fault.Errorf(fault.CodeInternal, "mark processing: %v", err)
	}
	if err := p.repo.Save(ctx, v); err != nil {
		return fault.Errorf(fault.CodeInternal, "save video record: %v", err)
	}

	logger.Info("processing started", slog.String("platform", string(job.Platform)))

	localPath, temporary, err := p.acquirer.Acquire(ctx, job)
	if err != nil {
		return err
	}
	if temporary {
		defer p.removeFile(localPath, logger)
	}

	probe, err := p.prober.Probe(ctx, localPath)
	if err != nil {
		return err
	}

	window, err := p.selector.Select(ctx, localPath, probe.DurationSeconds, job.StartTime, job.EndTime, job.Platform)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(p.workDir, fmt.Sprintf("%s_processed.mp4", job.VideoID))
	defer p.removeFile(outputPath, logger)

	if err := p.transcoder.Transcode(ctx, localPath, window, job.Platform, outputPath); err != nil {
		return err
	}

	remoteURL, err := p.publisher.Publish(ctx, outputPath, job.VideoID)
	if err != nil {
		return err
	}

	meta, err := p.metadata.GenerateMetadata(ctx, outputPath, job.Platform)
	if err != nil {
		return fault.Wrap(fault.CodeInternal, err)
	}

	v.Metadata.Title = meta.Title
	v.Metadata.Description = meta.Description
	v.Metadata.Hashtags = meta.Hashtags
	if err := v.MarkCompleted(p.now(), remoteURL, window.Start, window.End); err != nil {
		return fault.Errorf(fault.CodeInternal, "mark completed: %v", err)
	}
	if err := p.repo.Save(ctx, v); err != nil {
		return fault.Errorf(fault.CodeInternal, "save completed record: %v", err)
	}

	p.settleCredit(ctx, job, logger)

	logger.Info("processing completed",
		slog.Float64("clip_start", window.Start),
		slog.Float64("clip_end", window.End),
		slog.String("processed_url", remoteURL),
	)
	return nil
}

// settleCredit debits one credit after the record is durably completed. A
// settlement failure never fails the job; the clip is already delivered.
func (p *Processor) settleCredit(ctx context.Context, job queue.Job, logger *slog.Logger) {
	desc := fmt.Sprintf("Video processing for %s", job.Platform)
	entry, err := p.credits.Consume(ctx, job.UserID, job.VideoID, desc)
	if err != nil {
		logger.Error("credit settlement failed", slog.String("error", err.Error()))
		return
	}
	if entry == nil {
		logger.Info("credit settlement skipped")
		return
	}
	logger.Info("credit consumed", slog.Int64("balance_after", entry.BalanceAfter))
}

// recordFailure marks the record failed with the error message. Each failed
// attempt is visible as a failed record until a redelivery re-enters
// processing.
func (p *Processor) recordFailure(ctx context.Context, videoID string, procErr error, logger *slog.Logger) {
	v, err := p.repo.FindByID(ctx, videoID)
	if err != nil {
		logger.Error("failed to load record after processing error", slog.String("error", err.Error()))
		return
	}
	if err := v.MarkFailed(p.now(), procErr.Error()); err != nil {
		logger.Error("failed to mark record failed", slog.String("error", err.Error()))
		return
	}
	if err := p.repo.Save(ctx, v); err != nil {
		logger.Error("failed to save failed record", slog.String("error", err.Error()))
		return
	}
	logger.Error("processing failed",
		slog.String("code", string(fault.CodeOf(procErr))),
		slog.Bool("retryable", fault.Retryable(procErr)),
		slog.String("error", procErr.Error()),
	)
}

func (p *Processor) removeFile(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove work file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// Package bootstrap provides dependency initialization for the worker.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/clipforge/clipforge/internal/ai"
	"github.com/clipforge/clipforge/internal/clip"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/media"
	"github.com/clipforge/clipforge/internal/publish"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/source"
	"github.com/clipforge/clipforge/internal/store/sqlite"
	"github.com/clipforge/clipforge/internal/video"
	"github.com/clipforge/clipforge/internal/worker"
)

// Dependencies holds all initialized dependencies for the worker process.
type Dependencies struct {
	Queue        queue.Queue
	Enqueue      *queue.Service
	Pool         *worker.Pool
	VideoService *video.Service
	Store        *sqlite.Store
	RedisClient  *redis.Client
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	if d.RedisClient != nil {
		_ = d.RedisClient.Close()
	}
	return d.Store.Close()
}

// NewDependencies creates and initializes all dependencies for the worker.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	q, redisClient, err := initQueue(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	aiClient, err := ai.NewClient(cfg.AIBaseURL, ai.WithAPIKey(cfg.AIAPIKey))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create AI client: %w", err)
	}

	publisher, err := publish.NewS3Publisher(ctx, publish.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create S3 publisher: %w", err)
	}

	acquirer := source.NewAcquirer(cfg.YtDlpPath, cfg.FFmpegPath, cfg.WorkDir, logger)
	prober := media.NewProber(cfg.FFprobePath)
	transcoder := media.NewTranscoder(cfg.FFmpegPath)
	selector := clip.NewSelector(aiClient, logger)

	if !prober.Available() || !transcoder.Available() {
		logger.Warn("ffmpeg tools not found on PATH, processing will fail",
			slog.String("ffmpeg", cfg.FFmpegPath),
			slog.String("ffprobe", cfg.FFprobePath),
		)
	}

	repo := store.Videos()
	credits := store.Credits()

	processor := worker.NewProcessor(
		repo,
		credits,
		acquirer,
		prober,
		selector,
		transcoder,
		publisher,
		aiClient,
		cfg.WorkDir,
		logger,
	)

	videoService := video.NewService(repo, publisher, logger)
	pool := worker.NewPool(q, processor, videoService, cfg.Workers, cfg.JanitorInterval, logger)
	enqueue := queue.NewService(q, repo, logger)

	return &Dependencies{
		Queue:        q,
		Enqueue:      enqueue,
		Pool:         pool,
		VideoService: videoService,
		Store:        store,
		RedisClient:  redisClient,
	}, nil
}

// initQueue creates the appropriate queue backend based on configuration.
func initQueue(cfg *config.Config, logger *slog.Logger) (queue.Queue, *redis.Client, error) {
	opts := queue.Options{
		MaxAttempts:   cfg.MaxAttempts,
		BaseBackoff:   cfg.BaseBackoff,
		Lease:         cfg.Lease,
		KeepCompleted: cfg.KeepCompleted,
		KeepFailed:    cfg.KeepFailed,
	}

	if cfg.RedisEnabled() {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Info("redis queue configured",
			slog.String("addr", cfg.RedisAddr),
			slog.String("queue", cfg.QueueName),
		)
		return queue.NewRedisQueue(client, cfg.QueueName, opts, logger), client, nil
	}

	logger.Info("in-memory queue configured", slog.String("queue", cfg.QueueName))
	return queue.NewMemoryQueue(opts), nil, nil
}

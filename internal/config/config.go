// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrAIBaseURLRequired is returned when AI_BASE_URL is not set.
	ErrAIBaseURLRequired = errors.New("config: AI_BASE_URL is required")
	// ErrS3BucketRequired is returned when S3_BUCKET is not set.
	ErrS3BucketRequired = errors.New("config: S3_BUCKET is required")
)

// Config holds all configuration for the worker.
type Config struct {
	// Queue settings
	RedisAddr     string        `env:"REDIS_ADDR" json:"redis_addr,omitempty"` // Empty runs the in-memory queue
	QueueName     string        `env:"QUEUE_NAME, default=video-processing" json:"queue_name"`
	MaxAttempts   int           `env:"QUEUE_MAX_ATTEMPTS, default=3" json:"queue_max_attempts"`
	BaseBackoff   time.Duration `env:"QUEUE_BASE_BACKOFF, default=2s" json:"queue_base_backoff"`
	Lease         time.Duration `env:"QUEUE_LEASE, default=2m" json:"queue_lease"`
	KeepCompleted int           `env:"QUEUE_KEEP_COMPLETED, default=10" json:"queue_keep_completed"`
	KeepFailed    int           `env:"QUEUE_KEEP_FAILED, default=5" json:"queue_keep_failed"`

	// Processing settings
	Workers         int           `env:"WORKERS, default=3" json:"workers"`
	WorkDir         string        `env:"WORK_DIR, default=/tmp/clipforge" json:"work_dir"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL, default=1h" json:"janitor_interval"`

	// Tool paths
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	YtDlpPath   string `env:"YTDLP_PATH, default=yt-dlp" json:"ytdlp_path"`

	// Storage settings
	DBPath string `env:"DB_PATH, default=clipforge.db" json:"db_path"`

	// AI service settings
	AIBaseURL string `env:"AI_BASE_URL" json:"ai_base_url"`
	AIAPIKey  string `env:"AI_API_KEY" json:"-"` // Masked in JSON

	// S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket"`
	S3Region           string `env:"S3_REGION, default=us-east-1" json:"s3_region"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// RedisEnabled returns true if a Redis-backed queue is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.AIBaseURL == "" {
		return ErrAIBaseURLRequired
	}
	if c.S3Bucket == "" {
		return ErrS3BucketRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{RedisAddr: %s, QueueName: %s, Workers: %d, WorkDir: %s, DBPath: %s, AIBaseURL: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.RedisAddr,
		c.QueueName,
		c.Workers,
		c.WorkDir,
		c.DBPath,
		c.AIBaseURL,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

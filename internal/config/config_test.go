package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredVariables(t *testing.T) {
	// Clear all environment variables
	clearEnv := func() {
		os.Unsetenv("REDIS_ADDR")
		os.Unsetenv("QUEUE_NAME")
		os.Unsetenv("WORKERS")
		os.Unsetenv("WORK_DIR")
		os.Unsetenv("DB_PATH")
		os.Unsetenv("AI_BASE_URL")
		os.Unsetenv("AI_API_KEY")
		os.Unsetenv("S3_BUCKET")
		os.Unsetenv("S3_REGION")
		os.Unsetenv("AWS_ACCESS_KEY_ID")
		os.Unsetenv("AWS_SECRET_ACCESS_KEY")
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("LOG_LEVEL")
	}

	t.Run("missing AI_BASE_URL returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("S3_BUCKET", "test-bucket")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAIBaseURLRequired)
	})

	t.Run("missing S3_BUCKET returns error", func(t *testing.T) {
		clearEnv()
		t.Setenv("AI_BASE_URL", "https://ai.example.com")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrS3BucketRequired)
	})

	t.Run("all required variables present succeeds", func(t *testing.T) {
		clearEnv()
		t.Setenv("AI_BASE_URL", "https://ai.example.com")
		t.Setenv("S3_BUCKET", "test-bucket")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://ai.example.com", cfg.AIBaseURL)
		assert.Equal(t, "test-bucket", cfg.S3Bucket)
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AI_BASE_URL", "https://ai.example.com")
	t.Setenv("S3_BUCKET", "test-bucket")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "video-processing", cfg.QueueName)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.BaseBackoff)
	assert.Equal(t, 2*time.Minute, cfg.Lease)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "/tmp/clipforge", cfg.WorkDir)
	assert.Equal(t, time.Hour, cfg.JanitorInterval)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "yt-dlp", cfg.YtDlpPath)
	assert.Equal(t, "clipforge.db", cfg.DBPath)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("AI_BASE_URL", "https://ai.example.com")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("QUEUE_NAME", "clips")
	t.Setenv("QUEUE_BASE_BACKOFF", "5s")
	t.Setenv("WORKERS", "8")
	t.Setenv("WORK_DIR", "/custom/work")
	t.Setenv("DB_PATH", "/data/clips.db")
	t.Setenv("S3_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "clips", cfg.QueueName)
	assert.Equal(t, 5*time.Second, cfg.BaseBackoff)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/custom/work", cfg.WorkDir)
	assert.Equal(t, "/data/clips.db", cfg.DBPath)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidIntegerDefaults(t *testing.T) {
	t.Setenv("AI_BASE_URL", "https://ai.example.com")
	t.Setenv("S3_BUCKET", "test-bucket")
	t.Setenv("WORKERS", "not-a-number")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_RedisEnabled(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected bool
	}{
		{"addr set", "localhost:6379", true},
		{"addr empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{RedisAddr: tt.addr}
			assert.Equal(t, tt.expected, cfg.RedisEnabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		RedisAddr: "localhost:6379",
		QueueName: "clips",
		Workers:   4,
		WorkDir:   "/tmp/test",
		DBPath:    "clips.db",
		AIBaseURL: "https://ai.example.com",
		AIAPIKey:  "secret-key",
		S3Bucket:  "bucket",
		S3Region:  "region",
		LogFormat: "json",
		LogLevel:  "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "localhost:6379")
	assert.Contains(t, str, "clips")
	assert.Contains(t, str, "/tmp/test")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	// Just verify it returns a valid logger
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

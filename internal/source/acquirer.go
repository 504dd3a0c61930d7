// Package source resolves a job's input into a local media file: streaming
// site URLs go through yt-dlp at the highest available quality, generic
// URLs are fetched and remuxed with ffmpeg, and pre-uploaded file paths are
// used in place.
package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clipforge/clipforge/internal/fault"
	"github.com/clipforge/clipforge/internal/queue"
)

// streamingHosts are the sites handled by the specialized extractor.
var streamingHosts = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"instagram.com",
	"vimeo.com",
	"twitter.com",
	"x.com",
}

// isStreamingURL reports whether rawURL points at a supported streaming
// site.
func isStreamingURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range streamingHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Acquirer fetches job inputs to local files under workDir.
type Acquirer struct {
	ytdlpPath  string
	ffmpegPath string
	workDir    string
	logger     *slog.Logger
}

// NewAcquirer creates an Acquirer writing into workDir. Empty binary paths
// default to "yt-dlp" and "ffmpeg" (found via PATH).
func NewAcquirer(ytdlpPath, ffmpegPath, workDir string, logger *slog.Logger) *Acquirer {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
		workDir:    workDir,
		logger:     logger,
	}
}

// Acquire resolves the job's input to a local path. temporary reports
// whether the file was created by this call and is owned by the current
// processing attempt. Fetch failures are SourceUnavailable and eligible
// for retry.
func (a *Acquirer) Acquire(ctx context.Context, job queue.Job) (localPath string, temporary bool, err error) {
	if job.FilePath != "" {
		return job.FilePath, false, nil
	}

	outputPath := filepath.Join(a.workDir, job.VideoID+"_source.mp4")
	if isStreamingURL(job.SourceURL) {
		err = a.downloadWithYtDlp(ctx, job.SourceURL, outputPath)
	} else {
		err = a.fetchWithFfmpeg(ctx, job.SourceURL, outputPath)
	}
	if err != nil {
		return "", false, err
	}

	a.logger.Debug("source acquired",
		slog.String("video_id", job.VideoID),
		slog.String("path", outputPath),
	)
	return outputPath, true, nil
}

// downloadWithYtDlp fetches the highest-available-quality stream.
func (a *Acquirer) downloadWithYtDlp(ctx context.Context, rawURL, outputPath string) error {
	// #nosec G204 - binary path is set by the application, not user input
	cmd := exec.CommandContext(ctx, a.ytdlpPath,
		"-f", "bestvideo*+bestaudio/best",
		"--merge-output-format", "mp4",
		"--no-warnings",
		"-o", outputPath,
		rawURL,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("yt-dlp cancelled: %w", ctx.Err())
		}
		return fault.Errorf(fault.CodeSourceUnavailable,
			"yt-dlp failed for %s: %v, stderr: %s", rawURL, err, stderr.String())
	}
	return nil
}

// fetchWithFfmpeg pulls a generic URL into a local mp4 container.
func (a *Acquirer) fetchWithFfmpeg(ctx context.Context, rawURL, outputPath string) error {
	// #nosec G204 - binary path is set by the application, not user input
	cmd := exec.CommandContext(ctx, a.ffmpegPath,
		"-y",
		"-i", rawURL,
		"-c", "copy",
		"-f", "mp4",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return fault.Errorf(fault.CodeSourceUnavailable,
			"fetch failed for %s: %v, stderr: %s", rawURL, err, stderr.String())
	}
	return nil
}

// Available reports whether the extractor binaries can be found.
func (a *Acquirer) Available() bool {
	if _, err := exec.LookPath(a.ytdlpPath); err != nil {
		return false
	}
	if _, err := exec.LookPath(a.ffmpegPath); err != nil {
		return false
	}
	return true
}

package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/clipforge/clipforge/internal/clip"
	"github.com/clipforge/clipforge/internal/fault"
	"github.com/clipforge/clipforge/internal/video"
)

// Transcoder produces platform-formatted clips using the ffmpeg CLI with a
// fixed libx264/aac codec pair.
type Transcoder struct {
	ffmpegPath string
}

// NewTranscoder creates a Transcoder. If ffmpegPath is empty, it defaults
// to "ffmpeg" (found via PATH).
func NewTranscoder(ffmpegPath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{ffmpegPath: ffmpegPath}
}

// Available reports whether the ffmpeg binary can be found.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.ffmpegPath)
	return err == nil
}

// Transcode seeks to the window start, encodes exactly the window duration,
// and applies platform framing: 1080x1920 (9:16) for tiktok/reels,
// 1920x1080 (16:9) for youtube, source framing otherwise. Encoder failures
// are TranscodeFailed and eligible for retry.
func (t *Transcoder) Transcode(ctx context.Context, inputPath string, window clip.Window, platform video.Platform, outputPath string) error {
	args := buildTranscodeArgs(inputPath, window, platform, outputPath)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return fault.Wrap(fault.CodeTranscodeFailed, &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		})
	}
	return nil
}

func buildTranscodeArgs(inputPath string, window clip.Window, platform video.Platform, outputPath string) []string {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", window.Start),
		"-i", inputPath,
		"-t", fmt.Sprintf("%.3f", window.Duration()),
		"-c:v", "libx264",
		"-c:a", "aac",
	}

	switch platform {
	case video.PlatformTikTok, video.PlatformReels:
		args = append(args, "-s", "1080x1920", "-aspect", "9:16")
	case video.PlatformYouTube:
		args = append(args, "-s", "1920x1080", "-aspect", "16:9")
	}

	return append(args, "-f", "mp4", outputPath)
}

// FFmpegError represents an error from running ffmpeg, including the
// stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

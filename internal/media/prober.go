// Package media extracts container metadata and produces platform-formatted
// clips using the ffmpeg/ffprobe CLIs.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/clipforge/clipforge/internal/fault"
)

// ErrNoDuration is returned when the container reports no usable duration.
var ErrNoDuration = errors.New("media: container reports no duration")

// Stream describes one stream inside a probed container.
type Stream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// ProbeResult is the container metadata of a local media file.
type ProbeResult struct {
	DurationSeconds float64
	FormatName      string
	Streams         []Stream
}

// HasVideo reports whether the container carries at least one video stream.
func (r *ProbeResult) HasVideo() bool {
	for _, s := range r.Streams {
		if s.CodecType == "video" {
			return true
		}
	}
	return false
}

// Prober extracts metadata with the ffprobe CLI. Probe failures are
// InvalidMedia: a property of the input, never retried.
type Prober struct {
	ffprobePath string
}

// NewProber creates a Prober. If ffprobePath is empty, it defaults to
// "ffprobe" (found via PATH).
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Available reports whether the ffprobe binary can be found.
func (p *Prober) Available() bool {
	_, err := exec.LookPath(p.ffprobePath)
	return err == nil
}

// Probe extracts duration and stream metadata from a local file.
func (p *Prober) Probe(ctx context.Context, localPath string) (*ProbeResult, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		localPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, fault.Errorf(fault.CodeInvalidMedia,
			"ffprobe failed: %v, stderr: %s", err, stderr.String())
	}

	result, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return nil, fault.Wrap(fault.CodeInvalidMedia, err)
	}
	return result, nil
}

// probeOutput mirrors the ffprobe JSON document.
type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []Stream `json:"streams"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return nil, ErrNoDuration
	}
	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	return &ProbeResult{
		DurationSeconds: duration,
		FormatName:      out.Format.FormatName,
		Streams:         out.Streams,
	}, nil
}

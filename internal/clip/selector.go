// Package clip decides the start/end window extracted from a source video,
// from explicit user bounds or the AI heuristic, subject to per-platform
// duration ceilings.
package clip

import (
	"context"
	"log/slog"

	"github.com/clipforge/clipforge/internal/fault"
	"github.com/clipforge/clipforge/internal/video"
)

// maxDurations is the per-platform output ceiling in seconds. Uniform today
// but keyed by platform so the policy can diverge later.
var maxDurations = map[video.Platform]float64{
	video.PlatformTikTok:  60,
	video.PlatformYouTube: 60,
	video.PlatformReels:   60,
	video.PlatformCustom:  60,
}

const defaultMaxDuration = 60

// MaxDuration returns the output duration ceiling for a platform.
func MaxDuration(p video.Platform) float64 {
	if d, ok := maxDurations[p]; ok {
		return d
	}
	return defaultMaxDuration
}

// Window is the selected extraction window in seconds from the start of the
// source.
type Window struct {
	Start float64
	End   float64
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Finder picks the best clip window inside a source file. Its output is
// authoritative when the user gave no explicit bounds.
type Finder interface {
	FindBestClip(ctx context.Context, localPath string, maxDuration float64) (start, end float64, err error)
}

// Selector applies the clip-selection rules.
type Selector struct {
	finder Finder
	logger *slog.Logger
}

// NewSelector creates a selector backed by the given AI heuristic.
func NewSelector(finder Finder, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{finder: finder, logger: logger}
}

// Select determines the extraction window. With no explicit bounds the AI
// heuristic picks the window, clamped to the platform ceiling. An explicit
// start without an end runs to min(sourceDuration, start+ceiling). A window
// with non-positive duration is an InvalidClipBounds failure.
func (s *Selector) Select(ctx context.Context, localPath string, sourceDuration float64, startTime, endTime *float64, platform video.Platform) (Window, error) {
	maxDur := MaxDuration(platform)

	if startTime == nil && endTime == nil {
		start, end, err := s.finder.FindBestClip(ctx, localPath, maxDur)
		if err != nil {
			return Window{}, fault.Wrap(fault.CodeInternal, err)
		}
		if end > start+maxDur {
			end = start + maxDur
		}
		w := Window{Start: start, End: end}
		if w.Duration() <= 0 {
			return Window{}, fault.Errorf(fault.CodeInvalidClipBounds,
				"ai heuristic returned empty window [%g, %g]", start, end)
		}
		s.logger.Debug("ai clip window selected",
			slog.Float64("start", w.Start),
			slog.Float64("end", w.End),
		)
		return w, nil
	}

	var start float64
	if startTime != nil {
		start = *startTime
	}
	end := min(sourceDuration, start+maxDur)
	if endTime != nil {
		end = *endTime
	}

	w := Window{Start: start, End: end}
	if w.Duration() <= 0 {
		return Window{}, fault.Errorf(fault.CodeInvalidClipBounds,
			"clip window [%g, %g] has non-positive duration", start, end)
	}
	return w, nil
}

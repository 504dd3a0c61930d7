package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/clip"
	"github.com/clipforge/clipforge/internal/fault"
	"github.com/clipforge/clipforge/internal/video"
)

// skipIfNoFFmpeg skips the test if ffmpeg/ffprobe are not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestVideo creates a short solid-color test video using ffmpeg.
func createTestVideo(t *testing.T, path string, duration float64) {
	t.Helper()
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=64x64:d=%.1f", duration),
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=44100:cl=mono:d=%.1f", duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
			{"codec_type": "audio", "codec_name": "aac"}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "123.456000"}
	}`)

	result, err := parseProbeOutput(data)
	require.NoError(t, err)

	assert.InDelta(t, 123.456, result.DurationSeconds, 1e-6)
	assert.True(t, result.HasVideo())
	require.Len(t, result.Streams, 2)
	assert.Equal(t, 1920, result.Streams[0].Width)
}

func TestParseProbeOutput_MissingDuration(t *testing.T) {
	_, err := parseProbeOutput([]byte(`{"streams": [], "format": {"format_name": "mp3"}}`))
	assert.ErrorIs(t, err, ErrNoDuration)
}

func TestParseProbeOutput_Garbage(t *testing.T) {
	_, err := parseProbeOutput([]byte("not json"))
	assert.Error(t, err)
}

func TestProbe_InvalidFileIsInvalidMedia(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "garbage.mp4")
	require.NoError(t, os.WriteFile(path, []byte("this is not a video"), 0o600))

	p := NewProber("")
	_, err := p.Probe(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, fault.CodeInvalidMedia, fault.CodeOf(err))
	assert.False(t, fault.Retryable(err))
}

func TestProbe_RealVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "source.mp4")
	createTestVideo(t, path, 2.0)

	p := NewProber("")
	result, err := p.Probe(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.DurationSeconds, 0.5)
	assert.True(t, result.HasVideo())
}

func TestBuildTranscodeArgs_PlatformFraming(t *testing.T) {
	w := clip.Window{Start: 10, End: 40}

	tests := []struct {
		platform video.Platform
		size     string
		aspect   string
	}{
		{video.PlatformTikTok, "1080x1920", "9:16"},
		{video.PlatformReels, "1080x1920", "9:16"},
		{video.PlatformYouTube, "1920x1080", "16:9"},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			args := buildTranscodeArgs("in.mp4", w, tt.platform, "out.mp4")
			joined := strings.Join(args, " ")

			assert.Contains(t, joined, "-ss 10.000")
			assert.Contains(t, joined, "-t 30.000")
			assert.Contains(t, joined, "-c:v libx264")
			assert.Contains(t, joined, "-c:a aac")
			assert.Contains(t, joined, "-s "+tt.size)
			assert.Contains(t, joined, "-aspect "+tt.aspect)
			assert.Equal(t, "out.mp4", args[len(args)-1])
		})
	}
}

func TestBuildTranscodeArgs_CustomKeepsSourceFraming(t *testing.T) {
	args := buildTranscodeArgs("in.mp4", clip.Window{Start: 0, End: 5}, video.PlatformCustom, "out.mp4")
	joined := strings.Join(args, " ")

	assert.NotContains(t, joined, "-s ")
	assert.NotContains(t, joined, "-aspect")
}

func TestTranscode_RealClip(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	out := filepath.Join(dir, "out.mp4")
	createTestVideo(t, src, 3.0)

	tr := NewTranscoder("")
	err := tr.Transcode(context.Background(), src, clip.Window{Start: 1, End: 2}, video.PlatformCustom, out)
	require.NoError(t, err)

	p := NewProber("")
	result, err := p.Probe(context.Background(), out)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.DurationSeconds, 0.5)
}

func TestTranscode_MissingInputIsTranscodeFailed(t *testing.T) {
	skipIfNoFFmpeg(t)

	tr := NewTranscoder("")
	err := tr.Transcode(context.Background(), "/nonexistent/in.mp4", clip.Window{Start: 0, End: 5}, video.PlatformTikTok, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Equal(t, fault.CodeTranscodeFailed, fault.CodeOf(err))
	assert.True(t, fault.Retryable(err))

	var ffErr *FFmpegError
	require.ErrorAs(t, err, &ffErr)
	assert.NotEmpty(t, ffErr.Stderr)
}

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/video"
)

func TestIsStreamingURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc123", true},
		{"https://youtu.be/abc123", true},
		{"https://m.youtube.com/watch?v=abc123", true},
		{"https://www.tiktok.com/@user/video/123", true},
		{"https://vimeo.com/123456", true},
		{"https://x.com/user/status/1", true},
		{"https://example.com/video.mp4", false},
		{"https://cdn.acme.net/assets/clip.mov", false},
		{"https://notyoutube.com/watch?v=abc", false},
		{"://broken", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, isStreamingURL(tt.url))
		})
	}
}

func TestAcquire_UploadedFilePassthrough(t *testing.T) {
	a := NewAcquirer("", "", t.TempDir(), nil)

	job := queue.Job{
		VideoID:  "vid-1",
		UserID:   "user-1",
		Platform: video.PlatformTikTok,
		FilePath: "/uploads/vid-1.mov",
	}

	path, temporary, err := a.Acquire(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/vid-1.mov", path, "uploaded files are used in place, no copy")
	assert.False(t, temporary, "pre-uploaded files are not owned by the attempt")
}

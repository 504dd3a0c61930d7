package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	v := New("vid-1", "user-1", PlatformTikTok)

	assert.Equal(t, StatusQueued, v.Status)
	assert.Equal(t, "user-1", v.UserID)
	assert.WithinDuration(t, time.Now().Add(DefaultRetention), v.ExpiresAt, time.Second)
	assert.False(t, v.IsTerminal())
}

func TestPlatform_IsValid(t *testing.T) {
	for _, p := range []Platform{PlatformTikTok, PlatformYouTube, PlatformReels, PlatformCustom} {
		assert.True(t, p.IsValid(), string(p))
	}
	assert.False(t, Platform("twitch").IsValid())
}

func TestVideo_Lifecycle(t *testing.T) {
	v := New("vid-1", "user-1", PlatformYouTube)

	start := time.Now()
	require.NoError(t, v.MarkProcessing(start))
	assert.Equal(t, StatusProcessing, v.Status)
	assert.Equal(t, start, v.Processing.StartedAt)

	end := start.Add(3 * time.Second)
	require.NoError(t, v.MarkCompleted(end, "https://bucket.s3.eu-west-1.amazonaws.com/videos/vid-1.mp4", 10, 50))

	assert.Equal(t, StatusCompleted, v.Status)
	assert.InDelta(t, 40.0, v.Duration, 1e-9)
	assert.Equal(t, 10.0, v.Processing.ClipStart)
	assert.Equal(t, 50.0, v.Processing.ClipEnd)
	assert.True(t, v.Processing.EndedAt.After(v.Processing.StartedAt))
	assert.True(t, v.IsTerminal())
}

func TestVideo_MarkFailed(t *testing.T) {
	v := New("vid-1", "user-1", PlatformReels)

	require.NoError(t, v.MarkProcessing(time.Now()))
	require.NoError(t, v.MarkFailed(time.Now(), "TranscodeFailed: encoder exited 1"))

	assert.Equal(t, StatusFailed, v.Status)
	assert.Equal(t, "TranscodeFailed: encoder exited 1", v.Processing.ErrorMessage)
	assert.False(t, v.Processing.EndedAt.IsZero())
}

func TestVideo_InvalidTransitions(t *testing.T) {
	v := New("vid-1", "user-1", PlatformTikTok)

	// Cannot complete or fail without processing first.
	assert.ErrorIs(t, v.MarkCompleted(time.Now(), "url", 0, 10), ErrInvalidTransition)
	assert.ErrorIs(t, v.MarkFailed(time.Now(), "boom"), ErrInvalidTransition)
}

func TestVideo_AbandonedLeaseReentersProcessing(t *testing.T) {
	v := New("vid-1", "user-1", PlatformTikTok)

	// A worker crash leaves the record in processing; redelivery of the
	// expired lease must be able to start over.
	require.NoError(t, v.MarkProcessing(time.Now()))
	v.Processing.ErrorMessage = "stale"

	require.NoError(t, v.MarkProcessing(time.Now()))
	assert.Equal(t, StatusProcessing, v.Status)
	assert.Empty(t, v.Processing.ErrorMessage)

	require.NoError(t, v.MarkCompleted(time.Now(), "url", 0, 30))
}

func TestVideo_RedeliveryReentersProcessing(t *testing.T) {
	v := New("vid-1", "user-1", PlatformTikTok)

	require.NoError(t, v.MarkProcessing(time.Now()))
	require.NoError(t, v.MarkFailed(time.Now(), "SourceUnavailable: timeout"))

	// A redelivered job reprocesses from scratch.
	require.NoError(t, v.MarkProcessing(time.Now()))
	assert.Equal(t, StatusProcessing, v.Status)
	assert.Empty(t, v.Processing.ErrorMessage)

	require.NoError(t, v.MarkCompleted(time.Now(), "url", 0, 30))
	require.NoError(t, v.MarkProcessing(time.Now()))
}

func TestVideo_Expired(t *testing.T) {
	v := New("vid-1", "user-1", PlatformCustom)

	assert.False(t, v.Expired(time.Now()))
	assert.True(t, v.Expired(time.Now().Add(DefaultRetention+time.Minute)))
}

func TestVideo_Clone(t *testing.T) {
	v := New("vid-1", "user-1", PlatformTikTok)
	v.Metadata.Hashtags = []string{"#clip", "#shorts"}

	c := v.Clone()
	c.Metadata.Hashtags[0] = "#changed"
	c.Status = StatusFailed

	assert.Equal(t, "#clip", v.Metadata.Hashtags[0])
	assert.Equal(t, StatusQueued, v.Status)
}

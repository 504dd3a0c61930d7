package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/video"
)

func TestNewClient_MissingBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrBaseURLRequired)
}

func TestFindBestClip(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/clips/best", r.URL.Path)

		var req bestClipRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/tmp/source.mp4", req.Path)
		assert.Equal(t, 60.0, req.MaxDuration)

		_ = json.NewEncoder(w).Encode(bestClipResponse{Start: 12.5, End: 58})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithAPIKey("test-key"))
	require.NoError(t, err)

	start, end, err := client.FindBestClip(context.Background(), "/tmp/source.mp4", 60)
	require.NoError(t, err)
	assert.Equal(t, 12.5, start)
	assert.Equal(t, 58.0, end)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestGenerateMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/metadata", r.URL.Path)

		var req metadataRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tiktok", req.Platform)

		_ = json.NewEncoder(w).Encode(metadataResponse{Metadata: Metadata{
			Title:       "Sunset timelapse",
			Description: "Golden hour over the bay",
			Hashtags:    []string{"#sunset", "#timelapse"},
		}})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithAPIKey("test-key"))
	require.NoError(t, err)

	meta, err := client.GenerateMetadata(context.Background(), "/tmp/out.mp4", video.PlatformTikTok)
	require.NoError(t, err)
	assert.Equal(t, "Sunset timelapse", meta.Title)
	assert.Len(t, meta.Hashtags, 2)
}

func TestGenerateMetadata_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(metadataResponse{Error: "model overloaded"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = client.GenerateMetadata(context.Background(), "/tmp/out.mp4", video.PlatformReels)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestDoRequestWithRetry_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(bestClipResponse{Start: 0, End: 30})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL,
		WithAPIKey("test-key"),
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	require.NoError(t, err)

	start, end, err := client.FindBestClip(context.Background(), "/tmp/source.mp4", 60)
	require.NoError(t, err)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 30.0, end)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoRequestWithRetry_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL,
		WithAPIKey("test-key"),
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	require.NoError(t, err)

	_, _, err = client.FindBestClip(context.Background(), "/tmp/source.mp4", 60)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, int32(1), calls.Load())
}

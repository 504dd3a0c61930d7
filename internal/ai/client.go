// Package ai provides the client for the clip-heuristic and metadata
// generation service consumed by the processing pipeline.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/clipforge/clipforge/internal/video"
)

// Static errors for AI client operations.
var (
	// ErrBaseURLRequired is returned when the base URL is not provided.
	ErrBaseURLRequired = errors.New("ai: base URL is required")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("ai: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("ai: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx
	// status code.
	ErrRequestFailed = errors.New("ai: request failed")
)

// Metadata is the generated descriptive block for a processed clip.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Hashtags    []string `json:"hashtags"`
}

// Client defines the AI collaborator contract.
type Client interface {
	// FindBestClip picks the best maxDuration-bounded window inside the
	// source file.
	FindBestClip(ctx context.Context, localPath string, maxDuration float64) (start, end float64, err error)

	// GenerateMetadata produces title, description and hashtags for a
	// processed clip.
	GenerateMetadata(ctx context.Context, outputPath string, platform video.Platform) (Metadata, error)
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new AI HTTP client. The API key can be set via the
// WithAPIKey option; if not provided it is read from AI_API_KEY.
func NewClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxRetries:  2,
		baseBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		c.apiKey = os.Getenv("AI_API_KEY")
	}

	return c, nil
}

type bestClipRequest struct {
	Path        string  `json:"path"`
	MaxDuration float64 `json:"maxDuration"`
}

type bestClipResponse struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Error string  `json:"error,omitempty"`
}

// FindBestClip picks the best maxDuration-bounded window inside the source.
func (c *HTTPClient) FindBestClip(ctx context.Context, localPath string, maxDuration float64) (float64, float64, error) {
	body, err := json.Marshal(bestClipRequest{Path: localPath, MaxDuration: maxDuration})
	if err != nil {
		return 0, 0, fmt.Errorf("ai: marshal request: %w", err)
	}

	var resp bestClipResponse
	if err := c.doRequestWithRetry(ctx, c.baseURL+"/v1/clips/best", body, &resp); err != nil {
		return 0, 0, err
	}
	if resp.Error != "" {
		return 0, 0, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}
	return resp.Start, resp.End, nil
}

type metadataRequest struct {
	Path     string `json:"path"`
	Platform string `json:"platform"`
}

type metadataResponse struct {
	Metadata
	Error string `json:"error,omitempty"`
}

// GenerateMetadata produces descriptive metadata for a processed clip.
func (c *HTTPClient) GenerateMetadata(ctx context.Context, outputPath string, platform video.Platform) (Metadata, error) {
	body, err := json.Marshal(metadataRequest{Path: outputPath, Platform: string(platform)})
	if err != nil {
		return Metadata{}, fmt.Errorf("ai: marshal request: %w", err)
	}

	var resp metadataResponse
	if err := c.doRequestWithRetry(ctx, c.baseURL+"/v1/metadata", body, &resp); err != nil {
		return Metadata{}, err
	}
	if resp.Error != "" {
		return Metadata{}, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}
	return resp.Metadata, nil
}

// doRequestWithRetry performs a POST with exponential backoff retry on
// transient failures.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, url string, body []byte, result any) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("ai: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := c.doRequest(ctx, url, body, result)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("ai: max retries exceeded: %w", lastErr)
}

// doRequest performs a single POST request.
func (c *HTTPClient) doRequest(ctx context.Context, url string, body []byte, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ai: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrServerError, resp.StatusCode, respBody)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, respBody)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("ai: decode response: %w", err)
	}
	return nil
}

// isRetryable reports whether an error is worth a client-level retry.
func isRetryable(err error) bool {
	return errors.Is(err, ErrServerError) || errors.Is(err, ErrRateLimited)
}

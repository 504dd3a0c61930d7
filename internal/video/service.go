package video

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNotCompleted is returned when a download URL is requested for a record
// that has no published artifact yet.
var ErrNotCompleted = errors.New("video is not completed")

// ArtifactStore is the subset of the publisher the service needs to manage
// published artifacts alongside records.
type ArtifactStore interface {
	// Presign produces a time-limited retrieval URL for a published artifact.
	Presign(ctx context.Context, remoteURL string) (string, error)
	// Remove deletes a published artifact.
	Remove(ctx context.Context, remoteURL string) error
}

// Service is the read/delete surface over video records consumed by the API
// layer. Records are only visible to their owner.
type Service struct {
	repo      Repository
	artifacts ArtifactStore
	logger    *slog.Logger
}

// NewService creates a new video service.
func NewService(repo Repository, artifacts ArtifactStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, artifacts: artifacts, logger: logger}
}

// Status returns the record for videoID if it is owned by userID.
// Ownership mismatches are indistinguishable from missing records.
func (s *Service) Status(ctx context.Context, videoID, userID string) (*Video, error) {
	v, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, ErrNotFound
	}
	return v, nil
}

// DownloadURL returns a time-limited retrieval URL for a completed record.
func (s *Service) DownloadURL(ctx context.Context, videoID, userID string) (string, error) {
	v, err := s.Status(ctx, videoID, userID)
	if err != nil {
		return "", err
	}
	if v.Status != StatusCompleted || v.ProcessedURL == "" {
		return "", ErrNotCompleted
	}
	return s.artifacts.Presign(ctx, v.ProcessedURL)
}

// Delete removes the record and best-effort deletes its published artifact.
// Artifact removal failures are logged and never block record deletion.
func (s *Service) Delete(ctx context.Context, videoID, userID string) error {
	v, err := s.Status(ctx, videoID, userID)
	if err != nil {
		return err
	}
	s.removeArtifact(ctx, v)
	return s.repo.Delete(ctx, videoID)
}

// PurgeExpired deletes all records past their retention window and returns
// how many were removed.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, v := range expired {
		s.removeArtifact(ctx, v)
		if err := s.repo.Delete(ctx, v.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return purged, err
		}
		purged++
	}
	return purged, nil
}

func (s *Service) removeArtifact(ctx context.Context, v *Video) {
	if v.ProcessedURL == "" {
		return
	}
	if err := s.artifacts.Remove(ctx, v.ProcessedURL); err != nil {
		s.logger.Warn("failed to remove published artifact",
			slog.String("video_id", v.ID),
			slog.String("url", v.ProcessedURL),
			slog.String("error", err.Error()),
		)
	}
}

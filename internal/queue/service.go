package queue

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/video"
)

// Request describes a processing request from the API layer.
type Request struct {
	// VideoID is generated when empty.
	VideoID   string
	UserID    string
	Platform  video.Platform
	SourceURL string
	FilePath  string
	StartTime *float64
	EndTime   *float64
	// OriginalFilename and FileSize describe an uploaded source file.
	OriginalFilename string
	FileSize         int64
}

// Service creates the video record and queues the processing job on behalf
// of the API layer.
type Service struct {
	queue  Queue
	videos video.Repository
	logger *slog.Logger
}

// NewService creates a new enqueue service.
func NewService(q Queue, videos video.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{queue: q, videos: videos, logger: logger}
}

// Enqueue validates the request, persists the record in queued status with
// the retention stamp, and pushes the job.
func (s *Service) Enqueue(ctx context.Context, req Request) (*video.Video, error) {
	id := req.VideoID
	if id == "" {
		id = uuid.NewString()
	}

	job := Job{
		VideoID:   id,
		UserID:    req.UserID,
		Platform:  req.Platform,
		SourceURL: req.SourceURL,
		FilePath:  req.FilePath,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	v := video.New(id, req.UserID, req.Platform)
	v.SourceURL = req.SourceURL
	v.FilePath = req.FilePath
	v.Metadata.OriginalFilename = req.OriginalFilename
	v.Metadata.FileSize = req.FileSize
	if req.SourceURL != "" {
		v.Metadata.CreatedFrom = video.OriginLink
	} else {
		v.Metadata.CreatedFrom = video.OriginUpload
	}

	if err := s.videos.Save(ctx, v); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// A queued record with no job behind it would sit until expiry.
		if delErr := s.videos.Delete(ctx, id); delErr != nil {
			s.logger.Error("failed to remove record after enqueue failure",
				slog.String("video_id", id),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("video processing job queued",
		slog.String("video_id", id),
		slog.String("user_id", req.UserID),
		slog.String("platform", string(req.Platform)),
	)
	return v, nil
}

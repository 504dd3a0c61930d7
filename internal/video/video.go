// Package video provides the VideoRecord aggregate for tracking processed
// clips. It includes the status state machine driven by the worker, as well
// as repository interfaces for persistence.
package video

import (
	"errors"
	"time"
)

// Platform is the short-form target platform for a processed clip.
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformYouTube Platform = "youtube"
	PlatformReels   Platform = "reels"
	PlatformCustom  Platform = "custom"
)

// IsValid returns true if the platform is known.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformTikTok, PlatformYouTube, PlatformReels, PlatformCustom:
		return true
	}
	return false
}

// Origin records how the source video entered the system.
type Origin string

const (
	OriginLink   Origin = "link"
	OriginUpload Origin = "upload"
	OriginAI     Origin = "ai"
)

// Status represents the current state of a VideoRecord.
type Status string

const (
	// StatusQueued indicates the job is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusProcessing indicates a worker owns the record.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates the artifact was published and metadata
	// attached. Terminal for a single run.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the run ended with an error. Terminal for a
	// single run.
	StatusFailed Status = "failed"
)

// ErrInvalidTransition is returned when an invalid state transition is
// attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which status transitions are allowed.
// Redelivery of a leased-but-unacknowledged job reprocesses from scratch,
// so both terminal states may re-enter processing. A record stuck in
// processing after a worker crash re-enters processing the same way when
// the lease expires and the job is redelivered.
var validTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusProcessing, StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusProcessing},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DefaultRetention is how long a record is kept before it becomes eligible
// for automatic removal, independent of status.
const DefaultRetention = 7 * 24 * time.Hour

// Metadata is the descriptive block attached to a record.
type Metadata struct {
	Title            string
	Description      string
	Hashtags         []string
	CreatedFrom      Origin
	OriginalFilename string
	FileSize         int64
}

// ProcessingDetails captures the lifecycle of the most recent run.
type ProcessingDetails struct {
	StartedAt    time.Time
	EndedAt      time.Time
	ErrorMessage string
	ClipStart    float64
	ClipEnd      float64
}

// Video is a processed-clip record, keyed by ID and owned by exactly one
// user. It is mutated only by the worker while a job is leased.
type Video struct {
	ID           string
	UserID       string
	Platform     Platform
	Status       Status
	SourceURL    string
	FilePath     string
	ProcessedURL string
	// Duration is the length in seconds of the processed clip.
	Duration   float64
	Metadata   Metadata
	Processing ProcessingDetails
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New creates a queued record with the default retention window.
func New(id, userID string, platform Platform) *Video {
	now := time.Now()
	return &Video{
		ID:        id,
		UserID:    userID,
		Platform:  platform,
		Status:    StatusQueued,
		ExpiresAt: now.Add(DefaultRetention),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing transitions the record into processing and stamps the run
// start time. A redelivered job clears the previous run's details.
func (v *Video) MarkProcessing(now time.Time) error {
	if !canTransition(v.Status, StatusProcessing) {
		return ErrInvalidTransition
	}
	v.Status = StatusProcessing
	v.Processing = ProcessingDetails{StartedAt: now}
	v.UpdatedAt = now
	return nil
}

// MarkCompleted writes the processed location, duration and clip bounds
// together with the terminal status.
func (v *Video) MarkCompleted(now time.Time, processedURL string, clipStart, clipEnd float64) error {
	if !canTransition(v.Status, StatusCompleted) {
		return ErrInvalidTransition
	}
	v.Status = StatusCompleted
	v.ProcessedURL = processedURL
	v.Duration = clipEnd - clipStart
	v.Processing.EndedAt = now
	v.Processing.ErrorMessage = ""
	v.Processing.ClipStart = clipStart
	v.Processing.ClipEnd = clipEnd
	v.UpdatedAt = now
	return nil
}

// MarkFailed records the error message verbatim with the terminal status.
func (v *Video) MarkFailed(now time.Time, errMsg string) error {
	if !canTransition(v.Status, StatusFailed) {
		return ErrInvalidTransition
	}
	v.Status = StatusFailed
	v.Processing.EndedAt = now
	v.Processing.ErrorMessage = errMsg
	v.UpdatedAt = now
	return nil
}

// IsTerminal returns true if the record reached a terminal status.
func (v *Video) IsTerminal() bool {
	return v.Status == StatusCompleted || v.Status == StatusFailed
}

// Expired reports whether the record is past its retention window.
func (v *Video) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Clone creates a deep copy of the record for safe reads.
func (v *Video) Clone() *Video {
	c := *v
	c.Metadata.Hashtags = append([]string(nil), v.Metadata.Hashtags...)
	return &c
}

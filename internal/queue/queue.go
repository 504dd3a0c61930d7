// Package queue provides durable, at-least-once delivery of video
// processing jobs with lease-based redelivery, exponential-backoff retry
// and a dead set for jobs that exhausted their attempts.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clipforge/clipforge/internal/video"
)

// Job is the immutable message describing one processing request. Exactly
// one of SourceURL or FilePath is set.
type Job struct {
	VideoID   string         `json:"videoId" validate:"required"`
	UserID    string         `json:"userId" validate:"required"`
	Platform  video.Platform `json:"platform" validate:"required"`
	SourceURL string         `json:"sourceUrl,omitempty" validate:"required_without=FilePath,omitempty,url"`
	FilePath  string         `json:"filePath,omitempty" validate:"required_without=SourceURL"`
	StartTime *float64       `json:"startTime,omitempty" validate:"omitempty,gte=0"`
	EndTime   *float64       `json:"endTime,omitempty" validate:"omitempty,gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidPlatform is returned when the job names an unknown platform.
var ErrInvalidPlatform = errors.New("queue: invalid platform")

// Validate checks the job payload before it is accepted onto the queue.
func (j Job) Validate() error {
	if !j.Platform.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, j.Platform)
	}
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("queue: invalid job: %w", err)
	}
	return nil
}

// Delivery is one leased delivery of a job to a single consumer. Attempt
// starts at 1 and counts deliveries that ended in a nack.
type Delivery struct {
	Job       Job
	Attempt   int
	LastError string

	// tag is implementation-private delivery state (redis payload or
	// in-memory item handle).
	tag any
}

// Queue is the job transport contract. Each job is delivered at least once;
// a delivered job that is not acknowledged within the lease is redelivered.
type Queue interface {
	// Enqueue validates and accepts a job for processing.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is leased to the caller or ctx ends.
	Dequeue(ctx context.Context) (*Delivery, error)

	// Ack marks the delivery as successfully completed.
	Ack(ctx context.Context, d *Delivery) error

	// Nack records a failed delivery. When retry is true and attempts
	// remain, the job is rescheduled with exponential backoff and requeued
	// reports true; otherwise the job moves to the dead set.
	Nack(ctx context.Context, d *Delivery, reason string, retry bool) (requeued bool, err error)
}

// Options tunes retry and bookkeeping behavior.
type Options struct {
	// MaxAttempts is the total number of deliveries before a job is dead.
	MaxAttempts int
	// BaseBackoff is the delay before the second attempt; it doubles for
	// each subsequent attempt.
	BaseBackoff time.Duration
	// Lease is how long a consumer may hold a delivery before it is
	// considered abandoned and redelivered.
	Lease time.Duration
	// KeepCompleted and KeepFailed bound the recent-history logs retained
	// for operational visibility.
	KeepCompleted int
	KeepFailed    int
}

// DefaultOptions mirror the production policy: 3 attempts, 2s/4s backoff,
// last 10 completions and last 5 failures retained.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:   3,
		BaseBackoff:   2 * time.Second,
		Lease:         2 * time.Minute,
		KeepCompleted: 10,
		KeepFailed:    5,
	}
}

func (o *Options) normalize() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 2 * time.Second
	}
	if o.Lease <= 0 {
		o.Lease = 2 * time.Minute
	}
	if o.KeepCompleted <= 0 {
		o.KeepCompleted = 10
	}
	if o.KeepFailed <= 0 {
		o.KeepFailed = 5
	}
}

// backoffFor returns the delay before redelivering a job whose delivery
// number attempt just failed: base, 2*base, 4*base, ...
func (o Options) backoffFor(attempt int) time.Duration {
	d := o.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// envelope is the wire form of a queued delivery.
type envelope struct {
	Job       Job    `json:"job"`
	Attempt   int    `json:"attempt"`
	LastError string `json:"lastError,omitempty"`
}

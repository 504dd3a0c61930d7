package video

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record cannot be found by ID.
var ErrNotFound = errors.New("video not found")

// Repository defines the interface for video record persistence.
type Repository interface {
	// Save persists a record. An existing record with the same ID is
	// overwritten.
	Save(ctx context.Context, v *Video) error

	// FindByID retrieves a record by its unique identifier.
	// Returns ErrNotFound if the record does not exist.
	FindByID(ctx context.Context, id string) (*Video, error)

	// ListExpired returns records whose retention window ended before now.
	ListExpired(ctx context.Context, now time.Time) ([]*Video, error)

	// Delete removes a record.
	// Returns ErrNotFound if the record does not exist.
	Delete(ctx context.Context, id string) error
}

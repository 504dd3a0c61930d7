// Package credit provides the append-only credit ledger and the running
// balance kept on the user. Every balance mutation writes both within the
// same logical operation so the counter and the ledger never diverge.
package credit

import (
	"context"
	"errors"
	"time"
)

// EntryType distinguishes credit-affecting events.
type EntryType string

const (
	// TypePurchase is a top-up; amount is positive.
	TypePurchase EntryType = "purchase"
	// TypeConsumption is a per-video debit; amount is negative.
	TypeConsumption EntryType = "consumption"
)

// Entry is an immutable audit record of a single balance change.
type Entry struct {
	ID     string
	UserID string
	// VideoID is set for consumption entries and keys their idempotency:
	// at most one consumption entry exists per video.
	VideoID      string
	Type         EntryType
	Amount       int64
	BalanceAfter int64
	Description  string
	CreatedAt    time.Time
}

// Static errors for ledger operations.
var (
	// ErrUserNotFound is returned when the user does not exist.
	ErrUserNotFound = errors.New("credit: user not found")
	// ErrInvalidAmount is returned for non-positive purchase amounts.
	ErrInvalidAmount = errors.New("credit: amount must be positive")
)

// Store is the port for credit settlement. Implementations must make each
// operation a single logical read-modify-write so concurrent purchase and
// consumption for the same user cannot lose updates.
type Store interface {
	// CreateUser registers a user with an initial balance.
	CreateUser(ctx context.Context, userID string, initialCredits int64) error

	// Consume debits exactly one credit for a processed video and appends
	// the matching ledger entry. It returns (nil, nil) without touching the
	// balance when the balance is already zero, or when a consumption entry
	// for videoID already exists (redelivered jobs never double-charge).
	Consume(ctx context.Context, userID, videoID, description string) (*Entry, error)

	// Purchase credits the balance and appends a purchase ledger entry.
	Purchase(ctx context.Context, userID string, amount int64, description string) (*Entry, error)

	// Balance returns the user's current running balance.
	Balance(ctx context.Context, userID string) (int64, error)

	// Entries returns the user's most recent ledger entries, newest first.
	Entries(ctx context.Context, userID string, limit int) ([]*Entry, error)
}

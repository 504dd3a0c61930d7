package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/credit"
)

// Compile-time check that CreditStore implements credit.Store.
var _ credit.Store = (*CreditStore)(nil)

// CreditStore keeps the running balance on the users row and the audit
// trail in credit_entries. Every mutation runs both writes in one
// transaction.
type CreditStore struct {
	db *sql.DB
}

// CreateUser registers a user, resetting the balance if the row exists.
func (s *CreditStore) CreateUser(ctx context.Context, userID string, initialCredits int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, credits, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET credits = excluded.credits`,
		userID, initialCredits, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("create user %s: %w", userID, err)
	}
	return nil
}

// Consume debits one credit for videoID, skipping silently at zero balance
// or when the video was already charged.
func (s *CreditStore) Consume(ctx context.Context, userID, videoID, description string) (*credit.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consume: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_entries WHERE video_id = ? AND type = ?`,
		videoID, string(credit.TypeConsumption),
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check prior charge: %w", err)
	}
	if exists > 0 {
		return nil, nil
	}

	// The balance guard lives in the UPDATE so concurrent consumers cannot
	// drive the balance negative.
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits - 1 WHERE id = ? AND credits > 0`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("debit user %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Distinguishes a zero balance from a missing user.
		if _, err := s.balanceTx(ctx, tx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	balance, err := s.balanceTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	entry := &credit.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		VideoID:      videoID,
		Type:         credit.TypeConsumption,
		Amount:       -1,
		BalanceAfter: balance,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consume: %w", err)
	}
	return entry, nil
}

// Purchase credits the balance and appends the purchase entry.
func (s *CreditStore) Purchase(ctx context.Context, userID string, amount int64, description string) (*credit.Entry, error) {
	if amount <= 0 {
		return nil, credit.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits + ? WHERE id = ?`, amount, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("credit user %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, credit.ErrUserNotFound
	}

	balance, err := s.balanceTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	entry := &credit.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         credit.TypePurchase,
		Amount:       amount,
		BalanceAfter: balance,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	return entry, nil
}

// Balance returns the user's current running balance.
func (s *CreditStore) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, credit.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", userID, err)
	}
	return balance, nil
}

// Entries returns the user's most recent ledger entries, newest first.
func (s *CreditStore) Entries(ctx context.Context, userID string, limit int) ([]*credit.Entry, error) {
	query := `SELECT id, user_id, video_id, type, amount, balance_after, description, created_at
		FROM credit_entries WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*credit.Entry
	for rows.Next() {
		var (
			e         credit.Entry
			entryType string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.VideoID, &entryType, &e.Amount,
			&e.BalanceAfter, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = credit.EntryType(entryType)
		result = append(result, &e)
	}
	return result, rows.Err()
}

func (s *CreditStore) balanceTx(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, credit.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", userID, err)
	}
	return balance, nil
}

func (s *CreditStore) insertEntry(ctx context.Context, tx *sql.Tx, e *credit.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_entries (id, user_id, video_id, type, amount, balance_after, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.VideoID, string(e.Type), e.Amount, e.BalanceAfter, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

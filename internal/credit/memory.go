package credit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store. The single mutex
// makes every operation a single logical read-modify-write.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []*Entry
}

// NewMemoryStore creates a new in-memory credit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[string]int64),
	}
}

// CreateUser registers a user with an initial balance.
func (s *MemoryStore) CreateUser(_ context.Context, userID string, initialCredits int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = initialCredits
	return nil
}

// Consume debits one credit and appends the consumption entry, skipping
// silently at zero balance or when the video was already charged.
func (s *MemoryStore) Consume(_ context.Context, userID, videoID, description string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	for _, e := range s.entries {
		if e.Type == TypeConsumption && e.VideoID == videoID {
			return nil, nil
		}
	}
	if balance <= 0 {
		return nil, nil
	}

	balance--
	s.balances[userID] = balance
	entry := &Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		VideoID:      videoID,
		Type:         TypeConsumption,
		Amount:       -1,
		BalanceAfter: balance,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// Purchase credits the balance and appends the purchase entry.
func (s *MemoryStore) Purchase(_ context.Context, userID string, amount int64, description string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	balance += amount
	s.balances[userID] = balance
	entry := &Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         TypePurchase,
		Amount:       amount,
		BalanceAfter: balance,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// Balance returns the user's current running balance.
func (s *MemoryStore) Balance(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return balance, nil
}

// Entries returns the user's most recent ledger entries, newest first.
func (s *MemoryStore) Entries(_ context.Context, userID string, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*Entry
	for i := len(s.entries) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if s.entries[i].UserID == userID {
			e := *s.entries[i]
			result = append(result, &e)
		}
	}
	return result, nil
}

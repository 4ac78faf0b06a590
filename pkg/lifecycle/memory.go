package lifecycle

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a thread-safe in-memory AccountStore for tests and local
// development. UpdateState holds the lock across the compare and the write,
// giving the same atomicity a conditional UPDATE provides in SQL.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*Account
}

// NewMemoryStore returns an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]*Account)}
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return copyAccount(account), nil
}

func (s *MemoryStore) Create(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return ErrAccountAlreadyExists
	}
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *MemoryStore) UpdateState(ctx context.Context, id uuid.UUID, expected, next State, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if account.State != expected {
		return ErrStateConflict
	}
	account.State = next
	account.StateChangedAt = changedAt
	return nil
}

// copyAccount deep-copies so callers cannot mutate stored state directly.
func copyAccount(a *Account) *Account {
	return &Account{
		ID:             a.ID,
		State:          a.State,
		StateChangedAt: a.StateChangedAt,
		Payload:        maps.Clone(a.Payload),
		CreatedAt:      a.CreatedAt,
	}
}

// MemoryLedger is a thread-safe in-memory Ledger for tests and local
// development. Appends preserve arrival order.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(ctx context.Context, record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record.Metadata = maps.Clone(record.Metadata)
	l.records = append(l.records, record)
	return nil
}

func (l *MemoryLedger) History(ctx context.Context, accountID uuid.UUID) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record
	for _, r := range l.records {
		if r.AccountID == accountID {
			r.Metadata = maps.Clone(r.Metadata)
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns every record across accounts in append order.
func (l *MemoryLedger) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.records)
}

package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is the tracked entity: one client engagement moving through the
// pipeline. The core reads and writes State and StateChangedAt; Payload is
// opaque business data owned by surrounding layers.
type Account struct {
	ID             uuid.UUID
	State          State
	StateChangedAt time.Time
	Payload        map[string]any
	CreatedAt      time.Time
}

// AccountStore defines the persistence contract the core requires for
// accounts. Implementations must make UpdateState atomic with respect to
// concurrent callers on the same account: the write applies only when the
// stored state still equals expected, otherwise ErrStateConflict.
type AccountStore interface {
	// Get retrieves an account by ID.
	// Returns ErrAccountNotFound if no account exists.
	Get(ctx context.Context, id uuid.UUID) (*Account, error)

	// Create persists a new account. Returns ErrAccountAlreadyExists when the
	// ID is taken.
	Create(ctx context.Context, account *Account) error

	// UpdateState sets the account's state and StateChangedAt, conditioned on
	// the stored state still matching expected. Returns ErrAccountNotFound or
	// ErrStateConflict; any other error is an infrastructure fault.
	UpdateState(ctx context.Context, id uuid.UUID, expected, next State, changedAt time.Time) error
}

// NewAccount builds an account in the initial intake state. External intake
// collaborators call this once per engagement; every later state change flows
// through the Executor.
func NewAccount(payload map[string]any, now time.Time) *Account {
	return &Account{
		ID:             uuid.New(),
		State:          StateIntake,
		StateChangedAt: now,
		Payload:        payload,
		CreatedAt:      now,
	}
}

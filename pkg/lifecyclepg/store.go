// Package lifecyclepg implements the lifecycle persistence contracts on
// PostgreSQL via pgx/v5. The account store carries the optimistic-concurrency
// guarantee the core depends on: state writes are conditioned on the state
// the caller read, so racing transitions on one account produce exactly one
// winner. Schema migrations live under migrations/ and are applied with
// pg.Migrate.
package lifecyclepg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/clientflow/pkg/lifecycle"
	"github.com/dmitrymomot/clientflow/pkg/pg"
)

// AccountStore is a lifecycle.AccountStore backed by the lifecycle_accounts
// table.
type AccountStore struct {
	db *pgxpool.Pool
}

// NewAccountStore creates a Postgres account store. Panics if db is nil to
// fail fast during initialization.
func NewAccountStore(db *pgxpool.Pool) *AccountStore {
	if db == nil {
		panic("lifecyclepg: db pool is required")
	}
	return &AccountStore{db: db}
}

func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*lifecycle.Account, error) {
	const query = `
		SELECT state, state_changed_at, payload, created_at
		FROM lifecycle_accounts
		WHERE id = $1`

	var (
		rawState   string
		changedAt  time.Time
		rawPayload []byte
		createdAt  time.Time
	)
	err := s.db.QueryRow(ctx, query, id).Scan(&rawState, &changedAt, &rawPayload, &createdAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, lifecycle.ErrAccountNotFound
		}
		return nil, err
	}

	state, err := lifecycle.ParseState(rawState)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, err
		}
	}

	return &lifecycle.Account{
		ID:             id,
		State:          state,
		StateChangedAt: changedAt,
		Payload:        payload,
		CreatedAt:      createdAt,
	}, nil
}

func (s *AccountStore) Create(ctx context.Context, account *lifecycle.Account) error {
	payload, err := json.Marshal(account.Payload)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO lifecycle_accounts (id, state, state_changed_at, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.Exec(ctx, query,
		account.ID, account.State.String(), account.StateChangedAt, payload, account.CreatedAt,
	); err != nil {
		if pg.IsDuplicateKey(err) {
			return lifecycle.ErrAccountAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateState performs the conditional write: the row updates only when its
// state still equals expected. A zero row count means either the account is
// gone or another transition won the race; one follow-up read tells which.
func (s *AccountStore) UpdateState(ctx context.Context, id uuid.UUID, expected, next lifecycle.State, changedAt time.Time) error {
	const query = `
		UPDATE lifecycle_accounts
		SET state = $1, state_changed_at = $2
		WHERE id = $3 AND state = $4`

	tag, err := s.db.Exec(ctx, query, next.String(), changedAt, id, expected.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lifecycle_accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return lifecycle.ErrAccountNotFound
	}
	return lifecycle.ErrStateConflict
}

// compile-time interface check
var _ lifecycle.AccountStore = (*AccountStore)(nil)

package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one immutable fact in the transition ledger: which account moved
// between which states, who triggered it, and when. Records are created once
// per successful transition and never mutated or deleted.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	AccountID uuid.UUID      `json:"account_id"`
	From      State          `json:"from"`
	To        State          `json:"to"`
	Actor     Actor          `json:"actor"`
	ActorID   string         `json:"actor_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Ledger defines the append-only persistence contract for transition history.
// The account store is the source of truth for "current state"; the ledger is
// the source of truth for "how it got there". They must not silently diverge,
// which is why the Executor surfaces append failures distinctly.
type Ledger interface {
	// Append durably stores one record. Append-only: no update, no delete.
	Append(ctx context.Context, record Record) error

	// History returns all records for one account in creation order. Replaying
	// them must reproduce the account's full state sequence.
	History(ctx context.Context, accountID uuid.UUID) ([]Record, error)
}

// Replay walks a ledger history and returns the state sequence it encodes,
// starting from the first record's From state. It errors when the chain is
// broken, i.e. a record's From does not match the previous record's To —
// a sign of a gap (lost append) that needs reconciliation.
func Replay(records []Record) ([]State, error) {
	if len(records) == 0 {
		return nil, nil
	}

	states := make([]State, 0, len(records)+1)
	states = append(states, records[0].From)
	for i, r := range records {
		if r.From != states[len(states)-1] {
			return nil, &BrokenHistoryError{Index: i, Expected: states[len(states)-1], Got: r.From}
		}
		states = append(states, r.To)
	}
	return states, nil
}

package lifecyclepg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/clientflow/pkg/lifecycle"
)

// Ledger is a lifecycle.Ledger backed by the lifecycle_transitions table.
// The table has no UPDATE or DELETE paths; the schema grants are expected to
// match.
type Ledger struct {
	db *pgxpool.Pool
}

// NewLedger creates a Postgres transition ledger. Panics if db is nil to fail
// fast during initialization.
func NewLedger(db *pgxpool.Pool) *Ledger {
	if db == nil {
		panic("lifecyclepg: db pool is required")
	}
	return &Ledger{db: db}
}

func (l *Ledger) Append(ctx context.Context, record lifecycle.Record) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO lifecycle_transitions
			(id, account_id, from_state, to_state, actor, actor_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = l.db.Exec(ctx, query,
		record.ID, record.AccountID,
		record.From.String(), record.To.String(),
		record.Actor.String(), record.ActorID,
		metadata, record.CreatedAt,
	)
	return err
}

// History returns all records for the account ordered by creation time, with
// the insert sequence as tiebreaker so same-timestamp records replay in
// append order.
func (l *Ledger) History(ctx context.Context, accountID uuid.UUID) ([]lifecycle.Record, error) {
	const query = `
		SELECT id, from_state, to_state, actor, actor_id, metadata, created_at
		FROM lifecycle_transitions
		WHERE account_id = $1
		ORDER BY created_at, seq`

	rows, err := l.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []lifecycle.Record
	for rows.Next() {
		var (
			record      lifecycle.Record
			rawFrom     string
			rawTo       string
			rawActor    string
			rawMetadata []byte
			createdAt   time.Time
		)
		if err := rows.Scan(&record.ID, &rawFrom, &rawTo, &rawActor, &record.ActorID, &rawMetadata, &createdAt); err != nil {
			return nil, err
		}

		if record.From, err = lifecycle.ParseState(rawFrom); err != nil {
			return nil, err
		}
		if record.To, err = lifecycle.ParseState(rawTo); err != nil {
			return nil, err
		}
		if record.Actor, err = lifecycle.ParseActor(rawActor); err != nil {
			return nil, err
		}
		if len(rawMetadata) > 0 {
			if err := json.Unmarshal(rawMetadata, &record.Metadata); err != nil {
				return nil, err
			}
		}
		record.AccountID = accountID
		record.CreatedAt = createdAt
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// compile-time interface check
var _ lifecycle.Ledger = (*Ledger)(nil)

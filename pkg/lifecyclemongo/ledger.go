// Package lifecyclemongo implements the transition ledger on MongoDB. The
// document model fits the ledger well: records are immutable, append-only,
// and carry free-form metadata that would otherwise need a JSONB column.
// Deployments that keep accounts in Postgres can still point the ledger here;
// the core treats the two stores independently.
package lifecyclemongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/clientflow/pkg/lifecycle"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "lifecycle_transitions"

type transitionDoc struct {
	ID string `bson:"_id"`
	// Seq is the append-order tiebreaker. BSON datetimes truncate to
	// milliseconds, so two rapid transitions can share a created_at; an
	// ObjectID carries a per-process counter and keeps them in insertion
	// order, which the record UUID (random) cannot.
	Seq       bson.ObjectID  `bson:"seq"`
	AccountID string         `bson:"account_id"`
	From      string         `bson:"from_state"`
	To        string         `bson:"to_state"`
	Actor     string         `bson:"actor"`
	ActorID   string         `bson:"actor_id,omitempty"`
	Metadata  map[string]any `bson:"metadata,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}

func newTransitionDoc(record lifecycle.Record) transitionDoc {
	return transitionDoc{
		ID:        record.ID.String(),
		Seq:       bson.NewObjectID(),
		AccountID: record.AccountID.String(),
		From:      record.From.String(),
		To:        record.To.String(),
		Actor:     record.Actor.String(),
		ActorID:   record.ActorID,
		Metadata:  record.Metadata,
		CreatedAt: record.CreatedAt.UTC(),
	}
}

// historySort orders replays: creation time first, append sequence as
// tiebreaker for records sharing a millisecond.
var historySort = bson.D{
	{Key: "created_at", Value: 1},
	{Key: "seq", Value: 1},
}

// Ledger is a lifecycle.Ledger backed by a MongoDB collection.
type Ledger struct {
	collection *mongo.Collection
}

// Option configures the Ledger.
type Option func(*config)

type config struct {
	collection string
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(c *config) {
		if name != "" {
			c.collection = name
		}
	}
}

// NewLedger creates a Mongo-backed transition ledger. Panics if db is nil to
// fail fast during initialization.
func NewLedger(db *mongo.Database, opts ...Option) *Ledger {
	if db == nil {
		panic("lifecyclemongo: database is required")
	}

	cfg := config{collection: DefaultCollection}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Ledger{collection: db.Collection(cfg.collection)}
}

// EnsureIndexes creates the history index. Call once at startup; the
// operation is idempotent.
func (l *Ledger) EnsureIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "account_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "seq", Value: 1},
		},
	})
	return err
}

func (l *Ledger) Append(ctx context.Context, record lifecycle.Record) error {
	_, err := l.collection.InsertOne(ctx, newTransitionDoc(record))
	return err
}

// History returns the account's records sorted by creation time with the
// append sequence as tiebreaker, so replays are deterministic even for
// records sharing a timestamp.
func (l *Ledger) History(ctx context.Context, accountID uuid.UUID) ([]lifecycle.Record, error) {
	cursor, err := l.collection.Find(ctx,
		bson.D{{Key: "account_id", Value: accountID.String()}},
		options.Find().SetSort(historySort),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []transitionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]lifecycle.Record, 0, len(docs))
	for _, doc := range docs {
		record, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (d transitionDoc) toRecord() (lifecycle.Record, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return lifecycle.Record{}, err
	}
	accountID, err := uuid.Parse(d.AccountID)
	if err != nil {
		return lifecycle.Record{}, err
	}
	from, err := lifecycle.ParseState(d.From)
	if err != nil {
		return lifecycle.Record{}, err
	}
	to, err := lifecycle.ParseState(d.To)
	if err != nil {
		return lifecycle.Record{}, err
	}
	actor, err := lifecycle.ParseActor(d.Actor)
	if err != nil {
		return lifecycle.Record{}, err
	}

	return lifecycle.Record{
		ID:        id,
		AccountID: accountID,
		From:      from,
		To:        to,
		Actor:     actor,
		ActorID:   d.ActorID,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}, nil
}

// compile-time interface check
var _ lifecycle.Ledger = (*Ledger)(nil)

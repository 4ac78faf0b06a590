package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ReconcileQueue receives records that could not be appended to the ledger so
// the history can be backfilled out of band. Implementations live in
// pkg/reconcile; a nil queue disables the mechanism.
type ReconcileQueue interface {
	Enqueue(ctx context.Context, record Record) error
}

// Result is the outcome of a successful transition.
//
// LedgerErr is the one delicate case: the state change took effect but the
// audit record did not persist. The transition itself still succeeded — the
// account store is authoritative for current state — so Execute reports it
// here as a warning instead of an error, and the record must be backfilled
// from the reconcile queue.
type Result struct {
	Account   *Account
	Record    *Record // nil when LedgerErr is set
	LedgerErr error
}

// ExecuteOption attaches optional context to a transition request.
type ExecuteOption func(*Record)

// WithActorID records the concrete identity behind the actor category, e.g.
// the administrator's user ID or the payment provider's event ID.
func WithActorID(id string) ExecuteOption {
	return func(r *Record) {
		r.ActorID = id
	}
}

// WithMetadata adds one free-form key/value pair to the ledger record.
func WithMetadata(key string, value any) ExecuteOption {
	return func(r *Record) {
		if r.Metadata == nil {
			r.Metadata = make(map[string]any)
		}
		r.Metadata[key] = value
	}
}

// Option configures the Executor.
type Option func(*Executor)

// WithClock overrides the time source. Inject a fixed clock in tests to get
// deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the structured logger used for the ledger-divergence alert.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithReconcileQueue enables out-of-band backfill for records that failed to
// append to the ledger.
func WithReconcileQueue(q ReconcileQueue) Option {
	return func(e *Executor) {
		e.reconcile = q
	}
}

// Executor orchestrates transitions: it is the only component allowed to
// write account state or append ledger records. It performs no retries; retry
// policy belongs to the caller.
type Executor struct {
	store     AccountStore
	ledger    Ledger
	reconcile ReconcileQueue
	now       func() time.Time
	log       *slog.Logger
}

// New creates an Executor. Panics if store or ledger is nil to fail fast
// during initialization.
func New(store AccountStore, ledger Ledger, opts ...Option) *Executor {
	if store == nil {
		panic("lifecycle: account store is required")
	}
	if ledger == nil {
		panic("lifecycle: ledger is required")
	}

	e := &Executor{
		store:  store,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
		log:    slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute attempts one transition on behalf of the given actor category.
//
// The account is loaded, the transition authorized against the rule table,
// and the state written with a conditional update keyed on the state that was
// read. Two concurrent requests racing on the same account therefore produce
// exactly one winner; the loser gets ErrStateConflict and may re-read and
// retry from the top.
//
// Failure taxonomy: ErrAccountNotFound, *InvalidTransitionError,
// ErrStateConflict, ErrStoreWriteFailed. A ledger append failure after the
// state write is NOT an Execute error; see Result.LedgerErr.
func (e *Executor) Execute(ctx context.Context, accountID uuid.UUID, to State, actor Actor, opts ...ExecuteOption) (*Result, error) {
	account, err := e.store.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrStoreWriteFailed, err)
	}

	from := account.State
	if !IsAllowed(from, to, actor) {
		return nil, NewInvalidTransitionError(from, to, actor)
	}

	changedAt := e.now()
	if err := e.store.UpdateState(ctx, accountID, from, to, changedAt); err != nil {
		switch {
		case errors.Is(err, ErrStateConflict):
			return nil, ErrStateConflict
		case errors.Is(err, ErrAccountNotFound):
			return nil, ErrAccountNotFound
		default:
			return nil, errors.Join(ErrStoreWriteFailed, err)
		}
	}

	account.State = to
	account.StateChangedAt = changedAt

	record := Record{
		ID:        uuid.New(),
		AccountID: accountID,
		From:      from,
		To:        to,
		Actor:     actor,
		CreatedAt: changedAt,
	}
	for _, opt := range opts {
		opt(&record)
	}

	if err := e.ledger.Append(ctx, record); err != nil {
		// State changed but is not yet durably logged. Never roll back here:
		// rollback would itself be an unauthorized transition. Flag the
		// divergence and hand the record to the reconcile queue for backfill.
		ledgerErr := errors.Join(ErrLedgerWriteFailed, err)
		e.log.ErrorContext(ctx, "transition applied but not logged",
			"account_id", accountID,
			"from", from,
			"to", to,
			"actor", actor,
			"error", err,
		)
		if e.reconcile != nil {
			if qErr := e.reconcile.Enqueue(ctx, record); qErr != nil {
				e.log.ErrorContext(ctx, "failed to enqueue ledger backfill",
					"account_id", accountID,
					"record_id", record.ID,
					"error", qErr,
				)
			}
		}
		return &Result{Account: account, LedgerErr: ledgerErr}, nil
	}

	return &Result{Account: account, Record: &record}, nil
}

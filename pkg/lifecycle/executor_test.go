package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clientflow/pkg/lifecycle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedAccount creates an account directly in the given state.
func seedAccount(t *testing.T, store *lifecycle.MemoryStore, state lifecycle.State) uuid.UUID {
	t.Helper()
	account := lifecycle.NewAccount(map[string]any{"business": "acme"}, time.Now().UTC())
	account.State = state
	require.NoError(t, store.Create(context.Background(), account))
	return account.ID
}

// failingStore wraps a working store and fails selected operations with an
// infrastructure error.
type failingStore struct {
	*lifecycle.MemoryStore
	failGet    bool
	failUpdate bool
}

func (s *failingStore) Get(ctx context.Context, id uuid.UUID) (*lifecycle.Account, error) {
	if s.failGet {
		return nil, errors.New("connection reset")
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *failingStore) UpdateState(ctx context.Context, id uuid.UUID, expected, next lifecycle.State, changedAt time.Time) error {
	if s.failUpdate {
		return errors.New("connection reset")
	}
	return s.MemoryStore.UpdateState(ctx, id, expected, next, changedAt)
}

// failingLedger rejects every append.
type failingLedger struct{}

func (failingLedger) Append(ctx context.Context, record lifecycle.Record) error {
	return errors.New("ledger unavailable")
}

func (failingLedger) History(ctx context.Context, accountID uuid.UUID) ([]lifecycle.Record, error) {
	return nil, errors.New("ledger unavailable")
}

// captureQueue records enqueued backfill records.
type captureQueue struct {
	mu      sync.Mutex
	records []lifecycle.Record
}

func (q *captureQueue) Enqueue(ctx context.Context, record lifecycle.Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, record)
	return nil
}

func TestExecutor_Execute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("customer moves intake to design_review", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateIntake)

		res, err := exec.Execute(ctx, id, lifecycle.StateDesignReview, lifecycle.ActorCustomer)
		require.NoError(t, err)
		require.NoError(t, res.LedgerErr)
		assert.Equal(t, lifecycle.StateDesignReview, res.Account.State)

		stored, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateDesignReview, stored.State)

		history, err := ledger.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, lifecycle.StateIntake, history[0].From)
		assert.Equal(t, lifecycle.StateDesignReview, history[0].To)
		assert.Equal(t, lifecycle.ActorCustomer, history[0].Actor)
	})

	t.Run("customer cannot skip to activation from design_review", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateDesignReview)

		res, err := exec.Execute(ctx, id, lifecycle.StateActivation, lifecycle.ActorCustomer)
		assert.Nil(t, res)
		require.True(t, lifecycle.IsInvalidTransitionError(err))

		var invalidErr *lifecycle.InvalidTransitionError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, lifecycle.StateDesignReview, invalidErr.From)
		assert.Equal(t, lifecycle.StateActivation, invalidErr.To)
		assert.Equal(t, lifecycle.ActorCustomer, invalidErr.Actor)

		stored, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateDesignReview, stored.State)
		assert.Empty(t, ledger.All())
	})

	t.Run("webhook confirms payment", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateActivation)

		res, err := exec.Execute(ctx, id, lifecycle.StateFinalOnboarding, lifecycle.ActorWebhook,
			lifecycle.WithActorID("evt_12345"),
			lifecycle.WithMetadata("provider", "paddle"),
		)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateFinalOnboarding, res.Account.State)
		require.NotNil(t, res.Record)
		assert.Equal(t, "evt_12345", res.Record.ActorID)
		assert.Equal(t, "paddle", res.Record.Metadata["provider"])
	})

	t.Run("no-op self transition is rejected", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateLive)

		_, err := exec.Execute(ctx, id, lifecycle.StateLive, lifecycle.ActorAdmin)
		assert.True(t, lifecycle.IsInvalidTransitionError(err))
	})

	t.Run("rejection is idempotent and side-effect free", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateIntake)

		for range 5 {
			_, err := exec.Execute(ctx, id, lifecycle.StateLive, lifecycle.ActorAdmin)
			require.True(t, lifecycle.IsInvalidTransitionError(err))
		}

		stored, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateIntake, stored.State)
		assert.Empty(t, ledger.All())
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()
		exec := lifecycle.New(lifecycle.NewMemoryStore(), lifecycle.NewMemoryLedger(), lifecycle.WithLogger(discardLogger()))

		_, err := exec.Execute(ctx, uuid.New(), lifecycle.StateDesignReview, lifecycle.ActorCustomer)
		assert.ErrorIs(t, err, lifecycle.ErrAccountNotFound)
	})

	t.Run("support round trip with increasing timestamps", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()

		// Deterministic clock advancing one second per call.
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		calls := 0
		clock := func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * time.Second)
		}
		exec := lifecycle.New(store, ledger, lifecycle.WithClock(clock), lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateLive)

		res1, err := exec.Execute(ctx, id, lifecycle.StateSupport, lifecycle.ActorCustomer)
		require.NoError(t, err)
		res2, err := exec.Execute(ctx, id, lifecycle.StateLive, lifecycle.ActorAdmin)
		require.NoError(t, err)

		assert.True(t, res2.Account.StateChangedAt.After(res1.Account.StateChangedAt))

		history, err := ledger.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, lifecycle.StateSupport, history[0].To)
		assert.Equal(t, lifecycle.StateLive, history[1].To)
	})

	t.Run("store read fault surfaces as store write failure", func(t *testing.T) {
		t.Parallel()
		inner := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		store := &failingStore{MemoryStore: inner, failGet: true}
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, inner, lifecycle.StateIntake)

		res, err := exec.Execute(ctx, id, lifecycle.StateDesignReview, lifecycle.ActorCustomer)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, lifecycle.ErrStoreWriteFailed)
		assert.Empty(t, ledger.All())
	})

	t.Run("store update fault leaves state and ledger untouched", func(t *testing.T) {
		t.Parallel()
		inner := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		store := &failingStore{MemoryStore: inner, failUpdate: true}
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, inner, lifecycle.StateIntake)

		res, err := exec.Execute(ctx, id, lifecycle.StateDesignReview, lifecycle.ActorCustomer)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, lifecycle.ErrStoreWriteFailed)

		// No state change took effect; the caller may retry with backoff.
		stored, getErr := inner.Get(ctx, id)
		require.NoError(t, getErr)
		assert.Equal(t, lifecycle.StateIntake, stored.State)
		assert.Empty(t, ledger.All())
	})

	t.Run("ledger failure is success with warning", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		queue := &captureQueue{}
		exec := lifecycle.New(store, failingLedger{},
			lifecycle.WithLogger(discardLogger()),
			lifecycle.WithReconcileQueue(queue),
		)
		id := seedAccount(t, store, lifecycle.StateFinalOnboarding)

		res, err := exec.Execute(ctx, id, lifecycle.StateLive, lifecycle.ActorAdmin)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.ErrorIs(t, res.LedgerErr, lifecycle.ErrLedgerWriteFailed)
		assert.Nil(t, res.Record)

		// State change took effect despite the ledger fault.
		stored, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateLive, stored.State)

		// The unlogged record went to the reconcile queue for backfill.
		require.Len(t, queue.records, 1)
		assert.Equal(t, id, queue.records[0].AccountID)
		assert.Equal(t, lifecycle.StateFinalOnboarding, queue.records[0].From)
		assert.Equal(t, lifecycle.StateLive, queue.records[0].To)
	})
}

func TestExecutor_Race(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("two actors racing from activation produce one winner", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateActivation)

		start := make(chan struct{})
		results := make(chan error, 2)
		for _, actor := range []lifecycle.Actor{lifecycle.ActorWebhook, lifecycle.ActorSystem} {
			go func(actor lifecycle.Actor) {
				<-start
				_, err := exec.Execute(ctx, id, lifecycle.StateFinalOnboarding, actor)
				results <- err
			}(actor)
		}
		close(start)

		var successes, conflicts int
		for range 2 {
			err := <-results
			switch {
			case err == nil:
				successes++
			case errors.Is(err, lifecycle.ErrStateConflict) || lifecycle.IsInvalidTransitionError(err):
				// The loser observes either the CAS miss or, if it read after
				// the winner's write, the already-advanced state.
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, conflicts)

		stored, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateFinalOnboarding, stored.State)
		assert.Len(t, ledger.All(), 1)
	})

	t.Run("many concurrent attempts, exactly one per stage wins", func(t *testing.T) {
		t.Parallel()
		store := lifecycle.NewMemoryStore()
		ledger := lifecycle.NewMemoryLedger()
		exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
		id := seedAccount(t, store, lifecycle.StateLive)

		var wg sync.WaitGroup
		var successes int32
		var mu sync.Mutex
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := exec.Execute(ctx, id, lifecycle.StateSupport, lifecycle.ActorCustomer); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, successes)
		assert.Len(t, ledger.All(), 1)
	})
}

func TestExecutor_HistoryReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := lifecycle.NewMemoryStore()
	ledger := lifecycle.NewMemoryLedger()
	exec := lifecycle.New(store, ledger, lifecycle.WithLogger(discardLogger()))
	id := seedAccount(t, store, lifecycle.StateIntake)

	// Walk the happy path including one revision loop.
	steps := []struct {
		to    lifecycle.State
		actor lifecycle.Actor
	}{
		{lifecycle.StateDesignReview, lifecycle.ActorCustomer},
		{lifecycle.StatePreviewReady, lifecycle.ActorAdmin},
		{lifecycle.StateDesignReview, lifecycle.ActorCustomer},
		{lifecycle.StatePreviewReady, lifecycle.ActorAdmin},
		{lifecycle.StateActivation, lifecycle.ActorCustomer},
		{lifecycle.StateFinalOnboarding, lifecycle.ActorWebhook},
		{lifecycle.StateLive, lifecycle.ActorAdmin},
	}
	for _, step := range steps {
		_, err := exec.Execute(ctx, id, step.to, step.actor)
		require.NoError(t, err)
	}

	history, err := ledger.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, len(steps))

	states, err := lifecycle.Replay(history)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateIntake, states[0])

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stored.State, states[len(states)-1])
}

func TestNew_PanicsOnNilDeps(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		lifecycle.New(nil, lifecycle.NewMemoryLedger())
	})
	assert.Panics(t, func() {
		lifecycle.New(lifecycle.NewMemoryStore(), nil)
	})
}

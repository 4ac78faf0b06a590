package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownState = errors.New("lifecycle: unknown state")
	ErrUnknownActor = errors.New("lifecycle: unknown actor category")

	ErrAccountNotFound      = errors.New("lifecycle: account not found")
	ErrAccountAlreadyExists = errors.New("lifecycle: account already exists")

	// ErrStateConflict means the account's state changed between read and
	// write: the conditional update found a different current state. A race
	// was lost, not a rule violated; callers may re-read and retry.
	ErrStateConflict = errors.New("lifecycle: account state changed concurrently")

	// ErrStoreWriteFailed wraps infrastructure faults from the account store.
	// No state change took effect; callers retry with backoff at their own
	// discretion.
	ErrStoreWriteFailed = errors.New("lifecycle: account store write failed")

	// ErrLedgerWriteFailed wraps infrastructure faults from the ledger after
	// the state change already took effect. Surfaced via Result.LedgerErr,
	// never as the Execute error.
	ErrLedgerWriteFailed = errors.New("lifecycle: transition ledger append failed")
)

// InvalidTransitionError reports a requested transition that has no matching
// rule. An expected, user-facing outcome: the caller shows the concrete
// from/to/actor triple, the core does not log it as a fault.
type InvalidTransitionError struct {
	From  State
	To    State
	Actor Actor
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("lifecycle: transition %q -> %q not permitted for actor %q", e.From, e.To, e.Actor)
}

func NewInvalidTransitionError(from, to State, actor Actor) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to, Actor: actor}
}

// IsInvalidTransitionError reports whether err is an InvalidTransitionError.
func IsInvalidTransitionError(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

// BrokenHistoryError reports a ledger history that does not form a contiguous
// chain when replayed.
type BrokenHistoryError struct {
	Index    int
	Expected State
	Got      State
}

func (e *BrokenHistoryError) Error() string {
	return fmt.Sprintf("lifecycle: broken history at record %d: expected from state %q, got %q", e.Index, e.Expected, e.Got)
}

// IsBrokenHistoryError reports whether err is a BrokenHistoryError.
func IsBrokenHistoryError(err error) bool {
	var e *BrokenHistoryError
	return errors.As(err, &e)
}

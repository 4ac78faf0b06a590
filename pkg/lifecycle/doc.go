// Package lifecycle is the client-lifecycle engine: the authoritative
// definition of the account pipeline states, the actor-gated transition graph
// between them, and the durable record of every transition that happened.
//
// An account moves through seven stages — intake, design_review,
// preview_ready, activation, final_onboarding, live, support — and four actor
// categories (customer, admin, system, webhook) are each permitted a specific
// set of moves. The graph is mostly linear with two deliberate cycles:
// design_review <-> preview_ready for revision rounds and live <-> support
// for the support loop. Anything outside the table is rejected, including
// self-transitions and stage skipping.
//
// # Architecture
//
//  1. The rule table (rules.go) is static package data validated at init.
//     IsAllowed and ReachableStates are pure lookups over it.
//  2. The Executor is the only writer. It loads the account, authorizes the
//     request, applies a conditional state update, then appends a ledger
//     record. AccountStore and Ledger are injected interfaces; pgx, mongo and
//     in-memory adapters ship in sibling packages.
//  3. RouteFor/LabelFor map states to portal destinations and display labels
//     so presentation collaborators never hard-code the mapping.
//
// # Concurrency
//
// Per-account transitions are linearizable. The store's UpdateState is
// conditioned on the state the Executor read: when a customer action, an
// admin action and a payment webhook race on one account, exactly one wins
// and the losers receive ErrStateConflict. Cross-account operations are
// independent; there is no global lock and no background goroutine.
//
// # Usage
//
//	exec := lifecycle.New(store, ledger,
//	    lifecycle.WithLogger(log),
//	    lifecycle.WithReconcileQueue(queue),
//	)
//
//	res, err := exec.Execute(ctx, accountID, lifecycle.StateDesignReview,
//	    lifecycle.ActorCustomer,
//	    lifecycle.WithActorID(userID),
//	    lifecycle.WithMetadata("source", "portal"),
//	)
//
// # Error Handling
//
// Expected outcomes are typed: ErrAccountNotFound, ErrStateConflict, and
// InvalidTransitionError (inspect with IsInvalidTransitionError). Infra
// faults are joined onto ErrStoreWriteFailed. A ledger append that fails
// after the state write is returned as Result.LedgerErr — the transition did
// happen and must not be reported as failed; the record is handed to the
// reconcile queue for backfill instead.
package lifecycle

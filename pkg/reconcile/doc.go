// Package reconcile carries the backfill path for the transition ledger.
//
// When a transition's state write succeeds but the ledger append fails, the
// account store and the ledger diverge: current state is correct, history has
// a gap. The Executor hands the unlogged record to a Queue here; an operator
// job drains the queue and re-appends the records once the ledger is healthy,
// closing the gap without ever touching account state.
//
// Two implementations ship: a Redis list for deployments (records survive a
// process crash as JSON, multiple instances feed one queue) and an in-memory
// queue for tests that stores records directly.
//
// # Usage
//
//	queue := reconcile.NewRedisQueue(redisClient)
//	exec := lifecycle.New(store, ledger, lifecycle.WithReconcileQueue(queue))
//
//	// Backfill job, e.g. on a scheduler tick:
//	drained, err := reconcile.Drain(ctx, queue, ledger)
package reconcile

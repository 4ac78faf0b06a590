package reconcile

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/dmitrymomot/clientflow/pkg/lifecycle"
)

var (
	ErrQueueEmpty    = errors.New("reconcile: queue is empty")
	ErrEncodeRecord  = errors.New("reconcile: failed to encode record")
	ErrDecodeRecord  = errors.New("reconcile: failed to decode record")
	ErrQueueNotReady = errors.New("reconcile: queue backend not available")
)

// Queue buffers transition records that are missing from the ledger. Enqueue
// satisfies lifecycle.ReconcileQueue; Dequeue and Requeue are the backfill
// side.
type Queue interface {
	lifecycle.ReconcileQueue

	// Dequeue pops the oldest pending record. Returns ErrQueueEmpty when
	// nothing is pending.
	Dequeue(ctx context.Context) (lifecycle.Record, error)

	// Requeue puts a dequeued record back at the front of the queue so FIFO
	// order survives a failed backfill attempt.
	Requeue(ctx context.Context, record lifecycle.Record) error

	// Len reports the number of pending records.
	Len(ctx context.Context) (int64, error)
}

// Drain re-appends every pending record to the ledger, oldest first, and
// returns how many were backfilled. On an append failure the record goes back
// to the front of the queue and Drain stops: the ledger is evidently still
// unhealthy, and the next run picks up where this one left off.
func Drain(ctx context.Context, q Queue, ledger lifecycle.Ledger) (int, error) {
	drained := 0
	for {
		record, err := q.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				return drained, nil
			}
			return drained, err
		}

		if err := ledger.Append(ctx, record); err != nil {
			if qErr := q.Requeue(ctx, record); qErr != nil {
				return drained, errors.Join(err, qErr)
			}
			return drained, err
		}
		drained++
	}
}

// MemoryQueue is a thread-safe in-memory Queue for tests and local
// development. FIFO order.
type MemoryQueue struct {
	mu      sync.Mutex
	records []lifecycle.Record
}

// NewMemoryQueue returns an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, record lifecycle.Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	record.Metadata = maps.Clone(record.Metadata)
	q.records = append(q.records, record)
	return nil
}

func (q *MemoryQueue) Requeue(ctx context.Context, record lifecycle.Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	record.Metadata = maps.Clone(record.Metadata)
	q.records = append([]lifecycle.Record{record}, q.records...)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (lifecycle.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 {
		return lifecycle.Record{}, ErrQueueEmpty
	}
	record := q.records[0]
	q.records = q.records[1:]
	return record, nil
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.records)), nil
}

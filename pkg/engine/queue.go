package engine

import (
	"sync"

	"github.com/wehubfusion/Minos/pkg/row"
)

// taskQueue is a concurrent pull queue over the rows selected for a run.
// It is built once per run and preserves row order; workers pull from it
// without blocking.
type taskQueue struct {
	mu   sync.Mutex
	rows []*row.Row
	next int
}

// newTaskQueue seeds a queue with the rows in scope, in row order.
func newTaskQueue(rows []*row.Row) *taskQueue {
	return &taskQueue{rows: rows}
}

// TryNext pulls the next row, or reports false when the queue is drained.
// Safe for concurrent callers.
func (q *taskQueue) TryNext() (*row.Row, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.rows) {
		return nil, false
	}
	r := q.rows[q.next]
	q.next++
	return r, true
}

// Len returns the total number of rows seeded into the queue.
func (q *taskQueue) Len() int {
	return len(q.rows)
}

// Package mempool buffers pending transfers until the sequencer pulls a
// batch. It performs no validation; rejected transfers surface when the
// proving backend runs the batch.
package mempool

import (
	"sync"

	"github.com/yourorg/satcity/internal/metrics"
	"github.com/yourorg/satcity/pkg/types"
)

// Queue is a FIFO of pending transactions. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	txs     []types.Transaction
	metrics *Metrics
}

type Option func(*Queue)

func WithMetrics(m *Metrics) Option {
	return func(q *Queue) {
		if m != nil {
			q.metrics = m
		}
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{metrics: NilMetrics()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// AddTransaction appends tx to the tail of the queue.
func (q *Queue) AddTransaction(tx types.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.txs = append(q.txs, tx)

	metrics.CounterInc(q.metrics.addedTxs)
	metrics.SetGauge(q.metrics.pendingTxs, float64(len(q.txs)))
}

// GetTransactions removes and returns up to n of the oldest transactions in
// insertion order.
func (q *Queue) GetTransactions(n int) []types.Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	n = max(0, min(n, len(q.txs)))
	out := make([]types.Transaction, n)
	copy(out, q.txs[:n])

	rest := make([]types.Transaction, len(q.txs)-n)
	copy(rest, q.txs[n:])
	q.txs = rest

	metrics.AddCounter(q.metrics.drainedTxs, float64(n))
	metrics.SetGauge(q.metrics.pendingTxs, float64(len(q.txs)))

	return out
}

// Requeue puts txs back at the head of the queue, ahead of anything added
// since they were pulled.
func (q *Queue) Requeue(txs []types.Transaction) {
	if len(txs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.txs = append(append(make([]types.Transaction, 0, len(txs)+len(q.txs)), txs...), q.txs...)
	metrics.SetGauge(q.metrics.pendingTxs, float64(len(q.txs)))
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.txs)
}

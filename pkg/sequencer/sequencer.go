package sequencer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/mempool"
	"github.com/yourorg/satcity/pkg/merkle"
	"github.com/yourorg/satcity/pkg/payload"
	"github.com/yourorg/satcity/pkg/state"
)

var ErrEmptyBatch = errors.New("no pending transactions")

const DefaultBatchSize = 64

type Option func(*Sequencer)

func WithBatchSize(n int) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Sequencer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Sequencer owns the current state and produces one block at a time from
// the queue. Each block's root is journaled under <ns>/blocks/<height>/root.
type Sequencer struct {
	mu        sync.Mutex
	queue     *mempool.Queue
	prover    *Prover
	state     *state.State
	store     kv.Store
	ns        kv.Namespace
	height    uint64
	batchSize int
	logger    zerolog.Logger
	metrics   *Metrics
}

// New resumes the block height recorded in store. genesis is the state the
// next block is applied to.
func New(queue *mempool.Queue, prover *Prover, genesis *state.State, store kv.Store, ns kv.Namespace, opts ...Option) (*Sequencer, error) {
	s := &Sequencer{
		queue:     queue,
		prover:    prover,
		state:     genesis,
		store:     store,
		ns:        ns,
		batchSize: DefaultBatchSize,
		logger:    zerolog.Nop(),
		metrics:   NilMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := store.Get(ns.Key("/height"))
	if err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	if ok {
		if len(raw) != 8 {
			return nil, fmt.Errorf("stored height has %d bytes", len(raw))
		}
		s.height = binary.BigEndian.Uint64(raw)
	}
	return s, nil
}

// ProduceBlock proves the next batch and swaps in the resulting state. A
// batch rejected by the transition program is dropped; on any other failure
// the batch goes back to the head of the queue.
func (s *Sequencer) ProduceBlock(ctx context.Context) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.queue.GetTransactions(s.batchSize)
	if len(txs) == 0 {
		return nil, ErrEmptyBatch
	}

	blk, err := s.prover.ProveBlock(ctx, txs, s.state)
	if err != nil {
		var rejected *backend.TransitionRejectedError
		if !errors.As(err, &rejected) {
			s.queue.Requeue(txs)
		}
		return nil, err
	}

	blk.Height = s.height + 1
	blk.Payload = payload.Encode(blk.Variant, blk.Proof.Elements(), blk.Root[:])

	b := s.store.NewBatch()
	b.Set(s.ns.BlockRootKey(blk.Height), blk.Root[:])
	b.Set(s.ns.Key("/height"), binary.BigEndian.AppendUint64(nil, blk.Height))
	if err := b.Write(); err != nil {
		s.queue.Requeue(txs)
		return nil, fmt.Errorf("journal block %d: %w", blk.Height, err)
	}

	s.height = blk.Height
	s.state = blk.State
	s.metrics.committed(blk.Height)
	s.logger.Info().Uint64("height", blk.Height).Int("txs", len(txs)).Stringer("root", blk.Root).Msg("block produced")
	return blk, nil
}

// Run drains the queue whenever tick fires until ctx is done. Empty
// queues and rejected batches are not fatal.
func (s *Sequencer) Run(ctx context.Context, tick <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
		if err := s.drain(ctx); err != nil {
			return err
		}
	}
}

func (s *Sequencer) drain(ctx context.Context) error {
	for {
		_, err := s.ProduceBlock(ctx)
		var rejected *backend.TransitionRejectedError
		switch {
		case err == nil, errors.As(err, &rejected):
		case errors.Is(err, ErrEmptyBatch):
			return nil
		default:
			return err
		}
	}
}

// State returns the state after the last block.
func (s *Sequencer) State() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// BlockRoot reads the journaled root of a block.
func (s *Sequencer) BlockRoot(height uint64) (merkle.Hash, bool, error) {
	raw, ok, err := s.store.Get(s.ns.BlockRootKey(height))
	if err != nil || !ok {
		return merkle.Hash{}, false, err
	}
	if len(raw) != len(merkle.Hash{}) {
		return merkle.Hash{}, false, fmt.Errorf("journaled root has %d bytes", len(raw))
	}
	return merkle.Hash(raw), true, nil
}

package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/satcity/internal/transition"
	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/mempool"
	"github.com/yourorg/satcity/pkg/payload"
	"github.com/yourorg/satcity/pkg/state"
	"github.com/yourorg/satcity/pkg/types"
)

/* ---------- stub backend ---------- */

type stubProof []felt.Felt

func (p stubProof) Elements() []felt.Felt { return p }

// stubBackend runs the real transition program and attaches a fake proof.
type stubBackend struct {
	marker  uint64
	fail    error
	noProof bool
	calls   int
}

func (s *stubBackend) Prove(_ context.Context, args []felt.Felt) (*backend.Execution, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	out, err := transition.Run(args)
	if err != nil {
		return nil, err
	}
	out[0] = felt.FromUint64(s.marker)
	exec := &backend.Execution{
		Output:  out,
		Proof:   stubProof{felt.FromUint64(7), felt.FromUint64(8)},
		Variant: backend.CanonicalWithoutPedersen,
	}
	if s.noProof {
		exec.Proof = nil
	}
	return exec, nil
}

/* ---------- fixtures ---------- */

var (
	alice = types.NewAssetID(1, 1)
	bob   = types.NewAssetID(1, 2)
)

func genesis() *state.State {
	st := state.New()
	st.UpsertPlayer(types.Player{ID: alice, Chips: *uint256.NewInt(100)})
	st.UpsertPlayer(types.Player{ID: bob, Chips: *uint256.NewInt(50)})
	st.UpsertNft(types.OrbitalNft{ID: *uint256.NewInt(42), Owner: alice})
	st.Commit()
	return st
}

func batch() []types.Transaction {
	return []types.Transaction{
		types.TransferChips(alice, bob, uint256.NewInt(10)),
		types.TransferNft(alice, bob, uint256.NewInt(42)),
	}
}

/* ---------- prover ---------- */

func TestProveChangesRoot(t *testing.T) {
	st := genesis()
	oldRoot, ok := st.Root()
	require.True(t, ok)

	p := NewProver(&stubBackend{}, zerolog.Nop(), nil)
	newRoot, err := p.Prove(context.Background(), batch(), st)
	require.NoError(t, err)
	require.NotEqual(t, oldRoot, newRoot)

	// input state untouched
	after, _ := st.Root()
	require.Equal(t, oldRoot, after)
	pl, _ := st.Player(alice)
	require.Equal(t, uint64(100), pl.Chips.Uint64())
}

func TestProveBlockState(t *testing.T) {
	p := NewProver(&stubBackend{}, zerolog.Nop(), nil)
	blk, err := p.ProveBlock(context.Background(), batch(), genesis())
	require.NoError(t, err)

	a, _ := blk.State.Player(alice)
	b, _ := blk.State.Player(bob)
	require.Equal(t, uint64(90), a.Chips.Uint64())
	require.Equal(t, uint64(60), b.Chips.Uint64())

	n, ok := blk.State.Nft(uint256.NewInt(42))
	require.True(t, ok)
	require.Equal(t, bob, n.Owner)

	root, _ := blk.State.Root()
	require.Equal(t, root, blk.Root)
	require.Equal(t, backend.CanonicalWithoutPedersen, blk.Variant)
}

func TestMarkerIsSkipped(t *testing.T) {
	zero := NewProver(&stubBackend{}, zerolog.Nop(), nil)
	other := NewProver(&stubBackend{marker: 12345}, zerolog.Nop(), nil)

	a, err := zero.Prove(context.Background(), batch(), genesis())
	require.NoError(t, err)
	b, err := other.Prove(context.Background(), batch(), genesis())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRejectedBatch(t *testing.T) {
	st := genesis()
	p := NewProver(&stubBackend{}, zerolog.Nop(), nil)

	_, err := p.Prove(context.Background(),
		[]types.Transaction{types.TransferChips(bob, alice, uint256.NewInt(51))}, st)

	var rej *backend.TransitionRejectedError
	require.True(t, errors.As(err, &rej))
	require.Contains(t, rej.Diagnostics(), "insufficient chips")
}

func TestEmptyStateHasNoRoot(t *testing.T) {
	p := NewProver(&stubBackend{}, zerolog.Nop(), nil)
	_, err := p.Prove(context.Background(), nil, state.New())
	require.ErrorIs(t, err, ErrNoRoot)
}

/* ---------- sequencer ---------- */

func newSequencer(t *testing.T, b backend.Prover, store kv.Store) (*Sequencer, *mempool.Queue) {
	t.Helper()
	q := mempool.New()
	s, err := New(q, NewProver(b, zerolog.Nop(), nil), genesis(), store, kv.Namespace("seq"), WithBatchSize(2))
	require.NoError(t, err)
	return s, q
}

func TestProduceBlock(t *testing.T) {
	store := kv.NewMemory()
	s, q := newSequencer(t, &stubBackend{}, store)

	_, err := s.ProduceBlock(context.Background())
	require.ErrorIs(t, err, ErrEmptyBatch)

	for _, tx := range batch() {
		q.AddTransaction(tx)
	}
	q.AddTransaction(types.TransferChips(bob, alice, uint256.NewInt(1)))

	blk, err := s.ProduceBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), blk.Height)
	require.Len(t, blk.Transactions, 2)
	require.Equal(t, 1, q.Len())

	p, err := payload.Parse(blk.Payload)
	require.NoError(t, err)
	require.Equal(t, blk.Root[:], p.NewRoot)
	require.Equal(t, blk.Proof.Elements(), p.Elements)

	root, ok, err := s.BlockRoot(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blk.Root, root)
	require.Equal(t, blk.State, s.State())

	// height survives a restart
	again, _ := newSequencer(t, &stubBackend{}, store)
	require.Equal(t, uint64(1), again.Height())
}

func TestRejectedBatchIsDropped(t *testing.T) {
	s, q := newSequencer(t, &stubBackend{}, kv.NewMemory())
	before := s.State()

	q.AddTransaction(types.TransferNft(bob, alice, uint256.NewInt(42)))
	_, err := s.ProduceBlock(context.Background())
	require.Error(t, err)

	require.Zero(t, q.Len())
	require.Zero(t, s.Height())
	require.Same(t, before, s.State())
}

func TestBackendFailureRequeues(t *testing.T) {
	b := &stubBackend{fail: backend.ErrBackendIO}
	s, q := newSequencer(t, b, kv.NewMemory())
	for _, tx := range batch() {
		q.AddTransaction(tx)
	}

	_, err := s.ProduceBlock(context.Background())
	require.ErrorIs(t, err, backend.ErrBackendIO)
	require.Equal(t, 2, q.Len())

	b.fail = nil
	blk, err := s.ProduceBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), blk.Height)
}

func TestMissingProofRequeues(t *testing.T) {
	b := &stubBackend{noProof: true}
	s, q := newSequencer(t, b, kv.NewMemory())
	for _, tx := range batch() {
		q.AddTransaction(tx)
	}

	_, err := s.ProduceBlock(context.Background())
	require.ErrorIs(t, err, backend.ErrBackendIO)
	require.Equal(t, 2, q.Len())
	require.Zero(t, s.Height())
}

func TestRunDrainsOnTick(t *testing.T) {
	s, q := newSequencer(t, &stubBackend{}, kv.NewMemory())
	for _, tx := range batch() {
		q.AddTransaction(tx)
	}
	q.AddTransaction(types.TransferChips(alice, bob, uint256.NewInt(1000))) // rejected
	q.AddTransaction(types.TransferChips(bob, alice, uint256.NewInt(5)))

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, tick) }()

	tick <- struct{}{}
	require.Eventually(t, func() bool { return q.Len() == 0 && s.Height() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestMetrics(t *testing.T) {
	m, err := GetPrometheusMetrics("test")
	require.NoError(t, err)

	q := mempool.New()
	s, err := New(q, NewProver(&stubBackend{}, zerolog.Nop(), m), genesis(), kv.NewMemory(), "seq",
		WithBatchSize(1), WithMetrics(m))
	require.NoError(t, err)

	q.AddTransaction(types.TransferChips(alice, bob, uint256.NewInt(1)))
	q.AddTransaction(types.TransferChips(alice, bob, uint256.NewInt(1000)))
	_, err = s.ProduceBlock(context.Background())
	require.NoError(t, err)
	_, err = s.ProduceBlock(context.Background())
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.blocks))
	require.Equal(t, 1.0, testutil.ToFloat64(m.height))
	require.Equal(t, 1.0, testutil.ToFloat64(m.rejectedBatches))
}

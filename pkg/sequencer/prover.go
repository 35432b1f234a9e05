// Package sequencer turns batches of pending transfers into proved state
// transitions.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/circuitinput"
	"github.com/yourorg/satcity/pkg/merkle"
	"github.com/yourorg/satcity/pkg/state"
	"github.com/yourorg/satcity/pkg/types"
)

var ErrNoRoot = errors.New("transition produced an empty state")

// Block is one proved transition.
type Block struct {
	Height       uint64
	Transactions []types.Transaction
	State        *state.State
	Root         merkle.Hash
	Proof        backend.Proof
	Variant      backend.Variant
	// Payload is the witness payload that carries Proof and Root on chain.
	Payload []byte
}

// Prover flattens a state and a batch, hands them to the proving backend
// and rebuilds the resulting state.
type Prover struct {
	backend backend.Prover
	logger  zerolog.Logger
	metrics *Metrics
}

func NewProver(b backend.Prover, logger zerolog.Logger, m *Metrics) *Prover {
	if m == nil {
		m = NilMetrics()
	}
	return &Prover{backend: b, logger: logger, metrics: m}
}

// Prove returns the root of the state that results from applying txs to st.
// st is never modified.
func (p *Prover) Prove(ctx context.Context, txs []types.Transaction, st *state.State) (merkle.Hash, error) {
	blk, err := p.ProveBlock(ctx, txs, st)
	if err != nil {
		return merkle.Hash{}, err
	}
	return blk.Root, nil
}

// ProveBlock is Prove returning the new state and the proof as well.
func (p *Prover) ProveBlock(ctx context.Context, txs []types.Transaction, st *state.State) (*Block, error) {
	args := circuitinput.EncodeBatch(st.Players(), st.Nfts(), txs)

	start := time.Now()
	exec, err := p.backend.Prove(ctx, args)
	p.metrics.observeProve(time.Since(start))
	if err != nil {
		var rejected *backend.TransitionRejectedError
		if errors.As(err, &rejected) {
			p.metrics.rejected()
			p.logger.Error().Str("panic", rejected.Diagnostics()).Int("txs", len(txs)).Msg("transition rejected")
		} else {
			p.logger.Error().Err(err).Int("txs", len(txs)).Msg("proving failed")
		}
		return nil, fmt.Errorf("prove batch: %w", err)
	}

	if exec.Proof == nil {
		return nil, fmt.Errorf("%w: backend returned no proof", backend.ErrBackendIO)
	}

	d := circuitinput.NewDecoder(exec.Output)
	if err := d.Skip(1); err != nil {
		return nil, fmt.Errorf("backend output: %w", err)
	}
	players, err := d.DecodePlayers()
	if err != nil {
		return nil, fmt.Errorf("backend output: %w", err)
	}
	nfts, err := d.DecodeNfts()
	if err != nil {
		return nil, fmt.Errorf("backend output: %w", err)
	}

	next := state.New()
	for _, pl := range players {
		next.UpsertPlayer(pl)
	}
	for _, n := range nfts {
		next.UpsertNft(n)
	}
	next.Commit()

	root, ok := next.Root()
	if !ok {
		return nil, ErrNoRoot
	}

	p.logger.Debug().Stringer("root", root).Int("players", len(players)).Int("nfts", len(nfts)).Msg("batch proved")
	return &Block{
		Transactions: txs,
		State:        next,
		Root:         root,
		Proof:        exec.Proof,
		Variant:      exec.Variant,
	}, nil
}

// Package transition is the state-transition program run by the reference
// proving backend. It reads a circuit-input batch, applies the transfers in
// order and emits the resulting players and nfts.
package transition

import (
	"github.com/holiman/uint256"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/circuitinput"
	"github.com/yourorg/satcity/pkg/felt"
	"github.com/yourorg/satcity/pkg/types"
)

// Panic messages raised by Run.
const (
	MsgMalformed         = "malformed input"
	MsgInsufficientChips = "insufficient chips"
	MsgUnknownPlayer     = "unknown player"
	MsgUnknownNft        = "unknown nft"
	MsgNotNftOwner       = "not nft owner"
	MsgUnknownKind       = "unknown transaction kind"
)

// Marker is the leading output element.
const Marker = 0

type world struct {
	players   []types.Player
	playerIdx map[types.AssetID]int
	nfts      []types.OrbitalNft
	nftIdx    map[uint256.Int]int
}

func load(b *circuitinput.Batch) *world {
	w := &world{
		players:   b.Players,
		playerIdx: make(map[types.AssetID]int, len(b.Players)),
		nfts:      b.Nfts,
		nftIdx:    make(map[uint256.Int]int, len(b.Nfts)),
	}
	for i, p := range b.Players {
		w.playerIdx[p.ID] = i
	}
	for i, n := range b.Nfts {
		w.nftIdx[n.ID] = i
	}
	return w
}

func (w *world) player(id types.AssetID) *types.Player {
	i, ok := w.playerIdx[id]
	if !ok {
		return nil
	}
	return &w.players[i]
}

// playerOrNew returns the player with id, appending an empty one if absent.
func (w *world) playerOrNew(id types.AssetID) *types.Player {
	if p := w.player(id); p != nil {
		return p
	}
	w.playerIdx[id] = len(w.players)
	w.players = append(w.players, types.Player{ID: id})
	return &w.players[len(w.players)-1]
}

func (w *world) apply(tx *types.Transaction) *backend.TransitionRejectedError {
	switch tx.Kind {
	case types.KindTransferChips:
		from := w.player(tx.From)
		if from == nil {
			return backend.Rejected(MsgUnknownPlayer)
		}
		if from.Chips.Lt(&tx.Value) {
			return backend.Rejected(MsgInsufficientChips)
		}
		from.Chips.Sub(&from.Chips, &tx.Value)
		// appending the recipient may move from
		to := w.playerOrNew(tx.To)
		to.Chips.Add(&to.Chips, &tx.Value)
	case types.KindTransferNft:
		i, ok := w.nftIdx[tx.Value]
		if !ok {
			return backend.Rejected(MsgUnknownNft)
		}
		if w.nfts[i].Owner != tx.From {
			return backend.Rejected(MsgNotNftOwner)
		}
		w.nfts[i].Owner = tx.To
	default:
		return backend.Rejected(MsgUnknownKind)
	}
	return nil
}

// Run executes the program. The output is
// [Marker, player_count, players..., nft_count, nfts...]. Any failure is a
// *backend.TransitionRejectedError carrying short-string panic elements.
func Run(args []felt.Felt) ([]felt.Felt, error) {
	b, err := circuitinput.DecodeBatch(args)
	if err != nil {
		return nil, backend.Rejected(MsgMalformed)
	}

	w := load(b)
	for i := range b.Transactions {
		if rej := w.apply(&b.Transactions[i]); rej != nil {
			return nil, rej
		}
	}

	players := circuitinput.EncodePlayers(w.players)
	nfts := circuitinput.EncodeNfts(w.nfts)

	out := make([]felt.Felt, 0, 3+len(players)+len(nfts))
	out = append(out, felt.FromUint64(Marker))
	out = append(out, felt.FromUint64(uint64(len(w.players))))
	out = append(out, players...)
	out = append(out, felt.FromUint64(uint64(len(w.nfts))))
	out = append(out, nfts...)
	return out, nil
}

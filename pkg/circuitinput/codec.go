// Package circuitinput flattens players, nfts and transactions into the
// ordered field-element layout consumed by the transition program, and reads
// them back.
//
//	Player      -> block, tx, chips_lo, chips_hi
//	OrbitalNft  -> id_lo, id_hi, owner.block, owner.tx
//	Transaction -> tag, from.block, from.tx, to.block, to.tx, value_lo, value_hi
//
// A batch is [player_count, players..., nft_count, nfts..., tx_count, txs...]
// where counts are entity counts.
package circuitinput

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"github.com/yourorg/satcity/pkg/felt"
	"github.com/yourorg/satcity/pkg/types"
)

const (
	PlayerArity = 4
	NftArity    = 4
	TxArity     = 7
)

var ErrMalformed = errors.New("malformed circuit data")

func appendAssetID(out []felt.Felt, id types.AssetID) []felt.Felt {
	return append(out, felt.FromU128(id.Block), felt.FromU128(id.Tx))
}

func EncodePlayers(players []types.Player) []felt.Felt {
	out := make([]felt.Felt, 0, PlayerArity*len(players))
	for i := range players {
		lo, hi := felt.SplitU256(&players[i].Chips)
		out = appendAssetID(out, players[i].ID)
		out = append(out, lo, hi)
	}
	return out
}

func EncodeNfts(nfts []types.OrbitalNft) []felt.Felt {
	out := make([]felt.Felt, 0, NftArity*len(nfts))
	for i := range nfts {
		lo, hi := felt.SplitU256(&nfts[i].ID)
		out = append(out, lo, hi)
		out = appendAssetID(out, nfts[i].Owner)
	}
	return out
}

func EncodeTransactions(txs []types.Transaction) []felt.Felt {
	out := make([]felt.Felt, 0, TxArity*len(txs))
	for i := range txs {
		lo, hi := felt.SplitU256(&txs[i].Value)
		out = append(out, felt.FromUint64(uint64(txs[i].Kind)))
		out = appendAssetID(out, txs[i].From)
		out = appendAssetID(out, txs[i].To)
		out = append(out, lo, hi)
	}
	return out
}

// EncodeBatch builds the single argument buffer handed to the proving
// backend.
func EncodeBatch(players []types.Player, nfts []types.OrbitalNft, txs []types.Transaction) []felt.Felt {
	out := make([]felt.Felt, 0, 3+PlayerArity*len(players)+NftArity*len(nfts)+TxArity*len(txs))
	out = append(out, felt.FromUint64(uint64(len(players))))
	out = append(out, EncodePlayers(players)...)
	out = append(out, felt.FromUint64(uint64(len(nfts))))
	out = append(out, EncodeNfts(nfts)...)
	out = append(out, felt.FromUint64(uint64(len(txs))))
	out = append(out, EncodeTransactions(txs)...)
	return out
}

// Decoder consumes a field-element buffer front to back.
type Decoder struct {
	buf []felt.Felt
	pos int
}

func NewDecoder(buf []felt.Felt) *Decoder { return &Decoder{buf: buf} }

// Remaining reports how many elements have not been consumed.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Skip discards n elements.
func (d *Decoder) Skip(n int) error {
	if d.Remaining() < n {
		return fmt.Errorf("%w: skip %d with %d left", ErrMalformed, n, d.Remaining())
	}
	d.pos += n
	return nil
}

func (d *Decoder) next() (*felt.Felt, error) {
	if d.pos >= len(d.buf) {
		return nil, fmt.Errorf("%w: not enough data at element %d", ErrMalformed, d.pos)
	}
	f := &d.buf[d.pos]
	d.pos++
	return f, nil
}

// count reads an entity count and checks the buffer can hold it.
func (d *Decoder) count(arity int) (int, error) {
	f, err := d.next()
	if err != nil {
		return 0, err
	}
	n, err := felt.ToUint64(f)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrMalformed, err)
	}
	if n > uint64(d.Remaining()/arity) {
		return 0, fmt.Errorf("%w: count %d needs %d elements, %d left", ErrMalformed, n, n*uint64(arity), d.Remaining())
	}
	return int(n), nil
}

func (d *Decoder) assetID() (types.AssetID, error) {
	block, err := d.u128()
	if err != nil {
		return types.AssetID{}, err
	}
	tx, err := d.u128()
	if err != nil {
		return types.AssetID{}, err
	}
	return types.AssetID{Block: block, Tx: tx}, nil
}

func (d *Decoder) u128() (uint128.Uint128, error) {
	f, err := d.next()
	if err != nil {
		return uint128.Zero, err
	}
	v, err := felt.ToU128(f)
	if err != nil {
		return uint128.Zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

func (d *Decoder) u256() (uint256.Int, error) {
	lo, err := d.next()
	if err != nil {
		return uint256.Int{}, err
	}
	hi, err := d.next()
	if err != nil {
		return uint256.Int{}, err
	}
	v, err := felt.JoinU256(lo, hi)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

func (d *Decoder) DecodePlayers() ([]types.Player, error) {
	n, err := d.count(PlayerArity)
	if err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}

	out := make([]types.Player, 0, n)
	for i := 0; i < n; i++ {
		id, err := d.assetID()
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}
		chips, err := d.u256()
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}
		out = append(out, types.Player{ID: id, Chips: chips})
	}
	return out, nil
}

func (d *Decoder) DecodeNfts() ([]types.OrbitalNft, error) {
	n, err := d.count(NftArity)
	if err != nil {
		return nil, fmt.Errorf("nfts: %w", err)
	}

	out := make([]types.OrbitalNft, 0, n)
	for i := 0; i < n; i++ {
		id, err := d.u256()
		if err != nil {
			return nil, fmt.Errorf("nft %d: %w", i, err)
		}
		owner, err := d.assetID()
		if err != nil {
			return nil, fmt.Errorf("nft %d: %w", i, err)
		}
		out = append(out, types.OrbitalNft{ID: id, Owner: owner})
	}
	return out, nil
}

func (d *Decoder) DecodeTransactions() ([]types.Transaction, error) {
	n, err := d.count(TxArity)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}

	out := make([]types.Transaction, 0, n)
	for i := 0; i < n; i++ {
		tag, err := d.next()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		var kind types.TxKind
		switch {
		case tag.IsZero():
			kind = types.KindTransferChips
		case tag.IsOne():
			kind = types.KindTransferNft
		default:
			return nil, fmt.Errorf("%w: transaction %d: unknown tag %s", ErrMalformed, i, tag.String())
		}

		from, err := d.assetID()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		to, err := d.assetID()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		value, err := d.u256()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		out = append(out, types.Transaction{Kind: kind, From: from, To: to, Value: value})
	}
	return out, nil
}

// Batch is a decoded argument buffer.
type Batch struct {
	Players      []types.Player
	Nfts         []types.OrbitalNft
	Transactions []types.Transaction
}

// DecodeBatch is the inverse of EncodeBatch. Trailing elements are an error.
func DecodeBatch(buf []felt.Felt) (*Batch, error) {
	d := NewDecoder(buf)

	players, err := d.DecodePlayers()
	if err != nil {
		return nil, err
	}
	nfts, err := d.DecodeNfts()
	if err != nil {
		return nil, err
	}
	txs, err := d.DecodeTransactions()
	if err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing elements", ErrMalformed, d.Remaining())
	}
	return &Batch{Players: players, Nfts: nfts, Transactions: txs}, nil
}

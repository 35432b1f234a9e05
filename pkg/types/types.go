package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// AssetID identifies an account or contract by the block and transaction
// that created it.
type AssetID struct {
	Block uint128.Uint128
	Tx    uint128.Uint128
}

// NewAssetID is a shorthand for ids that fit in 64 bits.
func NewAssetID(block, tx uint64) AssetID {
	return AssetID{Block: uint128.From64(block), Tx: uint128.From64(tx)}
}

func (id AssetID) String() string {
	return id.Block.String() + ":" + id.Tx.String()
}

// ParseAssetID parses the "block:tx" form produced by String.
func ParseAssetID(s string) (AssetID, error) {
	blockS, txS, ok := strings.Cut(s, ":")
	if !ok {
		return AssetID{}, fmt.Errorf("asset id %q: expected block:tx", s)
	}

	block, err := uint128.FromString(blockS)
	if err != nil {
		return AssetID{}, fmt.Errorf("asset id %q: block: %w", s, err)
	}

	tx, err := uint128.FromString(txS)
	if err != nil {
		return AssetID{}, fmt.Errorf("asset id %q: tx: %w", s, err)
	}

	return AssetID{Block: block, Tx: tx}, nil
}

func (id AssetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AssetID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Player is the rollup account record.
type Player struct {
	ID    AssetID     `json:"id"`
	Chips uint256.Int `json:"chips"`
}

// OrbitalNft is a non-fungible asset and its current owner.
type OrbitalNft struct {
	ID    uint256.Int `json:"id"`
	Owner AssetID     `json:"owner"`
}

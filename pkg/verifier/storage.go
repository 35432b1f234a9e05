package verifier

import (
	"fmt"

	"lukechampine.com/uint128"

	"github.com/yourorg/satcity/pkg/kv"
	"github.com/yourorg/satcity/pkg/types"
)

type keys struct {
	initialized []byte
	bridgeID    []byte
	stateRoot   []byte
	lastVariant []byte
}

func newKeys(ns kv.Namespace) keys {
	return keys{
		initialized: ns.Key("/initialized"),
		bridgeID:    ns.Key("/bridge_id"),
		stateRoot:   ns.Key("/state_root"),
		lastVariant: ns.Key("/last_preprocessed_variant"),
	}
}

// encodeAssetID stores block then tx, 16 little-endian bytes each.
func encodeAssetID(id types.AssetID) []byte {
	b := make([]byte, 32)
	id.Block.PutBytes(b[:16])
	id.Tx.PutBytes(b[16:])
	return b
}

func decodeAssetID(b []byte) (types.AssetID, error) {
	if len(b) != 32 {
		return types.AssetID{}, fmt.Errorf("stored asset id has %d bytes", len(b))
	}
	return types.AssetID{Block: uint128.FromBytes(b[:16]), Tx: uint128.FromBytes(b[16:])}, nil
}

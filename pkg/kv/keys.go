package kv

import (
	"encoding/hex"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"
)

// Namespace prefixes every key of one owner of a shared store.
type Namespace string

// ContractNamespace derives a fixed-width namespace from a deployment id:
// the first 8 bytes of keccak256(id), hex encoded.
func ContractNamespace(id []byte) Namespace {
	sum := crypto.Keccak256(id)
	return Namespace("c:" + hex.EncodeToString(sum[:8]))
}

// Key joins the namespace with a path such as "/state_root".
func (ns Namespace) Key(path string) []byte {
	return []byte(string(ns) + path)
}

// BlockRootKey is the journal key of the state root produced at height.
func (ns Namespace) BlockRootKey(height uint64) []byte {
	return ns.Key("/blocks/" + strconv.FormatUint(height, 10) + "/root")
}

// Package merkle implements the append-only binary accumulator behind
// AuthenticatedState. Parents are SHA-256(left || right); a node without a
// right sibling is promoted to the next level unchanged.
package merkle

import (
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Sum hashes raw leaf data.
func Sum(data []byte) Hash { return sha256.Sum256(data) }

func hashPair(left, right Hash) Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256.Sum256(buf[:])
}

// Tree accumulates leaves. Inserted leaves only contribute to Root after
// Commit.
type Tree struct {
	committed []Hash
	pending   []Hash
	layers    [][]Hash
}

func New() *Tree { return &Tree{} }

// Insert queues a leaf hash for the next Commit.
func (t *Tree) Insert(leaf Hash) {
	t.pending = append(t.pending, leaf)
}

// Commit appends the pending leaves and rebuilds the root. It is a no-op
// when nothing is pending.
func (t *Tree) Commit() {
	if len(t.pending) == 0 {
		return
	}
	t.committed = append(t.committed, t.pending...)
	t.pending = nil
	t.layers = buildLayers(t.committed)
}

// Root returns false until a commit containing at least one leaf.
func (t *Tree) Root() (Hash, bool) {
	if len(t.layers) == 0 {
		return Hash{}, false
	}
	return t.layers[len(t.layers)-1][0], true
}

// Len counts every inserted leaf, committed or not.
func (t *Tree) Len() int { return len(t.committed) + len(t.pending) }

// Committed counts the leaves covered by Root.
func (t *Tree) Committed() int { return len(t.committed) }

func buildLayers(leaves []Hash) [][]Hash {
	level := make([]Hash, len(leaves))
	copy(level, leaves)

	layers := [][]Hash{level}
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		layers = append(layers, next)
		level = next
	}
	return layers
}

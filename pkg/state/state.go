// Package state holds the sequencer's authenticated view of players and
// orbitals.
package state

import (
	"encoding/binary"
	"slices"

	"github.com/holiman/uint256"

	"github.com/yourorg/satcity/pkg/merkle"
	"github.com/yourorg/satcity/pkg/types"
)

const (
	tagPlayer byte = 0x00
	tagNft    byte = 0x01
)

// State maps players and nfts to their latest value and commits every write
// to an append-only Merkle tree. Overwriting an entry adds a new leaf; the
// root therefore commits to the write history, not only the current set.
//
// A State is not safe for concurrent use.
type State struct {
	players map[types.AssetID]types.Player
	nfts    map[uint256.Int]types.OrbitalNft
	tree    *merkle.Tree
}

func New() *State {
	return &State{
		players: make(map[types.AssetID]types.Player),
		nfts:    make(map[uint256.Int]types.OrbitalNft),
		tree:    merkle.New(),
	}
}

func (s *State) UpsertPlayer(p types.Player) {
	s.tree.Insert(PlayerLeaf(p))
	s.players[p.ID] = p
}

func (s *State) UpsertNft(n types.OrbitalNft) {
	s.tree.Insert(NftLeaf(n))
	s.nfts[n.ID] = n
}

// Commit seals every leaf inserted so far.
func (s *State) Commit() { s.tree.Commit() }

// Root is undefined until a commit has sealed at least one leaf.
func (s *State) Root() (merkle.Hash, bool) { return s.tree.Root() }

func (s *State) Player(id types.AssetID) (types.Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s *State) Nft(id *uint256.Int) (types.OrbitalNft, bool) {
	n, ok := s.nfts[*id]
	return n, ok
}

// Players returns a snapshot of the current players ordered by id.
func (s *State) Players() []types.Player {
	out := make([]types.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b types.Player) int { return compareAssetID(a.ID, b.ID) })
	return out
}

// Nfts returns a snapshot of the current nfts ordered by id.
func (s *State) Nfts() []types.OrbitalNft {
	out := make([]types.OrbitalNft, 0, len(s.nfts))
	for _, n := range s.nfts {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b types.OrbitalNft) int { return a.ID.Cmp(&b.ID) })
	return out
}

// LeafCount reports the number of writes recorded by the tree.
func (s *State) LeafCount() int { return s.tree.Len() }

// CommittedLeaves counts the writes covered by Root; Proof accepts indexes
// below it.
func (s *State) CommittedLeaves() int { return s.tree.Committed() }

// Proof returns the inclusion proof of the i-th committed write.
func (s *State) Proof(i int) (merkle.Proof, error) { return s.tree.Proof(i) }

// PlayerLeaf is SHA-256(0x00 || le(block) || le(tx) || le(chips)).
func PlayerLeaf(p types.Player) merkle.Hash {
	var buf [1 + 16 + 16 + 32]byte
	buf[0] = tagPlayer
	p.ID.Block.PutBytes(buf[1:17])
	p.ID.Tx.PutBytes(buf[17:33])
	putU256LE(buf[33:], &p.Chips)
	return merkle.Sum(buf[:])
}

// NftLeaf is SHA-256(0x01 || le(id) || le(owner.block) || le(owner.tx)).
func NftLeaf(n types.OrbitalNft) merkle.Hash {
	var buf [1 + 32 + 16 + 16]byte
	buf[0] = tagNft
	putU256LE(buf[1:33], &n.ID)
	n.Owner.Block.PutBytes(buf[33:49])
	n.Owner.Tx.PutBytes(buf[49:65])
	return merkle.Sum(buf[:])
}

func putU256LE(b []byte, v *uint256.Int) {
	for i, limb := range v {
		binary.LittleEndian.PutUint64(b[8*i:], limb)
	}
}

func compareAssetID(a, b types.AssetID) int {
	if c := a.Block.Cmp(b.Block); c != 0 {
		return c
	}
	return a.Tx.Cmp(b.Tx)
}

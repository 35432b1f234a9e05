package merkle

import (
	"errors"
	"fmt"
)

var ErrLeafIndex = errors.New("leaf index out of range")

// Step is one sibling on the path from a leaf to the root.
type Step struct {
	Sibling Hash
	Left    bool // sibling sits on the left
}

// Proof is an inclusion path. Levels where the node was promoted carry no
// step.
type Proof struct {
	Index int
	Steps []Step
}

// Proof builds the inclusion path of committed leaf i.
func (t *Tree) Proof(i int) (Proof, error) {
	if i < 0 || i >= len(t.committed) {
		return Proof{}, fmt.Errorf("%w: %d of %d", ErrLeafIndex, i, len(t.committed))
	}

	p := Proof{Index: i}
	idx := i
	for _, level := range t.layers[:len(t.layers)-1] {
		sib := idx ^ 1
		if sib < len(level) {
			p.Steps = append(p.Steps, Step{Sibling: level[sib], Left: sib < idx})
		}
		idx /= 2
	}
	return p, nil
}

// Verify folds leaf through the proof and compares against root.
func Verify(root, leaf Hash, p Proof) bool {
	acc := leaf
	for _, s := range p.Steps {
		if s.Left {
			acc = hashPair(s.Sibling, acc)
		} else {
			acc = hashPair(acc, s.Sibling)
		}
	}
	return acc == root
}

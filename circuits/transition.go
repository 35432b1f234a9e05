package circuits

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"

	"github.com/yourorg/satcity/internal/mimc"
)

func Curve() ecc.ID { return ecc.BN254 }

// TransitionCircuit binds the argument buffer and the output buffer of one
// transition run to two public MiMC digests. In and Out must be allocated to
// their final lengths before compiling.
type TransitionCircuit struct {
	InDigest  frontend.Variable `gnark:",public"`
	OutDigest frontend.Variable `gnark:",public"`

	In  []frontend.Variable
	Out []frontend.Variable

	// Pedersen folds a commitment over In and Out into the constraint system.
	Pedersen bool `gnark:"-"`
}

// NewTransitionCircuit returns a blueprint with In and Out allocated.
func NewTransitionCircuit(inLen, outLen int, pedersen bool) *TransitionCircuit {
	return &TransitionCircuit{
		In:       make([]frontend.Variable, inLen),
		Out:      make([]frontend.Variable, outLen),
		Pedersen: pedersen,
	}
}

func (c *TransitionCircuit) Define(api frontend.API) error {
	h := mimc.New(api)
	h.Write(c.In...)
	api.AssertIsEqual(h.Sum(), c.InDigest)

	h.Reset()
	h.Write(c.Out...)
	api.AssertIsEqual(h.Sum(), c.OutDigest)

	if !c.Pedersen {
		return nil
	}

	committer, ok := api.(frontend.Committer)
	if !ok {
		return errNoCommitter
	}
	committed := make([]frontend.Variable, 0, len(c.In)+len(c.Out))
	committed = append(committed, c.In...)
	committed = append(committed, c.Out...)
	cmt, err := committer.Commit(committed...)
	if err != nil {
		return err
	}
	api.AssertIsDifferent(cmt, 0)
	return nil
}

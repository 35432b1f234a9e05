// Package backend defines the capabilities the sequencer and the proof gate
// need from a proving system. Implementations live in sub-packages.
package backend

import (
	"context"
	"fmt"

	"github.com/yourorg/satcity/pkg/felt"
)

// Variant selects the preprocessed-trace flavour a proof was produced
// against. The numeric values are part of the witness payload.
type Variant uint8

const (
	Canonical                Variant = 0
	CanonicalWithoutPedersen Variant = 1
)

func (v Variant) String() string {
	switch v {
	case Canonical:
		return "canonical"
	case CanonicalWithoutPedersen:
		return "canonical-without-pedersen"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == Canonical || v == CanonicalWithoutPedersen
}

// ParseVariant accepts the names returned by String.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "canonical":
		return Canonical, nil
	case "canonical-without-pedersen":
		return CanonicalWithoutPedersen, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

// Proof is a backend proof in wire form.
type Proof interface {
	Elements() []felt.Felt
}

// Execution is the result of running and proving the transition program.
// Output starts with the program's marker element.
type Execution struct {
	Output  []felt.Felt
	Proof   Proof
	Variant Variant
}

// Prover runs the transition program over args and proves the run.
// A program panic is reported as *TransitionRejectedError.
type Prover interface {
	Prove(ctx context.Context, args []felt.Felt) (*Execution, error)
}

// Verifier checks proofs produced by a Prover.
type Verifier interface {
	DeserializeProof(elems []felt.Felt) (Proof, error)
	// Verify returns nil or a *VerificationFailedError.
	Verify(proof Proof, variant Variant) error
}

// Package witness assembles gnark witnesses for the transition circuit.
package witness

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	backendwitness "github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"

	"github.com/yourorg/satcity/circuits"
	"github.com/yourorg/satcity/internal/mimc"
	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
)

// Build digests in and out and produces the full and public witnesses plus
// a blueprint sized for them.
func Build(variant backend.Variant, in, out []felt.Felt) (*Bundle, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("unknown variant %d", variant)
	}

	inD, err := mimc.Digest(in)
	if err != nil {
		return nil, fmt.Errorf("digest input: %w", err)
	}
	outD, err := mimc.Digest(out)
	if err != nil {
		return nil, fmt.Errorf("digest output: %w", err)
	}

	assignment := &circuits.TransitionCircuit{
		InDigest:  inD.BigInt(new(big.Int)),
		OutDigest: outD.BigInt(new(big.Int)),
		In:        mimc.Big(in),
		Out:       mimc.Big(out),
	}
	full, err := frontend.NewWitness(assignment, circuits.Curve().ScalarField())
	if err != nil {
		return nil, fmt.Errorf("full witness: %w", err)
	}
	pub, err := full.Public()
	if err != nil {
		return nil, fmt.Errorf("public witness: %w", err)
	}

	return &Bundle{
		Variant:   variant,
		Full:      full,
		Public:    pub,
		Inputs:    PublicInputs{InDigest: inD, OutDigest: outD},
		Blueprint: circuits.NewTransitionCircuit(len(in), len(out), variant == backend.Canonical),
	}, nil
}

// PublicWitness rebuilds the public witness from the two digests.
func PublicWitness(inputs PublicInputs) (backendwitness.Witness, error) {
	assignment := &circuits.TransitionCircuit{
		InDigest:  inputs.InDigest.BigInt(new(big.Int)),
		OutDigest: inputs.OutDigest.BigInt(new(big.Int)),
	}
	return frontend.NewWitness(assignment, circuits.Curve().ScalarField(), frontend.PublicOnly())
}

// FromFixtures loads transition.json from dir and builds its witnesses.
func FromFixtures(dir string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, "transition.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture: %w", err)
	}

	variant, err := backend.ParseVariant(fx.Variant)
	if err != nil {
		return nil, err
	}
	in, err := parseFelts(fx.In)
	if err != nil {
		return nil, fmt.Errorf("fixture input: %w", err)
	}
	out, err := parseFelts(fx.Out)
	if err != nil {
		return nil, fmt.Errorf("fixture output: %w", err)
	}
	return Build(variant, in, out)
}

func parseFelts(ss []string) ([]felt.Felt, error) {
	out := make([]felt.Felt, len(ss))
	for i, s := range ss {
		if _, err := out[i].SetString(s); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

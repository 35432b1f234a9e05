// Package mimc pairs the in-circuit MiMC gadget with its native BN254
// counterpart so both sides of a digest are computed the same way.
package mimc

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	nativemimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	stdmimc "github.com/consensys/gnark/std/hash/mimc"

	"github.com/yourorg/satcity/pkg/felt"
)

func New(api frontend.API) stdmimc.MiMC {
	h, err := stdmimc.NewMiMC(api)
	if err != nil {
		panic(err)
	}
	return h
}

// Digest hashes elems natively. Every STARK element is below the BN254 scalar
// modulus, so each one is absorbed as a single block.
func Digest(elems []felt.Felt) (fr.Element, error) {
	h := nativemimc.NewMiMC()
	for i := range elems {
		b := elems[i].Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return fr.Element{}, err
		}
	}

	var d fr.Element
	d.SetBytes(h.Sum(nil))
	return d, nil
}

// Big converts elems to circuit assignments.
func Big(elems []felt.Felt) []frontend.Variable {
	out := make([]frontend.Variable, len(elems))
	for i := range elems {
		out[i] = elems[i].BigInt(new(big.Int))
	}
	return out
}

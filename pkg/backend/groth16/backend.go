// Package groth16 is a reference proving backend. It runs the transition
// program natively and proves, with Groth16 over BN254, that the argument
// buffer and the output buffer hash to the digests carried by the proof.
package groth16

import (
	"context"
	"errors"
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/rs/zerolog"

	"github.com/yourorg/satcity/internal/transition"
	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
	"github.com/yourorg/satcity/pkg/witness"
)

// Backend implements backend.Prover and backend.Verifier.
type Backend struct {
	keys    *Keyring
	variant backend.Variant
	logger  zerolog.Logger
}

var (
	_ backend.Prover   = (*Backend)(nil)
	_ backend.Verifier = (*Backend)(nil)
)

func New(keys *Keyring, variant backend.Variant, logger zerolog.Logger) *Backend {
	return &Backend{keys: keys, variant: variant, logger: logger}
}

func (b *Backend) Prove(ctx context.Context, args []felt.Felt) (*backend.Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := transition.Run(args)
	if err != nil {
		return nil, err
	}

	bundle, err := witness.Build(b.variant, args, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrBackendIO, err)
	}

	shape := Shape{Variant: b.variant, InLen: len(args), OutLen: len(out)}
	st, err := b.keys.get(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrBackendIO, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := groth16.Prove(st.cs, st.pk, bundle.Full)
	if err != nil {
		return nil, fmt.Errorf("%w: prove: %v", backend.ErrBackendIO, err)
	}
	b.logger.Debug().Stringer("shape", shape).Msg("proof generated")

	return &backend.Execution{
		Output:  out,
		Proof:   &Proof{Variant: b.variant, Shape: shape, Inputs: bundle.Inputs, Raw: raw},
		Variant: b.variant,
	}, nil
}

func (b *Backend) DeserializeProof(elems []felt.Felt) (backend.Proof, error) {
	return ParseProof(elems)
}

func (b *Backend) Verify(p backend.Proof, variant backend.Variant) error {
	proof, ok := p.(*Proof)
	if !ok {
		return &backend.VerificationFailedError{Reason: fmt.Sprintf("unsupported proof type %T", p)}
	}
	if proof.Variant != variant {
		return &backend.VerificationFailedError{
			Reason: fmt.Sprintf("proof built for %s, payload says %s", proof.Variant, variant),
		}
	}

	vk, err := b.keys.VerifyingKey(proof.Shape)
	if errors.Is(err, ErrUnknownShape) {
		return &backend.VerificationFailedError{Reason: err.Error()}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrBackendIO, err)
	}
	pub, err := witness.PublicWitness(proof.Inputs)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrBackendIO, err)
	}
	if err := groth16.Verify(proof.Raw, vk, pub); err != nil {
		return &backend.VerificationFailedError{Reason: err.Error()}
	}
	return nil
}

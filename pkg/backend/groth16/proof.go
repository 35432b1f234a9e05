package groth16

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"lukechampine.com/uint128"

	"github.com/yourorg/satcity/circuits"
	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
	"github.com/yourorg/satcity/pkg/witness"
)

const (
	proofVersion = 1
	headerLen    = 8

	// MaxBufferLen bounds the argument and output lengths a proof may claim.
	MaxBufferLen = 1 << 16
)

var ErrMalformedProof = errors.New("malformed proof")

// Proof is a Groth16 proof over the transition circuit. Its wire form is
//
//	version, variant, in_len, out_len,
//	in_digest_hi, in_digest_lo, out_digest_hi, out_digest_lo,
//	packed proof bytes...
type Proof struct {
	Variant backend.Variant
	Shape   Shape
	Inputs  witness.PublicInputs
	Raw     groth16.Proof
}

func (p *Proof) Elements() []felt.Felt {
	var raw bytes.Buffer
	_, _ = p.Raw.WriteTo(&raw)

	out := make([]felt.Felt, 0, headerLen)
	out = append(out,
		felt.FromUint64(proofVersion),
		felt.FromUint64(uint64(p.Variant)),
		felt.FromUint64(uint64(p.Shape.InLen)),
		felt.FromUint64(uint64(p.Shape.OutLen)),
	)
	out = appendDigest(out, &p.Inputs.InDigest)
	out = appendDigest(out, &p.Inputs.OutDigest)
	return append(out, felt.PackBytes(raw.Bytes())...)
}

func appendDigest(out []felt.Felt, d *fr.Element) []felt.Felt {
	b := d.Bytes()
	return append(out,
		felt.FromU128(uint128.FromBytesBE(b[:16])),
		felt.FromU128(uint128.FromBytesBE(b[16:])),
	)
}

func readDigest(hi, lo *felt.Felt) (fr.Element, error) {
	h, err := felt.ToU128(hi)
	if err != nil {
		return fr.Element{}, err
	}
	l, err := felt.ToU128(lo)
	if err != nil {
		return fr.Element{}, err
	}

	var b [fr.Bytes]byte
	h.PutBytesBE(b[:16])
	l.PutBytesBE(b[16:])

	var d fr.Element
	if err := d.SetBytesCanonical(b[:]); err != nil {
		return fr.Element{}, err
	}
	return d, nil
}

func readLen(f *felt.Felt) (int, error) {
	n, err := felt.ToUint64(f)
	if err != nil {
		return 0, err
	}
	if n > MaxBufferLen {
		return 0, fmt.Errorf("length %d exceeds %d", n, MaxBufferLen)
	}
	return int(n), nil
}

// ParseProof is the inverse of (*Proof).Elements.
func ParseProof(elems []felt.Felt) (*Proof, error) {
	if len(elems) < headerLen {
		return nil, fmt.Errorf("%w: %d elements", ErrMalformedProof, len(elems))
	}
	if v, err := felt.ToUint64(&elems[0]); err != nil || v != proofVersion {
		return nil, fmt.Errorf("%w: unsupported version %s", ErrMalformedProof, elems[0].String())
	}
	vr, err := felt.ToUint64(&elems[1])
	if err != nil || vr > math.MaxUint8 || !backend.Variant(vr).Valid() {
		return nil, fmt.Errorf("%w: unknown variant %s", ErrMalformedProof, elems[1].String())
	}

	p := &Proof{Variant: backend.Variant(vr)}
	p.Shape.Variant = p.Variant
	if p.Shape.InLen, err = readLen(&elems[2]); err != nil {
		return nil, fmt.Errorf("%w: input length: %v", ErrMalformedProof, err)
	}
	if p.Shape.OutLen, err = readLen(&elems[3]); err != nil {
		return nil, fmt.Errorf("%w: output length: %v", ErrMalformedProof, err)
	}
	if p.Inputs.InDigest, err = readDigest(&elems[4], &elems[5]); err != nil {
		return nil, fmt.Errorf("%w: input digest: %v", ErrMalformedProof, err)
	}
	if p.Inputs.OutDigest, err = readDigest(&elems[6], &elems[7]); err != nil {
		return nil, fmt.Errorf("%w: output digest: %v", ErrMalformedProof, err)
	}

	raw, consumed, err := felt.UnpackBytes(elems[headerLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	if headerLen+consumed != len(elems) {
		return nil, fmt.Errorf("%w: %d trailing elements", ErrMalformedProof, len(elems)-headerLen-consumed)
	}

	p.Raw = groth16.NewProof(circuits.Curve())
	if _, err := p.Raw.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	return p, nil
}

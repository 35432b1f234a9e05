// Package felt holds the field element type used by the circuit input layout
// and the witness payload: an element of the STARK prime field
// p = 2^251 + 17·2^192 + 1, serialized as 32 big-endian bytes.
package felt

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// Size is the wire size of one element.
const Size = fp.Bytes

// Felt is a field element.
type Felt = fp.Element

var (
	ErrOutOfRange = errors.New("field element out of range")
	ErrTooLong    = errors.New("short string longer than 31 bytes")
)

func FromUint64(v uint64) Felt {
	var f Felt
	f.SetUint64(v)
	return f
}

func FromU128(v uint128.Uint128) Felt {
	var buf [Size]byte
	v.PutBytesBE(buf[16:])

	var f Felt
	f.SetBytes(buf[:])
	return f
}

// ToU128 fails when f does not fit in 128 bits.
func ToU128(f *Felt) (uint128.Uint128, error) {
	b := f.Bytes()
	for _, x := range b[:16] {
		if x != 0 {
			return uint128.Zero, fmt.Errorf("%w: %s exceeds 128 bits", ErrOutOfRange, f.String())
		}
	}
	return uint128.FromBytesBE(b[16:]), nil
}

// ToUint64 fails when f does not fit in 64 bits.
func ToUint64(f *Felt) (uint64, error) {
	if !f.IsUint64() {
		return 0, fmt.Errorf("%w: %s exceeds 64 bits", ErrOutOfRange, f.String())
	}
	return f.Uint64(), nil
}

// SplitU256 returns the low and high 128-bit halves of v.
func SplitU256(v *uint256.Int) (lo, hi Felt) {
	lo = FromU128(uint128.New(v[0], v[1]))
	hi = FromU128(uint128.New(v[2], v[3]))
	return lo, hi
}

// JoinU256 is the inverse of SplitU256.
func JoinU256(lo, hi *Felt) (uint256.Int, error) {
	l, err := ToU128(lo)
	if err != nil {
		return uint256.Int{}, err
	}
	h, err := ToU128(hi)
	if err != nil {
		return uint256.Int{}, err
	}
	return uint256.Int{l.Lo, l.Hi, h.Lo, h.Hi}, nil
}

// FromBytesBE decodes a 32-byte big-endian element, rejecting values that
// are not reduced modulo p.
func FromBytesBE(b []byte) (Felt, error) {
	var f Felt
	if err := f.SetBytesCanonical(b); err != nil {
		return Felt{}, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	return f, nil
}

// FromShortString encodes up to 31 ASCII/UTF-8 bytes as one element,
// the way panic messages are carried by the transition program.
func FromShortString(s string) (Felt, error) {
	if len(s) > Size-1 {
		return Felt{}, fmt.Errorf("%w: %q", ErrTooLong, s)
	}
	var f Felt
	f.SetBytes([]byte(s))
	return f, nil
}

// ShortString returns the text carried by f if its significant bytes are
// valid UTF-8.
func ShortString(f *Felt) (string, bool) {
	b := f.Bytes()
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	if i == len(b) || !utf8.Valid(b[i:]) {
		return "", false
	}
	return string(b[i:]), true
}

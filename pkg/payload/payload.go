// Package payload encodes and parses the proof payload carried in a
// transaction witness:
//
//	"SATC" | version u8 = 1 | variant u8 | N be32 | N x 32-byte BE elements |
//	L be32 | L root bytes
package payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/yourorg/satcity/pkg/backend"
	"github.com/yourorg/satcity/pkg/felt"
)

const Version = 1

var Magic = [4]byte{'S', 'A', 'T', 'C'}

var (
	ErrPayloadTooShort    = errors.New("payload too short")
	ErrBadMagic           = errors.New("bad magic")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrUnknownVariant     = errors.New("unknown variant")
	ErrProofBytesTooShort = errors.New("proof bytes too short")
	ErrBadFelt            = errors.New("bad field element")
	ErrRootBytesTooShort  = errors.New("root bytes too short")
	ErrNoWitnessPayload   = errors.New("no witness payload")
)

type Payload struct {
	Variant  backend.Variant
	Elements []felt.Felt
	NewRoot  []byte
}

// Parse checks the layout strictly in order and fails on the first
// shortfall. A missing or truncated root length is ErrRootBytesTooShort.
// Trailing bytes after the root are ignored.
func Parse(b []byte) (*Payload, error) {
	if len(b) < 4 {
		return nil, ErrPayloadTooShort
	}
	if !bytes.Equal(b[:4], Magic[:]) {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, b[:4])
	}
	if len(b) < 6 {
		return nil, ErrPayloadTooShort
	}
	if b[4] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, b[4])
	}
	variant := backend.Variant(b[5])
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, b[5])
	}
	b = b[6:]

	if len(b) < 4 {
		return nil, ErrPayloadTooShort
	}
	n := uint64(binary.BigEndian.Uint32(b))
	b = b[4:]
	if uint64(len(b)) < felt.Size*n {
		return nil, fmt.Errorf("%w: %d elements declared, %d bytes left", ErrProofBytesTooShort, n, len(b))
	}

	elems := make([]felt.Felt, n)
	for i := range elems {
		f, err := felt.FromBytesBE(b[felt.Size*i : felt.Size*(i+1)])
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrBadFelt, i, err)
		}
		elems[i] = f
	}
	b = b[felt.Size*n:]

	if len(b) < 4 {
		return nil, fmt.Errorf("%w: root length needs 4 bytes, %d left", ErrRootBytesTooShort, len(b))
	}
	l := uint64(binary.BigEndian.Uint32(b))
	b = b[4:]
	if uint64(len(b)) < l {
		return nil, fmt.Errorf("%w: %d declared, %d left", ErrRootBytesTooShort, l, len(b))
	}

	return &Payload{
		Variant:  variant,
		Elements: elems,
		NewRoot:  append([]byte(nil), b[:l]...),
	}, nil
}

// Encode is the producer side of Parse.
func Encode(variant backend.Variant, elems []felt.Felt, root []byte) []byte {
	out := make([]byte, 0, 6+4+felt.Size*len(elems)+4+len(root))
	out = append(out, Magic[:]...)
	out = append(out, Version, byte(variant))
	out = binary.BigEndian.AppendUint32(out, uint32(len(elems)))
	for i := range elems {
		word := elems[i].Bytes()
		out = append(out, word[:]...)
	}
	out = binary.BigEndian.AppendUint32(out, uint32(len(root)))
	return append(out, root...)
}

// FromTransaction returns the first non-empty witness item of input 0 of a
// serialized transaction.
func FromTransaction(rawTx []byte) ([]byte, error) {
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if len(tx.TxIn) == 0 {
		return nil, ErrNoWitnessPayload
	}
	for _, item := range tx.TxIn[0].Witness {
		if len(item) > 0 {
			return item, nil
		}
	}
	return nil, ErrNoWitnessPayload
}

package felt

import (
	"errors"
	"fmt"
)

const chunkSize = Size - 1

var ErrShortPacked = errors.New("packed bytes truncated")

// PackBytes encodes an arbitrary byte string as a length element followed
// by 31-byte big-endian chunks.
func PackBytes(b []byte) []Felt {
	out := make([]Felt, 0, 1+(len(b)+chunkSize-1)/chunkSize)
	out = append(out, FromUint64(uint64(len(b))))

	for len(b) > 0 {
		n := min(chunkSize, len(b))

		var f Felt
		f.SetBytes(b[:n])
		out = append(out, f)
		b = b[n:]
	}
	return out
}

// UnpackBytes reverses PackBytes and reports how many elements it consumed.
func UnpackBytes(elems []Felt) ([]byte, int, error) {
	if len(elems) == 0 {
		return nil, 0, ErrShortPacked
	}

	length, err := ToUint64(&elems[0])
	if err != nil {
		return nil, 0, err
	}

	if length > uint64(len(elems)-1)*chunkSize {
		return nil, 0, fmt.Errorf("%w: %d bytes declared", ErrShortPacked, length)
	}

	chunks := int((length + chunkSize - 1) / chunkSize)
	if len(elems)-1 < chunks {
		return nil, 0, fmt.Errorf("%w: need %d chunks, have %d", ErrShortPacked, chunks, len(elems)-1)
	}

	out := make([]byte, 0, length)
	remaining := int(length)
	for i := 1; i <= chunks; i++ {
		n := min(chunkSize, remaining)
		word := elems[i].Bytes()
		for _, x := range word[:Size-n] {
			if x != 0 {
				return nil, 0, fmt.Errorf("%w: chunk %d wider than %d bytes", ErrOutOfRange, i-1, n)
			}
		}
		out = append(out, word[Size-n:]...)
		remaining -= n
	}
	return out, 1 + chunks, nil
}

// Package codec packs and unpacks payload arrays for the exchange wire format.
//
// A payload is a sequence of 64-bit IEEE-754 floats encoded as the
// little-endian concatenation of their bit patterns, 8 bytes per element.
// There is no framing beyond the length: a buffer of n*8 bytes decodes to
// exactly n floats.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Float64Size is the encoded size of a single element in bytes.
const Float64Size = 8

// ErrInvalidFraming is returned when a buffer length is not a multiple of 8.
var ErrInvalidFraming = fmt.Errorf("payload length is not a multiple of %d", Float64Size)

// Encode packs a float64 sequence into its little-endian byte representation.
//
// The returned buffer has length len(values)*8. Encoding never fails; NaN and
// infinities round-trip bit-exactly.
func Encode(values []float64) []byte {
	buf := make([]byte, len(values)*Float64Size)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*Float64Size:], math.Float64bits(v))
	}
	return buf
}

// Decode unpacks a little-endian byte buffer into a float64 sequence.
//
// Returns ErrInvalidFraming if the buffer length is not a multiple of 8.
// An empty buffer decodes to an empty (non-nil) slice.
func Decode(buf []byte) ([]float64, error) {
	if len(buf)%Float64Size != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidFraming, len(buf))
	}

	values := make([]float64, len(buf)/Float64Size)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*Float64Size:]))
	}
	return values, nil
}

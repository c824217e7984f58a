package oto

import (
	"encoding/binary"
	"math"
)

// floatBufferToLEBytes encodes float32 samples as little-endian bytes
// into dst, which must hold at least 4*len(buffer) bytes. Returns the
// number of bytes written.
func floatBufferToLEBytes(buffer []float32, dst []byte) int {
	for i, v := range buffer {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
	return 4 * len(buffer)
}

package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are stored as a little-endian uint32 dimension followed by the
// float32 components.

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4+4*len(v))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("truncated vector header")
	}
	dim := int(binary.LittleEndian.Uint32(data))
	if len(data) != 4+4*dim {
		return nil, fmt.Errorf("vector has %d bytes, expected %d", len(data), 4+4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return v, nil
}

// Package vector provides the float32 embedding encoding and cosine
// similarity math shared by the repository's search and the RAG pipeline.
package vector

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/ponderjournal/ponder/internal/errs"
)

var errWrongDimension = errors.New("vector has the wrong dimension")

// Dim is the fixed embedding width (spec §3: "vector of 768 single-precision
// floats").
const Dim = 768

// ByteLen is the on-disk size of an encoded vector.
const ByteLen = Dim * 4

// Encode serializes a 768-float vector as little-endian bytes.
func Encode(v []float32) ([]byte, error) {
	if len(v) != Dim {
		return nil, errs.Database("encode-vector", errWrongDimension)
	}
	buf := make([]byte, ByteLen)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

// Decode parses a little-endian encoded vector back into float32s.
func Decode(b []byte) ([]float32, error) {
	if len(b) != ByteLen {
		return nil, errs.Database("decode-vector", errWrongDimension)
	}
	v := make([]float32, Dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Cosine computes dot(a,b) / (||a|| * ||b||). If either vector has zero
// magnitude the score is zero rather than NaN (spec §4.5).
func Cosine(a, b []float32) float64 {
	var dot, magA, magB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		magA += af * af
		magB += bf * bf
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

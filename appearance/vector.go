// Package appearance implements the visual re-identification model used
// to recover a target's logical identity after long occlusions: feature
// extraction from frame regions, cosine similarity, and a bounded memory
// of recently lost objects.
package appearance

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// NormalizeVec normalizes the input float32 slice to unit length and
// returns a new slice. If the input vector has zero magnitude, it returns
// the original slice unchanged.
func NormalizeVec(v []float32) []float32 {

	norm := float32(0.0)

	for _, x := range v {
		norm += x * x
	}

	if norm == 0 {
		return v // avoid division by zero
	}

	norm = float32(math.Sqrt(float64(norm)))

	out := make([]float32, len(v))

	for i, x := range v {
		out[i] = x / norm
	}

	return out
}

// CosineSimilarity returns the cosine of the angle between vectors a
// and b, clamped to [0,1].  For L2-normalized vectors this is their
// dot-product.  A length mismatch or an empty vector yields 0.0.
func CosineSimilarity(a, b []float32) float32 {

	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float32

	for i := range a {
		dot += a[i] * b[i]
	}

	if dot < 0 {
		return 0
	}

	if dot > 1 {
		return 1
	}

	return dot
}

// FingerprintHash takes an L2-normalized []float32 and returns a
// hex-encoded SHA-256 hash of its binary representation, used to tag
// identities in logs and diagnostics.
func FingerprintHash(feat []float32) (string, error) {

	buf := new(bytes.Buffer)

	// write each float32 in little-endian
	for _, v := range feat {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return "", err
		}
	}

	sum := sha256.Sum256(buf.Bytes())

	return hex.EncodeToString(sum[:]), nil
}

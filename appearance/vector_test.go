package appearance

import (
	"math"
	"testing"
)

// almostEqual checks if two float32 values are approximately equal
func almostEqual(a, b, tolerance float32) bool {
	return float32(math.Abs(float64(a)-float64(b))) <= tolerance
}

// TestNormalizeVec tests unit length normalization
func TestNormalizeVec(t *testing.T) {

	out := NormalizeVec([]float32{3, 4})

	if !almostEqual(out[0], 0.6, 1e-6) || !almostEqual(out[1], 0.8, 1e-6) {
		t.Errorf("expected [0.6 0.8], got %v", out)
	}

	var sumSq float32

	for _, v := range out {
		sumSq += v * v
	}

	if !almostEqual(sumSq, 1.0, 1e-5) {
		t.Errorf("expected unit norm, got %v", sumSq)
	}
}

// TestNormalizeVecZero tests that a zero magnitude vector passes through
// unchanged
func TestNormalizeVecZero(t *testing.T) {

	in := []float32{0, 0, 0}
	out := NormalizeVec(in)

	for i, v := range out {
		if v != 0 {
			t.Errorf("index %d: expected 0, got %v", i, v)
		}
	}
}

// TestCosineSimilarity tests the similarity score bounds and edge cases
func TestCosineSimilarity(t *testing.T) {

	a := NormalizeVec([]float32{1, 2, 3})

	if sim := CosineSimilarity(a, a); !almostEqual(sim, 1.0, 1e-5) {
		t.Errorf("expected self similarity 1, got %v", sim)
	}

	if sim := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); sim != 0 {
		t.Errorf("expected orthogonal similarity 0, got %v", sim)
	}

	// opposing vectors clamp to zero rather than going negative
	if sim := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); sim != 0 {
		t.Errorf("expected clamped similarity 0, got %v", sim)
	}

	if sim := CosineSimilarity([]float32{1, 0}, []float32{1}); sim != 0 {
		t.Errorf("expected 0 on dimension mismatch, got %v", sim)
	}

	if sim := CosineSimilarity(nil, nil); sim != 0 {
		t.Errorf("expected 0 on empty vectors, got %v", sim)
	}
}

// TestFingerprintHash tests that the hash is deterministic and
// distinguishes different features
func TestFingerprintHash(t *testing.T) {

	feat := NormalizeVec([]float32{1, 2, 3, 4})

	h1, err := FingerprintHash(feat)

	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	h2, err := FingerprintHash(feat)

	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	if h1 != h2 {
		t.Errorf("hash is not deterministic: %s != %s", h1, h2)
	}

	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}

	other, err := FingerprintHash(NormalizeVec([]float32{4, 3, 2, 1}))

	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	if h1 == other {
		t.Error("different features produced the same hash")
	}
}

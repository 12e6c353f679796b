package appearance

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// solidMat returns a 3 channel BGR mat filled with the given color
func solidMat(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0),
		rows, cols, gocv.MatTypeCV8UC3)
}

// edgeMat returns a black mat with the left half filled white, giving a
// single strong vertical edge
func edgeMat(rows, cols int) gocv.Mat {

	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)

	gocv.Rectangle(&m, image.Rect(0, 0, cols/2, rows),
		color.RGBA{255, 255, 255, 255}, -1)

	return m
}

// TestExtractorColorSolid tests that regions of the same color score
// maximal similarity regardless of region size
func TestExtractorColorSolid(t *testing.T) {

	frame := solidMat(100, 100, 40, 120, 200)
	defer frame.Close()

	ex := NewExtractor(ColorHistogram)

	f1 := ex.Extract(frame, image.Rect(10, 10, 50, 50))
	require.NotNil(t, f1)
	assert.Len(t, f1, 48)

	var sumSq float32

	for _, v := range f1 {
		sumSq += v * v
	}

	assert.InDelta(t, 1.0, sumSq, 1e-4, "feature must be unit length")

	f2 := ex.Extract(frame, image.Rect(20, 30, 90, 80))
	require.NotNil(t, f2)

	assert.InDelta(t, 1.0, CosineSimilarity(f1, f2), 1e-4)
}

// TestExtractorColorDistinct tests that differently colored regions are
// distinguishable
func TestExtractorColorDistinct(t *testing.T) {

	red := solidMat(50, 50, 0, 0, 255)
	defer red.Close()

	blue := solidMat(50, 50, 255, 0, 0)
	defer blue.Close()

	ex := NewExtractor(ColorHistogram)
	roi := image.Rect(5, 5, 45, 45)

	fr := ex.Extract(red, roi)
	fb := ex.Extract(blue, roi)

	require.NotNil(t, fr)
	require.NotNil(t, fb)

	assert.Less(t, CosineSimilarity(fr, fb), float32(0.9))
}

// TestExtractorInvalidInputs tests that bad frames and regions yield nil
// without panicking
func TestExtractorInvalidInputs(t *testing.T) {

	ex := NewExtractor(ColorHistogram)

	empty := gocv.NewMat()
	defer empty.Close()

	assert.Nil(t, ex.Extract(empty, image.Rect(0, 0, 10, 10)))

	frame := solidMat(50, 50, 10, 10, 10)
	defer frame.Close()

	// too small after clamping
	assert.Nil(t, ex.Extract(frame, image.Rect(0, 0, 2, 2)))

	// entirely outside the frame
	assert.Nil(t, ex.Extract(frame, image.Rect(100, 100, 200, 200)))

	gray := gocv.NewMatWithSize(50, 50, gocv.MatTypeCV8UC1)
	defer gray.Close()

	assert.Nil(t, ex.Extract(gray, image.Rect(0, 0, 10, 10)))
}

// TestExtractorClampsRegion tests that an oversized region is clamped to
// the frame instead of rejected
func TestExtractorClampsRegion(t *testing.T) {

	frame := solidMat(50, 50, 10, 10, 10)
	defer frame.Close()

	ex := NewExtractor(ColorHistogram)

	feat := ex.Extract(frame, image.Rect(-20, -20, 200, 200))
	assert.NotNil(t, feat)
}

// TestExtractorGradient tests that the gradient histogram separates
// edges by orientation
func TestExtractorGradient(t *testing.T) {

	vertical := edgeMat(64, 64)
	defer vertical.Close()

	ex := NewExtractor(GradientHistogram)
	roi := image.Rect(0, 0, 64, 64)

	fv := ex.Extract(vertical, roi)
	require.NotNil(t, fv)
	assert.Len(t, fv, 36)

	assert.InDelta(t, 1.0, CosineSimilarity(fv, fv), 1e-5)

	// rotate the edge by 90 degrees, the orientation mass moves to
	// different bins
	horizontal := gocv.NewMat()
	defer horizontal.Close()

	gocv.Rotate(vertical, &horizontal, gocv.Rotate90Clockwise)

	fh := ex.Extract(horizontal, roi)
	require.NotNil(t, fh)

	assert.Less(t, CosineSimilarity(fv, fh), float32(0.5))
}

// TestExtractorHybrid tests the concatenated feature layout
func TestExtractorHybrid(t *testing.T) {

	frame := edgeMat(64, 64)
	defer frame.Close()

	ex := NewExtractor(Hybrid)

	feat := ex.Extract(frame, image.Rect(0, 0, 64, 64))
	require.NotNil(t, feat)
	assert.Len(t, feat, 84)
}

package appearance

import (
	"image"

	"gocv.io/x/gocv"
)

// FeatureType defines the appearance feature extraction method
type FeatureType int

const (
	// ColorHistogram extracts an HSV color distribution
	ColorHistogram FeatureType = 1
	// GradientHistogram extracts a gradient orientation distribution
	GradientHistogram FeatureType = 2
	// Hybrid concatenates color and gradient features
	Hybrid FeatureType = 3
)

// minRegionSize is the minimum width/height in pixels of a region that
// can produce a meaningful feature vector
const minRegionSize = 4

// Extractor computes appearance feature vectors from frame regions.  The
// feature type is resolved once at construction so extraction is a
// static dispatch on the hot path.
type Extractor struct {
	ftype FeatureType
	// colorBins is the histogram bin count per HSV channel
	colorBins int
	// orientBins is the gradient orientation histogram bin count
	orientBins int
}

// NewExtractor returns an extractor for the given feature type
func NewExtractor(ftype FeatureType) *Extractor {
	return &Extractor{
		ftype:      ftype,
		colorBins:  16,
		orientBins: 36,
	}
}

// Extract computes an L2-normalized feature vector for the given region
// of the frame.  The region is clamped to the frame bounds and must be
// at least 4x4 pixels after clamping.  Any invalid input yields nil,
// extraction is best-effort and never panics.
func (e *Extractor) Extract(frame gocv.Mat, roi image.Rectangle) []float32 {

	if frame.Empty() || frame.Channels() != 3 {
		return nil
	}

	// clamp the region to the frame bounds
	roi = roi.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))

	if roi.Dx() < minRegionSize || roi.Dy() < minRegionSize {
		return nil
	}

	region := frame.Region(roi)
	defer region.Close()

	var feat []float32

	switch e.ftype {
	case ColorHistogram:
		feat = e.colorFeatures(region)

	case GradientHistogram:
		feat = e.gradientFeatures(region)

	case Hybrid:
		cf := e.colorFeatures(region)
		gf := e.gradientFeatures(region)

		if cf == nil || gf == nil {
			return nil
		}

		feat = append(cf, gf...)

	default:
		return nil
	}

	if feat == nil {
		return nil
	}

	return NormalizeVec(feat)
}

// colorFeatures computes per-channel HSV histograms over the region
func (e *Extractor) colorFeatures(region gocv.Mat) []float32 {

	hsv := gocv.NewMat()
	defer hsv.Close()

	gocv.CvtColor(region, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()

	// hue is 0-180 in 8-bit HSV, saturation and value are 0-256
	ranges := []float64{180, 256, 256}

	feat := make([]float32, 0, 3*e.colorBins)

	for ch := 0; ch < 3; ch++ {

		hist := gocv.NewMat()

		gocv.CalcHist([]gocv.Mat{hsv}, []int{ch}, mask, &hist,
			[]int{e.colorBins}, []float64{0, ranges[ch]}, false)

		for i := 0; i < e.colorBins; i++ {
			feat = append(feat, hist.GetFloatAt(i, 0))
		}

		hist.Close()
	}

	return feat
}

// gradientFeatures computes a magnitude-weighted gradient orientation
// histogram over the region
func (e *Extractor) gradientFeatures(region gocv.Mat) []float32 {

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)

	gray32 := gocv.NewMat()
	defer gray32.Close()

	gray.ConvertTo(&gray32, gocv.MatTypeCV32F)

	gx := gocv.NewMat()
	gy := gocv.NewMat()
	defer gx.Close()
	defer gy.Close()

	gocv.Sobel(gray32, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray32, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	ang := gocv.NewMat()
	defer mag.Close()
	defer ang.Close()

	gocv.CartToPolar(gx, gy, &mag, &ang, true)

	feat := make([]float32, e.orientBins)
	binWidth := 360.0 / float32(e.orientBins)

	for r := 0; r < ang.Rows(); r++ {
		for c := 0; c < ang.Cols(); c++ {

			bin := int(ang.GetFloatAt(r, c) / binWidth)

			if bin >= e.orientBins {
				bin = e.orientBins - 1
			}

			feat[bin] += mag.GetFloatAt(r, c)
		}
	}

	return feat
}

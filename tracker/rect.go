package tracker

import (
	"image"
	"math"
)

// Tlwh (top-left x, top-left y, width, height) represents a 1x4 matrix
type Tlwh []float32

// Tlbr (top-left x, top-left y, bottom-right x, bottom-right y) represents
// a 1x4 matrix
type Tlbr []float32

// Xysr (center x, center y, scale/area, aspect ratio) represents a 1x4
// matrix, the measurement space of the Kalman box filter
type Xysr []float32

// Point represents the x,y pixel coordinates of a bounding box center
type Point struct {
	X, Y float32
}

// Rect represents a rectangle with Tlwh (top-left, width, height) format
type Rect struct {
	Tlwh Tlwh
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height float32) Rect {
	return Rect{
		Tlwh: Tlwh{x, y, width, height},
	}
}

// GenerateRectByTlbr creates a Rect from Tlbr (top-left, bottom-right)
// format, the bbox convention of the external detector
func GenerateRectByTlbr(tlbr Tlbr) Rect {
	return NewRect(tlbr[0], tlbr[1], tlbr[2]-tlbr[0], tlbr[3]-tlbr[1])
}

// GenerateRectByXysr creates a Rect from Xysr (center x, center y, area,
// aspect ratio) format.  Area and aspect ratio are floored at 1.0 and 0.01
// so a degenerate filter state can never produce a non-physical box.
func GenerateRectByXysr(xysr Xysr) Rect {

	s := xysr[2]
	r := xysr[3]

	if s < 1.0 {
		s = 1.0
	}

	if r < 0.01 {
		r = 0.01
	}

	width := float32(math.Sqrt(float64(s * r)))
	height := s / width

	return NewRect(xysr[0]-width/2, xysr[1]-height/2, width, height)
}

// X returns the x coordinate of the rectangle
func (r *Rect) X() float32 {
	return r.Tlwh[0]
}

// Y returns the y coordinate of the rectangle
func (r *Rect) Y() float32 {
	return r.Tlwh[1]
}

// Width returns the width of the rectangle
func (r *Rect) Width() float32 {
	return r.Tlwh[2]
}

// Height returns the height of the rectangle
func (r *Rect) Height() float32 {
	return r.Tlwh[3]
}

// TLX returns the top-left x coordinate of the rectangle
func (r *Rect) TLX() float32 {
	return r.Tlwh[0]
}

// TLY returns the top-left y coordinate of the rectangle
func (r *Rect) TLY() float32 {
	return r.Tlwh[1]
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r *Rect) BRX() float32 {
	return r.Tlwh[0] + r.Tlwh[2]
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r *Rect) BRY() float32 {
	return r.Tlwh[1] + r.Tlwh[3]
}

// Center returns the center point of the rectangle
func (r *Rect) Center() Point {
	return Point{
		X: r.Tlwh[0] + r.Tlwh[2]/2,
		Y: r.Tlwh[1] + r.Tlwh[3]/2,
	}
}

// GetTlbr converts the rectangle to Tlbr (top-left, bottom-right) format
func (r *Rect) GetTlbr() Tlbr {
	return Tlbr{
		r.Tlwh[0],
		r.Tlwh[1],
		r.Tlwh[0] + r.Tlwh[2],
		r.Tlwh[1] + r.Tlwh[3],
	}
}

// GetXysr converts the rectangle to Xysr (center x, center y, area,
// aspect ratio) format
func (r *Rect) GetXysr() Xysr {

	ratio := float32(0)

	if r.Tlwh[3] > 0 {
		ratio = r.Tlwh[2] / r.Tlwh[3]
	}

	return Xysr{
		r.Tlwh[0] + r.Tlwh[2]/2,
		r.Tlwh[1] + r.Tlwh[3]/2,
		r.Tlwh[2] * r.Tlwh[3],
		ratio,
	}
}

// ImageRect converts the rectangle to a stdlib image.Rectangle for region
// extraction from a frame
func (r *Rect) ImageRect() image.Rectangle {
	return image.Rect(int(r.TLX()), int(r.TLY()), int(r.BRX()), int(r.BRY()))
}

// IsDegenerate reports whether the rectangle has a non-positive width or
// height or any non-finite coordinate.  Degenerate rectangles are treated
// as non-matches throughout the matching pipeline.
func (r *Rect) IsDegenerate() bool {

	if r.Tlwh[2] <= 0 || r.Tlwh[3] <= 0 {
		return true
	}

	for _, v := range r.Tlwh {
		f := float64(v)

		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}

	return false
}

// CalcIoU calculates the Intersection over Union (IoU) with another
// rectangle.  Degenerate rectangles yield 0.
func (r *Rect) CalcIoU(other Rect) float32 {

	if r.IsDegenerate() || other.IsDegenerate() {
		return 0
	}

	boxArea := (other.Tlwh[2] + 1) * (other.Tlwh[3] + 1)
	iw := float32(math.Min(float64(r.Tlwh[0]+r.Tlwh[2]), float64(other.Tlwh[0]+other.Tlwh[2])) - math.Max(float64(r.Tlwh[0]), float64(other.Tlwh[0])) + 1)
	iou := float32(0)

	if iw > 0 {
		ih := float32(math.Min(float64(r.Tlwh[1]+r.Tlwh[3]), float64(other.Tlwh[1]+other.Tlwh[3])) - math.Max(float64(r.Tlwh[1]), float64(other.Tlwh[1])) + 1)

		if ih > 0 {
			ua := (r.Tlwh[2]+1)*(r.Tlwh[3]+1) + boxArea - iw*ih
			iou = iw * ih / ua
		}
	}

	return iou
}

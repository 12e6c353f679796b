package targettrack

import (
	"errors"
	"math"
	"sync"
)

// TargetState is the per-frame output record consumed by followers and
// telemetry.  Coordinates are pixels in the source frame, the Norm fields
// are the same values projected into [0,1] over the frame dimensions.
type TargetState struct {
	// Active indicates the target is being tracked or bridged through a
	// loss tolerance window
	Active bool
	// NeedReselection is set once the extended tolerance window has been
	// exhausted and a new target must be selected
	NeedReselection bool
	// Frame is the frame number this state was produced for
	Frame int
	// FramesSinceDetection counts frames since the last direct or
	// spatial match
	FramesSinceDetection int
	// Bounding box in pixels (x1, y1, x2, y2)
	X1, Y1, X2, Y2 float32
	// Center of the bounding box in pixels
	CenterX, CenterY float32
	// Bounding box normalized to [0,1]
	NormX1, NormY1, NormX2, NormY2 float32
	// Center normalized to [0,1]
	NormCenterX, NormCenterY float32
	// Confidence is the smoothed detection confidence in [0,1]
	Confidence float32
	// Velocity estimate in pixels per second, valid when HasVelocity
	// is set
	VelocityX, VelocityY float32
	HasVelocity          bool
}

// NewTargetState builds a TargetState from a pixel bounding box, deriving
// the center and the normalized projections from the frame dimensions so
// the record is internally consistent by construction.
func NewTargetState(frame int, x1, y1, x2, y2 float32,
	frameWidth, frameHeight int) TargetState {

	s := TargetState{
		Frame: frame,
		X1:    x1,
		Y1:    y1,
		X2:    x2,
		Y2:    y2,
	}

	s.CenterX = (x1 + x2) / 2
	s.CenterY = (y1 + y2) / 2

	if frameWidth > 0 && frameHeight > 0 {
		w := float32(frameWidth)
		h := float32(frameHeight)

		s.NormX1 = x1 / w
		s.NormY1 = y1 / h
		s.NormX2 = x2 / w
		s.NormY2 = y2 / h
		s.NormCenterX = s.CenterX / w
		s.NormCenterY = s.CenterY / h
	}

	return s
}

// ErrInvalidState is returned by Publish when a state contains NaN or Inf
// values.  The previously published state is retained.
var ErrInvalidState = errors.New("target state contains non-finite values")

// StateBoard holds the most recently published TargetState.  The frame
// processing loop is the single writer, any number of reader goroutines
// (telemetry, followers, streaming) may call Latest concurrently.
type StateBoard struct {
	mu    sync.RWMutex
	state TargetState
	valid bool
}

// NewStateBoard returns an empty state board
func NewStateBoard() *StateBoard {
	return &StateBoard{}
}

// Publish validates and stores a new state snapshot.  A state carrying
// NaN or Inf values is rejected so downstream consumers never observe a
// non-finite position.
func (b *StateBoard) Publish(s TargetState) error {

	for _, v := range []float32{
		s.X1, s.Y1, s.X2, s.Y2,
		s.CenterX, s.CenterY,
		s.NormX1, s.NormY1, s.NormX2, s.NormY2,
		s.NormCenterX, s.NormCenterY,
		s.Confidence, s.VelocityX, s.VelocityY,
	} {
		f := float64(v)

		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidState
		}
	}

	b.mu.Lock()
	b.state = s
	b.valid = true
	b.mu.Unlock()

	return nil
}

// Latest returns the most recently published state.  The bool is false
// until the first successful Publish.
func (b *StateBoard) Latest() (TargetState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.state, b.valid
}

package tracker

import (
	"math"
)

// motionSample is one observed bounding box with its timestamp in seconds
type motionSample struct {
	rect Rect
	t    float64
}

// MotionPredictor is a cheap short-horizon linear extrapolator, owned 1:1
// by a tracked object.  It keeps a fixed-capacity history of observed
// boxes and EMA-smoothed velocity components for center and size,
// independent of the full Kalman model, and is the first line of defense
// for occlusion bridging.
type MotionPredictor struct {
	// history of observed samples, oldest first
	history []motionSample
	// size is the maximum number of samples to keep in history
	size int
	// alpha is the EMA smoothing factor applied to instantaneous velocity
	alpha float32
	// smoothed velocities in pixels per second
	vx, vy, vw, vh float32
	// hasVelocity is set once at least two samples have been observed
	hasVelocity bool
}

// minPredictedSize is the floor in pixels applied to extrapolated box
// dimensions to avoid degenerate boxes
const minPredictedSize = 10.0

// NewMotionPredictor returns a predictor keeping the given number of
// history samples.  Alpha is the EMA weight of the newest instantaneous
// velocity sample.
func NewMotionPredictor(size int, alpha float32) *MotionPredictor {
	return &MotionPredictor{
		history: make([]motionSample, 0, size),
		size:    size,
		alpha:   alpha,
	}
}

// Update appends an observed bounding box to the history, dropping the
// oldest sample when capacity is exceeded, and folds the instantaneous
// velocity from the last two samples into the EMA.
func (m *MotionPredictor) Update(rect Rect, t float64) {

	m.history = append(m.history, motionSample{rect: rect, t: t})

	if len(m.history) > m.size {
		m.history = m.history[1:]
	}

	if len(m.history) < 2 {
		return
	}

	prev := m.history[len(m.history)-2]
	curr := m.history[len(m.history)-1]

	dt := curr.t - prev.t

	if dt <= 0 {
		return
	}

	pc := prev.rect.Center()
	cc := curr.rect.Center()

	ivx := (cc.X - pc.X) / float32(dt)
	ivy := (cc.Y - pc.Y) / float32(dt)
	ivw := (curr.rect.Width() - prev.rect.Width()) / float32(dt)
	ivh := (curr.rect.Height() - prev.rect.Height()) / float32(dt)

	if !m.hasVelocity {
		m.vx, m.vy, m.vw, m.vh = ivx, ivy, ivw, ivh
		m.hasVelocity = true
		return
	}

	m.vx = m.alpha*ivx + (1-m.alpha)*m.vx
	m.vy = m.alpha*ivy + (1-m.alpha)*m.vy
	m.vw = m.alpha*ivw + (1-m.alpha)*m.vw
	m.vh = m.alpha*ivh + (1-m.alpha)*m.vh
}

// PredictRect linearly extrapolates the last known box by the smoothed
// velocity over framesAhead frames at the given frame rate.  The bool is
// false when no history exists.
func (m *MotionPredictor) PredictRect(framesAhead int, fps float32) (Rect, bool) {

	if len(m.history) == 0 || fps <= 0 {
		return Rect{}, false
	}

	last := m.history[len(m.history)-1].rect
	dt := float32(framesAhead) / fps

	c := last.Center()

	cx := c.X + m.vx*dt
	cy := c.Y + m.vy*dt
	w := last.Width() + m.vw*dt
	h := last.Height() + m.vh*dt

	if w < minPredictedSize {
		w = minPredictedSize
	}

	if h < minPredictedSize {
		h = minPredictedSize
	}

	return NewRect(cx-w/2, cy-h/2, w, h), true
}

// IsMoving reports whether the smoothed center velocity magnitude exceeds
// the given threshold in pixels per second.  Callers use this to decide
// whether extrapolation is meaningful or the object is effectively static.
func (m *MotionPredictor) IsMoving(threshold float32) bool {

	mag := math.Sqrt(float64(m.vx*m.vx + m.vy*m.vy))

	return float32(mag) > threshold
}

// Velocity returns the smoothed center velocity in pixels per second
func (m *MotionPredictor) Velocity() (float32, float32) {
	return m.vx, m.vy
}

// Reset clears the history and zeroes all velocity components
func (m *MotionPredictor) Reset() {
	m.history = m.history[:0]
	m.vx, m.vy, m.vw, m.vh = 0, 0, 0, 0
	m.hasVelocity = false
}

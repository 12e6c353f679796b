package tracker

import "sync"

// Observation is one recorded target sighting
type Observation struct {
	// Rect is the matched bounding box
	Rect Rect
	// Center is the bounding box center point
	Center Point
	// Confidence is the raw detection confidence of the match
	Confidence float32
	// Frame is the frame number of the observation
	Frame int
}

// History keeps a bounded ring of the most recent target observations,
// used for trail rendering and diagnostics
type History struct {
	// size is the maximum number of most recent observations to keep
	size int
	// recorded observations, oldest first
	obs []Observation
	sync.Mutex
}

// NewHistory returns a new observation history instance.  Size specifies
// the maximum number of most recent observations to maintain.
func NewHistory(size int) *History {
	return &History{
		size: size,
		obs:  make([]Observation, 0, size),
	}
}

// Reset clears all history
func (h *History) Reset() {
	h.Lock()
	defer h.Unlock()

	h.obs = h.obs[:0]
}

// Add records an observation, dropping the oldest when the ring is full
func (h *History) Add(o Observation) {
	h.Lock()
	defer h.Unlock()

	h.obs = append(h.obs, o)

	if len(h.obs) > h.size {
		h.obs = h.obs[1:]
	}
}

// Snapshot returns a copy of the recorded observations, oldest first
func (h *History) Snapshot() []Observation {
	h.Lock()
	defer h.Unlock()

	out := make([]Observation, len(h.obs))
	copy(out, h.obs)

	return out
}

// Len returns the number of recorded observations
func (h *History) Len() int {
	h.Lock()
	defer h.Unlock()

	return len(h.obs)
}

package appearance

import "sort"

// Entry is the remembered appearance of a single object
type Entry struct {
	// Feature is the L2-normalized, EMA-blended feature vector
	Feature []float32
	// ClassID is the object class the entry belongs to
	ClassID int
	// FrameRegistered is the frame the entry was first created on
	FrameRegistered int
	// FrameLost is the frame the object dropped out of view, valid
	// once Lost is set
	FrameLost int
	// Lost marks the entry as a recovery candidate
	Lost bool
}

// Memory is a bounded store of object appearances keyed by detector
// track id.  Entries are refreshed by EMA while the object is visible
// and become recovery candidates once marked lost.  Eviction by loss age
// and entry count bounds memory under long-running sessions.
type Memory struct {
	entries map[int]*Entry
	// window is how many frames a lost entry remains recoverable
	window int
	// maxEntries is the hard cap on stored entries
	maxEntries int
	// alpha is the EMA weight of new features on refresh
	alpha float32
	// frame is the memory's frame clock
	frame int
}

// NewMemory returns a memory retaining lost entries for window frames,
// capped at maxEntries.  Alpha is the EMA weight applied to new features
// when an existing entry is refreshed.
func NewMemory(window, maxEntries int, alpha float32) *Memory {
	return &Memory{
		entries:    make(map[int]*Entry),
		window:     window,
		maxEntries: maxEntries,
		alpha:      alpha,
	}
}

// Register creates a memory entry for the track id, or refreshes an
// existing one by blending the new features in with EMA and
// renormalizing.  The blend tolerates slow appearance drift while the
// object is visible.  Empty features are ignored.
func (m *Memory) Register(trackID, classID int, feature []float32) {

	if len(feature) == 0 {
		return
	}

	norm := NormalizeVec(feature)

	entry, exists := m.entries[trackID]

	if !exists || len(entry.Feature) != len(norm) {
		m.entries[trackID] = &Entry{
			Feature:         norm,
			ClassID:         classID,
			FrameRegistered: m.frame,
		}
		return
	}

	blended := make([]float32, len(norm))

	for i := range norm {
		blended[i] = m.alpha*norm[i] + (1-m.alpha)*entry.Feature[i]
	}

	entry.Feature = NormalizeVec(blended)
	entry.ClassID = classID
	entry.Lost = false
}

// MarkAsLost timestamps the entry's loss, starting its eviction
// countdown.  Unknown ids are ignored.
func (m *Memory) MarkAsLost(trackID int) {

	entry, exists := m.entries[trackID]

	if !exists || entry.Lost {
		return
	}

	entry.Lost = true
	entry.FrameLost = m.frame
}

// Remove deletes an entry, typically after it has been recovered
func (m *Memory) Remove(trackID int) {
	delete(m.entries, trackID)
}

// Match compares a feature vector against every same-class lost entry
// still within the memory window and returns the best candidate scoring
// strictly above the threshold.  Candidates are scanned in ascending id
// order so a similarity tie deterministically keeps the lower id.
func (m *Memory) Match(feature []float32, classID int,
	threshold float32) (int, float32, bool) {

	ids := make([]int, 0, len(m.entries))

	for id, entry := range m.entries {
		if entry.Lost && entry.ClassID == classID &&
			m.frame-entry.FrameLost <= m.window {
			ids = append(ids, id)
		}
	}

	sort.Ints(ids)

	bestID := -1
	bestSim := threshold

	for _, id := range ids {

		sim := CosineSimilarity(feature, m.entries[id].Feature)

		if sim > bestSim {
			bestSim = sim
			bestID = id
		}
	}

	if bestID < 0 {
		return 0, 0, false
	}

	return bestID, bestSim, true
}

// IncrementFrame advances the memory's frame clock.  Must be called once
// per frame.
func (m *Memory) IncrementFrame() {
	m.frame++
}

// CleanupOldEntries evicts lost entries whose loss age exceeds the
// window, then evicts oldest-by-loss-time entries until the entry count
// is under the hard cap.  Must be called once per frame after matching
// decisions are finalized.
func (m *Memory) CleanupOldEntries() {

	for id, entry := range m.entries {
		if entry.Lost && m.frame-entry.FrameLost > m.window {
			delete(m.entries, id)
		}
	}

	if len(m.entries) <= m.maxEntries {
		return
	}

	// sort candidates oldest-by-loss-time first, visible entries count
	// as current-frame and ties evict the lower id
	ids := make([]int, 0, len(m.entries))

	for id := range m.entries {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {

		a := m.entries[ids[i]]
		b := m.entries[ids[j]]

		al := m.frame
		bl := m.frame

		if a.Lost {
			al = a.FrameLost
		}

		if b.Lost {
			bl = b.FrameLost
		}

		if al != bl {
			return al < bl
		}

		return ids[i] < ids[j]
	})

	for _, id := range ids {

		if len(m.entries) <= m.maxEntries {
			break
		}

		delete(m.entries, id)
	}
}

// Len returns the number of stored entries
func (m *Memory) Len() int {
	return len(m.entries)
}

// Frame returns the memory's current frame clock
func (m *Memory) Frame() int {
	return m.frame
}

// Get returns the entry for a track id
func (m *Memory) Get(trackID int) (*Entry, bool) {
	entry, exists := m.entries[trackID]
	return entry, exists
}

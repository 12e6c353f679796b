package tracker

import (
	"gocv.io/x/gocv"

	"github.com/swdee/go-targettrack/appearance"
)

// reID holds the re-identification glue between the tracking state
// manager and the appearance model
type reID struct {
	// mem is the shared bounded memory of recently lost objects
	mem *appearance.Memory
	// extractor computes appearance feature vectors from frame regions
	extractor *appearance.Extractor
	// threshold is the similarity cutoff, a candidate must score
	// strictly above it to be accepted
	threshold float32
}

// recovery is a successful re-identification pairing
type recovery struct {
	// det is the detection matched against the lost target
	det Detection
	// lostID is the memory entry id the detection was matched to
	lostID int
	// similarity of the pairing
	similarity float32
}

// UseReID enables appearance-based recovery on the manager.  The memory
// is process-wide and may be shared with other consumers, the manager
// only registers and recovers its own selection.
func (m *TrackingStateManager) UseReID(extractor *appearance.Extractor,
	mem *appearance.Memory, threshold float32) {

	m.reid = &reID{
		mem:       mem,
		extractor: extractor,
		threshold: threshold,
	}
}

// registerTarget refreshes the target's appearance features while it is
// visible so the memory tolerates slow appearance drift
func (r *reID) registerTarget(frame gocv.Mat, rect Rect, trackID, classID int) {

	feat := r.extractor.Extract(frame, rect.ImageRect())

	if feat == nil {
		return
	}

	r.mem.Register(trackID, classID, feat)
}

// markLost timestamps the target's memory entry, starting its eviction
// countdown
func (r *reID) markLost(trackID int) {
	r.mem.MarkAsLost(trackID)
}

// recovered removes a lost entry that has been re-anchored to a live
// detection
func (r *reID) recovered(lostID int) {
	r.mem.Remove(lostID)
}

// findBestMatch extracts features for every same-class detection and
// compares them against the lost entries in memory.  It returns the
// single best pairing scoring strictly above the threshold, nil when
// none qualifies.  A tie on similarity keeps the earlier detection.
func (r *reID) findBestMatch(frame gocv.Mat, detections []Detection,
	classID int) *recovery {

	var best *recovery

	for i := range detections {

		if detections[i].ClassID != classID {
			continue
		}

		feat := r.extractor.Extract(frame, detections[i].Rect.ImageRect())

		if feat == nil {
			continue
		}

		id, sim, ok := r.mem.Match(feat, classID, r.threshold)

		if !ok {
			continue
		}

		if best == nil || sim > best.similarity {
			best = &recovery{
				det:        detections[i],
				lostID:     id,
				similarity: sim,
			}
		}
	}

	return best
}

// endFrame advances the memory's frame clock and evicts stale entries.
// Called once per frame after all matching decisions are finalized.
func (r *reID) endFrame() {
	r.mem.IncrementFrame()
	r.mem.CleanupOldEntries()
}

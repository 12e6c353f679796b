package tracker

import (
	"math"

	"gocv.io/x/gocv"
)

// TrackingStatus represents the lifecycle state of the selected target
type TrackingStatus int

const (
	// No target is selected
	Searching TrackingStatus = 0
	// Target was matched in the current frame
	Tracking TrackingStatus = 1
	// Target is undetected but bridged by prediction within tolerance
	Coasting TrackingStatus = 2
	// Normal tolerance exceeded, lenient matching and re-id recovery
	// are being attempted
	Degraded TrackingStatus = 3
	// Extended tolerance exhausted, reselection is required
	Lost TrackingStatus = 4
)

// minMovingSpeed is the center speed in pixels per second below which the
// motion predictor extrapolation is considered meaningless and the Kalman
// prediction is preferred for occlusion bridging
const minMovingSpeed = 1.0

// TrackingInfo is a read-only snapshot of the tracking state, safe to
// take at any phase of the frame
type TrackingInfo struct {
	// Active indicates the target is tracked or being bridged
	Active bool
	// Status is the current lifecycle state
	Status TrackingStatus
	// NeedReselection is set once the track is terminally lost
	NeedReselection bool
	// TrackID is the currently anchored detector track id, -1 when none
	TrackID int
	// ClassID is the selected target class id, -1 when none
	ClassID int
	// Rect is the last known bounding box, predicted while undetected
	Rect Rect
	// Center is the last known center point
	Center Point
	// Confidence is the EMA-smoothed confidence in [0,1]
	Confidence float32
	// FramesSinceDetection counts frames since the last match
	FramesSinceDetection int
	// Frame is the manager's current frame number
	Frame int
	// Velocity estimate in pixels per second, valid when HasVelocity
	VelocityX, VelocityY float32
	HasVelocity          bool
	// PositionUncertainty is the filter's position covariance trace
	PositionUncertainty float32
}

// TrackingStateManager owns the single selected target's lifecycle.  Each
// frame it consumes the raw detection list, decides whether the selection
// is still valid and exposes a smoothed target state.  It is invoked from
// one processing goroutine, cross-thread readers consume snapshots
// through a published boundary object.
type TrackingStateManager struct {
	cfg Config
	iou IoUFunc

	hasTarget            bool
	selectedTrackID      int
	selectedClassID      int
	lastKnownRect        Rect
	lastKnownCenter      Point
	smoothedConfidence   float32
	framesSinceDetection int
	frameID              int
	status               TrackingStatus
	needReselection      bool

	history *History
	kalman  *KalmanBoxTracker
	motion  *MotionPredictor
	reid    *reID
}

// NewTrackingStateManager initializes a manager with the given session
// settings.  Zero-valued fields of cfg fall back to DefaultConfig values.
func NewTrackingStateManager(cfg Config) *TrackingStateManager {

	def := DefaultConfig()

	if cfg.Strategy == 0 {
		cfg.Strategy = def.Strategy
	}

	if cfg.SpatialIoUThreshold == 0 {
		cfg.SpatialIoUThreshold = def.SpatialIoUThreshold
	}

	if cfg.LenientIoUThreshold == 0 {
		cfg.LenientIoUThreshold = def.LenientIoUThreshold
	}

	if cfg.ToleranceFrames == 0 {
		cfg.ToleranceFrames = def.ToleranceFrames
	}

	if cfg.ExtendedToleranceFrames == 0 {
		cfg.ExtendedToleranceFrames = def.ExtendedToleranceFrames
	}

	if cfg.ConfidenceAlpha == 0 {
		cfg.ConfidenceAlpha = def.ConfidenceAlpha
	}

	if cfg.ConfidenceDecay == 0 {
		cfg.ConfidenceDecay = def.ConfidenceDecay
	}

	if cfg.HistorySize == 0 {
		cfg.HistorySize = def.HistorySize
	}

	if cfg.MotionHistorySize == 0 {
		cfg.MotionHistorySize = def.MotionHistorySize
	}

	if cfg.MotionAlpha == 0 {
		cfg.MotionAlpha = def.MotionAlpha
	}

	if cfg.FPS == 0 {
		cfg.FPS = def.FPS
	}

	iou := cfg.IoU

	if iou == nil {
		iou = func(a, b Rect) float32 {
			return a.CalcIoU(b)
		}
	}

	return &TrackingStateManager{
		cfg:             cfg,
		iou:             iou,
		selectedTrackID: -1,
		selectedClassID: -1,
		lastKnownRect:   NewRect(0, 0, 0, 0),
		status:          Searching,
		history:         NewHistory(cfg.HistorySize),
	}
}

// StartTracking selects a new target, resetting all per-track state.  No
// prior state is required and the call always succeeds.
func (m *TrackingStateManager) StartTracking(trackID, classID int,
	rect Rect, confidence float32) {

	m.hasTarget = true
	m.selectedTrackID = trackID
	m.selectedClassID = classID
	m.lastKnownRect = rect
	m.lastKnownCenter = rect.Center()
	m.smoothedConfidence = confidence
	m.framesSinceDetection = 0
	m.status = Tracking
	m.needReselection = false

	m.history.Reset()
	m.history.Add(Observation{
		Rect:       rect,
		Center:     rect.Center(),
		Confidence: confidence,
		Frame:      m.frameID,
	})

	m.kalman = NewKalmanBoxTracker(rect)
	m.motion = NewMotionPredictor(m.cfg.MotionHistorySize, m.cfg.MotionAlpha)
	m.motion.Update(rect, m.timestamp())
}

// UpdateTracking runs one frame of the matching pipeline against the
// given detections.  It returns whether the target is still active and
// the matched detection, nil when the frame is bridged by prediction.
func (m *TrackingStateManager) UpdateTracking(detections []Detection) (bool, *Detection) {
	return m.update(detections, nil)
}

// UpdateTrackingWithFrame runs one frame of the matching pipeline and
// additionally passes the image frame so appearance features can be
// registered while the target is visible and re-identification recovery
// attempted once it is degraded.
func (m *TrackingStateManager) UpdateTrackingWithFrame(detections []Detection,
	frame gocv.Mat) (bool, *Detection) {

	return m.update(detections, &frame)
}

// update advances the frame clock, runs the matching step and then the
// appearance memory bookkeeping.  Eviction runs strictly after matching
// so a frame can never evict an entry it was about to recover.
func (m *TrackingStateManager) update(detections []Detection,
	frame *gocv.Mat) (bool, *Detection) {

	m.frameID++

	active, det := m.step(detections, frame)

	if m.reid != nil {
		m.reid.endFrame()
	}

	return active, det
}

// step is the per-frame matching decision
func (m *TrackingStateManager) step(detections []Detection,
	frame *gocv.Mat) (bool, *Detection) {

	if !m.hasTarget {
		return false, nil
	}

	// advance the filter exactly once per frame before any matching
	predicted := m.kalman.Predict()

	var matched *Detection

	switch m.cfg.Strategy {
	case StrategyIDOnly:
		matched = m.matchByID(detections)

	case StrategySpatial:
		matched = m.matchBySpace(detections, m.cfg.SpatialIoUThreshold)

	case StrategyHybrid:
		matched = m.matchByID(detections)

		if matched == nil {
			matched = m.matchBySpace(detections, m.cfg.SpatialIoUThreshold)
		}
	}

	if matched != nil {
		m.applyMatch(*matched, frame)
		return true, matched
	}

	// no match, decay confidence and count the miss
	m.framesSinceDetection++
	m.smoothedConfidence -= m.cfg.ConfidenceDecay

	if m.smoothedConfidence < 0 {
		m.smoothedConfidence = 0
	}

	if m.reid != nil && frame != nil && m.framesSinceDetection == 1 {
		m.reid.markLost(m.selectedTrackID)
	}

	if m.framesSinceDetection <= m.cfg.ToleranceFrames {
		// bridge the gap with the motion predictor when it has a
		// meaningful velocity, otherwise with the Kalman prediction
		m.status = Coasting
		m.bridge(predicted)

		return true, nil
	}

	if m.framesSinceDetection <= m.cfg.ToleranceFrames+m.cfg.ExtendedToleranceFrames {
		// degraded window: retry spatial matching with the lenient
		// threshold, then attempt appearance-based recovery
		m.status = Degraded

		if lenient := m.matchBySpace(detections, m.cfg.LenientIoUThreshold); lenient != nil {
			m.applyMatch(*lenient, frame)
			return true, lenient
		}

		if m.reid != nil && frame != nil {
			if rec := m.reid.findBestMatch(*frame, detections, m.selectedClassID); rec != nil {
				m.applyRecovery(rec.det, rec.lostID, frame)
				det := rec.det
				return true, &det
			}
		}

		m.bridge(predicted)

		return true, nil
	}

	// extended tolerance exhausted, report terminal loss
	m.hasTarget = false
	m.status = Lost
	m.needReselection = true

	return false, nil
}

// matchByID scans the detections for the currently anchored detector
// track id.  Detector ids are unique per frame so the first match wins.
func (m *TrackingStateManager) matchByID(detections []Detection) *Detection {

	for i := range detections {

		if detections[i].TrackID != m.selectedTrackID {
			continue
		}

		if m.cfg.StrictClass && detections[i].ClassID != m.selectedClassID {
			continue
		}

		det := detections[i]

		return &det
	}

	return nil
}

// matchBySpace selects the maximum-IoU same-class detection against the
// last known box.  A strictly greater IoU wins, on an exact tie the
// higher confidence detection wins, otherwise the first encountered
// stays.  Degenerate boxes and non-finite IoU values are non-matches.
func (m *TrackingStateManager) matchBySpace(detections []Detection,
	threshold float32) *Detection {

	bestIdx := -1
	bestIoU := float32(0)
	bestConf := float32(0)

	for i := range detections {

		if detections[i].ClassID != m.selectedClassID {
			continue
		}

		if detections[i].Rect.IsDegenerate() {
			continue
		}

		v := m.iou(m.lastKnownRect, detections[i].Rect)

		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			continue
		}

		if v > bestIoU || (bestIdx >= 0 && v == bestIoU &&
			detections[i].Confidence > bestConf) {

			bestIdx = i
			bestIoU = v
			bestConf = detections[i].Confidence
		}
	}

	if bestIdx < 0 || bestIoU < threshold {
		return nil
	}

	det := detections[bestIdx]

	return &det
}

// applyMatch commits a matched detection to the tracking state
func (m *TrackingStateManager) applyMatch(det Detection, frame *gocv.Mat) {

	m.framesSinceDetection = 0
	m.smoothedConfidence = m.cfg.ConfidenceAlpha*det.Confidence +
		(1-m.cfg.ConfidenceAlpha)*m.smoothedConfidence

	m.lastKnownRect = det.Rect
	m.lastKnownCenter = det.Rect.Center()

	// spatial matches re-anchor the selection to the new detector id
	m.selectedTrackID = det.TrackID
	m.status = Tracking

	// correction errors leave the prediction standing
	_ = m.kalman.Update(det.Rect)
	m.motion.Update(det.Rect, m.timestamp())

	m.history.Add(Observation{
		Rect:       det.Rect,
		Center:     det.Rect.Center(),
		Confidence: det.Confidence,
		Frame:      m.frameID,
	})

	if m.reid != nil && frame != nil {
		m.reid.registerTarget(*frame, det.Rect, m.selectedTrackID, m.selectedClassID)
	}
}

// applyRecovery re-anchors the selection to a re-identified detection,
// preserving the logical identity while adopting the new detector id.
// The Kalman filter is re-anchored rather than recreated so the learned
// velocity estimate survives the recovery.
func (m *TrackingStateManager) applyRecovery(det Detection, lostID int,
	frame *gocv.Mat) {

	m.framesSinceDetection = 0
	m.smoothedConfidence = m.cfg.ConfidenceAlpha*det.Confidence +
		(1-m.cfg.ConfidenceAlpha)*m.smoothedConfidence

	m.lastKnownRect = det.Rect
	m.lastKnownCenter = det.Rect.Center()
	m.selectedTrackID = det.TrackID
	m.status = Tracking

	m.kalman.Reset(det.Rect)
	m.motion.Reset()
	m.motion.Update(det.Rect, m.timestamp())

	m.history.Add(Observation{
		Rect:       det.Rect,
		Center:     det.Rect.Center(),
		Confidence: det.Confidence,
		Frame:      m.frameID,
	})

	if m.reid != nil {
		m.reid.recovered(lostID)

		if frame != nil {
			m.reid.registerTarget(*frame, det.Rect, m.selectedTrackID, m.selectedClassID)
		}
	}
}

// bridge substitutes a predicted position for the missing detection
func (m *TrackingStateManager) bridge(kalmanRect Rect) {

	useRect := kalmanRect

	if pr, ok := m.motion.PredictRect(m.framesSinceDetection, m.cfg.FPS); ok &&
		m.motion.IsMoving(minMovingSpeed) {
		useRect = pr
	}

	if !useRect.IsDegenerate() {
		m.lastKnownRect = useRect
		m.lastKnownCenter = useRect.Center()
	}
}

// Clear performs an idempotent full reset of the selection.  The shared
// appearance memory is not touched, it is bounded by its own window and
// entry cap.
func (m *TrackingStateManager) Clear() {
	m.hasTarget = false
	m.selectedTrackID = -1
	m.selectedClassID = -1
	m.lastKnownRect = Rect{Tlwh: Tlwh{0, 0, 0, 0}}
	m.lastKnownCenter = Point{}
	m.smoothedConfidence = 0
	m.framesSinceDetection = 0
	m.status = Searching
	m.needReselection = false
	m.history.Reset()
	m.kalman = nil
	m.motion = nil
}

// NeedReselection reports whether the track has been terminally lost and
// a new target must be selected
func (m *TrackingStateManager) NeedReselection() bool {
	return m.needReselection
}

// Status returns the current lifecycle state
func (m *TrackingStateManager) Status() TrackingStatus {
	return m.status
}

// History returns the observation history ring
func (m *TrackingStateManager) History() *History {
	return m.history
}

// GetTrackingInfo returns a read-only snapshot of the tracking state
func (m *TrackingStateManager) GetTrackingInfo() TrackingInfo {

	info := TrackingInfo{
		Active:               m.hasTarget,
		Status:               m.status,
		NeedReselection:      m.needReselection,
		TrackID:              m.selectedTrackID,
		ClassID:              m.selectedClassID,
		Rect:                 m.lastKnownRect,
		Center:               m.lastKnownCenter,
		Confidence:           m.smoothedConfidence,
		FramesSinceDetection: m.framesSinceDetection,
		Frame:                m.frameID,
	}

	if m.kalman != nil {
		info.PositionUncertainty = m.kalman.PositionUncertainty()

		if m.kalman.HitCount() > 0 {
			vx, vy := m.kalman.Velocity()
			info.VelocityX = vx * m.cfg.FPS
			info.VelocityY = vy * m.cfg.FPS
			info.HasVelocity = true
		}
	}

	return info
}

// timestamp converts the current frame number to seconds
func (m *TrackingStateManager) timestamp() float64 {
	return float64(m.frameID) / float64(m.cfg.FPS)
}

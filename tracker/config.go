package tracker

// Strategy selects how a frame's detections are matched against the
// current target.  It is a configuration-time choice, not per-frame.
type Strategy int

const (
	// StrategyIDOnly matches on the detector track id alone
	StrategyIDOnly Strategy = 1
	// StrategySpatial ignores detector ids and matches on IoU overlap
	StrategySpatial Strategy = 2
	// StrategyHybrid tries an id match first and falls back to spatial
	StrategyHybrid Strategy = 3
)

// IoUFunc computes the spatial overlap of two rectangles in [0,1]
type IoUFunc func(a, b Rect) float32

// Config holds the construction-time settings of a tracking session.
// All values are static for the lifetime of a session, changing them
// requires starting a new session.
type Config struct {
	// Strategy is the detection matching strategy
	Strategy Strategy
	// StrictClass additionally requires a matching class id on id matches
	StrictClass bool
	// SpatialIoUThreshold is the minimum IoU for a spatial match
	SpatialIoUThreshold float32
	// LenientIoUThreshold is the relaxed IoU used while degraded, once
	// the normal loss tolerance has been exceeded
	LenientIoUThreshold float32
	// ToleranceFrames is how many frames the target may go undetected
	// before matching degrades
	ToleranceFrames int
	// ExtendedToleranceFrames is how many further frames degraded
	// matching is attempted before the track is reported lost
	ExtendedToleranceFrames int
	// ConfidenceAlpha is the EMA weight of a new raw confidence sample
	ConfidenceAlpha float32
	// ConfidenceDecay is the linear per-frame confidence decay applied
	// while undetected, floored at 0
	ConfidenceDecay float32
	// HistorySize is the observation history ring capacity
	HistorySize int
	// MotionHistorySize is the motion predictor sample capacity
	MotionHistorySize int
	// MotionAlpha is the motion predictor velocity EMA weight
	MotionAlpha float32
	// FPS is the nominal frame rate used to convert frames to seconds
	FPS float32
	// IoU is the overlap function used for spatial matching.  Defaults
	// to Rect.CalcIoU when nil.
	IoU IoUFunc
}

// DefaultConfig returns the default tracking session settings
func DefaultConfig() Config {
	return Config{
		Strategy:                StrategyHybrid,
		StrictClass:             true,
		SpatialIoUThreshold:     0.3,
		LenientIoUThreshold:     0.15,
		ToleranceFrames:         5,
		ExtendedToleranceFrames: 10,
		ConfidenceAlpha:         0.8,
		ConfidenceDecay:         0.05,
		HistorySize:             30,
		MotionHistorySize:       10,
		MotionAlpha:             0.7,
		FPS:                     30,
	}
}

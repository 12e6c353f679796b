package tracker

// Detection represents a single object reported by the external detection
// backend for the current frame.  TrackID is only valid for the current
// detector session and may change arbitrarily between frames for the same
// physical object.
type Detection struct {
	// TrackID is the ephemeral per-session id assigned by the detector
	TrackID int
	// ClassID is the object class label from detector inference
	ClassID int
	// Rect is the bounding box of the detected object
	Rect Rect
	// Confidence is the detection confidence/probability in [0,1]
	Confidence float32
}

// NewDetection is a constructor function for the Detection struct
func NewDetection(trackID, classID int, rect Rect, confidence float32) Detection {
	return Detection{
		TrackID:    trackID,
		ClassID:    classID,
		Rect:       rect,
		Confidence: confidence,
	}
}

package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/swdee/go-targettrack/tracker"
)

// TargetStyle defines the parameters used for rendering the target
// overlay
type TargetStyle struct {
	// BoxThickness for the bounding box while the target is matched
	BoxThickness int
	// CoastThickness for the bounding box while the position is a
	// prediction
	CoastThickness int
	// TrailThickness of the trail line
	TrailThickness int
	// CircleRadius of the center point marker
	CircleRadius int
}

// DefaultTargetStyle returns default target overlay settings
func DefaultTargetStyle() TargetStyle {
	return TargetStyle{
		BoxThickness:   2,
		CoastThickness: 1,
		TrailThickness: 1,
		CircleRadius:   3,
	}
}

// statusText maps a tracking lifecycle state to its overlay label
func statusText(s tracker.TrackingStatus) string {

	switch s {
	case tracker.Tracking:
		return "tracking"
	case tracker.Coasting:
		return "coasting"
	case tracker.Degraded:
		return "degraded"
	case tracker.Lost:
		return "lost"
	default:
		return "searching"
	}
}

// Target draws the tracked target overlay on the source image: the
// bounding box colored by lifecycle state, an id/confidence/status label
// above it and the observation trail behind it.
func Target(img *gocv.Mat, info tracker.TrackingInfo,
	history []tracker.Observation, font Font, style TargetStyle) {

	if info.Status == tracker.Searching {
		return
	}

	useClr, ok := statusColors[int(info.Status)]

	if !ok {
		useClr = White
	}

	thickness := style.BoxThickness

	if info.FramesSinceDetection > 0 {
		thickness = style.CoastThickness
	}

	// draw trail line showing tracking history
	for i := 1; i < len(history); i++ {
		gocv.Line(img,
			image.Pt(int(history[i-1].Center.X), int(history[i-1].Center.Y)),
			image.Pt(int(history[i].Center.X), int(history[i].Center.Y)),
			useClr, style.TrailThickness,
		)
	}

	boxLeft := int(info.Rect.TLX())
	boxTop := int(info.Rect.TLY())
	boxRight := int(info.Rect.BRX())
	boxBottom := int(info.Rect.BRY())

	gocv.Rectangle(img, image.Rect(boxLeft, boxTop, boxRight, boxBottom),
		useClr, thickness)

	gocv.Circle(img, image.Pt(int(info.Center.X), int(info.Center.Y)),
		style.CircleRadius, useClr, -1)

	// create text for label
	text := fmt.Sprintf("id %d %.2f %s", info.TrackID, info.Confidence,
		statusText(info.Status))
	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	labelPosition := image.Pt(boxLeft+font.LeftPad, boxTop-font.BottomPad)

	// create box for placing text on
	bRect := image.Rect(boxLeft,
		boxTop-textSize.Y-font.TopPad-font.BottomPad,
		boxLeft+textSize.X+font.LeftPad+font.RightPad, boxTop)

	// draw box text gets written on
	gocv.Rectangle(img, bRect, useClr, -1)

	// draw the label over box
	gocv.PutTextWithParams(img, text, labelPosition,
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)
}

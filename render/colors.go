package render

import "image/color"

var (
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 72, G: 249, B: 10, A: 255}   // #48F90A
	Yellow = color.RGBA{R: 255, G: 178, B: 29, A: 255}  // #FFB21D
	Orange = color.RGBA{R: 255, G: 112, B: 31, A: 255}  // #FF701F
	Red    = color.RGBA{R: 255, G: 56, B: 56, A: 255}   // #FF3838
	Pink   = color.RGBA{R: 255, G: 149, B: 200, A: 255} // #FF95C8
	Cyan   = color.RGBA{R: 0, G: 212, B: 187, A: 255}   // #00D4BB
)

// statusColors maps a tracking lifecycle state to its overlay color
var statusColors = map[int]color.RGBA{
	1: Green,  // tracking
	2: Yellow, // coasting
	3: Orange, // degraded
	4: Red,    // lost
}

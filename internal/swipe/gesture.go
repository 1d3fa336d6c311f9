package swipe

import "math"

const (
	DefaultThreshold    = 100.0
	DefaultFadeDistance = 300.0
)

// Drag is the pointer state of the card currently being dragged. Offsets
// follow the pointer 1:1.
type Drag struct {
	Active  bool    `json:"active"`
	StartX  float64 `json:"-"`
	StartY  float64 `json:"-"`
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	Opacity float64 `json:"opacity"`
}

// Resolve classifies a released drag. It is a decision only when the
// horizontal displacement is past the threshold and dominates the vertical
// one; rightward is a like.
func Resolve(dx, dy, threshold float64) (Decision, bool) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	adx := math.Abs(dx)
	if adx <= threshold || adx <= math.Abs(dy) {
		return 0, false
	}
	if dx > 0 {
		return Like, true
	}
	return Pass, true
}

// Opacity fades the card linearly with horizontal distance.
func Opacity(dx, fade float64) float64 {
	if fade <= 0 {
		fade = DefaultFadeDistance
	}
	return 1 - math.Min(math.Abs(dx)/fade, 1)
}

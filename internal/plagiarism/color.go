package plagiarism

import (
	"math"

	"github.com/WaterCountry/CodeGra.de/internal/document"
)

// RGB is a match color as submitted by the caller. Each channel must be in
// [0, 255]; CheckMatches reports values outside that range.
type RGB [3]int

// backgroundChannel lightens a channel towards white so highlighted code
// stays readable.
func backgroundChannel(c int) uint8 {
	return clampChannel(math.Round(math.Min(255, float64(c)*0.4+0.6*255)))
}

// foregroundChannel darkens a channel for the highlighted text.
func foregroundChannel(c int) uint8 {
	return clampChannel(math.Round(float64(c) / 1.75))
}

func clampChannel(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Colors derives the background and foreground highlight colors of a match.
func Colors(c RGB) (background, foreground document.Color) {
	background = document.Color{
		Red:   backgroundChannel(c[0]),
		Green: backgroundChannel(c[1]),
		Blue:  backgroundChannel(c[2]),
	}
	foreground = document.Color{
		Red:   foregroundChannel(c[0]),
		Green: foregroundChannel(c[1]),
		Blue:  foregroundChannel(c[2]),
	}
	return background, foreground
}

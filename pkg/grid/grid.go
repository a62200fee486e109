// Package grid lays eyes out in square cells across the viewport.
package grid

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Columns returns the column count for a viewport width.
func Columns(width float64) int {
	switch {
	case width <= 0:
		return 0
	case width < 640:
		return 4
	case width < 1024:
		return 5
	case width < 1280:
		return 6
	default:
		return 7
	}
}

// Rows returns the rows needed for count eyes.
func Rows(count, cols int) int {
	if cols <= 0 || count <= 0 {
		return 0
	}
	return (count + cols - 1) / cols
}

// Layout returns one bounding box per eye, filling rows left to right from
// the top. Cells are square with side width/cols; the eye is scale percent
// of its cell, centered. Rows past the viewport bottom are still laid out,
// the grid scrolls rather than shrinks.
func Layout(v gaze.Viewport, count int, scale float64) []gaze.EyeGeometry {
	cols := Columns(v.Width)
	if cols == 0 || count <= 0 {
		return nil
	}

	cell := v.Width / float64(cols)
	size := cell * gaze.Clamp(scale, 0, 100) / 100
	pad := (cell - size) / 2

	out := make([]gaze.EyeGeometry, count)
	for i := range out {
		col := i % cols
		row := i / cols
		out[i] = gaze.EyeGeometry{
			Left:   float64(col)*cell + pad,
			Top:    float64(row)*cell + pad,
			Width:  size,
			Height: size,
		}
	}
	return out
}

// Fit returns how many eyes fill the viewport without scrolling.
func Fit(v gaze.Viewport) int {
	cols := Columns(v.Width)
	if cols == 0 || v.Height <= 0 {
		return 0
	}
	cell := v.Width / float64(cols)
	return cols * int(math.Max(1, math.Floor(v.Height/cell)))
}

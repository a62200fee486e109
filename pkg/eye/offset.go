// Package eye maps the shared gaze target to a bounded pupil offset per eye.
package eye

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// Params are the mapping inputs taken from settings.
type Params struct {
	MaxMoveFraction  float64 // Pupil travel as a fraction of eye size
	DistanceExponent float64 // Sub-linear falloff; < 1 exaggerates near targets
	MobileMoveFactor float64 // Multiplier on travel for mobile viewports
	MobileBreakpoint float64 // Viewport width below which a viewport is mobile
}

// ParamsFrom extracts mapping parameters from settings.
func ParamsFrom(s settings.Settings) Params {
	return Params{
		MaxMoveFraction:  s.MaxMoveFraction,
		DistanceExponent: s.DistanceExponent,
		MobileMoveFactor: s.MobileMoveFactor,
		MobileBreakpoint: s.MobileBreakpoint,
	}
}

// DefaultParams returns the parameters of the default settings.
func DefaultParams() Params {
	return ParamsFrom(settings.DefaultSettings())
}

// MaxRadius returns how far the pupil may travel from the eye center.
func MaxRadius(geom gaze.EyeGeometry, v gaze.Viewport, p Params) float64 {
	r := geom.Size() * p.MaxMoveFraction
	if p.MobileMoveFactor > 0 && v.IsMobile(p.MobileBreakpoint) {
		r *= p.MobileMoveFactor
	}
	return r
}

// ComputeOffset returns the pupil offset for one eye looking at target.
//
// The target distance is normalized against half the smaller viewport side,
// clamped to [0,1] and raised to DistanceExponent, then scaled to MaxRadius
// along the target direction. Components are clamped to ±MaxRadius.
// Unmeasured geometry yields a zero offset and gaze.ErrGeometryUnavailable.
func ComputeOffset(target gaze.Point, geom gaze.EyeGeometry, v gaze.Viewport, p Params) (gaze.Vector, error) {
	if !geom.Measured() {
		return gaze.Vector{}, fmt.Errorf("%w: %.0fx%.0f", gaze.ErrGeometryUnavailable, geom.Width, geom.Height)
	}

	c := geom.Center()
	dx := target.X - c.X
	dy := target.Y - c.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return gaze.Vector{}, nil
	}

	ref := math.Min(v.Width, v.Height) / 2
	if ref <= 0 {
		ref = geom.Size()
	}

	scaled := gaze.Clamp(dist/ref, 0, 1)
	if p.DistanceExponent > 0 {
		scaled = math.Pow(scaled, p.DistanceExponent)
	}

	maxRadius := MaxRadius(geom, v, p)
	mag := maxRadius * scaled
	angle := math.Atan2(dy, dx)

	return gaze.Vector{
		X: gaze.Clamp(math.Cos(angle)*mag, -maxRadius, maxRadius),
		Y: gaze.Clamp(math.Sin(angle)*mag, -maxRadius, maxRadius),
	}, nil
}

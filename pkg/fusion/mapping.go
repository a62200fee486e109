package fusion

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// MapOrientation converts device tilt into a viewport point. Gamma (left/right)
// drives X, beta (front/back) drives Y. ok is false when either tilt axis is
// missing or the viewport is unmeasured.
//
// Per axis: subtract the neutral center, clamp to ±ClampRange, normalize to
// [-1,1], zero the dead zone and rescale the rest so output stays continuous,
// apply sensitivity and inversion, scale to half the viewport around its
// center, then clamp into the viewport.
func MapOrientation(s gaze.OrientationSample, m settings.Mapping, v gaze.Viewport) (gaze.Point, bool) {
	if !s.HasTilt() || !v.Valid() {
		return gaze.Point{}, false
	}

	nx := normalizeTilt(*s.Gamma-m.GammaCenter, m.ClampRange, m.Deadzone)
	ny := normalizeTilt(*s.Beta-m.BetaCenter, m.ClampRange, m.Deadzone)

	nx *= m.Sensitivity
	ny *= m.Sensitivity
	if m.InvertX {
		nx = -nx
	}
	if m.InvertY {
		ny = -ny
	}

	c := v.Center()
	return v.Clamp(gaze.Point{
		X: c.X + nx*v.Width/2,
		Y: c.Y + ny*v.Height/2,
	}), true
}

// normalizeTilt maps degrees to [-1,1] with a dead zone around zero.
func normalizeTilt(deg, clampRange, deadzone float64) float64 {
	if clampRange <= 0 {
		return 0
	}
	n := gaze.Clamp(deg, -clampRange, clampRange) / clampRange

	mag := math.Abs(n)
	if mag <= deadzone {
		return 0
	}
	if deadzone > 0 && deadzone < 1 {
		mag = (mag - deadzone) / (1 - deadzone)
	}
	return math.Copysign(mag, n)
}

// Package settings holds the process-wide tunables read by fusion and by every
// eye. A single Store owns mutation; consumers get copies.
package settings

import "fmt"

// SpringMode selects when per-eye spring smoothing is applied.
type SpringMode string

const (
	// SpringAlways smooths every offset change.
	SpringAlways SpringMode = "always"
	// SpringNever applies offsets directly.
	SpringNever SpringMode = "never"
	// SpringUnbuffered skips the spring while the target comes from a source
	// that already denoises its output (motion vision).
	SpringUnbuffered SpringMode = "unbuffered"
)

// Mapping holds the orientation-to-screen mapping constants.
type Mapping struct {
	ClampRange  float64 `json:"clamp_range"` // Tilt clamp in degrees (±)
	Deadzone    float64 `json:"deadzone"`    // Normalized dead zone around neutral (0-1)
	Sensitivity float64 `json:"sensitivity"` // Multiplier on the normalized tilt
	BetaCenter  float64 `json:"beta_center"` // Tilt treated as neutral front/back (degrees)
	GammaCenter float64 `json:"gamma_center"`
	InvertX     bool    `json:"invert_x"`
	InvertY     bool    `json:"invert_y"`
}

// Settings holds all tunable parameters.
type Settings struct {
	// Layout
	EyeCount int     `json:"eye_count"` // Eyes in the grid
	EyeScale float64 `json:"eye_scale"` // Eye size as % of its grid cell

	// Spring
	Damping   float64    `json:"damping"`
	Stiffness float64    `json:"stiffness"`
	Spring    SpringMode `json:"spring"`

	// Per-eye mapping
	MaxMoveFraction  float64 `json:"max_move_fraction"` // Pupil travel as fraction of eye size
	DistanceExponent float64 `json:"distance_exponent"` // Sub-linear falloff exponent
	MobileMoveFactor float64 `json:"mobile_move_factor"`
	MobileBreakpoint float64 `json:"mobile_breakpoint"` // Viewport width below which mobile applies

	// Orientation mapping
	Mapping Mapping `json:"mapping"`
}

// DefaultMapping returns the default orientation mapping: ±45° of tilt covers
// the full screen with a 5% dead zone around neutral.
func DefaultMapping() Mapping {
	return Mapping{
		ClampRange:  45,
		Deadzone:    0.05,
		Sensitivity: 1.0,
	}
}

// DefaultSettings returns the startup settings.
func DefaultSettings() Settings {
	return Settings{
		EyeCount: 35,
		EyeScale: 85,

		Damping:   15,
		Stiffness: 150,
		Spring:    SpringAlways,

		MaxMoveFraction:  0.16,
		DistanceExponent: 0.75,
		MobileMoveFactor: 0.67,
		MobileBreakpoint: 768,

		Mapping: DefaultMapping(),
	}
}

// Validate checks that values are within usable ranges.
// Returns a list of validation errors, or nil if valid.
func (s *Settings) Validate() []string {
	var errors []string

	if s.EyeCount < 1 || s.EyeCount > 1000 {
		errors = append(errors, "eye_count must be between 1 and 1000")
	}
	if s.EyeScale <= 0 || s.EyeScale > 100 {
		errors = append(errors, "eye_scale must be in (0, 100]")
	}
	// An undamped spring never settles and keeps every eye animating
	if s.Damping <= 0 {
		errors = append(errors, "damping must be > 0")
	}
	if s.Stiffness <= 0 {
		errors = append(errors, "stiffness must be > 0")
	}
	switch s.Spring {
	case SpringAlways, SpringNever, SpringUnbuffered:
	default:
		errors = append(errors, fmt.Sprintf("spring must be always, never, or unbuffered, got %q", s.Spring))
	}
	if s.MaxMoveFraction < 0 || s.MaxMoveFraction > 0.5 {
		errors = append(errors, "max_move_fraction must be between 0 and 0.5")
	}
	if s.DistanceExponent <= 0 || s.DistanceExponent > 2 {
		errors = append(errors, "distance_exponent must be in (0, 2]")
	}
	if s.MobileMoveFactor <= 0 || s.MobileMoveFactor > 1 {
		errors = append(errors, "mobile_move_factor must be in (0, 1]")
	}
	if s.MobileBreakpoint < 0 {
		errors = append(errors, "mobile_breakpoint must be >= 0")
	}

	m := s.Mapping
	if m.ClampRange <= 0 || m.ClampRange > 180 {
		errors = append(errors, "mapping.clamp_range must be in (0, 180]")
	}
	if m.Deadzone < 0 || m.Deadzone >= 1 {
		errors = append(errors, "mapping.deadzone must be in [0, 1)")
	}
	if m.Sensitivity <= 0 {
		errors = append(errors, "mapping.sensitivity must be > 0")
	}

	return errors
}

package eye

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// maxStep bounds one integration step in seconds.
const maxStep = 1.0 / 240

// settleEpsilon is the distance and speed below which the spring snaps to rest.
const settleEpsilon = 0.01

// Spring eases a 2D value toward a target with unit mass.
// Damping = 2*sqrt(Stiffness) is critically damped.
type Spring struct {
	Damping   float64
	Stiffness float64

	pos    gaze.Vector
	vel    gaze.Vector
	target gaze.Vector
}

// NewSpring creates a spring at rest at the origin.
func NewSpring(damping, stiffness float64) *Spring {
	return &Spring{Damping: damping, Stiffness: stiffness}
}

// SetTarget sets the rest point.
func (s *Spring) SetTarget(v gaze.Vector) {
	s.target = v
}

// Target returns the rest point.
func (s *Spring) Target() gaze.Vector {
	return s.target
}

// Snap jumps to v and stops.
func (s *Spring) Snap(v gaze.Vector) {
	s.pos, s.target, s.vel = v, v, gaze.Vector{}
}

// Position returns the current value.
func (s *Spring) Position() gaze.Vector {
	return s.pos
}

// Settled reports whether the spring is at rest on its target.
func (s *Spring) Settled() bool {
	return s.pos == s.target && s.vel == (gaze.Vector{})
}

// Step advances the spring by dt seconds and returns the new value.
// Large steps are split so the integration stays stable.
func (s *Spring) Step(dt float64) gaze.Vector {
	if s.Settled() || dt <= 0 {
		return s.pos
	}
	if s.Stiffness <= 0 {
		s.Snap(s.target)
		return s.pos
	}

	steps := int(math.Ceil(dt / maxStep))
	h := dt / float64(steps)
	for i := 0; i < steps; i++ {
		ax := s.Stiffness*(s.target.X-s.pos.X) - s.Damping*s.vel.X
		ay := s.Stiffness*(s.target.Y-s.pos.Y) - s.Damping*s.vel.Y
		s.vel.X += ax * h
		s.vel.Y += ay * h
		s.pos.X += s.vel.X * h
		s.pos.Y += s.vel.Y * h
	}

	d := gaze.Vector{X: s.target.X - s.pos.X, Y: s.target.Y - s.pos.Y}
	if d.Len() < settleEpsilon && s.vel.Len() < settleEpsilon {
		s.Snap(s.target)
	}
	return s.pos
}

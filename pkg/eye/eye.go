package eye

import (
	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Eye is one widget: a cached bounding box and a smoothed pupil offset.
// Work per update is constant; geometry is only replaced on layout changes.
type Eye struct {
	id       string
	geometry gaze.EyeGeometry
	spring   *Spring
	dirty    bool
}

// New creates an eye with a fresh ID.
func New(geom gaze.EyeGeometry) *Eye {
	return NewWithID(uuid.NewString(), geom)
}

// NewWithID creates an eye with a caller-chosen ID.
func NewWithID(id string, geom gaze.EyeGeometry) *Eye {
	return &Eye{
		id:       id,
		geometry: geom,
		spring:   NewSpring(0, 0),
		dirty:    true,
	}
}

// ID returns the eye identifier.
func (e *Eye) ID() string {
	return e.id
}

// Geometry returns the cached bounding box.
func (e *Eye) Geometry() gaze.EyeGeometry {
	return e.geometry
}

// SetGeometry replaces the cached bounding box and reports whether it changed.
func (e *Eye) SetGeometry(g gaze.EyeGeometry) bool {
	if g == e.geometry {
		return false
	}
	e.geometry = g
	e.dirty = true
	return true
}

// Dirty reports whether the eye needs a retarget.
func (e *Eye) Dirty() bool {
	return e.dirty
}

// MarkDirty forces a retarget on the next update.
func (e *Eye) MarkDirty() {
	e.dirty = true
}

// Retarget computes the desired offset for target. Unmeasured geometry
// returns the error and resets the pupil to center.
func (e *Eye) Retarget(target gaze.Point, v gaze.Viewport, p Params) error {
	e.dirty = false
	off, err := ComputeOffset(target, e.geometry, v, p)
	if err != nil {
		e.spring.Snap(gaze.Vector{})
		return err
	}
	e.spring.SetTarget(off)
	return nil
}

// Advance moves the pupil toward its desired offset. With smooth false the
// pupil jumps straight there. Returns whether the offset moved.
func (e *Eye) Advance(dt, damping, stiffness float64, smooth bool) bool {
	before := e.spring.Position()
	if !smooth {
		e.spring.Snap(e.spring.Target())
	} else {
		e.spring.Damping = damping
		e.spring.Stiffness = stiffness
		e.spring.Step(dt)
	}
	return e.spring.Position() != before
}

// Offset returns the current pupil offset.
func (e *Eye) Offset() gaze.Vector {
	return e.spring.Position()
}

// Animating reports whether the spring is still moving.
func (e *Eye) Animating() bool {
	return !e.spring.Settled()
}

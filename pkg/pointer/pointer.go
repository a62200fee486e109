// Package pointer tracks the latest mouse or single-touch position.
// It is the fallback input and is always available.
package pointer

import (
	"sync"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Name identifies the pointer source in fused targets.
const Name = "pointer"

// Source holds the last known pointer position in viewport pixels.
// No smoothing happens here.
type Source struct {
	mu       sync.RWMutex
	position gaze.Point
	touched  bool // True once real input arrived
	updates  chan struct{}
}

// New creates a pointer source centered in the viewport.
func New(viewport gaze.Viewport) *Source {
	return &Source{
		position: viewport.Center(),
		updates:  make(chan struct{}, 1),
	}
}

// Name returns the source name.
func (s *Source) Name() string {
	return Name
}

// Available is always true.
func (s *Source) Available() bool {
	return true
}

// Position returns the latest position.
func (s *Source) Position() (gaze.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position, true
}

// Updates signals after every accepted move. Signals coalesce.
func (s *Source) Updates() <-chan struct{} {
	return s.updates
}

// SetViewport re-centers the default position until real input arrives.
func (s *Source) SetViewport(viewport gaze.Viewport) {
	s.mu.Lock()
	if s.touched {
		s.mu.Unlock()
		return
	}
	s.position = viewport.Center()
	s.mu.Unlock()
	s.notify()
}

// Move records a mouse position.
func (s *Source) Move(x, y float64) {
	s.mu.Lock()
	s.position = gaze.Point{X: x, Y: y}
	s.touched = true
	s.mu.Unlock()
	s.notify()
}

// Touch records a touch move. Only the first touch point is used;
// an empty list is ignored.
func (s *Source) Touch(points []gaze.Point) {
	if len(points) == 0 {
		return
	}
	s.Move(points[0].X, points[0].Y)
}

func (s *Source) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

package pointer

import (
	"testing"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func TestNew_DefaultsToCenter(t *testing.T) {
	s := New(gaze.Viewport{Width: 1024, Height: 768})

	p, ok := s.Position()
	if !ok {
		t.Fatal("Pointer should always report a position")
	}
	if p.X != 512 || p.Y != 384 {
		t.Errorf("Expected center (512,384), got (%v,%v)", p.X, p.Y)
	}
	if !s.Available() {
		t.Error("Pointer should always be available")
	}
}

func TestMove(t *testing.T) {
	s := New(gaze.Viewport{Width: 100, Height: 100})
	s.Move(10, 20)

	p, _ := s.Position()
	if p.X != 10 || p.Y != 20 {
		t.Errorf("Expected (10,20), got (%v,%v)", p.X, p.Y)
	}

	select {
	case <-s.Updates():
	default:
		t.Error("Expected an update signal after Move")
	}
}

func TestTouch_FirstPointOnly(t *testing.T) {
	s := New(gaze.Viewport{Width: 100, Height: 100})
	s.Touch([]gaze.Point{{X: 5, Y: 6}, {X: 90, Y: 90}})

	p, _ := s.Position()
	if p.X != 5 || p.Y != 6 {
		t.Errorf("Expected first touch (5,6), got (%v,%v)", p.X, p.Y)
	}

	s.Touch(nil)
	p, _ = s.Position()
	if p.X != 5 || p.Y != 6 {
		t.Error("Empty touch list should leave the position unchanged")
	}
}

func TestSetViewport_OnlyBeforeInput(t *testing.T) {
	s := New(gaze.Viewport{})

	s.SetViewport(gaze.Viewport{Width: 200, Height: 100})
	p, _ := s.Position()
	if p.X != 100 || p.Y != 50 {
		t.Errorf("Expected recentered (100,50), got (%v,%v)", p.X, p.Y)
	}

	s.Move(1, 2)
	s.SetViewport(gaze.Viewport{Width: 400, Height: 400})
	p, _ = s.Position()
	if p.X != 1 || p.Y != 2 {
		t.Errorf("Viewport change after input must not move the pointer, got (%v,%v)", p.X, p.Y)
	}
}

func TestUpdates_Coalesce(t *testing.T) {
	s := New(gaze.Viewport{Width: 100, Height: 100})
	for i := 0; i < 50; i++ {
		s.Move(float64(i), 0)
	}

	<-s.Updates()
	select {
	case <-s.Updates():
		t.Error("Expected signals to coalesce into one")
	default:
	}
}

package gaze

import (
	"errors"
	"math"
	"testing"
)

func TestViewport_CenterAndClamp(t *testing.T) {
	v := Viewport{Width: 800, Height: 600}

	c := v.Center()
	if c.X != 400 || c.Y != 300 {
		t.Errorf("Expected center (400,300), got (%v,%v)", c.X, c.Y)
	}

	p := v.Clamp(Point{X: -10, Y: 900})
	if p.X != 0 || p.Y != 600 {
		t.Errorf("Expected clamped (0,600), got (%v,%v)", p.X, p.Y)
	}
}

func TestViewport_IsMobile(t *testing.T) {
	tests := []struct {
		width float64
		want  bool
	}{
		{0, false},
		{375, true},
		{767, true},
		{768, false},
		{1440, false},
	}

	for _, tt := range tests {
		v := Viewport{Width: tt.width, Height: 800}
		if got := v.IsMobile(768); got != tt.want {
			t.Errorf("IsMobile(width=%v) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestEyeGeometry(t *testing.T) {
	var g EyeGeometry
	if g.Measured() {
		t.Error("Zero geometry should not be measured")
	}

	g = EyeGeometry{Left: 75, Top: 80, Width: 50, Height: 40}
	if !g.Measured() {
		t.Error("Expected geometry to be measured")
	}
	c := g.Center()
	if c.X != 100 || c.Y != 100 {
		t.Errorf("Expected center (100,100), got (%v,%v)", c.X, c.Y)
	}
	if g.Size() != 40 {
		t.Errorf("Expected size 40, got %v", g.Size())
	}
}

func TestOrientationSample_HasTilt(t *testing.T) {
	s := OrientationSample{Beta: Float(10)}
	if s.HasTilt() {
		t.Error("Missing gamma should not count as tilt")
	}

	s.Gamma = Float(0)
	if !s.HasTilt() {
		t.Error("Zero gamma is a real reading and should count as tilt")
	}
}

func TestMotionSample_ToViewport(t *testing.T) {
	p := MotionSample{X: 0.25, Y: 0.5}.ToViewport(Viewport{Width: 1000, Height: 800})
	if p.X != 250 || p.Y != 400 {
		t.Errorf("Expected (250,400), got (%v,%v)", p.X, p.Y)
	}
}

func TestSourceError(t *testing.T) {
	err := WrapSource("orientation", ErrPermissionDenied)

	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("Expected wrapped error to match ErrPermissionDenied")
	}

	var se *SourceError
	if !errors.As(err, &se) || se.Source != "orientation" {
		t.Errorf("Expected SourceError for orientation, got %v", err)
	}

	if WrapSource("pointer", nil) != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestDegreesRadians(t *testing.T) {
	if math.Abs(Degrees(Radians(45))-45) > 1e-9 {
		t.Errorf("Round-trip conversion failed: got %v", Degrees(Radians(45)))
	}
}

func TestPermissionString(t *testing.T) {
	if PermissionUnknown.String() != "unknown" || PermissionGranted.String() != "granted" || PermissionDenied.String() != "denied" {
		t.Error("Unexpected permission names")
	}
}

func TestPermissionText(t *testing.T) {
	for _, p := range []Permission{PermissionUnknown, PermissionGranted, PermissionDenied} {
		text, _ := p.MarshalText()
		var got Permission
		if err := got.UnmarshalText(text); err != nil || got != p {
			t.Errorf("Expected %v after text round trip, got %v (err=%v)", p, got, err)
		}
	}
	if ParsePermission("prompt") != PermissionUnknown {
		t.Error("Unrecognized names should parse as unknown")
	}
}

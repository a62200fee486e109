// Package gaze defines the shared data model for the eye-tracking pipeline:
// viewport points, pupil offsets, sensor samples and eye geometry.
package gaze

import "math"

// Point is a position in viewport pixel coordinates.
type Point struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
}

// Vector is a 2D displacement, used for pupil offsets.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Len returns the magnitude of the vector.
func (v Vector) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Target is the fused point every eye looks toward for one tick.
type Target struct {
	Point
	Source string `json:"source"` // Name of the source that produced it
}

// Viewport is the drawable area in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the viewport.
func (v Viewport) Center() Point {
	return Point{X: v.Width / 2, Y: v.Height / 2}
}

// Valid reports whether the viewport has been measured.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// IsMobile reports whether the viewport is narrower than the breakpoint.
func (v Viewport) IsMobile(breakpoint float64) bool {
	return v.Width > 0 && v.Width < breakpoint
}

// Clamp limits p to [0,Width]x[0,Height].
func (v Viewport) Clamp(p Point) Point {
	return Point{
		X: Clamp(p.X, 0, v.Width),
		Y: Clamp(p.Y, 0, v.Height),
	}
}

// EyeGeometry is one eye's bounding box in viewport pixels.
// A zero width or height means the eye has not been measured yet.
type EyeGeometry struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measured reports whether the geometry holds a real layout.
func (g EyeGeometry) Measured() bool {
	return g.Width > 0 && g.Height > 0
}

// Center returns the center of the bounding box.
func (g EyeGeometry) Center() Point {
	return Point{X: g.Left + g.Width/2, Y: g.Top + g.Height/2}
}

// Size returns the smaller side, the diameter the pupil travels within.
func (g EyeGeometry) Size() float64 {
	return math.Min(g.Width, g.Height)
}

// OrientationSample is a device orientation reading in degrees.
// Nil fields mean the sensor does not report that axis.
type OrientationSample struct {
	Alpha *float64 `json:"alpha" cbor:"alpha"` // Compass heading (unused for gaze)
	Beta  *float64 `json:"beta" cbor:"beta"`   // Front/back tilt, roughly [-180,180]
	Gamma *float64 `json:"gamma" cbor:"gamma"` // Left/right tilt, [-90,90]
}

// HasTilt reports whether both tilt axes are present.
func (s OrientationSample) HasTilt() bool {
	return s.Beta != nil && s.Gamma != nil
}

// Triple is a nullable 3-axis reading.
type Triple struct {
	X *float64 `json:"x" cbor:"x"`
	Y *float64 `json:"y" cbor:"y"`
	Z *float64 `json:"z" cbor:"z"`
}

// RotationRate is a nullable angular velocity reading in degrees per second.
type RotationRate struct {
	Alpha *float64 `json:"alpha" cbor:"alpha"`
	Beta  *float64 `json:"beta" cbor:"beta"`
	Gamma *float64 `json:"gamma" cbor:"gamma"`
}

// DeviceMotion is an accelerometer/gyroscope reading delivered next to orientation.
type DeviceMotion struct {
	Acceleration                 Triple       `json:"acceleration" cbor:"acceleration"`
	AccelerationIncludingGravity Triple       `json:"acceleration_including_gravity" cbor:"acceleration_including_gravity"`
	RotationRate                 RotationRate `json:"rotation_rate" cbor:"rotation_rate"`
	Interval                     *float64     `json:"interval" cbor:"interval"` // Milliseconds
}

// MotionSample is a detected motion centroid in normalized video space.
type MotionSample struct {
	X float64 // 0-1 across the frame
	Y float64 // 0-1 down the frame
}

// ToViewport scales the normalized centroid into viewport pixels.
func (m MotionSample) ToViewport(v Viewport) Point {
	return Point{X: m.X * v.Width, Y: m.Y * v.Height}
}

// Permission is a tri-state permission result. PermissionUnknown means
// the question has not been asked yet.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

// String returns the permission state name.
func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// MarshalText encodes the permission as its name.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a permission name. Unrecognized names decode as
// PermissionUnknown.
func (p *Permission) UnmarshalText(text []byte) error {
	*p = ParsePermission(string(text))
	return nil
}

// ParsePermission maps "granted" and "denied" to their states and anything
// else to PermissionUnknown.
func ParsePermission(s string) Permission {
	switch s {
	case "granted":
		return PermissionGranted
	case "denied":
		return PermissionDenied
	default:
		return PermissionUnknown
	}
}

// Float returns a pointer to v, for building nullable samples.
func Float(v float64) *float64 {
	return &v
}

// Clamp limits value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

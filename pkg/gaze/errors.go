package gaze

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure modes of the pipeline.
// None of them stop rendering; they are surfaced for status and logging.
var (
	// ErrPermissionDenied is returned when the user or platform refused access.
	ErrPermissionDenied = errors.New("gaze: permission denied")

	// ErrUnsupportedSensor is returned when the platform has no such sensor.
	ErrUnsupportedSensor = errors.New("gaze: sensor unsupported")

	// ErrDeviceUnavailable is returned when a camera is busy or missing.
	ErrDeviceUnavailable = errors.New("gaze: device unavailable")

	// ErrGeometryUnavailable is returned when an eye has not been measured yet.
	ErrGeometryUnavailable = errors.New("gaze: geometry unavailable")
)

// SourceError wraps an error with the name of the input source that produced it.
type SourceError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("gaze [%s]: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// WrapSource wraps err with source context. Returns nil for a nil error.
func WrapSource(source string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Err: err}
}

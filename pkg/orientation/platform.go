// Package orientation wraps device orientation and motion sensors behind a
// permission lifecycle and exposes the latest angular reading.
//
// Platforms:
//   - RelayPlatform - a remote browser or phone relays its sensor events
//   - ZMQPlatform   - an IMU daemon publishes CBOR samples over ZeroMQ
//   - MockPlatform  - tests and demos
package orientation

import (
	"context"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Handler receives sensor events from a platform subscription.
// Either callback may be nil.
type Handler struct {
	Orientation func(gaze.OrientationSample)
	Motion      func(gaze.DeviceMotion)
}

// Platform is the sensor subscription boundary.
type Platform interface {
	// Supported reports whether the device has orientation sensors at all.
	Supported() bool

	// RequiresConsent reports whether RequestPermission must be called
	// before subscribing.
	RequiresConsent() bool

	// RequestPermission runs the platform consent flow.
	RequestPermission(ctx context.Context) (gaze.Permission, error)

	// Subscribe starts delivering events to h until cancel is called.
	Subscribe(h Handler) (cancel func(), err error)
}

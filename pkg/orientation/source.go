package orientation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Name identifies the orientation source in fused targets.
const Name = "orientation"

// Source tracks the latest orientation and device-motion readings.
type Source struct {
	platform Platform
	logger   *slog.Logger

	// request serializes RequestAccess: one consent prompt is outstanding
	// at a time.
	request sync.Mutex

	mu         sync.RWMutex
	cancel     func()
	generation uint64 // Bumped on every subscribe/revoke to drop late events
	latest     *gaze.OrientationSample
	motion     *gaze.DeviceMotion
	permission gaze.Permission
	err        error

	updates chan struct{}
}

// New creates an orientation source on the given platform.
func New(platform Platform, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		platform: platform,
		logger:   logger,
		updates:  make(chan struct{}, 1),
	}
}

// AutoStart requests access right away on platforms that need no consent.
// Platforms with a consent flow wait for an explicit RequestAccess, which
// should come from a user gesture.
func (s *Source) AutoStart(ctx context.Context) bool {
	if s.platform == nil || s.platform.RequiresConsent() {
		return false
	}
	return s.RequestAccess(ctx)
}

// RequestAccess asks for permission where required and starts listening.
// It returns false and records an error when the sensor is unsupported, the
// permission is denied, or the permission flow fails. There are no retries;
// call RequestAccess again to try once more.
func (s *Source) RequestAccess(ctx context.Context) bool {
	s.request.Lock()
	defer s.request.Unlock()

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return true // Already listening
	}
	s.mu.Unlock()

	if s.platform == nil || !s.platform.Supported() {
		s.fail(gaze.PermissionUnknown, gaze.ErrUnsupportedSensor)
		return false
	}

	if s.platform.RequiresConsent() {
		perm, err := s.platform.RequestPermission(ctx)
		if err != nil {
			s.fail(gaze.PermissionUnknown, fmt.Errorf("permission request failed: %w", err))
			return false
		}
		if perm != gaze.PermissionGranted {
			s.fail(gaze.PermissionDenied, gaze.ErrPermissionDenied)
			return false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	cancel, err := s.platform.Subscribe(Handler{
		Orientation: func(sample gaze.OrientationSample) { s.onOrientation(gen, sample) },
		Motion:      func(m gaze.DeviceMotion) { s.onMotion(gen, m) },
	})
	if err != nil {
		s.err = gaze.WrapSource(Name, fmt.Errorf("subscribe: %w", err))
		s.logger.Warn("orientation subscribe failed", "error", err)
		return false
	}

	s.cancel = cancel
	s.permission = gaze.PermissionGranted
	s.err = nil
	s.logger.Info("orientation listening", "consent", s.platform.RequiresConsent())
	return true
}

// RevokeAccess stops listening and clears the last readings.
// Safe to call when not listening.
func (s *Source) RevokeAccess() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.generation++
	s.latest = nil
	s.motion = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.logger.Info("orientation stopped")
		s.notify()
	}
}

// Listening reports whether a sensor subscription is active.
func (s *Source) Listening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

// Latest returns the most recent orientation reading.
func (s *Source) Latest() (gaze.OrientationSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return gaze.OrientationSample{}, false
	}
	return *s.latest, true
}

// LatestMotion returns the most recent device-motion reading.
func (s *Source) LatestMotion() (gaze.DeviceMotion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.motion == nil {
		return gaze.DeviceMotion{}, false
	}
	return *s.motion, true
}

// Available reports whether a usable tilt reading exists.
func (s *Source) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil && s.latest != nil && s.latest.HasTilt()
}

// Permission returns the last permission outcome.
func (s *Source) Permission() gaze.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permission
}

// Err returns the last access error, or nil.
func (s *Source) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Name returns the source name.
func (s *Source) Name() string {
	return Name
}

// Updates signals after every new orientation reading. Signals coalesce.
func (s *Source) Updates() <-chan struct{} {
	return s.updates
}

func (s *Source) onOrientation(gen uint64, sample gaze.OrientationSample) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.latest = &sample
	s.mu.Unlock()
	s.notify()
}

func (s *Source) onMotion(gen uint64, m gaze.DeviceMotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.motion = &m
}

func (s *Source) fail(perm gaze.Permission, err error) {
	s.mu.Lock()
	s.permission = perm
	s.err = gaze.WrapSource(Name, err)
	s.mu.Unlock()
	s.logger.Warn("orientation access failed", "error", err)
}

func (s *Source) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/stats"
)

// Name identifies the motion source in fused targets.
const Name = "motion"

// Config tunes capture, detection and denoising.
type Config struct {
	// === Capture ===
	Width         int           `json:"width"`          // Requested frame width
	Height        int           `json:"height"`         // Requested frame height
	Facing        string        `json:"facing"`         // "user" or "environment"
	FrameInterval time.Duration `json:"frame_interval"` // Detection cadence

	// === Detection ===
	Stride    int     `json:"stride"`    // Sample every Nth pixel on both axes
	Threshold float64 `json:"threshold"` // Averaged RGB difference (0-255) that counts as motion
	Mirror    bool    `json:"mirror"`    // Flip X so a user-facing camera behaves like a mirror

	// === Denoising ===
	Smoothing  bool    `json:"smoothing"`   // Emit the filtered buffer average instead of the raw centroid
	Capacity   int     `json:"capacity"`    // Position buffer size
	MinSamples int     `json:"min_samples"` // Samples before a smoothed position is emitted
	Sigma      float64 `json:"sigma"`       // Outlier rejection in standard deviations
}

// DefaultConfig returns the standard detection settings.
func DefaultConfig() Config {
	return Config{
		Width:         640,
		Height:        480,
		Facing:        FacingUser,
		FrameInterval: 16 * time.Millisecond,

		Stride:    15,
		Threshold: 25,
		Mirror:    false,

		Smoothing:  true,
		Capacity:   10,
		MinSamples: 3,
		Sigma:      2.0,
	}
}

// Validate checks the config. Returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string
	if c.Width < 16 || c.Height < 16 {
		errs = append(errs, "width and height must be at least 16")
	}
	if c.FrameInterval <= 0 {
		errs = append(errs, "frame_interval must be positive")
	}
	if c.Stride < 1 {
		errs = append(errs, "stride must be at least 1")
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		errs = append(errs, "threshold must be between 0 and 255")
	}
	if c.Capacity < 1 {
		errs = append(errs, "capacity must be at least 1")
	}
	if c.MinSamples < 1 || c.MinSamples > c.Capacity {
		errs = append(errs, "min_samples must be between 1 and capacity")
	}
	if c.Sigma <= 0 {
		errs = append(errs, "sigma must be positive")
	}
	return errs
}

// Source is the motion-vision gaze source. Initialize toggles capture.
type Source struct {
	cfg    Config
	camera Camera
	logger *slog.Logger

	// lifecycle serializes Initialize and Close
	lifecycle sync.Mutex
	stream    Stream
	stop      chan struct{}
	done      chan struct{}

	mu          sync.RWMutex
	enabled     bool
	permission  gaze.Permission
	err         error
	viewport    gaze.Viewport
	position    gaze.Point
	hasPosition bool
	window      *stats.Window2D
	detector    *Detector

	updates chan struct{}
}

// New creates a disabled motion source.
func New(cfg Config, camera Camera, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig().FrameInterval
	}
	return &Source{
		cfg:      cfg,
		camera:   camera,
		logger:   logger,
		window:   stats.NewWindow2D(windowConfig(cfg)),
		detector: NewDetector(cfg.Stride, cfg.Threshold),
		updates:  make(chan struct{}, 1),
	}
}

func windowConfig(cfg Config) stats.WindowConfig {
	return stats.WindowConfig{
		Capacity:   cfg.Capacity,
		MinSamples: cfg.MinSamples,
		Sigma:      cfg.Sigma,
	}
}

// Initialize toggles the source. When enabled it stops capture and releases
// the camera. When disabled it opens the camera and starts detection.
// A refused camera leaves the source disabled with Permission() == Denied;
// calling Initialize again retries.
func (s *Source) Initialize(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stream != nil {
		s.shutdown()
		return nil
	}
	return s.start(ctx)
}

// SetEnabled starts or stops capture to match enabled. It does nothing when
// the source is already in that state, so concurrent calls agree.
func (s *Source) SetEnabled(ctx context.Context, enabled bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	running := s.stream != nil
	switch {
	case enabled == running:
		return nil
	case enabled:
		return s.start(ctx)
	default:
		s.shutdown()
		return nil
	}
}

// Close stops capture if running. Safe to call repeatedly.
func (s *Source) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.stream != nil {
		s.shutdown()
	}
	return nil
}

func (s *Source) start(ctx context.Context) error {
	if s.camera == nil {
		return s.fail(gaze.PermissionUnknown, fmt.Errorf("%w: no camera configured", gaze.ErrDeviceUnavailable))
	}

	stream, err := s.camera.Open(ctx, Request{Width: s.cfg.Width, Height: s.cfg.Height, Facing: s.cfg.Facing})
	if err != nil {
		if errors.Is(err, gaze.ErrPermissionDenied) {
			return s.fail(gaze.PermissionDenied, err)
		}
		return s.fail(s.Permission(), fmt.Errorf("open camera: %w", err))
	}

	s.mu.Lock()
	s.enabled = true
	s.permission = gaze.PermissionGranted
	s.err = nil
	s.mu.Unlock()

	s.stream = stream
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(stream, s.stop, s.done)

	s.logger.Info("motion capture started",
		"width", s.cfg.Width, "height", s.cfg.Height,
		"stride", s.cfg.Stride, "threshold", s.cfg.Threshold)
	return nil
}

// shutdown joins the capture goroutine, then releases the stream exactly once.
// Caller holds lifecycle.
func (s *Source) shutdown() {
	close(s.stop)
	<-s.done

	if err := s.stream.Close(); err != nil {
		s.logger.Warn("camera release failed", "error", err)
	}
	s.stream = nil

	s.mu.Lock()
	s.enabled = false
	s.hasPosition = false
	s.window.Reset()
	s.detector.Reset()
	s.mu.Unlock()

	s.logger.Info("motion capture stopped")
	s.notify()
}

func (s *Source) run(stream Stream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	var frame Frame
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := stream.Read(&frame); err != nil {
				debug.MotionLog("📷 frame read: %v\n", err)
				continue
			}
			s.process(&frame)
		}
	}
}

// process runs detection on one frame and updates the smoothed position.
func (s *Source) process(f *Frame) {
	s.mu.Lock()
	sample, ok := s.detector.Detect(f)
	if !ok || !s.viewport.Valid() {
		s.mu.Unlock()
		return
	}

	if s.cfg.Mirror {
		sample.X = 1 - sample.X
	}
	p := sample.ToViewport(s.viewport)
	s.window.Push(p.X, p.Y)

	var x, y float64
	var have bool
	if s.cfg.Smoothing {
		x, y, have = s.window.Smoothed()
	} else {
		x, y, have = s.window.Latest()
	}
	if have {
		s.position = gaze.Point{X: x, Y: y}
		s.hasPosition = true
	}
	buffered := s.window.Len()
	s.mu.Unlock()

	debug.MotionLog("🎯 centroid (%.3f, %.3f) -> (%.0f, %.0f) buffered=%d\n",
		sample.X, sample.Y, p.X, p.Y, buffered)

	if have {
		s.notify()
	}
}

// SetViewport sets the pixel space positions are scaled into.
// Buffered samples from a different viewport are dropped.
func (s *Source) SetViewport(v gaze.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.viewport {
		return
	}
	s.viewport = v
	s.window.Reset()
	s.hasPosition = false
}

// Position returns the smoothed motion position. ok is false while disabled
// or before enough motion has been seen.
func (s *Source) Position() (gaze.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled || !s.hasPosition {
		return gaze.Point{}, false
	}
	return s.position, true
}

// Available reports whether the source is enabled and has a position.
func (s *Source) Available() bool {
	_, ok := s.Position()
	return ok
}

// IsEnabled reports whether capture is running.
func (s *Source) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Permission returns the last camera permission outcome.
func (s *Source) Permission() gaze.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permission
}

// Err returns the last start error, or nil.
func (s *Source) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Buffered returns the number of positions in the denoising buffer.
func (s *Source) Buffered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window.Len()
}

// Config returns the active configuration.
func (s *Source) Config() Config {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.cfg
}

// Reconfigure changes the capture request. A running capture is stopped and
// reopened with the new request; a stopped source only records it.
func (s *Source) Reconfigure(ctx context.Context, width, height int, facing string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	running := s.stream != nil
	if running {
		s.shutdown()
	}
	if width > 0 && height > 0 {
		s.cfg.Width, s.cfg.Height = width, height
	}
	if facing != "" {
		s.cfg.Facing = facing
	}
	if !running {
		return nil
	}
	return s.start(ctx)
}

// Name returns the source name.
func (s *Source) Name() string {
	return Name
}

// Updates signals after every new position. Signals coalesce.
func (s *Source) Updates() <-chan struct{} {
	return s.updates
}

func (s *Source) fail(perm gaze.Permission, err error) error {
	wrapped := gaze.WrapSource(Name, err)
	s.mu.Lock()
	s.enabled = false
	s.permission = perm
	s.err = wrapped
	s.mu.Unlock()
	s.logger.Warn("motion capture unavailable", "error", err)
	return wrapped
}

func (s *Source) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

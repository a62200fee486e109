package motion

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func TestDetector_FirstFrame(t *testing.T) {
	d := NewDetector(15, 25)
	f := BlobFrame(640, 480, 300, 240, 30)
	if _, ok := d.Detect(&f); ok {
		t.Error("First frame has nothing to compare against")
	}
}

func TestDetector_NoChange(t *testing.T) {
	d := NewDetector(15, 25)
	f := SolidFrame(640, 480, 100)
	d.Detect(&f)
	if _, ok := d.Detect(&f); ok {
		t.Error("Identical frames should report no motion")
	}
}

func TestDetector_Centroid(t *testing.T) {
	d := NewDetector(15, 25)
	dark := SolidFrame(640, 480, 0)
	blob := BlobFrame(640, 480, 300, 240, 30)

	d.Detect(&dark)
	got, ok := d.Detect(&blob)
	if !ok {
		t.Fatal("Expected motion")
	}

	// Sampled columns 300,315 and rows 240,255 fall inside the blob
	wantX := 307.5 / 640
	wantY := 247.5 / 480
	if math.Abs(got.X-wantX) > 1e-9 || math.Abs(got.Y-wantY) > 1e-9 {
		t.Errorf("Expected centroid (%.4f, %.4f), got (%.4f, %.4f)", wantX, wantY, got.X, got.Y)
	}
}

func TestDetector_Threshold(t *testing.T) {
	tests := []struct {
		name  string
		delta byte
		want  bool
	}{
		{"below threshold", 20, false},
		{"at threshold", 25, false},
		{"above threshold", 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(15, 25)
			a := SolidFrame(64, 48, 100)
			b := SolidFrame(64, 48, 100+tt.delta)
			d.Detect(&a)
			_, ok := d.Detect(&b)
			if ok != tt.want {
				t.Errorf("Expected motion=%v, got %v", tt.want, ok)
			}
		})
	}
}

func TestDetector_SizeChange(t *testing.T) {
	d := NewDetector(15, 25)
	a := SolidFrame(640, 480, 0)
	b := SolidFrame(320, 240, 255)
	d.Detect(&a)
	if _, ok := d.Detect(&b); ok {
		t.Error("Size change should reset instead of comparing")
	}
	c := SolidFrame(320, 240, 0)
	if _, ok := d.Detect(&c); !ok {
		t.Error("Expected motion once sizes match again")
	}
}

func TestDetector_InvalidFrame(t *testing.T) {
	d := NewDetector(15, 25)
	short := Frame{Width: 10, Height: 10, Channels: 3, Pix: make([]byte, 5)}
	if _, ok := d.Detect(&short); ok {
		t.Error("Short frame must be ignored")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default config invalid: %v", errs)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("Expected 640x480, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Stride != 15 || cfg.Threshold != 25 {
		t.Errorf("Expected stride 15 threshold 25, got %d %.0f", cfg.Stride, cfg.Threshold)
	}
	if cfg.Capacity != 10 || cfg.MinSamples != 3 || cfg.Sigma != 2.0 {
		t.Errorf("Unexpected buffer settings %+v", cfg)
	}

	bad := cfg
	bad.MinSamples = 20
	if len(bad.Validate()) == 0 {
		t.Error("Expected min_samples > capacity to be rejected")
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameInterval = time.Millisecond
	return cfg
}

func flickerCamera() *MockCamera {
	return NewMockCamera(
		SolidFrame(640, 480, 0),
		BlobFrame(640, 480, 300, 240, 30),
	)
}

func waitPosition(t *testing.T, s *Source) gaze.Point {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := s.Position(); ok {
			return p
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for a motion position")
	return gaze.Point{}
}

func TestSource_TracksMotion(t *testing.T) {
	cam := flickerCamera()
	s := New(testConfig(), cam, nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})
	defer s.Close()

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !s.IsEnabled() {
		t.Fatal("Expected source enabled")
	}
	if s.Permission() != gaze.PermissionGranted {
		t.Errorf("Expected permission granted, got %v", s.Permission())
	}

	req := cam.LastRequest()
	if req.Width != 640 || req.Height != 480 || req.Facing != FacingUser {
		t.Errorf("Unexpected camera request %+v", req)
	}

	p := waitPosition(t, s)
	if math.Abs(p.X-307.5) > 1e-6 || math.Abs(p.Y-247.5) > 1e-6 {
		t.Errorf("Expected position (307.5, 247.5), got (%.2f, %.2f)", p.X, p.Y)
	}
	if s.Buffered() > 10 {
		t.Errorf("Buffer exceeded capacity: %d", s.Buffered())
	}
}

func TestSource_ScalesToViewport(t *testing.T) {
	s := New(testConfig(), flickerCamera(), nil)
	s.SetViewport(gaze.Viewport{Width: 1280, Height: 960})
	defer s.Close()

	s.Initialize(context.Background())
	p := waitPosition(t, s)
	if math.Abs(p.X-615) > 1e-6 || math.Abs(p.Y-495) > 1e-6 {
		t.Errorf("Expected position (615, 495), got (%.2f, %.2f)", p.X, p.Y)
	}
}

func TestSource_Mirror(t *testing.T) {
	cfg := testConfig()
	cfg.Mirror = true
	s := New(cfg, flickerCamera(), nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})
	defer s.Close()

	s.Initialize(context.Background())
	p := waitPosition(t, s)
	if math.Abs(p.X-332.5) > 1e-6 {
		t.Errorf("Expected mirrored x 332.5, got %.2f", p.X)
	}
}

func TestSource_ToggleReleasesOnce(t *testing.T) {
	cam := flickerCamera()
	s := New(testConfig(), cam, nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})

	s.Initialize(context.Background())
	waitPosition(t, s)

	// Second call toggles off
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Toggle off failed: %v", err)
	}
	if s.IsEnabled() {
		t.Error("Expected source disabled after toggle")
	}
	if cam.Releases() != 1 {
		t.Errorf("Expected camera released once, got %d", cam.Releases())
	}

	s.Close()
	if cam.Releases() != 1 {
		t.Errorf("Close after disable must not release again, got %d", cam.Releases())
	}

	if _, ok := s.Position(); ok {
		t.Error("Disabled source must not report a position")
	}
	if s.Buffered() != 0 {
		t.Errorf("Expected buffer cleared, got %d", s.Buffered())
	}

	// Re-enable opens a fresh stream
	s.Initialize(context.Background())
	if cam.Opens() != 2 {
		t.Errorf("Expected second open, got %d", cam.Opens())
	}
	s.Close()
	if cam.Releases() != 2 {
		t.Errorf("Expected second release, got %d", cam.Releases())
	}
}

func TestSource_SetEnabledConcurrent(t *testing.T) {
	for i := 0; i < 20; i++ {
		cam := flickerCamera()
		cam.SetOpenDelay(2 * time.Millisecond)
		s := New(testConfig(), cam, nil)

		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.SetEnabled(context.Background(), true); err != nil {
					t.Errorf("SetEnabled error: %v", err)
				}
			}()
		}
		wg.Wait()

		if !s.IsEnabled() {
			t.Fatalf("Run %d: expected source enabled after two enable requests", i)
		}
		if cam.Opens() != 1 {
			t.Fatalf("Run %d: expected camera opened once, got %d", i, cam.Opens())
		}
		s.Close()
	}
}

func TestSource_SetEnabled(t *testing.T) {
	cam := flickerCamera()
	s := New(testConfig(), cam, nil)

	if err := s.SetEnabled(context.Background(), false); err != nil {
		t.Fatalf("Disable while stopped failed: %v", err)
	}
	if cam.Opens() != 0 || cam.Releases() != 0 {
		t.Error("Disabling a stopped source must not touch the camera")
	}

	s.SetEnabled(context.Background(), true)
	s.SetEnabled(context.Background(), true)
	if cam.Opens() != 1 {
		t.Errorf("Expected one open, got %d", cam.Opens())
	}

	s.SetEnabled(context.Background(), false)
	s.SetEnabled(context.Background(), false)
	if s.IsEnabled() {
		t.Error("Expected source disabled")
	}
	if cam.Releases() != 1 {
		t.Errorf("Expected one release, got %d", cam.Releases())
	}
}

func TestSource_Reconfigure(t *testing.T) {
	cam := flickerCamera()
	s := New(testConfig(), cam, nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})
	defer s.Close()

	if err := s.Reconfigure(context.Background(), 320, 240, ""); err != nil {
		t.Fatalf("Reconfigure while stopped failed: %v", err)
	}
	if cam.Opens() != 0 {
		t.Error("Reconfigure must not start a stopped source")
	}

	s.Initialize(context.Background())
	if req := cam.LastRequest(); req.Width != 320 || req.Height != 240 {
		t.Errorf("Expected 320x240 request, got %+v", req)
	}

	if err := s.Reconfigure(context.Background(), 0, 0, FacingEnvironment); err != nil {
		t.Fatalf("Reconfigure while running failed: %v", err)
	}
	if !s.IsEnabled() {
		t.Error("Expected capture to keep running after reconfigure")
	}
	if cam.Opens() != 2 || cam.Releases() != 1 {
		t.Errorf("Expected reopen (opens=2 releases=1), got opens=%d releases=%d", cam.Opens(), cam.Releases())
	}
	req := cam.LastRequest()
	if req.Facing != FacingEnvironment || req.Width != 320 {
		t.Errorf("Expected environment 320 wide request, got %+v", req)
	}
	if s.Config().Facing != FacingEnvironment {
		t.Errorf("Expected config facing %q, got %q", FacingEnvironment, s.Config().Facing)
	}
}

func TestSource_PermissionDenied(t *testing.T) {
	cam := flickerCamera()
	cam.SetOpenError(gaze.ErrPermissionDenied)
	s := New(testConfig(), cam, nil)

	err := s.Initialize(context.Background())
	if !errors.Is(err, gaze.ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if s.IsEnabled() {
		t.Error("Denied source must stay disabled")
	}
	if s.Permission() != gaze.PermissionDenied {
		t.Errorf("Expected permission denied, got %v", s.Permission())
	}

	// Retry after the user allows access
	cam.SetOpenError(nil)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	defer s.Close()
	if !s.IsEnabled() || s.Permission() != gaze.PermissionGranted {
		t.Error("Expected retry to enable the source")
	}
}

func TestSource_DeviceUnavailable(t *testing.T) {
	s := New(testConfig(), nil, nil)
	err := s.Initialize(context.Background())
	if !errors.Is(err, gaze.ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
	}

	var se *gaze.SourceError
	if !errors.As(err, &se) || se.Source != Name {
		t.Errorf("Expected SourceError from %q, got %v", Name, err)
	}
}

func TestSource_NoMotionKeepsPosition(t *testing.T) {
	cam := flickerCamera()
	s := New(testConfig(), cam, nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})
	defer s.Close()

	s.Initialize(context.Background())
	before := waitPosition(t, s)

	// Static scene from now on
	cam.SetFrames(SolidFrame(640, 480, 0))
	time.Sleep(20 * time.Millisecond)

	after, ok := s.Position()
	if !ok {
		t.Fatal("Position should persist without motion")
	}
	if after != before {
		t.Errorf("Expected stale position %v to persist, got %v", before, after)
	}
}

func TestSource_NeedsMinSamples(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})
	s.enabled = true

	dark := SolidFrame(640, 480, 0)
	blob := BlobFrame(640, 480, 300, 240, 30)

	s.process(&dark)
	s.process(&blob)
	s.process(&dark)
	if _, ok := s.Position(); ok {
		t.Error("Two samples are not enough for a smoothed position")
	}
	s.process(&blob)
	if _, ok := s.Position(); !ok {
		t.Error("Expected a position after three samples")
	}
}

func TestSource_ViewportChangeResets(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)
	s.SetViewport(gaze.Viewport{Width: 640, Height: 480})
	s.enabled = true

	dark := SolidFrame(640, 480, 0)
	blob := BlobFrame(640, 480, 300, 240, 30)
	for i := 0; i < 4; i++ {
		s.process(&dark)
		s.process(&blob)
	}
	if s.Buffered() == 0 {
		t.Fatal("Expected buffered samples")
	}

	s.SetViewport(gaze.Viewport{Width: 800, Height: 600})
	if s.Buffered() != 0 {
		t.Errorf("Expected buffer reset on viewport change, got %d", s.Buffered())
	}
	if _, ok := s.Position(); ok {
		t.Error("Position from the old viewport must be dropped")
	}
}

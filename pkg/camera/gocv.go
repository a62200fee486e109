package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/motion"
)

// GoCV opens local capture devices through OpenCV.
// Settings are read from the manager on every Open.
type GoCV struct {
	manager *Manager
	logger  *slog.Logger
}

// NewGoCV creates a camera backed by the manager's configuration.
func NewGoCV(manager *Manager, logger *slog.Logger) *GoCV {
	if manager == nil {
		manager = NewManager()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoCV{manager: manager, logger: logger}
}

// Open implements motion.Camera. A non-zero request size overrides the
// configured resolution; frames are resized when the driver ignores it.
func (c *GoCV) Open(ctx context.Context, req motion.Request) (motion.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := c.manager.GetConfig()
	facing := req.Facing
	if facing == "" {
		facing = cfg.Facing
	}
	if req.Width > 0 && req.Height > 0 {
		cfg.Width, cfg.Height = req.Width, req.Height
	}

	device := cfg.DeviceFor(facing)
	var source interface{} = device
	if idx, err := strconv.Atoi(device); err == nil {
		source = idx
	}

	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", gaze.ErrDeviceUnavailable, device, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: %s not opened", gaze.ErrDeviceUnavailable, device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if !cfg.AutoExposure {
		vc.Set(gocv.VideoCaptureAutoExposure, 1)
		vc.Set(gocv.VideoCaptureExposure, cfg.Exposure)
	}
	if cfg.Brightness != 0 {
		vc.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	}

	c.logger.Info("camera opened",
		"device", device, "facing", facing,
		"width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)

	return &gocvStream{
		vc:     vc,
		mat:    gocv.NewMat(),
		scaled: gocv.NewMat(),
		size:   image.Pt(cfg.Width, cfg.Height),
		logger: c.logger,
	}, nil
}

type gocvStream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	scaled gocv.Mat
	size   image.Point
	closed bool
	logger *slog.Logger
}

// Read grabs one BGR frame into f.
func (s *gocvStream) Read(f *motion.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: stream closed", gaze.ErrDeviceUnavailable)
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return fmt.Errorf("%w: no frame", gaze.ErrDeviceUnavailable)
	}

	src := s.mat
	if s.mat.Cols() != s.size.X || s.mat.Rows() != s.size.Y {
		gocv.Resize(s.mat, &s.scaled, s.size, 0, 0, gocv.InterpolationLinear)
		src = s.scaled
	}

	data, err := src.DataPtrUint8()
	if err != nil {
		data = src.ToBytes()
	}

	f.Width, f.Height, f.Channels = src.Cols(), src.Rows(), src.Channels()
	if cap(f.Pix) < len(data) {
		f.Pix = make([]byte, len(data))
	}
	f.Pix = f.Pix[:len(data)]
	copy(f.Pix, data)
	return nil
}

// Close releases the capture device. Safe to call more than once.
func (s *gocvStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	s.scaled.Close()
	if err := s.vc.Close(); err != nil {
		return fmt.Errorf("close capture: %w", err)
	}
	s.logger.Info("camera released")
	return nil
}

var _ motion.Camera = (*GoCV)(nil)

package motion

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Facing modes for Request.Facing.
const (
	FacingUser        = "user"
	FacingEnvironment = "environment"
)

// Request describes the stream the motion source asks for.
type Request struct {
	Width  int
	Height int
	Facing string
}

// Camera opens video streams. Implementations return an error wrapping
// gaze.ErrPermissionDenied when access is refused and gaze.ErrDeviceUnavailable
// when the device is busy or missing.
type Camera interface {
	Open(ctx context.Context, req Request) (Stream, error)
}

// Stream is an open capture. Close releases the device.
type Stream interface {
	// Read fills f with the next frame, reusing f.Pix when it is large enough.
	Read(f *Frame) error
	Close() error
}

// MockCamera serves scripted frames and counts device releases.
type MockCamera struct {
	mu      sync.Mutex
	frames  []Frame
	openErr error
	delay   time.Duration
	last    Request

	opens    atomic.Int64
	releases atomic.Int64
	reads    atomic.Int64
}

// NewMockCamera creates a camera that cycles through frames.
// With no frames every Read returns io.EOF.
func NewMockCamera(frames ...Frame) *MockCamera {
	return &MockCamera{frames: frames}
}

// SetOpenError makes subsequent Open calls fail with err.
func (m *MockCamera) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetOpenDelay makes Open take d, like a device that is slow to start.
func (m *MockCamera) SetOpenDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetFrames replaces the scripted frames.
func (m *MockCamera) SetFrames(frames ...Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
}

// Open implements Camera.
func (m *MockCamera) Open(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = req
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opens.Add(1)
	return &mockStream{cam: m}, nil
}

// LastRequest returns the most recent Open request.
func (m *MockCamera) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Opens returns the number of successful opens.
func (m *MockCamera) Opens() int64 { return m.opens.Load() }

// Releases returns how many streams were closed.
func (m *MockCamera) Releases() int64 { return m.releases.Load() }

// Reads returns the number of frames served.
func (m *MockCamera) Reads() int64 { return m.reads.Load() }

type mockStream struct {
	cam    *MockCamera
	next   int
	closed atomic.Bool
}

func (s *mockStream) Read(f *Frame) error {
	if s.closed.Load() {
		return io.ErrClosedPipe
	}
	s.cam.mu.Lock()
	frames := s.cam.frames
	s.cam.mu.Unlock()
	if len(frames) == 0 {
		return io.EOF
	}

	src := frames[s.next%len(frames)]
	s.next++
	s.cam.reads.Add(1)

	f.Width, f.Height, f.Channels = src.Width, src.Height, src.Channels
	if cap(f.Pix) < len(src.Pix) {
		f.Pix = make([]byte, len(src.Pix))
	}
	f.Pix = f.Pix[:len(src.Pix)]
	copy(f.Pix, src.Pix)
	return nil
}

func (s *mockStream) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cam.releases.Add(1)
	}
	return nil
}

// SolidFrame returns a frame filled with one gray level.
func SolidFrame(width, height int, level byte) Frame {
	pix := make([]byte, width*height*3)
	for i := range pix {
		pix[i] = level
	}
	return Frame{Width: width, Height: height, Channels: 3, Pix: pix}
}

// BlobFrame returns a dark frame with a bright square of side size at (x, y).
func BlobFrame(width, height, x, y, size int) Frame {
	f := SolidFrame(width, height, 0)
	for row := y; row < y+size && row < height; row++ {
		for col := x; col < x+size && col < width; col++ {
			i := (row*width + col) * 3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = 255, 255, 255
		}
	}
	return f
}

var _ Camera = (*MockCamera)(nil)

package orientation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// MockPlatform is a scriptable platform for tests and demos.
type MockPlatform struct {
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int

	unsupported bool
	consent     bool
	answer      gaze.Permission
	answerErr   error

	// Stats
	permissionCalls atomic.Int64
	subscribeCalls  atomic.Int64
	cancelCalls     atomic.Int64
}

// MockOption configures a MockPlatform.
type MockOption func(*MockPlatform)

// WithConsent makes the platform require consent and answer with perm and err.
func WithConsent(perm gaze.Permission, err error) MockOption {
	return func(m *MockPlatform) {
		m.consent = true
		m.answer = perm
		m.answerErr = err
	}
}

// WithoutSensors makes the platform report no orientation support.
func WithoutSensors() MockOption {
	return func(m *MockPlatform) {
		m.unsupported = true
	}
}

// NewMockPlatform creates a supported platform with no consent requirement.
func NewMockPlatform(opts ...MockOption) *MockPlatform {
	m := &MockPlatform{
		handlers: make(map[int]Handler),
		answer:   gaze.PermissionGranted,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Supported implements Platform.
func (m *MockPlatform) Supported() bool {
	return !m.unsupported
}

// RequiresConsent implements Platform.
func (m *MockPlatform) RequiresConsent() bool {
	return m.consent
}

// RequestPermission implements Platform.
func (m *MockPlatform) RequestPermission(ctx context.Context) (gaze.Permission, error) {
	m.permissionCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return gaze.PermissionUnknown, err
	}
	return m.answer, m.answerErr
}

// Subscribe implements Platform.
func (m *MockPlatform) Subscribe(h Handler) (func(), error) {
	m.subscribeCalls.Add(1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = h
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.cancelCalls.Add(1)
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}, nil
}

// EmitOrientation delivers a reading to every subscriber.
func (m *MockPlatform) EmitOrientation(s gaze.OrientationSample) {
	for _, h := range m.snapshot() {
		if h.Orientation != nil {
			h.Orientation(s)
		}
	}
}

// EmitMotion delivers a device-motion reading to every subscriber.
func (m *MockPlatform) EmitMotion(d gaze.DeviceMotion) {
	for _, h := range m.snapshot() {
		if h.Motion != nil {
			h.Motion(d)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (m *MockPlatform) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// PermissionCalls returns how often RequestPermission ran.
func (m *MockPlatform) PermissionCalls() int64 {
	return m.permissionCalls.Load()
}

// SubscribeCalls returns how often Subscribe ran.
func (m *MockPlatform) SubscribeCalls() int64 {
	return m.subscribeCalls.Load()
}

// CancelCalls returns how many subscriptions were cancelled.
func (m *MockPlatform) CancelCalls() int64 {
	return m.cancelCalls.Load()
}

func (m *MockPlatform) snapshot() []Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

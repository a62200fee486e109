package orientation

import (
	"context"
	"errors"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// ErrNoPrompter is returned when consent is required but no remote client
// can show the prompt.
var ErrNoPrompter = errors.New("orientation: no client to prompt for consent")

// RelayPlatform receives sensor events relayed by a remote client, typically
// a browser forwarding deviceorientation events over a websocket. The client
// reports its capabilities, shows its own consent prompt when asked, and
// answers with the outcome.
type RelayPlatform struct {
	mu              sync.Mutex
	supported       bool
	requiresConsent bool
	prompt          func() error
	handler         *Handler
	answers         chan gaze.Permission
}

// NewRelayPlatform creates a relay with no connected client.
func NewRelayPlatform() *RelayPlatform {
	return &RelayPlatform{
		answers: make(chan gaze.Permission, 1),
	}
}

// SetCapabilities records what the connected client reported.
func (r *RelayPlatform) SetCapabilities(supported, requiresConsent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supported = supported
	r.requiresConsent = requiresConsent
}

// SetPrompter sets the function that asks the client to show its consent
// prompt. Pass nil when the client disconnects.
func (r *RelayPlatform) SetPrompter(prompt func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompt = prompt
	if prompt == nil {
		r.supported = false
	}
}

// Supported implements Platform.
func (r *RelayPlatform) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supported
}

// RequiresConsent implements Platform.
func (r *RelayPlatform) RequiresConsent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requiresConsent
}

// RequestPermission asks the client to prompt and waits for Answer.
func (r *RelayPlatform) RequestPermission(ctx context.Context) (gaze.Permission, error) {
	r.mu.Lock()
	prompt := r.prompt
	r.mu.Unlock()

	if prompt == nil {
		return gaze.PermissionUnknown, ErrNoPrompter
	}

	// Drop any stale answer from an earlier prompt
	select {
	case <-r.answers:
	default:
	}

	if err := prompt(); err != nil {
		return gaze.PermissionUnknown, err
	}

	select {
	case <-ctx.Done():
		return gaze.PermissionUnknown, ctx.Err()
	case p := <-r.answers:
		return p, nil
	}
}

// Answer delivers the client's consent outcome.
func (r *RelayPlatform) Answer(p gaze.Permission) {
	select {
	case r.answers <- p:
	default:
	}
}

// Subscribe implements Platform. Only one subscriber is kept.
func (r *RelayPlatform) Subscribe(h Handler) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hp := &h
	r.handler = hp
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.handler == hp {
			r.handler = nil
		}
	}, nil
}

// PushOrientation forwards a relayed orientation event.
func (r *RelayPlatform) PushOrientation(s gaze.OrientationSample) {
	if h := r.current(); h != nil && h.Orientation != nil {
		h.Orientation(s)
	}
}

// PushMotion forwards a relayed device-motion event.
func (r *RelayPlatform) PushMotion(m gaze.DeviceMotion) {
	if h := r.current(); h != nil && h.Motion != nil {
		h.Motion(m)
	}
}

func (r *RelayPlatform) current() *Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

const (
	inputWriteWait      = 5 * time.Second
	inputMaxMessageSize = 256 * 1024 // Geometry reports for large grids
)

// inputSession is one connected input client
type inputSession struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// Send writes a message to the client. Writes are serialized.
func (in *inputSession) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.Conn.SetWriteDeadline(time.Now().Add(inputWriteWait))
	return in.Conn.WriteMessage(websocket.TextMessage, data)
}

func (in *inputSession) touch() {
	in.mu.Lock()
	in.lastSeen = time.Now()
	in.mu.Unlock()
}

// InputInfo describes a connected input client
type InputInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Relay     bool      `json:"relay"` // Answers orientation consent prompts
}

// Inputs lists connected input clients.
func (s *Server) Inputs() []InputInfo {
	owner := s.relayOwner.Load()

	s.inputsMu.RLock()
	defer s.inputsMu.RUnlock()

	infos := make([]InputInfo, 0, len(s.inputs))
	for _, in := range s.inputs {
		in.mu.Lock()
		infos = append(infos, InputInfo{
			ID:        in.ID,
			Connected: in.Connected,
			LastSeen:  in.lastSeen,
			Relay:     in == owner,
		})
		in.mu.Unlock()
	}
	return infos
}

func (s *Server) inputHandler() fiber.Handler {
	return websocket.New(s.handleInput)
}

// handleInput runs one input client connection
func (s *Server) handleInput(c *websocket.Conn) {
	id := c.Query("id")
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	in := &inputSession{ID: id, Conn: c, Connected: now, lastSeen: now}

	s.inputsMu.Lock()
	s.inputs[id] = in
	count := len(s.inputs)
	s.inputsMu.Unlock()

	s.logger.Info("input client connected", "client", id, "total", count)

	defer func() {
		s.inputsMu.Lock()
		if s.inputs[id] == in {
			delete(s.inputs, id)
		}
		count := len(s.inputs)
		s.inputsMu.Unlock()

		s.releaseRelay(in)
		s.logger.Info("input client disconnected", "client", id, "total", count)
	}()

	if msg, err := protocol.NewSettingsMessage(s.deps.Store.Get()); err == nil {
		in.Send(msg)
	}

	c.SetReadLimit(inputMaxMessageSize)
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("input read ended", "client", id, "error", err)
			return
		}
		in.touch()
		s.received.Add(1)

		if err := s.handleInputMessage(in, data); err != nil {
			s.rejected.Add(1)
			s.logger.Debug("input rejected", "client", id, "error", err)
			if msg, mErr := protocol.NewErrorMessage(err.Error()); mErr == nil {
				in.Send(msg)
			}
		}
	}
}

// handleInputMessage routes one message into the pipeline
func (s *Server) handleInputMessage(in *inputSession, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeViewport:
		vp, err := msg.GetViewportData()
		if err != nil {
			return err
		}
		v := gaze.Viewport{Width: vp.Width, Height: vp.Height}
		if !v.Valid() {
			return fmt.Errorf("invalid viewport %vx%v", vp.Width, vp.Height)
		}
		s.deps.Scheduler.SetViewport(v)

	case protocol.TypePointer:
		p, err := msg.GetPointerData()
		if err != nil {
			return err
		}
		s.deps.Pointer.Move(p.X, p.Y)

	case protocol.TypeTouch:
		t, err := msg.GetTouchData()
		if err != nil {
			return err
		}
		s.deps.Pointer.Touch(t.Points)

	case protocol.TypeOrientation:
		if s.deps.Relay == nil {
			return fmt.Errorf("orientation relay not configured")
		}
		sample, err := msg.GetOrientationData()
		if err != nil {
			return err
		}
		s.claimRelay(in)
		s.deps.Relay.PushOrientation(*sample)

	case protocol.TypeMotion:
		if s.deps.Relay == nil {
			return fmt.Errorf("orientation relay not configured")
		}
		m, err := msg.GetMotionData()
		if err != nil {
			return err
		}
		s.claimRelay(in)
		s.deps.Relay.PushMotion(*m)

	case protocol.TypeCapabilities:
		caps, err := msg.GetCapabilitiesData()
		if err != nil {
			return err
		}
		s.applyCapabilities(in, caps)

	case protocol.TypePermission:
		p, err := msg.GetPermissionData()
		if err != nil {
			return err
		}
		if p.Sensor != protocol.SensorOrientation {
			return fmt.Errorf("unexpected permission for sensor %q", p.Sensor)
		}
		if s.deps.Relay == nil {
			return fmt.Errorf("orientation relay not configured")
		}
		s.deps.Relay.Answer(p.Permission())

	case protocol.TypeGeometry:
		g, err := msg.GetGeometryData()
		if err != nil {
			return err
		}
		s.applyGeometry(g)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return err
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return in.Send(pong)

	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}

	if s.OnInput != nil {
		s.OnInput(msg)
	}
	return nil
}

// applyCapabilities makes the client the orientation relay. Sensors without
// a consent flow start right away; consent flows wait for an explicit
// request.
func (s *Server) applyCapabilities(in *inputSession, caps *protocol.CapabilitiesData) {
	if s.deps.Relay == nil {
		return
	}
	s.relayOwner.Store(in)
	s.deps.Relay.SetPrompter(func() error {
		msg, err := protocol.NewPermissionRequestMessage(protocol.SensorOrientation)
		if err != nil {
			return err
		}
		return in.Send(msg)
	})
	s.deps.Relay.SetCapabilities(caps.Orientation, caps.RequiresConsent)

	if s.deps.Orientation != nil && caps.Orientation && !caps.RequiresConsent {
		ctx, cancel := context.WithTimeout(context.Background(), PermissionTimeout)
		defer cancel()
		s.deps.Orientation.AutoStart(ctx)
	}
}

// claimRelay records the first client streaming sensor events as the relay
// when none has reported capabilities.
func (s *Server) claimRelay(in *inputSession) {
	s.relayOwner.CompareAndSwap(nil, in)
}

// releaseRelay stops orientation when its relay client goes away, so stale
// tilt does not keep priority over the pointer.
func (s *Server) releaseRelay(in *inputSession) {
	if !s.relayOwner.CompareAndSwap(in, nil) {
		return
	}
	if s.deps.Relay != nil {
		s.deps.Relay.SetPrompter(nil)
	}
	if s.deps.Orientation != nil {
		s.deps.Orientation.RevokeAccess()
	}
}

// applyGeometry updates eyes by ID, or replaces the layout when any rect has
// no ID.
func (s *Server) applyGeometry(g *protocol.GeometryData) {
	byID := true
	for _, r := range g.Eyes {
		if r.ID == "" {
			byID = false
			break
		}
	}
	if byID && len(g.Eyes) > 0 {
		for _, r := range g.Eyes {
			s.deps.Scheduler.SetGeometry(r.ID, r.EyeGeometry)
		}
		return
	}

	geoms := make([]gaze.EyeGeometry, len(g.Eyes))
	for i, r := range g.Eyes {
		geoms[i] = r.EyeGeometry
	}
	s.deps.Scheduler.SetLayout(geoms)
}

package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/render"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// PermissionTimeout bounds how long an orientation request waits for the
// client to answer its consent prompt.
var PermissionTimeout = 30 * time.Second

// SourceStatus describes one gaze source.
type SourceStatus struct {
	Name       string          `json:"name"`
	Wired      bool            `json:"wired"`
	Available  bool            `json:"available"`
	Enabled    bool            `json:"enabled"`
	Permission gaze.Permission `json:"permission"`
	Error      string          `json:"error,omitempty"`
}

// Status is the response of GET /api/status.
type Status struct {
	Target   gaze.Target    `json:"target"`
	Viewport gaze.Viewport  `json:"viewport"`
	Sources  []SourceStatus `json:"sources"`
	Render   render.Stats   `json:"render"`
	Viewers  hub.Stats      `json:"viewers"`
	Inputs   int            `json:"inputs"`
	Received uint64         `json:"received"`
	Rejected uint64         `json:"rejected"`
	Settings uint64         `json:"settings_version"`
}

// handleStatus reports sources, counters and the current target
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// Status collects the current service status.
func (s *Server) Status() Status {
	last := s.deps.Scheduler.Last()
	st := Status{
		Target:   last.Target,
		Viewport: last.Viewport,
		Render:   s.deps.Scheduler.Stats(),
		Inputs:   s.InputCount(),
		Received: s.received.Load(),
		Rejected: s.rejected.Load(),
		Settings: s.deps.Store.Version(),
	}
	if s.deps.Frames != nil {
		st.Viewers = s.deps.Frames.Stats()
	}

	motionStatus := SourceStatus{Name: "motion"}
	if m := s.deps.Motion; m != nil {
		motionStatus.Wired = true
		motionStatus.Available = m.Available()
		motionStatus.Enabled = m.IsEnabled()
		motionStatus.Permission = m.Permission()
		motionStatus.Error = errString(m.Err())
	}

	orientStatus := SourceStatus{Name: "orientation"}
	if o := s.deps.Orientation; o != nil {
		orientStatus.Wired = true
		orientStatus.Available = o.Available()
		orientStatus.Enabled = o.Listening()
		orientStatus.Permission = o.Permission()
		orientStatus.Error = errString(o.Err())
	}

	st.Sources = []SourceStatus{
		motionStatus,
		orientStatus,
		{Name: s.deps.Pointer.Name(), Wired: true, Available: true, Enabled: true, Permission: gaze.PermissionGranted},
	}
	return st
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"inputs": s.InputCount(),
	})
}

// handleMetrics exposes counters in the Prometheus text format
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	st := s.Status()
	return c.SendString(fmt.Sprintf(`# HELP gaze_render_ticks Render loop ticks
# TYPE gaze_render_ticks counter
gaze_render_ticks %d

# HELP gaze_frames_published Frames published to sinks
# TYPE gaze_frames_published counter
gaze_frames_published %d

# HELP gaze_eyes Eyes in the current layout
# TYPE gaze_eyes gauge
gaze_eyes %d

# HELP gaze_inputs Connected input clients
# TYPE gaze_inputs gauge
gaze_inputs %d

# HELP gaze_viewers Connected frame viewers
# TYPE gaze_viewers gauge
gaze_viewers %d

# HELP gaze_input_messages_received Input messages received
# TYPE gaze_input_messages_received counter
gaze_input_messages_received %d

# HELP gaze_input_messages_rejected Input messages rejected
# TYPE gaze_input_messages_rejected counter
gaze_input_messages_rejected %d
`, st.Render.Ticks, st.Render.Published, st.Render.Eyes, st.Inputs, st.Viewers.Clients, st.Received, st.Rejected))
}

// handleFrame returns the most recent rendered frame
func (s *Server) handleFrame(c *fiber.Ctx) error {
	return c.JSON(hub.FrameData(s.deps.Scheduler.Last()))
}

// handleInputs lists connected input clients
func (s *Server) handleInputs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"inputs": s.Inputs(),
		"count":  s.InputCount(),
	})
}

// handleGetSettings returns the current settings
func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	return c.JSON(s.deps.Store.Get())
}

// handleUpdateSettings applies a partial update, optionally starting from a preset
func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.deps.Store.UpdateMap(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.BroadcastSettings()
	return c.JSON(s.deps.Store.Get())
}

// handleSettingsPresets lists settings presets
func (s *Server) handleSettingsPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets": settings.PresetNames(),
		"values":  settings.Presets(),
	})
}

// handleApplyPreset replaces the settings with a named preset
func (s *Server) handleApplyPreset(c *fiber.Ctx) error {
	if err := s.deps.Store.ApplyPreset(c.Params("name")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	s.BroadcastSettings()
	return c.JSON(s.deps.Store.Get())
}

// handleGetCamera returns the capture configuration and its limits
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.deps.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}
	return c.JSON(fiber.Map{
		"config":       s.deps.Camera.GetConfigJSON(),
		"capabilities": camera.Capabilities(),
	})
}

// handleUpdateCamera updates the capture configuration. It takes effect the
// next time motion vision is enabled.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.deps.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "camera not configured"})
	}
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.deps.Camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.deps.Camera.GetConfigJSON())
}

// handleCameraPresets lists camera presets
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

// MotionRequest is the body of POST /api/motion
type MotionRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetMotion enables or disables motion vision
func (s *Server) handleSetMotion(c *fiber.Ctx) error {
	m := s.deps.Motion
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "motion vision not configured"})
	}
	var req MotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := m.SetEnabled(c.UserContext(), req.Enabled); err != nil {
		status := fiber.StatusServiceUnavailable
		if errors.Is(err, gaze.ErrPermissionDenied) {
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(fiber.Map{
			"error":      err.Error(),
			"enabled":    m.IsEnabled(),
			"permission": m.Permission(),
		})
	}
	return c.JSON(fiber.Map{"enabled": m.IsEnabled(), "permission": m.Permission()})
}

// handleOrientationRequest asks for orientation access. With a consent flow
// this waits until the input client answers its prompt.
func (s *Server) handleOrientationRequest(c *fiber.Ctx) error {
	o := s.deps.Orientation
	if o == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "orientation not configured"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), PermissionTimeout)
	defer cancel()

	granted := o.RequestAccess(ctx)
	resp := fiber.Map{"listening": granted, "permission": o.Permission()}
	if !granted {
		resp["error"] = errString(o.Err())
		status := fiber.StatusServiceUnavailable
		if errors.Is(o.Err(), gaze.ErrPermissionDenied) {
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(resp)
	}
	return c.JSON(resp)
}

// handleOrientationRevoke stops listening to orientation
func (s *Server) handleOrientationRevoke(c *fiber.Ctx) error {
	o := s.deps.Orientation
	if o == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "orientation not configured"})
	}
	o.RevokeAccess()
	return c.JSON(fiber.Map{"listening": o.Listening()})
}

package protocol

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewViewportMessage creates a viewport message
func NewViewportMessage(width, height float64) (*Message, error) {
	return NewMessage(TypeViewport, ViewportData{Width: width, Height: height})
}

// NewPointerMessage creates a pointer message
func NewPointerMessage(x, y float64) (*Message, error) {
	return NewMessage(TypePointer, PointerData{X: x, Y: y})
}

// NewTouchMessage creates a touch message
func NewTouchMessage(points ...gaze.Point) (*Message, error) {
	return NewMessage(TypeTouch, TouchData{Points: points})
}

// NewOrientationMessage creates an orientation message
func NewOrientationMessage(s gaze.OrientationSample) (*Message, error) {
	return NewMessage(TypeOrientation, s)
}

// NewMotionMessage creates a device-motion message
func NewMotionMessage(m gaze.DeviceMotion) (*Message, error) {
	return NewMessage(TypeMotion, m)
}

// NewCapabilitiesMessage creates a capabilities report
func NewCapabilitiesMessage(orientation, requiresConsent, camera bool) (*Message, error) {
	return NewMessage(TypeCapabilities, CapabilitiesData{
		Orientation:     orientation,
		RequiresConsent: requiresConsent,
		Camera:          camera,
	})
}

// NewPermissionMessage creates a consent outcome message
func NewPermissionMessage(sensor string, p gaze.Permission) (*Message, error) {
	return NewMessage(TypePermission, PermissionData{Sensor: sensor, State: p.String()})
}

// NewFrameMessage creates a frame message
func NewFrameMessage(f FrameData) (*Message, error) {
	return NewMessage(TypeFrame, f)
}

// NewPermissionRequestMessage asks the client to prompt for a sensor
func NewPermissionRequestMessage(sensor string) (*Message, error) {
	return NewMessage(TypePermissionRequest, PermissionRequestData{Sensor: sensor})
}

// NewSettingsMessage creates a settings message
func NewSettingsMessage(s settings.Settings) (*Message, error) {
	return NewMessage(TypeSettings, s)
}

// NewErrorMessage creates an error message
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: text})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetViewportData extracts viewport data from a message
func (m *Message) GetViewportData() (*ViewportData, error) {
	var data ViewportData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPointerData extracts pointer data from a message
func (m *Message) GetPointerData() (*PointerData, error) {
	var data PointerData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTouchData extracts touch data from a message
func (m *Message) GetTouchData() (*TouchData, error) {
	var data TouchData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetOrientationData extracts an orientation sample from a message.
// Axes sent as null stay nil.
func (m *Message) GetOrientationData() (*gaze.OrientationSample, error) {
	var data gaze.OrientationSample
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMotionData extracts a device-motion reading from a message
func (m *Message) GetMotionData() (*gaze.DeviceMotion, error) {
	var data gaze.DeviceMotion
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCapabilitiesData extracts capabilities from a message
func (m *Message) GetCapabilitiesData() (*CapabilitiesData, error) {
	var data CapabilitiesData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPermissionData extracts a consent outcome from a message
func (m *Message) GetPermissionData() (*PermissionData, error) {
	var data PermissionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGeometryData extracts host-measured eye rects from a message
func (m *Message) GetGeometryData() (*GeometryData, error) {
	var data GeometryData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPermissionRequestData extracts a permission request from a message
func (m *Message) GetPermissionRequestData() (*PermissionRequestData, error) {
	var data PermissionRequestData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSettingsData extracts settings from a message
func (m *Message) GetSettingsData() (*settings.Settings, error) {
	var data settings.Settings
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

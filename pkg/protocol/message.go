// Package protocol defines the WebSocket message types exchanged between the
// gaze service and its clients: browsers and devices relaying input, and
// viewers receiving rendered frames.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Service input messages
	TypeViewport     MessageType = "viewport"     // Screen size changed
	TypePointer      MessageType = "pointer"      // Mouse moved
	TypeTouch        MessageType = "touch"        // Touch points moved
	TypeOrientation  MessageType = "orientation"  // deviceorientation event
	TypeMotion       MessageType = "devicemotion" // devicemotion event
	TypeCapabilities MessageType = "capabilities" // Sensor support report
	TypePermission   MessageType = "permission"   // Consent prompt outcome
	TypeGeometry     MessageType = "geometry"     // Host-measured eye rects

	// Service → Client messages
	TypeFrame             MessageType = "frame"              // Rendered eye offsets
	TypePermissionRequest MessageType = "permission_request" // Show the consent prompt
	TypeSettings          MessageType = "settings"           // Current settings
	TypeError             MessageType = "error"              // Rejected input

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Sensor names used in permission messages.
const (
	SensorOrientation = "orientation"
	SensorCamera      = "camera"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Service Message Types
// =============================================================================

// ViewportData reports the client's drawable area in CSS pixels
type ViewportData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PointerData is a mouse position in viewport pixels
type PointerData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TouchData lists active touches; only the first one steers the eyes
type TouchData struct {
	Points []gaze.Point `json:"points"`
}

// CapabilitiesData reports what the client's sensors support
type CapabilitiesData struct {
	Orientation     bool `json:"orientation"`      // deviceorientation events exist
	RequiresConsent bool `json:"requires_consent"` // Explicit permission API must be called
	Camera          bool `json:"camera"`           // getUserMedia available
}

// PermissionData is the outcome of a consent prompt
type PermissionData struct {
	Sensor string `json:"sensor"` // "orientation" or "camera"
	State  string `json:"state"`  // "granted" or "denied"
}

// Permission converts the state to a gaze.Permission.
func (p PermissionData) Permission() gaze.Permission {
	return gaze.ParsePermission(p.State)
}

// EyeRect is one host-measured eye bounding box
type EyeRect struct {
	ID string `json:"id"`
	gaze.EyeGeometry
}

// GeometryData replaces the eye layout with host-measured rects
type GeometryData struct {
	Eyes []EyeRect `json:"eyes"`
}

// =============================================================================
// Service → Client Message Types
// =============================================================================

// EyeData is one eye's state in a frame
type EyeData struct {
	ID       string           `json:"id"`
	Geometry gaze.EyeGeometry `json:"geometry"`
	Offset   gaze.Vector      `json:"offset"`
}

// FrameData carries every eye's pupil offset after one render tick
type FrameData struct {
	Seq      uint64        `json:"seq"`
	Target   gaze.Target   `json:"target"`
	Viewport gaze.Viewport `json:"viewport"`
	Eyes     []EyeData     `json:"eyes"`
	Layout   bool          `json:"layout"`
}

// PermissionRequestData asks the client to show a consent prompt
type PermissionRequestData struct {
	Sensor string `json:"sensor"`
}

// ErrorData reports rejected input
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}

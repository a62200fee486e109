// Package app wires the gaze pipeline (sources, fusion, render scheduler)
// and runs it behind the web server.
package app

import (
	"fmt"

	"github.com/teslashibe/go-gaze/internal/config"
)

// Config holds all configuration for the gaze service.
// Flag parsing is done in cmd/gazed; this struct is data only.
type Config struct {
	// Debug enables debug output and request logging.
	Debug bool

	// DebugMotion and DebugFusion enable per-frame logs. Debug implies both.
	DebugMotion bool
	DebugFusion bool

	// Port is the HTTP listen port.
	Port string

	// StaticDir is served at / when set.
	StaticDir string

	// Camera is the capture device for motion vision. Empty disables it.
	Camera string

	// Mirror flips motion horizontally, for a selfie view.
	Mirror bool

	// IMUEndpoint is a ZeroMQ endpoint publishing orientation. When set it
	// replaces the browser relay as the orientation platform.
	IMUEndpoint string

	// RecordPath writes every accepted input message to a CBOR trace.
	RecordPath string

	// FPS is the render rate.
	FPS int

	// Preset is the initial settings preset.
	Preset string
}

// DefaultConfig returns defaults with no camera, no IMU and no recording.
func DefaultConfig() Config {
	return Config{
		Port:   config.DefaultPort,
		FPS:    config.DefaultFPS,
		Preset: "default",
	}
}

// LoadEnvConfig fills fields left at their defaults from the environment.
func (c *Config) LoadEnvConfig() {
	if c.Port == "" || c.Port == config.DefaultPort {
		c.Port = config.Port()
	}
	if c.Camera == "" {
		c.Camera = config.Camera()
	}
	if c.IMUEndpoint == "" {
		c.IMUEndpoint = config.IMUEndpoint()
	}
	if c.FPS == 0 || c.FPS == config.DefaultFPS {
		c.FPS = config.FPS()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return &ConfigError{Field: "Port", Message: "port is required"}
	}
	if c.FPS < 1 || c.FPS > 240 {
		return &ConfigError{Field: "FPS", Message: fmt.Sprintf("fps must be 1-240, got %d", c.FPS)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

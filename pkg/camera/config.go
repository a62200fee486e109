// Package camera provides runtime-configurable capture settings and the
// OpenCV-backed camera used by motion vision.
package camera

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime; a running capture
// is reopened with the new values.
type Config struct {
	// === Device ===
	// Device is a capture index ("0", "1") or a file/stream path.
	Device string `json:"device"`
	// Facing is the preferred camera direction: "user" or "environment".
	// Used to pick between Device and EnvironmentDevice.
	Facing            string `json:"facing"`
	EnvironmentDevice string `json:"environment_device"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// === Exposure ===
	// AutoExposure leaves exposure to the driver. When false, Exposure is
	// passed through as the backend-specific exposure value.
	AutoExposure bool    `json:"auto_exposure"`
	Exposure     float64 `json:"exposure"`

	// Brightness adjustment (-1.0 to +1.0), 0 leaves the driver default.
	Brightness float64 `json:"brightness"`
}

// Capture limits accepted by Validate.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the motion-vision capture configuration.
// 640x480 keeps strided frame differencing well inside one frame budget.
func DefaultConfig() Config {
	return Config{
		Device:            "0",
		Facing:            "user",
		EnvironmentDevice: "1",

		Width:     640,
		Height:    480,
		Framerate: 30,

		AutoExposure: true,
		Exposure:     0,
		Brightness:   0,
	}
}

// DeviceFor returns the device for a facing mode.
func (c *Config) DeviceFor(facing string) string {
	if facing == "environment" && c.EnvironmentDevice != "" {
		return c.EnvironmentDevice
	}
	return c.Device
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}

	validFacing := map[string]bool{"user": true, "environment": true}
	if c.Facing != "" && !validFacing[c.Facing] {
		errors = append(errors, "facing must be user or environment")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}

	// Brightness
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}

	return errors
}

// Capabilities returns the capture limits for the API.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"backend":       "opencv",
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"facing_modes":  []string{"user", "environment"},
		"presets":       PresetNames(),
	}
}

// Package config provides environment defaults for go-gaze commands.
// Flags override these.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults used when the environment is empty.
const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultURL      = "http://localhost:8080"
	DefaultFPS      = 60
)

// Port returns the HTTP port from GAZE_PORT.
func Port() string {
	return env("GAZE_PORT", DefaultPort)
}

// LogLevel returns the log level from GAZE_LOG_LEVEL.
func LogLevel() string {
	return env("GAZE_LOG_LEVEL", DefaultLogLevel)
}

// Camera returns the capture device from GAZE_CAMERA. Empty disables
// motion vision.
func Camera() string {
	return os.Getenv("GAZE_CAMERA")
}

// IMUEndpoint returns the ZeroMQ IMU endpoint from GAZE_IMU_ENDPOINT.
// Empty disables the IMU feed.
func IMUEndpoint() string {
	return os.Getenv("GAZE_IMU_ENDPOINT")
}

// URL returns the service base URL from GAZE_URL, without a trailing slash.
func URL() string {
	return strings.TrimRight(env("GAZE_URL", DefaultURL), "/")
}

// WebSocketURL converts an http(s) base URL to ws(s) and appends path.
func WebSocketURL(base, path string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimRight(base, "/") + path
}

// FPS returns the render rate from GAZE_FPS.
func FPS() int {
	if v, err := strconv.Atoi(os.Getenv("GAZE_FPS")); err == nil && v > 0 {
		return v
	}
	return DefaultFPS
}

// Duration parses an env var as a duration, falling back to def.
func Duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

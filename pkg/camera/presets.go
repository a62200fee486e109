package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	PresetFast    = "fast"
	PresetNight   = "night"
	PresetRear    = "rear"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLow:     LowConfig(),
		Preset720p:    HD720Config(),
		PresetFast:    FastConfig(),
		PresetNight:   NightConfig(),
		PresetRear:    RearConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLow,
		Preset720p,
		PresetFast,
		PresetNight,
		PresetRear,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowConfig returns 320x240 for slow machines.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}

// HD720Config returns 720p capture.
// Motion detection cost grows with area; expect roughly 3x the work.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// FastConfig returns 60 FPS capture for lower motion latency.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 60
	return cfg
}

// NightConfig returns a brighter, slower capture for dim rooms.
func NightConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	cfg.Brightness = 0.3
	return cfg
}

// RearConfig returns the environment-facing camera.
func RearConfig() Config {
	cfg := DefaultConfig()
	cfg.Facing = "environment"
	return cfg
}

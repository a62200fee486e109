package settings

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetMobile  = "mobile"
	PresetCalm    = "calm"
	PresetLively  = "lively"
	PresetTilt    = "tilt"
)

// Presets returns all available preset configurations.
func Presets() map[string]Settings {
	return map[string]Settings{
		PresetDefault: DefaultSettings(),
		PresetMobile:  MobileSettings(),
		PresetCalm:    CalmSettings(),
		PresetLively:  LivelySettings(),
		PresetTilt:    TiltSettings(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetMobile,
		PresetCalm,
		PresetLively,
		PresetTilt,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Settings {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}

// MobileSettings returns a smaller grid tuned for phones.
func MobileSettings() Settings {
	s := DefaultSettings()
	s.EyeCount = 20
	s.EyeScale = 90
	return s
}

// CalmSettings returns a slower, heavily damped configuration.
func CalmSettings() Settings {
	s := DefaultSettings()
	s.Damping = 25
	s.Stiffness = 80
	s.MaxMoveFraction = 0.12
	return s
}

// LivelySettings returns a snappy configuration with more pupil travel.
func LivelySettings() Settings {
	s := DefaultSettings()
	s.Damping = 10
	s.Stiffness = 300
	s.MaxMoveFraction = 0.22
	s.DistanceExponent = 0.7
	return s
}

// TiltSettings returns a sensitive orientation mapping: ±25° covers the
// screen and tilting the device toward a side looks that way.
func TiltSettings() Settings {
	s := DefaultSettings()
	s.Mapping.ClampRange = 25
	s.Mapping.Deadzone = 0.08
	s.Mapping.BetaCenter = 45
	return s
}

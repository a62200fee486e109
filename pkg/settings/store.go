package settings

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	EyeCount         *int
	EyeScale         *float64
	Damping          *float64
	Stiffness        *float64
	Spring           *SpringMode
	MaxMoveFraction  *float64
	DistanceExponent *float64
	MobileMoveFactor *float64
	MobileBreakpoint *float64
	Mapping          *Mapping
}

// Store owns the current settings. It is the only place settings change.
type Store struct {
	mu       sync.RWMutex
	settings Settings
	version  uint64

	// Callback after a successful change
	OnChange func(s Settings)
}

// NewStore creates a store holding the default settings.
func NewStore() *Store {
	return &Store{settings: DefaultSettings()}
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// Snapshot returns a copy of the settings and the version it belongs to.
// The version increases on every successful change.
func (st *Store) Snapshot() (Settings, uint64) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings, st.version
}

// Version returns the current settings version.
func (st *Store) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}

// Set replaces the settings after validation.
func (st *Store) Set(s Settings) error {
	if errors := s.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	st.mu.Lock()
	st.settings = s
	st.version++
	callback := st.OnChange
	st.mu.Unlock()

	if callback != nil {
		callback(s)
	}
	return nil
}

// Update applies a partial update.
func (st *Store) Update(p Patch) error {
	s := st.Get()

	if p.EyeCount != nil {
		s.EyeCount = *p.EyeCount
	}
	if p.EyeScale != nil {
		s.EyeScale = *p.EyeScale
	}
	if p.Damping != nil {
		s.Damping = *p.Damping
	}
	if p.Stiffness != nil {
		s.Stiffness = *p.Stiffness
	}
	if p.Spring != nil {
		s.Spring = *p.Spring
	}
	if p.MaxMoveFraction != nil {
		s.MaxMoveFraction = *p.MaxMoveFraction
	}
	if p.DistanceExponent != nil {
		s.DistanceExponent = *p.DistanceExponent
	}
	if p.MobileMoveFactor != nil {
		s.MobileMoveFactor = *p.MobileMoveFactor
	}
	if p.MobileBreakpoint != nil {
		s.MobileBreakpoint = *p.MobileBreakpoint
	}
	if p.Mapping != nil {
		s.Mapping = *p.Mapping
	}

	return st.Set(s)
}

// ApplyPreset replaces the settings with a named preset.
func (st *Store) ApplyPreset(name string) error {
	preset := GetPreset(name)
	if preset == nil {
		return fmt.Errorf("unknown preset: %s", name)
	}
	return st.Set(*preset)
}

// UpdateMap applies a partial update from decoded JSON.
// A "preset" key is applied first so other keys can override it.
func (st *Store) UpdateMap(params map[string]interface{}) error {
	s := st.Get()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		s = *preset
	}

	for key, value := range params {
		switch key {
		case "eye_count":
			if v, ok := toInt(value); ok {
				s.EyeCount = v
			}
		case "eye_scale":
			if v, ok := toFloat(value); ok {
				s.EyeScale = v
			}
		case "damping":
			if v, ok := toFloat(value); ok {
				s.Damping = v
			}
		case "stiffness":
			if v, ok := toFloat(value); ok {
				s.Stiffness = v
			}
		case "spring":
			if v, ok := value.(string); ok {
				s.Spring = SpringMode(v)
			}
		case "max_move_fraction":
			if v, ok := toFloat(value); ok {
				s.MaxMoveFraction = v
			}
		case "distance_exponent":
			if v, ok := toFloat(value); ok {
				s.DistanceExponent = v
			}
		case "mobile_move_factor":
			if v, ok := toFloat(value); ok {
				s.MobileMoveFactor = v
			}
		case "mobile_breakpoint":
			if v, ok := toFloat(value); ok {
				s.MobileBreakpoint = v
			}
		case "mapping":
			if m, ok := value.(map[string]interface{}); ok {
				applyMapping(&s.Mapping, m)
			}
		}
	}

	return st.Set(s)
}

func applyMapping(m *Mapping, params map[string]interface{}) {
	for key, value := range params {
		switch key {
		case "clamp_range":
			if v, ok := toFloat(value); ok {
				m.ClampRange = v
			}
		case "deadzone":
			if v, ok := toFloat(value); ok {
				m.Deadzone = v
			}
		case "sensitivity":
			if v, ok := toFloat(value); ok {
				m.Sensitivity = v
			}
		case "beta_center":
			if v, ok := toFloat(value); ok {
				m.BetaCenter = v
			}
		case "gamma_center":
			if v, ok := toFloat(value); ok {
				m.GammaCenter = v
			}
		case "invert_x":
			if v, ok := value.(bool); ok {
				m.InvertX = v
			}
		case "invert_y":
			if v, ok := value.(bool); ok {
				m.InvertY = v
			}
		}
	}
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

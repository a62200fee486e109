package settings

import (
	"encoding/json"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.EyeCount != 35 {
		t.Errorf("Expected EyeCount=35, got %v", s.EyeCount)
	}
	if s.EyeScale != 85 {
		t.Errorf("Expected EyeScale=85, got %v", s.EyeScale)
	}
	if s.Damping != 15 || s.Stiffness != 150 {
		t.Errorf("Expected spring 15/150, got %v/%v", s.Damping, s.Stiffness)
	}
	if s.MaxMoveFraction != 0.16 {
		t.Errorf("Expected MaxMoveFraction=0.16, got %v", s.MaxMoveFraction)
	}
	// Mobile gets roughly two thirds of the desktop travel
	if s.MobileMoveFactor < 0.6 || s.MobileMoveFactor > 0.7 {
		t.Errorf("Expected MobileMoveFactor ~0.67, got %v", s.MobileMoveFactor)
	}
	if s.DistanceExponent < 0.7 || s.DistanceExponent > 0.8 {
		t.Errorf("Expected DistanceExponent in [0.7,0.8], got %v", s.DistanceExponent)
	}
	if errs := s.Validate(); len(errs) > 0 {
		t.Errorf("Default settings should be valid: %v", errs)
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		p := GetPreset(name)
		if p == nil {
			t.Errorf("Preset %q missing", name)
			continue
		}
		if errs := p.Validate(); len(errs) > 0 {
			t.Errorf("Preset %q invalid: %v", name, errs)
		}
	}

	if GetPreset("nope") != nil {
		t.Error("Unknown preset should return nil")
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero eyes", func(s *Settings) { s.EyeCount = 0 }},
		{"scale over 100", func(s *Settings) { s.EyeScale = 120 }},
		{"negative damping", func(s *Settings) { s.Damping = -1 }},
		{"zero damping", func(s *Settings) { s.Damping = 0 }},
		{"zero stiffness", func(s *Settings) { s.Stiffness = 0 }},
		{"unknown spring", func(s *Settings) { s.Spring = "bouncy" }},
		{"huge travel", func(s *Settings) { s.MaxMoveFraction = 0.9 }},
		{"zero exponent", func(s *Settings) { s.DistanceExponent = 0 }},
		{"deadzone one", func(s *Settings) { s.Mapping.Deadzone = 1 }},
		{"zero clamp", func(s *Settings) { s.Mapping.ClampRange = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if len(s.Validate()) == 0 {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestStore_RejectsUndampedSpring(t *testing.T) {
	st := NewStore()
	before := st.Version()

	zero := 0.0
	if err := st.Update(Patch{Damping: &zero}); err == nil {
		t.Fatal("Expected zero damping to be rejected")
	}
	if err := st.UpdateMap(map[string]interface{}{"damping": 0.0}); err == nil {
		t.Error("Expected zero damping to be rejected through UpdateMap")
	}
	if st.Get().Damping != DefaultSettings().Damping || st.Version() != before {
		t.Errorf("Rejected update must not change settings, got damping %v version %d", st.Get().Damping, st.Version())
	}
}

func TestStore_UpdatePatch(t *testing.T) {
	st := NewStore()
	v0 := st.Version()

	var changed Settings
	st.OnChange = func(s Settings) { changed = s }

	damping := 20.0
	if err := st.Update(Patch{Damping: &damping}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	s := st.Get()
	if s.Damping != 20 {
		t.Errorf("Expected Damping=20, got %v", s.Damping)
	}
	if s.Stiffness != 150 {
		t.Errorf("Untouched field changed: Stiffness=%v", s.Stiffness)
	}
	if st.Version() != v0+1 {
		t.Errorf("Expected version %d, got %d", v0+1, st.Version())
	}
	if changed.Damping != 20 {
		t.Error("OnChange should receive the new settings")
	}
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	st := NewStore()
	v0 := st.Version()

	bad := -5.0
	if err := st.Update(Patch{Stiffness: &bad}); err == nil {
		t.Error("Expected error for negative stiffness")
	}
	if st.Get().Stiffness != 150 {
		t.Error("Invalid update must not change settings")
	}
	if st.Version() != v0 {
		t.Error("Invalid update must not bump the version")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	st := NewStore()
	s := st.Get()
	s.EyeCount = 999

	if st.Get().EyeCount != 35 {
		t.Error("Mutating a copy must not affect the store")
	}
}

func TestStore_UpdateMap(t *testing.T) {
	st := NewStore()

	var params map[string]interface{}
	body := `{"preset":"calm","max_move_fraction":0.2,"mapping":{"deadzone":0.1,"invert_x":true}}`
	if err := json.Unmarshal([]byte(body), &params); err != nil {
		t.Fatal(err)
	}

	if err := st.UpdateMap(params); err != nil {
		t.Fatalf("UpdateMap failed: %v", err)
	}

	s := st.Get()
	if s.Damping != CalmSettings().Damping {
		t.Errorf("Expected calm damping, got %v", s.Damping)
	}
	if s.MaxMoveFraction != 0.2 {
		t.Errorf("Expected override MaxMoveFraction=0.2, got %v", s.MaxMoveFraction)
	}
	if s.Mapping.Deadzone != 0.1 || !s.Mapping.InvertX {
		t.Errorf("Expected mapping overrides, got %+v", s.Mapping)
	}
	if s.Mapping.ClampRange != 45 {
		t.Errorf("Unspecified mapping field changed: %v", s.Mapping.ClampRange)
	}
}

func TestStore_UpdateMapUnknownPreset(t *testing.T) {
	st := NewStore()
	if err := st.UpdateMap(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestStore_ApplyPreset(t *testing.T) {
	st := NewStore()
	if err := st.ApplyPreset(PresetTilt); err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}
	if st.Get().Mapping.ClampRange != 25 {
		t.Errorf("Expected tilt clamp 25, got %v", st.Get().Mapping.ClampRange)
	}
}

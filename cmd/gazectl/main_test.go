package main

import "testing"

func TestParseAssignments(t *testing.T) {
	body, err := parseAssignments([]string{"eye_count=12", "spring=never", "mapping.invert_x=true", "mapping.deadzone=0.1", "eye_scale=70.5"})
	if err != nil {
		t.Fatalf("parseAssignments error: %v", err)
	}
	if body["eye_count"] != float64(12) {
		t.Errorf("Expected eye_count 12, got %v", body["eye_count"])
	}
	if body["spring"] != "never" {
		t.Errorf("Expected spring never, got %v", body["spring"])
	}
	mapping, ok := body["mapping"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected nested mapping, got %v", body["mapping"])
	}
	if mapping["invert_x"] != true || mapping["deadzone"] != 0.1 {
		t.Errorf("Expected invert_x true and deadzone 0.1, got %v", mapping)
	}
	if body["eye_scale"] != 70.5 {
		t.Errorf("Expected 70.5, got %v", body["eye_scale"])
	}

	if _, err := parseAssignments([]string{"novalue"}); err == nil {
		t.Error("Expected error for missing =")
	}
	if _, err := parseAssignments(nil); err == nil {
		t.Error("Expected error for no pairs")
	}
}

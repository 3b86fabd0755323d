package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"ger", "de"},
		{"deu", "de"},
		{"fre", "fr"},
		{"cze", "cs"},
		{"gre", "el"},
		{"tur", "tr"},
		{"chi", "zh"},
		{"scr", "hr"},
		{"eng\x00", "en"},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ToISO2(tt.input); result != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"eng", "English"},
		{"ger", "German"},
		{"deu", "German"},
		{"slo", "Slovak"},
		{"scc", "Serbian"},
		{"qaa", "Original"},
		{"mul", "Multiple"},
		{"zxx", "No linguistic content"},
		{"dut", "Dutch"},
		{"fre\x00", "French"},
		{"und", "Unknown"},
		{"", "Unknown"},
		{"tur", "Turkish"},
		{"hun", "Hungarian"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := DisplayName(tt.input); result != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

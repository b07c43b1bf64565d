package main

import (
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue string
		want         string
	}{
		{
			name:         "returns set value",
			key:          "HELIX_FETCH_TEST_SET",
			value:        "custom",
			defaultValue: "fallback",
			want:         "custom",
		},
		{
			name:         "returns default when unset",
			key:          "HELIX_FETCH_TEST_UNSET",
			value:        "",
			defaultValue: "fallback",
			want:         "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestParseCap(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{name: "empty uses default", value: "", defaultValue: 100, want: 100},
		{name: "valid number", value: "250", defaultValue: 100, want: 250},
		{name: "negative sentinel", value: "-1", defaultValue: 100, want: -1},
		{name: "garbage uses default", value: "lots", defaultValue: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCap(tt.value, tt.defaultValue)
			if got != tt.want {
				t.Errorf("parseCap(%q, %d) = %d, want %d", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}

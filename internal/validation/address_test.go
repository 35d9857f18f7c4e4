package validation

import (
	"strings"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{
			name:  "hex address",
			value: "0x52908400098527886E0F7030069857D2E4169EE7",
			valid: true,
		},
		{
			name:  "asset type with separators",
			value: "beach-villa_v2",
			valid: true,
		},
		{
			name:  "contains space",
			value: "beach villa",
			valid: false,
		},
		{
			name:  "non ascii",
			value: "вилла",
			valid: false,
		},
		{
			name:  "too long",
			value: strings.Repeat("a", 129),
			valid: false,
		},
		{
			name:  "empty string",
			value: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidIdentifier(tt.value)
			if got != tt.valid {
				t.Fatalf("IsValidIdentifier(%q) = %v, want %v", tt.value, got, tt.valid)
			}
		})
	}
}

func TestIsValidRegion(t *testing.T) {
	if !IsValidRegion("São Paulo, BR") {
		t.Fatalf("region with accents must be valid")
	}
	if !IsValidRegion("") {
		t.Fatalf("empty region must be valid")
	}
	if IsValidRegion("Lisbon\n") {
		t.Fatalf("region with control characters must be invalid")
	}
}

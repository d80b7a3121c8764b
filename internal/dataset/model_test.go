package dataset

import (
	"math"
	"testing"
)

func TestNormalizePostalCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10001", "10001"},
		{"2134", "02134"},
		{" 501 ", "00501"},
		{"2134.0", "02134"},
		{"10001.00", "10001"},
		{"", ""},
		{"K1A 0B1", "K1A 0B1"},
		{"123456", "123456"},
	}

	for _, tt := range tests {
		if got := NormalizePostalCode(tt.input); got != tt.want {
			t.Errorf("NormalizePostalCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParsePostalInt(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"10001", 10001, true},
		{"00501", 501, true},
		{"", 0, false},
		{"10a01", 0, false},
		{"-5", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePostalInt(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParsePostalInt(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFormatPostalInt(t *testing.T) {
	if got := FormatPostalInt(501); got != "00501" {
		t.Errorf("FormatPostalInt(501) = %q, want %q", got, "00501")
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2125551234.0", "2125551234"},
		{"2125551234", "2125551234"},
		{"(212) 555-1234", "2125551234"},
		{"212.555.1234", "2125551234"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizePhone(tt.input); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		input string
		want  Gender
	}{
		{"M", GenderMale},
		{"m", GenderMale},
		{"Male", GenderMale},
		{"F", GenderFemale},
		{" f ", GenderFemale},
		{"", GenderUnspecified},
		{"X", GenderUnspecified},
	}

	for _, tt := range tests {
		if got := ParseGender(tt.input); got != tt.want {
			t.Errorf("ParseGender(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestProvider_HasLocation(t *testing.T) {
	if !(Provider{Latitude: 40, Longitude: -74}).HasLocation() {
		t.Error("HasLocation() = false for known coordinates")
	}
	if (Provider{Latitude: math.NaN(), Longitude: -74}).HasLocation() {
		t.Error("HasLocation() = true for NaN latitude")
	}
}

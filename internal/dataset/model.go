// Package dataset holds the provider and postal-code centroid tables that
// every search reads from, together with the loaders that populate them.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Gender is the recorded gender of a provider.
type Gender string

// Recorded gender values. Anything else is treated as unspecified.
const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "F"
	GenderUnspecified Gender = ""
)

// ParseGender maps a raw column value to a Gender.
func ParseGender(s string) Gender {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return GenderMale
	case "F", "FEMALE":
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// Default values applied when a provider column is missing.
const (
	DefaultOrganization      = "UNKNOWN"
	DefaultYearsOfExperience = 0
	DefaultCredential        = ""
)

// PostalCodeWidth is the zero-padded width of a postal code.
const PostalCodeWidth = 5

// Provider is one provider row. Coordinates and PlaceKey are denormalized
// from the centroid of the provider's registered postal code; missing
// coordinates are NaN until New fills them in.
type Provider struct {
	Name              string
	Gender            Gender
	Credential        string
	YearsOfExperience int
	Organization      string
	Address           string
	Phone             string
	Score             int
	PostalCode        string
	PostalCodeInt     int
	PlaceKey          string
	Latitude          float64
	Longitude         float64
}

// HasLocation reports whether both coordinates are known.
func (p Provider) HasLocation() bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude)
}

// Centroid is the representative point of one postal code.
type Centroid struct {
	PostalCode    string
	PostalCodeInt int
	PlaceKey      string
	Latitude      float64
	Longitude     float64
}

// NormalizePostalCode trims whitespace, drops a trailing ".0" left over from
// float-typed exports and left-pads numeric codes to PostalCodeWidth digits.
// Non-numeric codes are returned trimmed but otherwise unchanged.
func NormalizePostalCode(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if s == "" || !isDigits(s) {
		return s
	}
	if len(s) < PostalCodeWidth {
		s = strings.Repeat("0", PostalCodeWidth-len(s)) + s
	}
	return s
}

// ParsePostalInt returns the integer form of a postal code used for
// adjacency arithmetic.
func ParsePostalInt(code string) (int, bool) {
	code = strings.TrimSpace(code)
	if code == "" || !isDigits(code) {
		return 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatPostalInt renders an integer postal code zero-padded.
func FormatPostalInt(n int) string {
	return NormalizePostalCode(strconv.Itoa(n))
}

// NormalizePhone strips a float export's decimal fragment ("2125551234.0")
// and every non-digit character from a phone number.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package ranking

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/onnwee/nearcare/internal/dataset"
)

var (
	// ErrInvalidPriority is returned for unknown or repeated sort keys.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidGender is returned for a gender preference other than any, M or F.
	ErrInvalidGender = errors.New("invalid gender preference")

	// ErrInvalidTopN is returned when fewer than one result is requested.
	ErrInvalidTopN = errors.New("top_n must be at least 1")

	// ErrInvalidMaxDistance is returned for negative or NaN distance limits.
	ErrInvalidMaxDistance = errors.New("max_distance must be a non-negative number")
)

// Key is a sort key.
type Key string

// Sort keys.
const (
	KeyScore      Key = "score"
	KeyDistance   Key = "distance"
	KeyExperience Key = "experience"
)

// Default option values.
const (
	DefaultTopN        = 10
	DefaultMaxDistance = 100.0
)

// DefaultPriority returns the default sort order: score, then distance, then
// experience.
func DefaultPriority() []Key {
	return []Key{KeyScore, KeyDistance, KeyExperience}
}

// ParsePriority validates a list of sort key names. Names are matched
// case-insensitively and a repeated key is dropped, since sorting on it
// again cannot change the order. An empty list yields DefaultPriority.
func ParsePriority(names []string) ([]Key, error) {
	if len(names) == 0 {
		return DefaultPriority(), nil
	}

	keys := make([]Key, 0, len(names))
	seen := make(map[Key]bool, len(names))
	for _, name := range names {
		k := Key(strings.ToLower(strings.TrimSpace(name)))
		switch k {
		case KeyScore, KeyDistance, KeyExperience:
		default:
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidPriority, name)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys, nil
}

// GenderPreference restricts results to one recorded gender.
type GenderPreference string

// Gender preferences.
const (
	GenderAny    GenderPreference = "any"
	GenderMale   GenderPreference = "M"
	GenderFemale GenderPreference = "F"
)

// ParseGender validates a gender preference. Matching is case-insensitive
// and an empty value means any.
func ParseGender(s string) (GenderPreference, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ANY":
		return GenderAny, nil
	case "M":
		return GenderMale, nil
	case "F":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
	}
}

// matches reports whether a provider of gender g passes the preference.
func (p GenderPreference) matches(g dataset.Gender) bool {
	switch p {
	case GenderMale:
		return g == dataset.GenderMale
	case GenderFemale:
		return g == dataset.GenderFemale
	default:
		return true
	}
}

// Options controls a Rank call.
type Options struct {
	Priority    []Key
	Gender      GenderPreference
	TopN        int
	Unique      bool
	MaxDistance float64
}

// DefaultOptions returns the options used when a caller sets nothing.
func DefaultOptions() Options {
	return Options{
		Priority:    DefaultPriority(),
		Gender:      GenderAny,
		TopN:        DefaultTopN,
		MaxDistance: DefaultMaxDistance,
	}
}

// Validate checks every option and returns the first problem found.
// A nil Priority and an empty Gender are accepted and mean the defaults.
func (o Options) Validate() error {
	if len(o.Priority) > 0 {
		names := make([]string, len(o.Priority))
		for i, k := range o.Priority {
			names[i] = string(k)
		}
		if _, err := ParsePriority(names); err != nil {
			return err
		}
	}
	if _, err := ParseGender(string(o.Gender)); err != nil {
		return err
	}
	if o.TopN < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopN, o.TopN)
	}
	if math.IsNaN(o.MaxDistance) || o.MaxDistance < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidMaxDistance, o.MaxDistance)
	}
	return nil
}

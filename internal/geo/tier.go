package geo

import (
	"errors"
	"fmt"
	"math"
)

// MilesPerMeter is the conversion used to derive the tier radii.
const MilesPerMeter = 0.000621371

// ErrUnsupportedTier is returned when a radius does not map to one of the
// nine precision tiers.
var ErrUnsupportedTier = errors.New("unsupported radius tier")

// Tier is a spatial-prefix precision level. Tier k compares the first k
// characters of two keys; tier 1 is the coarsest.
type Tier int

// Precision tier bounds.
const (
	MinTier Tier = 1
	MaxTier Tier = 9
)

// tierMeters holds the approximate cell size of each tier, in meters.
var tierMeters = [...]float64{
	1: 20040000,
	2: 2777000,
	3: 1065000,
	4: 152400,
	5: 21770,
	6: 8227,
	7: 1176,
	8: 443.2,
	9: 63.47,
}

// tierByRadius maps each canonical radius (miles, one decimal) back to its tier.
var tierByRadius = func() map[float64]Tier {
	m := make(map[float64]Tier, len(tierMeters)-1)
	for t := MinTier; t <= MaxTier; t++ {
		m[t.RadiusMiles()] = t
	}
	return m
}()

// Valid reports whether t is one of the nine tiers.
func (t Tier) Valid() bool {
	return t >= MinTier && t <= MaxTier
}

// RadiusMiles returns the canonical radius of the tier in miles, rounded to
// one decimal place: 12452.3, 1725.5, 661.8, 94.7, 13.5, 5.1, 0.7, 0.3, 0.0.
// Invalid tiers return -1.
func (t Tier) RadiusMiles() float64 {
	if !t.Valid() {
		return -1
	}
	return math.Round(tierMeters[t]*MilesPerMeter*10) / 10
}

// PrefixLength returns the number of key characters compared at this tier.
func (t Tier) PrefixLength() int {
	return int(t)
}

// radiusLadder lists, coarsest first, the smallest requested distance that
// selects each tier.
var radiusLadder = []struct {
	min  float64
	tier Tier
}{
	{1725.5, 1},
	{661.8, 2},
	{94.7, 3},
	{13.5, 4},
	{5.1, 5},
	{0.7, 6},
	{0.0, 7},
}

// TierForDistance returns the finest tier whose radius still covers the
// requested search distance in miles.
//
// Requests below 0.7 miles resolve to tier 7 rather than tiers 8 or 9; the
// two finest tiers are never selected by distance. Negative and NaN distances
// return ErrUnsupportedTier.
func TierForDistance(maxMiles float64) (Tier, error) {
	if math.IsNaN(maxMiles) {
		return 0, fmt.Errorf("%w: distance is NaN", ErrUnsupportedTier)
	}
	for _, step := range radiusLadder {
		if maxMiles >= step.min {
			return step.tier, nil
		}
	}
	return 0, fmt.Errorf("%w: negative distance %.1f", ErrUnsupportedTier, maxMiles)
}

// RadiusForDistance maps a requested search distance to the canonical radius
// of the tier that covers it, e.g. 25 miles resolves to 94.7.
func RadiusForDistance(maxMiles float64) (float64, error) {
	tier, err := TierForDistance(maxMiles)
	if err != nil {
		return 0, err
	}
	return tier.RadiusMiles(), nil
}

// PrefixLength returns the key length to compare for one of the nine
// canonical radii. The lookup is an exact match; any other value returns
// ErrUnsupportedTier and must not be used for truncation.
func PrefixLength(radiusMiles float64) (int, error) {
	tier, ok := tierByRadius[radiusMiles]
	if !ok {
		return 0, fmt.Errorf("%w: no tier has radius %v", ErrUnsupportedTier, radiusMiles)
	}
	return tier.PrefixLength(), nil
}

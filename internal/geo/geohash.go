// Package geo provides the geospatial primitives used by the provider search:
// spatial-prefix keys, precision tiers and geodesic distances.
package geo

import "strings"

// KeyPrecision is the length of keys derived with Encode when a centroid
// record carries no spatial-prefix key of its own. Nine characters matches the
// finest precision tier.
const KeyPrecision = 9

// base32 is the geohash base32 alphabet.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode encodes latitude and longitude into a geohash string with the specified precision.
// Geohashes are hierarchical: every prefix of the result is the geohash of a
// cell containing the point, so they can stand in for any other spatial-prefix key.
//
// Parameters:
//   - lat: latitude in degrees (-90 to 90)
//   - lng: longitude in degrees (-180 to 180)
//   - precision: desired length; values below 1 use KeyPrecision
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = KeyPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var key strings.Builder
	key.Grow(precision)

	bits := 0
	var ch uint

	even := true
	for key.Len() < precision {
		if even {
			mid := (lngRange[0] + lngRange[1]) / 2
			if lng > mid {
				ch |= (1 << (4 - bits))
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= (1 << (4 - bits))
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++

		if bits == 5 {
			key.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return key.String()
}

// TruncateKey returns the first n characters of a spatial-prefix key.
// Keys shorter than n are returned unchanged and n below 1 yields "".
// Keys are compared byte-wise; both placekeys and geohashes are ASCII.
func TruncateKey(key string, n int) string {
	if n < 1 {
		return ""
	}
	if len(key) <= n {
		return key
	}
	return key[:n]
}

// SharePrefix reports whether two keys are equal once truncated to n characters.
func SharePrefix(a, b string, n int) bool {
	return TruncateKey(a, n) == TruncateKey(b, n)
}

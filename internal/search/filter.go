// Package search answers best-provider queries: it locates the requested
// postal code, narrows the provider table to a spatial-prefix neighborhood
// and ranks what is left.
package search

import (
	"fmt"

	"github.com/onnwee/nearcare/internal/dataset"
	"github.com/onnwee/nearcare/internal/geo"
)

// DefaultCandidateRadius is the distance, in miles, used to choose the
// spatial-prefix tier for candidate selection. It is independent of the
// maximum distance applied to ranked results.
const DefaultCandidateRadius = 25.0

// FilterCandidates returns copies of the providers whose key shares the tier
// prefix of placeKey, in dataset order. The tier is the one covering
// radiusMiles; 25 miles compares four characters. An empty result is not an
// error.
func FilterCandidates(ds *dataset.Dataset, placeKey string, radiusMiles float64) ([]dataset.Provider, error) {
	radius, err := geo.RadiusForDistance(radiusMiles)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve candidate radius: %w", err)
	}
	n, err := geo.PrefixLength(radius)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prefix length: %w", err)
	}

	var candidates []dataset.Provider
	for p := range ds.Providers() {
		if p.PlaceKey == "" {
			continue
		}
		if geo.SharePrefix(p.PlaceKey, placeKey, n) {
			candidates = append(candidates, p)
		}
	}
	return candidates, nil
}

package postal

import (
	"errors"
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/onnwee/nearcare/internal/dataset"
	"github.com/onnwee/nearcare/internal/geo"
)

// ErrInvalidCoordinates is returned for latitudes outside [-90, 90],
// longitudes outside [-180, 180] and NaN values.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

const (
	// nearestCandidates is how many centroids the R-tree returns by planar
	// distance before they are re-ordered by geodesic distance.
	nearestCandidates = 8

	// pointTolerance is the half-width, in degrees, of a centroid's bounding box.
	pointTolerance = 1e-6

	treeMinChildren = 25
	treeMaxChildren = 50
)

// centroidItem is a centroid stored in the R-tree. Points are (lng, lat).
type centroidItem struct {
	rect     rtreego.Rect
	centroid dataset.Centroid
}

func (c *centroidItem) Bounds() rtreego.Rect {
	return c.rect
}

func buildIndex(ds *dataset.Dataset) *rtreego.Rtree {
	items := make([]rtreego.Spatial, 0, ds.CentroidCount())
	for c := range ds.Centroids() {
		items = append(items, &centroidItem{
			rect:     rtreego.Point{c.Longitude, c.Latitude}.ToRect(pointTolerance),
			centroid: c,
		})
	}
	return rtreego.NewTree(2, treeMinChildren, treeMaxChildren, items...)
}

// Nearest returns the centroid closest to a coordinate, measured along the
// ellipsoid. Ties go to the lower postal code.
func (l *Locator) Nearest(lat, lng float64) (Location, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Location{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, lat, lng)
	}

	l.indexOnce.Do(func() {
		l.index = buildIndex(l.ds)
	})

	var (
		best     dataset.Centroid
		bestDist = math.Inf(1)
		found    bool
	)
	for _, s := range l.index.NearestNeighbors(nearestCandidates, rtreego.Point{lng, lat}) {
		item, ok := s.(*centroidItem)
		if !ok {
			continue
		}
		c := item.centroid
		d := geo.DistanceMiles(lat, lng, c.Latitude, c.Longitude)
		if d < bestDist || (d == bestDist && c.PostalCodeInt < best.PostalCodeInt) {
			best, bestDist, found = c, d, true
		}
	}
	if !found {
		return Location{}, fmt.Errorf("%w: no centroids indexed", ErrPostalCodeNotFound)
	}

	loc := locationFrom(best.PostalCode, best)
	loc.DistanceMiles = bestDist
	return loc, nil
}

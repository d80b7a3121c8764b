// Package postal resolves postal codes to the centroid a search starts from.
package postal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/onnwee/nearcare/internal/dataset"
)

// MaxProbeOffset bounds the adjacent-code search. Codes further than this
// from the requested one are never considered.
const MaxProbeOffset = 99

var (
	// ErrPostalCodeNotFound matches every *NotFoundError.
	ErrPostalCodeNotFound = errors.New("postal code not found")

	// ErrInvalidPostalCode is returned when a code has no exact match and is
	// not numeric, so no adjacent codes can be derived from it.
	ErrInvalidPostalCode = errors.New("invalid postal code")
)

// NotFoundError reports a postal code with no centroid at the code itself or
// at any probed neighbor.
type NotFoundError struct {
	PostalCode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("postal code not found: %q", e.PostalCode)
}

// Is makes errors.Is(err, ErrPostalCodeNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPostalCodeNotFound
}

// Location is a resolved search origin.
type Location struct {
	// Requested is the postal code as given by the caller.
	Requested string
	// PostalCode is the code of the centroid that was matched.
	PostalCode string
	PlaceKey   string
	Latitude   float64
	Longitude  float64
	// Fallback is true when the centroid belongs to a neighboring code.
	Fallback bool
	// Offset is PostalCode minus the requested code, zero on exact match.
	Offset int
	// Probes counts neighbor lookups made before the match.
	Probes int
	// DistanceMiles is set by Nearest to the distance from the query point.
	DistanceMiles float64
}

// Locator looks up centroids in a dataset. It is safe for concurrent use.
type Locator struct {
	ds *dataset.Dataset

	indexOnce sync.Once
	index     *rtreego.Rtree
}

// NewLocator returns a Locator over ds.
func NewLocator(ds *dataset.Dataset) *Locator {
	return &Locator{ds: ds}
}

// Locate returns the centroid for code.
//
// An exact match on the normalized code wins. Otherwise the code is read as
// an integer and neighbors are probed one per offset: odd offsets below the
// target, even offsets above it, so the order is -1, +2, -3, +4 and so on up
// to MaxProbeOffset. The first neighbor present in the centroid table is
// returned.
func (l *Locator) Locate(code string) (Location, error) {
	normalized := dataset.NormalizePostalCode(code)
	if normalized == "" {
		return Location{}, fmt.Errorf("%w: empty code", ErrInvalidPostalCode)
	}

	if c, ok := l.ds.CentroidByCode(normalized); ok {
		return locationFrom(code, c), nil
	}

	target, ok := dataset.ParsePostalInt(normalized)
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidPostalCode, code)
	}

	for i := 1; i <= MaxProbeOffset; i++ {
		offset := -i
		if i%2 == 0 {
			offset = i
		}
		c, ok := l.ds.CentroidByInt(target + offset)
		if !ok {
			continue
		}
		loc := locationFrom(code, c)
		loc.Fallback = true
		loc.Offset = offset
		loc.Probes = i
		return loc, nil
	}

	return Location{}, &NotFoundError{PostalCode: code}
}

func locationFrom(requested string, c dataset.Centroid) Location {
	return Location{
		Requested:  requested,
		PostalCode: c.PostalCode,
		PlaceKey:   c.PlaceKey,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
	}
}

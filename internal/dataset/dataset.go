package dataset

import (
	"errors"
	"iter"
	"slices"
	"strings"

	"github.com/onnwee/nearcare/internal/geo"
)

// ErrEmptyDataset is returned when a dataset has no centroids to search from.
var ErrEmptyDataset = errors.New("dataset has no postal code centroids")

// Dataset is the immutable search context: the provider table, the centroid
// table and lookup indexes over the latter. It is built once by New and only
// read afterwards, so it is safe to share between concurrent searches.
type Dataset struct {
	providers []Provider
	centroids []Centroid
	byCode    map[string]int
	byInt     map[int]int
}

// New builds a Dataset from raw tables. The inputs are copied, never retained.
//
// Centroids are normalized, deduplicated by integer postal code (first seen
// wins) and sorted ascending by it. Centroids without a key get a geohash of
// precision geo.KeyPrecision. Providers get zero-padded postal codes, default
// organization and experience values, and any missing coordinates or key are
// filled from the centroid of their postal code.
func New(providers []Provider, centroids []Centroid) (*Dataset, error) {
	d := &Dataset{
		byCode: make(map[string]int, len(centroids)),
		byInt:  make(map[int]int, len(centroids)),
	}

	seen := make(map[int]struct{}, len(centroids))
	for _, c := range centroids {
		c.PostalCode = NormalizePostalCode(c.PostalCode)
		n, ok := ParsePostalInt(c.PostalCode)
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		c.PostalCodeInt = n
		if c.PlaceKey == "" {
			c.PlaceKey = geo.Encode(c.Latitude, c.Longitude, geo.KeyPrecision)
		}
		d.centroids = append(d.centroids, c)
	}
	if len(d.centroids) == 0 {
		return nil, ErrEmptyDataset
	}

	slices.SortStableFunc(d.centroids, func(a, b Centroid) int {
		return a.PostalCodeInt - b.PostalCodeInt
	})
	for i, c := range d.centroids {
		if _, ok := d.byCode[c.PostalCode]; !ok {
			d.byCode[c.PostalCode] = i
		}
		d.byInt[c.PostalCodeInt] = i
	}

	d.providers = make([]Provider, 0, len(providers))
	for _, p := range providers {
		d.providers = append(d.providers, d.fill(p))
	}

	return d, nil
}

// fill applies load-time defaults and denormalizes centroid columns.
func (d *Dataset) fill(p Provider) Provider {
	p.Name = strings.TrimSpace(p.Name)
	p.PostalCode = NormalizePostalCode(p.PostalCode)
	if n, ok := ParsePostalInt(p.PostalCode); ok {
		p.PostalCodeInt = n
	}
	if strings.TrimSpace(p.Organization) == "" {
		p.Organization = DefaultOrganization
	}
	if p.YearsOfExperience < 0 {
		p.YearsOfExperience = DefaultYearsOfExperience
	}
	p.Phone = NormalizePhone(p.Phone)

	if p.PlaceKey != "" && p.HasLocation() {
		return p
	}
	c, ok := d.CentroidByInt(p.PostalCodeInt)
	if !ok {
		return p
	}
	if !p.HasLocation() {
		p.Latitude, p.Longitude = c.Latitude, c.Longitude
	}
	if p.PlaceKey == "" {
		p.PlaceKey = c.PlaceKey
	}
	return p
}

// ProviderCount returns the number of providers.
func (d *Dataset) ProviderCount() int {
	return len(d.providers)
}

// CentroidCount returns the number of distinct centroids.
func (d *Dataset) CentroidCount() int {
	return len(d.centroids)
}

// Providers iterates over providers in load order. Each value is a copy.
func (d *Dataset) Providers() iter.Seq[Provider] {
	return func(yield func(Provider) bool) {
		for _, p := range d.providers {
			if !yield(p) {
				return
			}
		}
	}
}

// Centroids iterates over centroids in ascending postal-code order.
func (d *Dataset) Centroids() iter.Seq[Centroid] {
	return func(yield func(Centroid) bool) {
		for _, c := range d.centroids {
			if !yield(c) {
				return
			}
		}
	}
}

// CentroidByCode looks a centroid up by its postal code string.
func (d *Dataset) CentroidByCode(code string) (Centroid, bool) {
	i, ok := d.byCode[code]
	if !ok {
		return Centroid{}, false
	}
	return d.centroids[i], true
}

// CentroidByInt looks a centroid up by its integer postal code.
func (d *Dataset) CentroidByInt(n int) (Centroid, bool) {
	i, ok := d.byInt[n]
	if !ok {
		return Centroid{}, false
	}
	return d.centroids[i], true
}

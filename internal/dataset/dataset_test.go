package dataset

import (
	"errors"
	"math"
	"testing"
)

func TestNew_DeduplicatesAndSortsCentroids(t *testing.T) {
	centroids := []Centroid{
		{PostalCode: "10003", PlaceKey: "dr5rsp", Latitude: 40.73, Longitude: -73.99},
		{PostalCode: "10001", PlaceKey: "dr5ru7", Latitude: 40.75, Longitude: -74.00},
		{PostalCode: "10001", PlaceKey: "second", Latitude: 1, Longitude: 1},
		{PostalCode: "2134", PlaceKey: "drt2yz", Latitude: 42.35, Longitude: -71.13},
		{PostalCode: "bogus", Latitude: 1, Longitude: 1},
	}

	ds, err := New(nil, centroids)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if ds.CentroidCount() != 3 {
		t.Fatalf("CentroidCount() = %d, want 3", ds.CentroidCount())
	}

	var got []int
	for c := range ds.Centroids() {
		got = append(got, c.PostalCodeInt)
	}
	want := []int{2134, 10001, 10003}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("centroid order = %v, want %v", got, want)
		}
	}

	c, ok := ds.CentroidByCode("10001")
	if !ok {
		t.Fatal("CentroidByCode(10001) not found")
	}
	if c.PlaceKey != "dr5ru7" {
		t.Errorf("first-seen centroid not kept: PlaceKey = %q", c.PlaceKey)
	}

	if _, ok := ds.CentroidByCode("02134"); !ok {
		t.Error("CentroidByCode(02134) not found after zero padding")
	}
	if _, ok := ds.CentroidByInt(2134); !ok {
		t.Error("CentroidByInt(2134) not found")
	}
	if _, ok := ds.CentroidByInt(99999); ok {
		t.Error("CentroidByInt(99999) found, want miss")
	}
}

func TestNew_EmptyCentroids(t *testing.T) {
	_, err := New([]Provider{{Name: "A"}}, nil)
	if !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("New() error = %v, want ErrEmptyDataset", err)
	}
}

func TestNew_DerivesMissingPlaceKey(t *testing.T) {
	ds, err := New(nil, []Centroid{{PostalCode: "98101", Latitude: 47.6062, Longitude: -122.3321}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c, _ := ds.CentroidByCode("98101")
	if len(c.PlaceKey) != 9 || c.PlaceKey[:6] != "c23nb6" {
		t.Errorf("derived PlaceKey = %q, want geohash with prefix c23nb6", c.PlaceKey)
	}
}

func TestNew_FillsProviders(t *testing.T) {
	centroids := []Centroid{
		{PostalCode: "10001", PlaceKey: "dr5ru7", Latitude: 40.75, Longitude: -74.00},
	}
	providers := []Provider{
		{
			Name:              " Dr. Jane Doe ",
			PostalCode:        "10001",
			Phone:             "2125551234.0",
			YearsOfExperience: -3,
			Latitude:          math.NaN(),
			Longitude:         math.NaN(),
		},
		{
			Name:         "Dr. Located",
			PostalCode:   "10001",
			Organization: "Mount Sinai",
			PlaceKey:     "dr5ruk",
			Latitude:     40.76,
			Longitude:    -73.98,
		},
		{
			Name:       "Dr. Nowhere",
			PostalCode: "99999",
			Latitude:   math.NaN(),
			Longitude:  math.NaN(),
		},
	}

	ds, err := New(providers, centroids)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var got []Provider
	for p := range ds.Providers() {
		got = append(got, p)
	}
	if len(got) != 3 {
		t.Fatalf("ProviderCount = %d, want 3", len(got))
	}

	jane := got[0]
	if jane.Name != "Dr. Jane Doe" {
		t.Errorf("Name = %q, want trimmed", jane.Name)
	}
	if jane.Organization != DefaultOrganization {
		t.Errorf("Organization = %q, want %q", jane.Organization, DefaultOrganization)
	}
	if jane.YearsOfExperience != 0 {
		t.Errorf("YearsOfExperience = %d, want 0", jane.YearsOfExperience)
	}
	if jane.Phone != "2125551234" {
		t.Errorf("Phone = %q, want 2125551234", jane.Phone)
	}
	if jane.PlaceKey != "dr5ru7" || jane.Latitude != 40.75 || jane.Longitude != -74.00 {
		t.Errorf("centroid columns not denormalized: %+v", jane)
	}
	if jane.PostalCodeInt != 10001 {
		t.Errorf("PostalCodeInt = %d, want 10001", jane.PostalCodeInt)
	}

	located := got[1]
	if located.PlaceKey != "dr5ruk" || located.Latitude != 40.76 {
		t.Errorf("existing location overwritten: %+v", located)
	}

	if got[2].HasLocation() {
		t.Errorf("provider with unknown postal code has a location: %+v", got[2])
	}
}

func TestNew_CopiesInput(t *testing.T) {
	providers := []Provider{{Name: "A", PostalCode: "10001", PlaceKey: "k", Latitude: 1, Longitude: 1}}
	centroids := []Centroid{{PostalCode: "10001", PlaceKey: "k", Latitude: 1, Longitude: 1}}

	ds, err := New(providers, centroids)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	providers[0].Name = "mutated"
	centroids[0].PlaceKey = "mutated"

	for p := range ds.Providers() {
		if p.Name != "A" {
			t.Errorf("provider aliased caller slice: Name = %q", p.Name)
		}
	}
	if c, _ := ds.CentroidByCode("10001"); c.PlaceKey != "k" {
		t.Errorf("centroid aliased caller slice: PlaceKey = %q", c.PlaceKey)
	}
}

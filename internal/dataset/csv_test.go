package dataset

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"testing/iotest"
)

const providersCSV = `,Oncologist Name,Gender,Credential,Years of Experience,Org Name,Address,Phone Number,Score,Zip,Centroid Placekey,Centroid Latitude,Centroid Longitude
0,Dr. Alice Smith,F,MD,12.0,NYU Langone,550 1st Ave,2125551234.0,87,10016,@627-s8d-qzz,40.7459,-73.9781
1,Dr. Bob Jones,M,,nan,,1 Main St,,72.9,2134,,,
2,,M,MD,3,Org,Addr,1,50,10001,,,
`

const centroidsCSV = `zip,placekey,latitude,longitude
10016,@627-s8d-qzz,40.7459,-73.9781
2134,@62k-ps9-5vf,42.3539,-71.1337
abc,@x,1,1
10001,@627-s8d-kzz,not-a-number,-73.99
`

func TestReadProviders(t *testing.T) {
	providers, err := ReadProviders(strings.NewReader(providersCSV))
	if err != nil {
		t.Fatalf("ReadProviders() error = %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("len(providers) = %d, want 2 (nameless row skipped)", len(providers))
	}

	alice := providers[0]
	if alice.Name != "Dr. Alice Smith" || alice.Gender != GenderFemale || alice.Credential != "MD" {
		t.Errorf("unexpected identity columns: %+v", alice)
	}
	if alice.YearsOfExperience != 12 {
		t.Errorf("YearsOfExperience = %d, want 12", alice.YearsOfExperience)
	}
	if alice.Phone != "2125551234" {
		t.Errorf("Phone = %q, want 2125551234", alice.Phone)
	}
	if alice.Score != 87 || alice.PostalCode != "10016" || alice.PlaceKey != "@627-s8d-qzz" {
		t.Errorf("unexpected location columns: %+v", alice)
	}
	if alice.Latitude != 40.7459 || alice.Longitude != -73.9781 {
		t.Errorf("coordinates = (%f, %f)", alice.Latitude, alice.Longitude)
	}

	bob := providers[1]
	if bob.YearsOfExperience != DefaultYearsOfExperience {
		t.Errorf("YearsOfExperience = %d, want default", bob.YearsOfExperience)
	}
	if bob.Organization != DefaultOrganization {
		t.Errorf("Organization = %q, want %q", bob.Organization, DefaultOrganization)
	}
	if bob.Credential != DefaultCredential {
		t.Errorf("Credential = %q, want empty", bob.Credential)
	}
	if bob.Score != 72 {
		t.Errorf("Score = %d, want 72 (truncated)", bob.Score)
	}
	if bob.PostalCode != "02134" {
		t.Errorf("PostalCode = %q, want 02134", bob.PostalCode)
	}
	if !math.IsNaN(bob.Latitude) || bob.HasLocation() {
		t.Errorf("missing coordinates should be NaN, got (%f, %f)", bob.Latitude, bob.Longitude)
	}
}

func TestReadProviders_MissingColumn(t *testing.T) {
	_, err := ReadProviders(strings.NewReader("Oncologist Name,Zip\nA,10001\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("ReadProviders() error = %v, want ErrMissingColumn", err)
	}
}

func TestReadProviders_Empty(t *testing.T) {
	if _, err := ReadProviders(strings.NewReader("")); err == nil {
		t.Error("ReadProviders(empty) error = nil, want header error")
	}
}

func TestReadCentroids(t *testing.T) {
	centroids, err := ReadCentroids(strings.NewReader(centroidsCSV))
	if err != nil {
		t.Fatalf("ReadCentroids() error = %v", err)
	}
	if len(centroids) != 2 {
		t.Fatalf("len(centroids) = %d, want 2 (invalid rows skipped)", len(centroids))
	}
	if centroids[1].PostalCode != "02134" || centroids[1].PostalCodeInt != 2134 {
		t.Errorf("centroid = %+v, want zero padded 02134", centroids[1])
	}
}

func TestReadCentroids_AliasesAndCase(t *testing.T) {
	input := "\ufeffZIP,Geohash,LAT,LNG\n98101,c23nb6,47.6062,-122.3321\n"
	centroids, err := ReadCentroids(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCentroids() error = %v", err)
	}
	if len(centroids) != 1 || centroids[0].PlaceKey != "c23nb6" {
		t.Errorf("centroids = %+v", centroids)
	}
}

func TestReadCentroids_MissingColumn(t *testing.T) {
	_, err := ReadCentroids(strings.NewReader("zip,latitude\n10001,40.1\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("ReadCentroids() error = %v, want ErrMissingColumn", err)
	}
}

func TestReadCentroids_SkipsMalformedRecords(t *testing.T) {
	input := "zip,latitude,longitude\n" +
		"10001,40.7506,-73.9972\n" +
		"10002,\"40.7\"x,-73.98\n" +
		"10003,40.7317,-73.9885\n"

	centroids, err := ReadCentroids(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCentroids() error = %v", err)
	}
	if len(centroids) != 2 || centroids[0].PostalCode != "10001" || centroids[1].PostalCode != "10003" {
		t.Errorf("centroids = %+v, want 10001 and 10003", centroids)
	}
}

func TestRead_StopsOnReaderError(t *testing.T) {
	errDisk := errors.New("disk failure")

	tests := []struct {
		name string
		read func(io.Reader) error
		head string
	}{
		{
			name: "providers",
			read: func(r io.Reader) error { _, err := ReadProviders(r); return err },
			head: "name,zip,score\nDr. A,10001,80\n",
		},
		{
			name: "centroids",
			read: func(r io.Reader) error { _, err := ReadCentroids(r); return err },
			head: "zip,latitude,longitude\n10001,40.75,-73.99\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := io.MultiReader(strings.NewReader(tt.head), iotest.ErrReader(errDisk))
			if err := tt.read(r); !errors.Is(err, errDisk) {
				t.Errorf("error = %v, want %v", err, errDisk)
			}
		})
	}
}

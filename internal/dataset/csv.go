package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a required CSV column is absent.
var ErrMissingColumn = errors.New("missing required column")

// Column aliases, matched case-insensitively against the header row.
var (
	colName       = []string{"oncologist name", "provider name", "name"}
	colGender     = []string{"gender"}
	colCredential = []string{"credential"}
	colYears      = []string{"years of experience", "years_of_experience", "experience"}
	colOrg        = []string{"org name", "org_name", "organization"}
	colAddress    = []string{"address"}
	colPhone      = []string{"phone number", "phone_number", "phone"}
	colScore      = []string{"score"}
	colZip        = []string{"zip", "zip code", "postal code", "postal_code"}
	colPlaceKey   = []string{"centroid placekey", "placekey", "place key", "geohash"}
	colLatitude   = []string{"centroid latitude", "latitude", "lat"}
	colLongitude  = []string{"centroid longitude", "longitude", "lng", "lon"}
)

// header resolves column aliases to field indexes.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

// index returns the first alias present in the header, or -1.
func (h header) index(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func (h header) require(aliases []string) (int, error) {
	i := h.index(aliases)
	if i < 0 {
		return -1, fmt.Errorf("%w: %q", ErrMissingColumn, aliases[0])
	}
	return i, nil
}

// field returns the trimmed value at i, treating pandas-style null markers as empty.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	v := strings.TrimSpace(record[i])
	switch strings.ToLower(v) {
	case "nan", "null", "none", "n/a":
		return ""
	}
	return v
}

// intField parses integer columns that may have been exported as floats
// ("12.0"); fractional parts are truncated toward zero.
func intField(record []string, i int, def int) int {
	v := field(record, i)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(f)
}

// floatField returns NaN when the column is empty or unparsable.
func floatField(record []string, i int) float64 {
	v := field(record, i)
	if v == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ReadProviders parses a provider table. The header row selects columns by
// name, so extra columns (such as a leading unnamed index) are ignored. Rows
// with no provider name and malformed rows are skipped; a read error from r
// stops parsing.
func ReadProviders(r io.Reader) ([]Provider, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	row, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read provider header: %w", err)
	}
	h := newHeader(row)

	nameIdx, err := h.require(colName)
	if err != nil {
		return nil, err
	}
	zipIdx, err := h.require(colZip)
	if err != nil {
		return nil, err
	}
	scoreIdx, err := h.require(colScore)
	if err != nil {
		return nil, err
	}
	var (
		genderIdx = h.index(colGender)
		credIdx   = h.index(colCredential)
		yearsIdx  = h.index(colYears)
		orgIdx    = h.index(colOrg)
		addrIdx   = h.index(colAddress)
		phoneIdx  = h.index(colPhone)
		keyIdx    = h.index(colPlaceKey)
		latIdx    = h.index(colLatitude)
		lngIdx    = h.index(colLongitude)
	)

	var providers []Provider
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				slog.Warn("skipping malformed provider record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to read provider line %d: %w", line, err)
		}

		name := field(record, nameIdx)
		if name == "" {
			slog.Warn("skipping provider record without a name", "line", line)
			continue
		}

		org := field(record, orgIdx)
		if org == "" {
			org = DefaultOrganization
		}

		providers = append(providers, Provider{
			Name:              name,
			Gender:            ParseGender(field(record, genderIdx)),
			Credential:        field(record, credIdx),
			YearsOfExperience: intField(record, yearsIdx, DefaultYearsOfExperience),
			Organization:      org,
			Address:           field(record, addrIdx),
			Phone:             NormalizePhone(field(record, phoneIdx)),
			Score:             intField(record, scoreIdx, 0),
			PostalCode:        NormalizePostalCode(field(record, zipIdx)),
			PlaceKey:          field(record, keyIdx),
			Latitude:          floatField(record, latIdx),
			Longitude:         floatField(record, lngIdx),
		})
	}

	return providers, nil
}

// ReadCentroids parses a postal-code centroid table. Rows with an invalid
// postal code or coordinates are skipped with a warning.
func ReadCentroids(r io.Reader) ([]Centroid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	row, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read centroid header: %w", err)
	}
	h := newHeader(row)

	zipIdx, err := h.require(colZip)
	if err != nil {
		return nil, err
	}
	latIdx, err := h.require(colLatitude)
	if err != nil {
		return nil, err
	}
	lngIdx, err := h.require(colLongitude)
	if err != nil {
		return nil, err
	}
	keyIdx := h.index(colPlaceKey)

	var centroids []Centroid
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				slog.Warn("skipping malformed centroid record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to read centroid line %d: %w", line, err)
		}

		code := NormalizePostalCode(field(record, zipIdx))
		n, ok := ParsePostalInt(code)
		if !ok {
			slog.Warn("skipping centroid with invalid postal code", "line", line, "zip", code)
			continue
		}
		lat, lng := floatField(record, latIdx), floatField(record, lngIdx)
		if math.IsNaN(lat) || math.IsNaN(lng) {
			slog.Warn("skipping centroid with invalid coordinates", "line", line, "zip", code)
			continue
		}

		centroids = append(centroids, Centroid{
			PostalCode:    code,
			PostalCodeInt: n,
			PlaceKey:      field(record, keyIdx),
			Latitude:      lat,
			Longitude:     lng,
		})
	}

	return centroids, nil
}

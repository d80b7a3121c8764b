package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Queries used by PostgresSource. Rows are read in insertion order so that
// first-seen centroid deduplication matches a CSV load of the same data.
const (
	selectProvidersQuery = `
		SELECT name, gender, credential, years_of_experience, org_name,
		       address, phone, score, zip, placekey, latitude, longitude
		FROM providers
		ORDER BY id`

	selectCentroidsQuery = `
		SELECT zip, placekey, latitude, longitude
		FROM zip_centroids
		ORDER BY id`
)

// PostgresSource reads the provider and centroid tables from PostgreSQL.
type PostgresSource struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool for databaseURL and verifies it.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresSource(db), nil
}

// NewPostgresSource wraps an existing connection pool.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Close releases the connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// Load queries and assembles both tables.
func (s *PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	return loadTables(ctx, "postgres", s.queryProviders, s.queryCentroids)
}

func (s *PostgresSource) queryProviders(ctx context.Context) ([]Provider, error) {
	rows, err := s.db.QueryContext(ctx, selectProvidersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		var (
			name, gender, credential, org sql.NullString
			address, phone, zip, placeKey sql.NullString
			years, score                  sql.NullFloat64
			lat, lng                      sql.NullFloat64
		)
		if err := rows.Scan(&name, &gender, &credential, &years, &org,
			&address, &phone, &score, &zip, &placeKey, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}

		providers = append(providers, Provider{
			Name:              name.String,
			Gender:            ParseGender(gender.String),
			Credential:        credential.String,
			YearsOfExperience: int(nullFloatOr(years, DefaultYearsOfExperience)),
			Organization:      org.String,
			Address:           address.String,
			Phone:             NormalizePhone(phone.String),
			Score:             int(nullFloatOr(score, 0)),
			PostalCode:        NormalizePostalCode(zip.String),
			PlaceKey:          placeKey.String,
			Latitude:          nullFloatOr(lat, math.NaN()),
			Longitude:         nullFloatOr(lng, math.NaN()),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return providers, nil
}

func (s *PostgresSource) queryCentroids(ctx context.Context) ([]Centroid, error) {
	rows, err := s.db.QueryContext(ctx, selectCentroidsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query centroids: %w", err)
	}
	defer rows.Close()

	var centroids []Centroid
	for rows.Next() {
		var (
			zip      string
			placeKey sql.NullString
			lat, lng float64
		)
		if err := rows.Scan(&zip, &placeKey, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan centroid: %w", err)
		}
		code := NormalizePostalCode(zip)
		n, ok := ParsePostalInt(code)
		if !ok {
			continue
		}
		centroids = append(centroids, Centroid{
			PostalCode:    code,
			PostalCodeInt: n,
			PlaceKey:      placeKey.String,
			Latitude:      lat,
			Longitude:     lng,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate centroids: %w", err)
	}

	return centroids, nil
}

func nullFloatOr(v sql.NullFloat64, def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.Float64
}

// Package config provides configuration loading and validation for the finder.
// It uses koanf to read an optional YAML file and lets environment variables
// override individual keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/onnwee/nearcare/internal/dataset"
	"github.com/onnwee/nearcare/internal/geo"
	"github.com/onnwee/nearcare/internal/ranking"
)

// Data sources.
const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourcePostgres = "postgres"
)

// Config holds all configuration values for the finder.
type Config struct {
	Env string `koanf:"env"`

	// Dataset source
	DataSource    string `koanf:"data_source"`
	ProvidersPath string `koanf:"providers_path"`
	CentroidsPath string `koanf:"centroids_path"`
	CSVEncoding   string `koanf:"csv_encoding"`

	// S3-compatible object storage
	S3Bucket          string `koanf:"s3_bucket"`
	S3Endpoint        string `koanf:"s3_endpoint"`
	S3Region          string `koanf:"s3_region"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	S3ProvidersKey    string `koanf:"s3_providers_key"`
	S3CentroidsKey    string `koanf:"s3_centroids_key"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Search defaults
	CandidateRadiusMiles float64  `koanf:"candidate_radius_miles"`
	DefaultTopN          int      `koanf:"default_top_n"`
	DefaultMaxDistance   float64  `koanf:"default_max_distance"`
	DefaultPriority      []string `koanf:"default_priority"`

	// Observability
	MetricsFile       string  `koanf:"metrics_file"`
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"`
	TracingEndpoint   string  `koanf:"tracing_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
	TracingInsecure   bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrInvalidDataSource      = errors.New("DATA_SOURCE must be one of file, s3, postgres")
	ErrMissingProvidersPath   = errors.New("PROVIDERS_PATH is required")
	ErrMissingCentroidsPath   = errors.New("CENTROIDS_PATH is required")
	ErrInvalidCSVEncoding     = errors.New("CSV_ENCODING must be utf-8, latin1 or windows-1252")
	ErrMissingS3Bucket        = errors.New("S3_BUCKET is required")
	ErrMissingS3ProvidersKey  = errors.New("S3_PROVIDERS_KEY is required")
	ErrMissingS3CentroidsKey  = errors.New("S3_CENTROIDS_KEY is required")
	ErrIncompleteS3Credential = errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required")
	ErrInvalidCandidateRadius = errors.New("CANDIDATE_RADIUS_MILES must be a non-negative number")
	ErrInvalidDefaultTopN     = errors.New("DEFAULT_TOP_N must be at least 1")
	ErrInvalidMaxDistance     = errors.New("DEFAULT_MAX_DISTANCE must be non-negative")
	ErrInvalidSampleRate      = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrInvalidTracingExporter = errors.New("TRACING_EXPORTER must be otlp-grpc or otlp-http")
	ErrInvalidNumber          = errors.New("invalid number")
)

// Default values for non-secret configuration.
const (
	DefaultEnv               = "development"
	DefaultDataSource        = SourceFile
	DefaultProvidersPath     = "data/providers.csv"
	DefaultCentroidsPath     = "data/zip_centroids.csv"
	DefaultS3Region          = "us-east-1"
	DefaultS3ProvidersKey    = "providers.csv"
	DefaultS3CentroidsKey    = "zip_centroids.csv"
	DefaultCandidateRadius   = 25.0
	DefaultTracingExporter   = "otlp-http"
	DefaultTracingSampleRate = 1.0
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "NEARCARE_"

// Load reads configuration from an optional YAML file and environment
// variables. Environment variables take precedence over file values; each key
// is read from NEARCARE_<KEY> and, for a few widely used names, from the
// unprefixed variable too (ENV, DATABASE_URL).
// Returns the loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	var loadErrs []error
	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	radius, err := getFloat(k, "candidate_radius_miles", DefaultCandidateRadius)
	collect(err)
	topN, err := getInt(k, "default_top_n", ranking.DefaultTopN)
	collect(err)
	maxDistance, err := getFloat(k, "default_max_distance", ranking.DefaultMaxDistance)
	collect(err)
	sampleRate, err := getFloat(k, "tracing_sample_rate", DefaultTracingSampleRate)
	collect(err)
	tracingEnabled, err := getBool(k, "tracing_enabled", false)
	collect(err)
	tracingInsecure, err := getBool(k, "tracing_insecure", false)
	collect(err)

	cfg := &Config{
		Env:                  getString(k, "env", DefaultEnv, "ENV", "GO_ENV"),
		DataSource:           strings.ToLower(getString(k, "data_source", DefaultDataSource)),
		ProvidersPath:        getString(k, "providers_path", DefaultProvidersPath),
		CentroidsPath:        getString(k, "centroids_path", DefaultCentroidsPath),
		CSVEncoding:          getString(k, "csv_encoding", ""),
		S3Bucket:             getString(k, "s3_bucket", ""),
		S3Endpoint:           getString(k, "s3_endpoint", ""),
		S3Region:             getString(k, "s3_region", DefaultS3Region),
		S3AccessKeyID:        getString(k, "s3_access_key_id", ""),
		S3SecretAccessKey:    getString(k, "s3_secret_access_key", ""),
		S3ProvidersKey:       getString(k, "s3_providers_key", DefaultS3ProvidersKey),
		S3CentroidsKey:       getString(k, "s3_centroids_key", DefaultS3CentroidsKey),
		DatabaseURL:          getString(k, "database_url", "", "DATABASE_URL"),
		CandidateRadiusMiles: radius,
		DefaultTopN:          topN,
		DefaultMaxDistance:   maxDistance,
		DefaultPriority:      getList(k, "default_priority"),
		MetricsFile:          getString(k, "metrics_file", ""),
		TracingEnabled:       tracingEnabled,
		TracingExporter:      getString(k, "tracing_exporter", DefaultTracingExporter),
		TracingEndpoint:      getString(k, "tracing_endpoint", ""),
		TracingSampleRate:    sampleRate,
		TracingInsecure:      tracingInsecure,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// envName returns the prefixed environment variable for a koanf key.
func envName(key string) string {
	return envPrefix + strings.ToUpper(key)
}

// lookupEnv returns the first non-empty variable among the prefixed name and
// any aliases.
func lookupEnv(key string, aliases ...string) (string, string, bool) {
	for _, name := range append([]string{envName(key)}, aliases...) {
		if val := os.Getenv(name); val != "" {
			return name, val, true
		}
	}
	return "", "", false
}

// getString returns the environment value if set, otherwise the koanf value,
// or the default.
func getString(k *koanf.Koanf, key, def string, aliases ...string) string {
	if _, val, ok := lookupEnv(key, aliases...); ok {
		return val
	}
	if val := k.String(key); val != "" {
		return val
	}
	return def
}

// getFloat is getString for float values. A value present in the file is
// used even when it is zero.
func getFloat(k *koanf.Koanf, key string, def float64) (float64, error) {
	if name, val, ok := lookupEnv(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return def, fmt.Errorf("%s must be a valid float: %w", name, ErrInvalidNumber)
		}
		return f, nil
	}
	if k.Exists(key) {
		return k.Float64(key), nil
	}
	return def, nil
}

// getInt is getFloat for integers.
func getInt(k *koanf.Koanf, key string, def int) (int, error) {
	if name, val, ok := lookupEnv(key); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			return def, fmt.Errorf("%s must be a valid integer: %w", name, ErrInvalidNumber)
		}
		return i, nil
	}
	if k.Exists(key) {
		return k.Int(key), nil
	}
	return def, nil
}

// getBool accepts true/false, 1/0, yes/no and on/off from the environment.
func getBool(k *koanf.Koanf, key string, def bool) (bool, error) {
	if name, val, ok := lookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		default:
			return def, fmt.Errorf("%s must be a boolean, got %q", name, val)
		}
	}
	if k.Exists(key) {
		return k.Bool(key), nil
	}
	return def, nil
}

// getList reads a comma-separated environment value or a YAML list.
func getList(k *koanf.Koanf, key string) []string {
	if _, val, ok := lookupEnv(key); ok {
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return k.Strings(key)
}

// Validate checks the configuration for the selected data source and the
// search defaults. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	switch c.DataSource {
	case SourceFile:
		if c.ProvidersPath == "" {
			errs = append(errs, ErrMissingProvidersPath)
		}
		if c.CentroidsPath == "" {
			errs = append(errs, ErrMissingCentroidsPath)
		}
	case SourceS3:
		if c.S3Bucket == "" {
			errs = append(errs, ErrMissingS3Bucket)
		}
		if c.S3ProvidersKey == "" {
			errs = append(errs, ErrMissingS3ProvidersKey)
		}
		if c.S3CentroidsKey == "" {
			errs = append(errs, ErrMissingS3CentroidsKey)
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			errs = append(errs, ErrIncompleteS3Credential)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidDataSource, c.DataSource))
	}

	if c.DataSource != SourcePostgres {
		if err := (dataset.CSVOptions{Encoding: c.CSVEncoding}).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidCSVEncoding, err))
		}
	}

	if _, err := geo.RadiusForDistance(c.CandidateRadiusMiles); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidCandidateRadius, err))
	}
	if c.DefaultTopN < 1 {
		errs = append(errs, ErrInvalidDefaultTopN)
	}
	if c.DefaultMaxDistance < 0 {
		errs = append(errs, ErrInvalidMaxDistance)
	}
	if _, err := ranking.ParsePriority(c.DefaultPriority); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_PRIORITY: %w", err))
	}

	if c.TracingEnabled {
		if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
			errs = append(errs, ErrInvalidSampleRate)
		}
		switch c.TracingExporter {
		case "otlp-grpc", "otlp-http":
		default:
			errs = append(errs, ErrInvalidTracingExporter)
		}
	}

	return errs
}

// SearchPriority returns the validated default priority.
func (c *Config) SearchPriority() []ranking.Key {
	keys, err := ranking.ParsePriority(c.DefaultPriority)
	if err != nil {
		return ranking.DefaultPriority()
	}
	return keys
}

// IsProduction reports whether the finder runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"env":                    c.Env,
		"data_source":            c.DataSource,
		"providers_path":         c.ProvidersPath,
		"centroids_path":         c.CentroidsPath,
		"csv_encoding":           c.CSVEncoding,
		"s3_bucket":              c.S3Bucket,
		"s3_endpoint":            c.S3Endpoint,
		"s3_region":              c.S3Region,
		"s3_access_key_id":       maskSecret(c.S3AccessKeyID),
		"s3_secret_access_key":   maskSecret(c.S3SecretAccessKey),
		"s3_providers_key":       c.S3ProvidersKey,
		"s3_centroids_key":       c.S3CentroidsKey,
		"database_url":           maskDatabaseURL(c.DatabaseURL),
		"candidate_radius_miles": strconv.FormatFloat(c.CandidateRadiusMiles, 'f', -1, 64),
		"default_top_n":          strconv.Itoa(c.DefaultTopN),
		"default_max_distance":   strconv.FormatFloat(c.DefaultMaxDistance, 'f', -1, 64),
		"default_priority":       strings.Join(c.DefaultPriority, ","),
		"metrics_file":           c.MetricsFile,
		"tracing_enabled":        strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":       c.TracingExporter,
		"tracing_endpoint":       c.TracingEndpoint,
		"tracing_sample_rate":    strconv.FormatFloat(c.TracingSampleRate, 'f', -1, 64),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	return s[:schemeEnd+3] + rest[:colonIndex] + ":****" + rest[atIndex:]
}

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/nearcare/internal/dataset"
	"github.com/onnwee/nearcare/internal/geo"
	"github.com/onnwee/nearcare/internal/postal"
	"github.com/onnwee/nearcare/internal/ranking"
	"github.com/onnwee/nearcare/internal/tracing"
)

// ErrMissingOrigin is returned when a request names neither a postal code
// nor a coordinate.
var ErrMissingOrigin = errors.New("postal code or coordinates required")

// Point is a coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Request describes one best-provider search. Zero values select the
// service defaults, except Unique which is simply off.
type Request struct {
	// PostalCode is the search origin. When empty, Near is used instead.
	PostalCode string
	// Near resolves the origin to the closest postal code centroid.
	Near *Point

	Priority []string
	Gender   string
	// TopN of zero selects the default; negative values are rejected.
	TopN   int
	Unique bool
	// MaxDistance in miles; nil selects the default.
	MaxDistance *float64
	// CandidateRadius in miles used to pick the key prefix tier; nil
	// selects the default.
	CandidateRadius *float64
}

// Origin is the resolved starting point of a search.
type Origin struct {
	RequestedPostalCode string  `json:"requested_postal_code,omitempty"`
	PostalCode          string  `json:"postal_code"`
	PlaceKey            string  `json:"place_key"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Fallback            bool    `json:"fallback"`
	Offset              int     `json:"offset,omitempty"`
	// DistanceMiles is the distance from Near to the matched centroid.
	DistanceMiles float64 `json:"distance_miles,omitempty"`
}

// Response is the result of a successful search.
type Response struct {
	SearchID   string           `json:"search_id"`
	Origin     Origin           `json:"origin"`
	Candidates int              `json:"candidates"`
	Results    []ranking.Result `json:"results"`
}

// ServiceConfig holds configuration for the search service.
type ServiceConfig struct {
	Dataset *dataset.Dataset
	Logger  *slog.Logger
	Metrics *Metrics

	// Defaults applied to requests that leave a field unset.
	Priority        []ranking.Key
	TopN            int
	MaxDistance     *float64
	CandidateRadius *float64
}

// Service answers best-provider searches over one immutable dataset. It is
// safe for concurrent use.
type Service struct {
	ds      *dataset.Dataset
	locator *postal.Locator
	logger  *slog.Logger
	metrics *Metrics

	priority        []ranking.Key
	topN            int
	maxDistance     float64
	candidateRadius float64

	timeNow func() time.Time // For testability
	newID   func() string    // For testability
}

// NewService creates a search service. Unset defaults fall back to score,
// distance, experience ordering, 10 results, 100 miles and a 25 mile
// candidate radius.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Dataset == nil {
		return nil, errors.New("dataset is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Service{
		ds:              cfg.Dataset,
		locator:         postal.NewLocator(cfg.Dataset),
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		priority:        ranking.DefaultPriority(),
		topN:            ranking.DefaultTopN,
		maxDistance:     ranking.DefaultMaxDistance,
		candidateRadius: DefaultCandidateRadius,
		timeNow:         time.Now,
		newID:           func() string { return uuid.New().String() },
	}

	if len(cfg.Priority) > 0 {
		s.priority = cfg.Priority
	}
	if cfg.TopN != 0 {
		s.topN = cfg.TopN
	}
	if cfg.MaxDistance != nil {
		s.maxDistance = *cfg.MaxDistance
	}
	if cfg.CandidateRadius != nil {
		s.candidateRadius = *cfg.CandidateRadius
	}

	defaults := ranking.Options{Priority: s.priority, TopN: s.topN, MaxDistance: s.maxDistance}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search defaults: %w", err)
	}
	if _, err := geo.RadiusForDistance(s.candidateRadius); err != nil {
		return nil, fmt.Errorf("invalid candidate radius: %w", err)
	}

	s.metrics.SetDatasetSize(cfg.Dataset.ProviderCount(), cfg.Dataset.CentroidCount())
	return s, nil
}

// BestProviders locates the request origin, selects the providers that
// share its key prefix and ranks them. On error no partial response is
// returned.
func (s *Service) BestProviders(ctx context.Context, req Request) (resp *Response, err error) {
	start := s.timeNow()
	searchID := s.newID()
	logger := s.logger.With("search_id", searchID)

	ctx, endSpan := tracing.StartSpan(ctx, "search.best_providers",
		tracing.AttrSearchID.String(searchID),
		tracing.AttrPostalCode.String(req.PostalCode),
	)
	defer func() {
		endSpan(err)
		status := statusOf(err)
		s.metrics.ObserveSearch(status, s.timeNow().Sub(start))
		if err != nil {
			logger.Warn("search failed",
				"postal_code", req.PostalCode,
				"status", status,
				"error", err)
		}
	}()

	opts, radius, err := s.options(req)
	if err != nil {
		return nil, err
	}

	origin, err := s.locate(ctx, req)
	if err != nil {
		return nil, err
	}
	if origin.Fallback {
		s.metrics.IncPostalFallbacks()
		logger.Info("postal code resolved to neighbor",
			"requested", origin.RequestedPostalCode,
			"matched", origin.PostalCode,
			"offset", origin.Offset)
	}

	candidates, err := s.filter(ctx, origin, radius)
	if err != nil {
		return nil, err
	}

	results, err := s.rank(ctx, candidates, origin, opts)
	if err != nil {
		return nil, err
	}

	tracing.SetAttributes(ctx,
		tracing.AttrCandidates.Int(len(candidates)),
		tracing.AttrResults.Int(len(results)),
	)
	logger.Info("search completed",
		"postal_code", origin.PostalCode,
		"candidates", len(candidates),
		"results", len(results),
		"duration_ms", s.timeNow().Sub(start).Milliseconds())

	return &Response{
		SearchID:   searchID,
		Origin:     origin,
		Candidates: len(candidates),
		Results:    results,
	}, nil
}

// options merges request fields with the service defaults and validates them.
func (s *Service) options(req Request) (ranking.Options, float64, error) {
	opts := ranking.Options{
		Priority:    s.priority,
		TopN:        s.topN,
		Unique:      req.Unique,
		MaxDistance: s.maxDistance,
	}

	if len(req.Priority) > 0 {
		keys, err := ranking.ParsePriority(req.Priority)
		if err != nil {
			return ranking.Options{}, 0, err
		}
		opts.Priority = keys
	}
	gender, err := ranking.ParseGender(req.Gender)
	if err != nil {
		return ranking.Options{}, 0, err
	}
	opts.Gender = gender
	if req.TopN != 0 {
		opts.TopN = req.TopN
	}
	if req.MaxDistance != nil {
		opts.MaxDistance = *req.MaxDistance
	}
	if err := opts.Validate(); err != nil {
		return ranking.Options{}, 0, err
	}

	radius := s.candidateRadius
	if req.CandidateRadius != nil {
		radius = *req.CandidateRadius
	}
	return opts, radius, nil
}

func (s *Service) locate(ctx context.Context, req Request) (origin Origin, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "search.locate")
	defer func() { endSpan(err) }()

	var loc postal.Location
	switch {
	case req.PostalCode != "":
		loc, err = s.locator.Locate(req.PostalCode)
	case req.Near != nil:
		loc, err = s.locator.Nearest(req.Near.Latitude, req.Near.Longitude)
	default:
		err = ErrMissingOrigin
	}
	if err != nil {
		return Origin{}, err
	}

	if loc.Fallback {
		tracing.AddEvent(ctx, "postal fallback",
			tracing.AttrPostalCode.String(loc.PostalCode),
			tracing.AttrFallback.Bool(true),
		)
	}
	return Origin{
		RequestedPostalCode: req.PostalCode,
		PostalCode:          loc.PostalCode,
		PlaceKey:            loc.PlaceKey,
		Latitude:            loc.Latitude,
		Longitude:           loc.Longitude,
		Fallback:            loc.Fallback,
		Offset:              loc.Offset,
		DistanceMiles:       loc.DistanceMiles,
	}, nil
}

func (s *Service) filter(ctx context.Context, origin Origin, radius float64) (candidates []dataset.Provider, err error) {
	_, endSpan := tracing.StartSpan(ctx, "search.filter")
	defer func() { endSpan(err) }()

	candidates, err = FilterCandidates(s.ds, origin.PlaceKey, radius)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCandidates(len(candidates))
	return candidates, nil
}

func (s *Service) rank(ctx context.Context, candidates []dataset.Provider, origin Origin, opts ranking.Options) (results []ranking.Result, err error) {
	_, endSpan := tracing.StartSpan(ctx, "search.rank")
	defer func() { endSpan(err) }()

	results, err = ranking.Rank(candidates, ranking.Origin{
		Latitude:  origin.Latitude,
		Longitude: origin.Longitude,
	}, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveResults(len(results))
	return results, nil
}

// statusOf maps a search error to its metrics label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, postal.ErrPostalCodeNotFound):
		return StatusNotFound
	case errors.Is(err, postal.ErrInvalidPostalCode),
		errors.Is(err, postal.ErrInvalidCoordinates),
		errors.Is(err, ErrMissingOrigin),
		errors.Is(err, geo.ErrUnsupportedTier),
		errors.Is(err, ranking.ErrInvalidPriority),
		errors.Is(err, ranking.ErrInvalidGender),
		errors.Is(err, ranking.ErrInvalidTopN),
		errors.Is(err, ranking.ErrInvalidMaxDistance):
		return StatusInvalid
	default:
		return StatusError
	}
}

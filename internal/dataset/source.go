package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/onnwee/nearcare/internal/tracing"
)

// Source loads a complete Dataset from some backing store.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Supported text encodings for CSV inputs.
const (
	EncodingUTF8        = "utf-8"
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "windows-1252"
)

// ErrUnsupportedEncoding is returned for an unknown CSV text encoding.
var ErrUnsupportedEncoding = errors.New("unsupported csv encoding")

// CSVOptions controls how CSV streams are decoded.
type CSVOptions struct {
	// Encoding of the text; empty means UTF-8.
	Encoding string
}

// Validate checks that the options are usable.
func (o CSVOptions) Validate() error {
	switch strings.ToLower(o.Encoding) {
	case "", EncodingUTF8, "utf8", EncodingLatin1, "iso-8859-1", EncodingWindows1252, "cp1252":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEncoding, o.Encoding)
	}
}

// decode wraps r so that it yields UTF-8 CSV text. Streams whose name ends
// in ".gz" are gunzipped first. The returned closer releases the gzip reader.
func decode(r io.Reader, name string, opts CSVOptions) (io.Reader, func() error, error) {
	closeFn := func() error { return nil }

	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gzip stream %s: %w", name, err)
		}
		r = zr
		closeFn = zr.Close
	}

	switch strings.ToLower(opts.Encoding) {
	case "", EncodingUTF8, "utf8":
	case EncodingLatin1, "iso-8859-1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	case EncodingWindows1252, "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, opts.Encoding)
	}

	return r, closeFn, nil
}

// ctxReader fails reads once ctx is done, so a long parse stops on cancellation.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// tables holds the two raw tables before they are assembled into a Dataset.
type tables struct {
	providers []Provider
	centroids []Centroid
}

// loadTables runs both readers concurrently and assembles the result.
// source names the backing store in spans and logs.
func loadTables(ctx context.Context, source string, readProviders func(context.Context) ([]Provider, error), readCentroids func(context.Context) ([]Centroid, error)) (*Dataset, error) {
	start := time.Now()
	var t tables

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spanCtx, endSpan := tracing.StartLoadSpan(gctx, source, "providers")
		defer func() { endSpan(err) }()

		p, err := readProviders(spanCtx)
		if err != nil {
			return fmt.Errorf("failed to load providers: %w", err)
		}
		t.providers = p
		return nil
	})
	g.Go(func() (err error) {
		spanCtx, endSpan := tracing.StartLoadSpan(gctx, source, "centroids")
		defer func() { endSpan(err) }()

		c, err := readCentroids(spanCtx)
		if err != nil {
			return fmt.Errorf("failed to load centroids: %w", err)
		}
		t.centroids = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds, err := New(t.providers, t.centroids)
	if err != nil {
		return nil, err
	}

	slog.Info("dataset loaded",
		"source", source,
		"providers", ds.ProviderCount(),
		"centroids", ds.CentroidCount(),
		"duplicate_centroids", len(t.centroids)-ds.CentroidCount(),
		"duration_ms", time.Since(start).Milliseconds())

	return ds, nil
}

// FileSource reads the two tables from local CSV files, optionally gzipped.
type FileSource struct {
	ProvidersPath string
	CentroidsPath string
	Options       CSVOptions
}

// NewFileSource creates a FileSource after checking both paths are set.
func NewFileSource(providersPath, centroidsPath string, opts CSVOptions) (*FileSource, error) {
	if providersPath == "" {
		return nil, errors.New("providers path is required")
	}
	if centroidsPath == "" {
		return nil, errors.New("centroids path is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &FileSource{
		ProvidersPath: providersPath,
		CentroidsPath: centroidsPath,
		Options:       opts,
	}, nil
}

// Load reads and assembles both files.
func (s *FileSource) Load(ctx context.Context) (*Dataset, error) {
	return loadTables(ctx, "file",
		func(ctx context.Context) ([]Provider, error) {
			var out []Provider
			err := s.readFile(ctx, s.ProvidersPath, func(r io.Reader) (err error) {
				out, err = ReadProviders(r)
				return err
			})
			return out, err
		},
		func(ctx context.Context) ([]Centroid, error) {
			var out []Centroid
			err := s.readFile(ctx, s.CentroidsPath, func(r io.Reader) (err error) {
				out, err = ReadCentroids(r)
				return err
			})
			return out, err
		},
	)
}

func (s *FileSource) readFile(ctx context.Context, path string, parse func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r, closeFn, err := decode(ctxReader{ctx: ctx, r: f}, path, s.Options)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := parse(r); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Package main is the entry point for the provider finder CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/nearcare/internal/config"
	"github.com/onnwee/nearcare/internal/dataset"
	"github.com/onnwee/nearcare/internal/logging"
	"github.com/onnwee/nearcare/internal/search"
	"github.com/onnwee/nearcare/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the parsed command line flags.
type options struct {
	configPath  string
	format      string
	request     search.Request
	help        bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("finder", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.request.PostalCode, "zip", "", "postal code to search from")
	lat := fs.Float64("lat", 0, "latitude to search from when -zip is not given")
	lng := fs.Float64("lng", 0, "longitude to search from when -zip is not given")
	priority := fs.String("priority", "", "comma separated sort keys: score, distance, experience")
	fs.StringVar(&opts.request.Gender, "gender", "", "provider gender: M, F or any")
	fs.IntVar(&opts.request.TopN, "top", 0, "number of providers to return (default from config)")
	fs.BoolVar(&opts.request.Unique, "unique", false, "keep one provider per name")
	maxDistance := fs.Float64("max-distance", 0, "maximum distance in miles (default from config)")
	radius := fs.Float64("radius", 0, "candidate radius in miles (default from config)")
	fs.StringVar(&opts.format, "format", formatTable, "output format: table or json")
	fs.BoolVar(&opts.help, "help", false, "display help message")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Nearcare Provider Finder")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage: finder -zip 10001 [options]")
		fmt.Fprintln(stderr, "       finder -lat 40.75 -lng -73.99 [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.help {
		fs.Usage()
		return opts, nil
	}
	if opts.showVersion {
		return opts, nil
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["lat"] != set["lng"] {
		return options{}, errors.New("-lat and -lng must be given together")
	}
	if set["lat"] && opts.request.PostalCode == "" {
		opts.request.Near = &search.Point{Latitude: *lat, Longitude: *lng}
	}
	if opts.request.PostalCode == "" && opts.request.Near == nil {
		return options{}, errors.New("-zip or -lat/-lng is required")
	}
	if *priority != "" {
		opts.request.Priority = strings.Split(*priority, ",")
	}
	if set["max-distance"] {
		opts.request.MaxDistance = maxDistance
	}
	if set["radius"] {
		opts.request.CandidateRadius = radius
	}
	switch opts.format {
	case formatTable, formatJSON:
	default:
		return options{}, fmt.Errorf("unsupported format %q", opts.format)
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if opts.help {
		return exitOK
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	cfg, errs := config.Load(opts.configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(stderr, "config error: %v\n", err)
		}
		return exitError
	}

	logger := logging.NewLoggerTo(stderr, cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, 2*len(summary))
	for _, k := range slices.Sorted(maps.Keys(summary)) {
		attrs = append(attrs, k, summary[k])
	}
	logger.Debug("configuration loaded", attrs...)

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		Version:      version,
		ExporterType: cfg.TracingExporter,
		Endpoint:     cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		Insecure:     cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		return exitError
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		logger.Error("failed to load dataset", "source", cfg.DataSource, "error", err)
		return exitError
	}

	metrics := search.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		logger.Error("failed to register metrics", "error", err)
		return exitError
	}

	svc, err := search.NewService(search.ServiceConfig{
		Dataset:         ds,
		Logger:          logger,
		Metrics:         metrics,
		Priority:        cfg.SearchPriority(),
		TopN:            cfg.DefaultTopN,
		MaxDistance:     &cfg.DefaultMaxDistance,
		CandidateRadius: &cfg.CandidateRadiusMiles,
	})
	if err != nil {
		logger.Error("failed to create search service", "error", err)
		return exitError
	}

	resp, searchErr := svc.BestProviders(ctx, opts.request)

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if searchErr != nil {
		fmt.Fprintf(stderr, "error: %v\n", searchErr)
		return exitError
	}

	switch opts.format {
	case formatJSON:
		err = writeJSON(stdout, resp)
	default:
		err = writeTable(stdout, resp)
	}
	if err != nil {
		logger.Error("failed to write results", "error", err)
		return exitError
	}
	return exitOK
}

// loadDataset builds the configured source and loads it.
func loadDataset(ctx context.Context, cfg *config.Config) (*dataset.Dataset, error) {
	csvOpts := dataset.CSVOptions{Encoding: cfg.CSVEncoding}

	switch cfg.DataSource {
	case config.SourceS3:
		src, err := dataset.NewS3Source(dataset.S3Config{
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			ProvidersKey:    cfg.S3ProvidersKey,
			CentroidsKey:    cfg.S3CentroidsKey,
			Options:         csvOpts,
		})
		if err != nil {
			return nil, err
		}
		return src.Load(ctx)

	case config.SourcePostgres:
		src, err := dataset.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.Load(ctx)

	default:
		src, err := dataset.NewFileSource(cfg.ProvidersPath, cfg.CentroidsPath, csvOpts)
		if err != nil {
			return nil, err
		}
		return src.Load(ctx)
	}
}

func writeJSON(w io.Writer, resp *search.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func writeTable(w io.Writer, resp *search.Response) error {
	o := resp.Origin
	if o.Fallback {
		fmt.Fprintf(w, "Origin: %s (requested %s, offset %+d)\n", o.PostalCode, o.RequestedPostalCode, o.Offset)
	} else if o.RequestedPostalCode == "" {
		fmt.Fprintf(w, "Origin: %s (nearest centroid, %.1f mi away)\n", o.PostalCode, o.DistanceMiles)
	} else {
		fmt.Fprintf(w, "Origin: %s\n", o.PostalCode)
	}
	fmt.Fprintf(w, "Candidates: %d\n\n", resp.Candidates)

	if len(resp.Results) == 0 {
		_, err := fmt.Fprintln(w, "No providers found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tGENDER\tYEARS\tORGANIZATION\tPHONE\tMILES\tSCORE\tADDRESS")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%.1f\t%d\t%s\n",
			r.Rank, r.Name, r.Gender, r.YearsOfExperience, r.Organization,
			r.Phone, r.DistanceMiles, r.Score, r.Address)
	}
	return tw.Flush()
}

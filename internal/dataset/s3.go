package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// objectGetter is the subset of the S3 client used by S3Source.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for reading the tables from an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Endpoint        string // Optional; empty uses the AWS endpoint for Region
	Region          string // Default: us-east-1
	AccessKeyID     string // Optional; anonymous access when empty
	SecretAccessKey string
	ProvidersKey    string
	CentroidsKey    string
	Options         CSVOptions
}

// S3Source reads the provider and centroid CSV objects from a bucket.
type S3Source struct {
	client objectGetter
	cfg    S3Config
}

// NewS3Source creates an S3Source with a client built from cfg.
func NewS3Source(cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.ProvidersKey == "" {
		return nil, errors.New("providers object key is required")
	}
	if cfg.CentroidsKey == "" {
		return nil, errors.New("centroids object key is required")
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.AnonymousCredentials{},
		UsePathStyle: cfg.Endpoint != "", // S3-compatible stores (MinIO, R2) need path-style addressing
		// Each GET becomes a client span under the table's load span.
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "s3 " + r.Method
				}),
			),
		},
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return newS3Source(s3.New(opts), cfg), nil
}

func newS3Source(client objectGetter, cfg S3Config) *S3Source {
	return &S3Source{client: client, cfg: cfg}
}

// Load downloads and assembles both objects.
func (s *S3Source) Load(ctx context.Context) (*Dataset, error) {
	return loadTables(ctx, "s3",
		func(ctx context.Context) ([]Provider, error) {
			var out []Provider
			err := s.readObject(ctx, s.cfg.ProvidersKey, func(r io.Reader) (err error) {
				out, err = ReadProviders(r)
				return err
			})
			return out, err
		},
		func(ctx context.Context) ([]Centroid, error) {
			var out []Centroid
			err := s.readObject(ctx, s.cfg.CentroidsKey, func(r io.Reader) (err error) {
				out, err = ReadCentroids(r)
				return err
			})
			return out, err
		},
	)
}

func (s *S3Source) readObject(ctx context.Context, key string, parse func(io.Reader) error) error {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	defer obj.Body.Close()

	r, closeFn, err := decode(ctxReader{ctx: ctx, r: obj.Body}, key, s.cfg.Options)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := parse(r); err != nil {
		return fmt.Errorf("failed to parse s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	return nil
}

// Package s3 provides an S3 implementation of the store opener for
// direct in-region granule access.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/polarpath/earthdata/pkg/catalog"
	"github.com/polarpath/earthdata/pkg/credentials"
	"github.com/polarpath/earthdata/pkg/store"
)

// Config holds S3 opener configuration.
type Config struct {
	Region string

	// Endpoint overrides the service endpoint (for non-AWS object
	// stores and tests).
	Endpoint string

	UsePathStyle bool
}

// S3API defines the S3 operations used by the opener. The concrete AWS
// client implements it; tests substitute a mock.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Opener implements store.Opener over S3 direct-access links.
type Opener struct {
	cfg    Config
	client S3API

	// now is swapped in tests to control expiry.
	now func() time.Time
}

// New creates an opener with an existing client.
func New(cfg Config, client S3API) (*Opener, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-west-2"
	}
	return &Opener{cfg: cfg, client: client, now: time.Now}, nil
}

// NewFromCredentials creates an opener with a new client authenticated
// by brokered storage credentials.
func NewFromCredentials(ctx context.Context, cfg Config, creds *credentials.Credentials) (*Opener, error) {
	if creds == nil {
		return nil, fmt.Errorf("storage credentials are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-west-2"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return New(cfg, client)
}

// Name returns the opener name.
func (o *Opener) Name() string {
	return "s3"
}

// Open returns one seekable handle per granule, in input order. Each
// granule must carry a direct object-store link.
func (o *Opener) Open(ctx context.Context, granules []catalog.Granule, creds *credentials.Credentials) ([]store.Handle, error) {
	handles := make([]store.Handle, 0, len(granules))
	for _, g := range granules {
		h, err := o.openOne(ctx, g, creds)
		if err != nil {
			for _, opened := range handles {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("opening granule %s: %w", g.ConceptID, err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (o *Opener) openOne(ctx context.Context, g catalog.Granule, creds *credentials.Credentials) (store.Handle, error) {
	link, ok := g.DirectLink()
	if !ok {
		return nil, store.ErrNoAccessLink
	}
	bucket, key, err := parseS3URL(link.URL)
	if err != nil {
		return nil, err
	}

	head, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, o.classify("head", bucket+"/"+key, err)
	}

	size := g.SizeBytes
	if head.ContentLength != nil {
		size = *head.ContentLength
	}

	return &object{
		opener: o,
		ctx:    ctx,
		creds:  creds,
		bucket: bucket,
		key:    key,
		size:   size,
	}, nil
}

// Close releases resources. Open handles stay usable.
func (o *Opener) Close() error {
	return nil
}

// classify maps service errors, turning authorization failures into
// store.AuthError so callers can distinguish credential expiry.
func (o *Opener) classify(op, obj string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "ExpiredToken", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return &store.AuthError{Op: op, Object: obj, Err: err}
		}
	}
	return fmt.Errorf("%s %s: %w", op, obj, err)
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(raw string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", raw)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 url: %s", raw)
	}
	return parts[0], parts[1], nil
}

// Verify interface compliance.
var _ store.Opener = (*Opener)(nil)

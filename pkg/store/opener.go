package store

import (
	"context"

	"github.com/polarpath/earthdata/pkg/catalog"
	"github.com/polarpath/earthdata/pkg/credentials"
)

// Opener produces seekable handles for granule objects. S3 implements
// this for direct in-region access; the https opener serves download
// gateways.
type Opener interface {
	// Name returns the opener name.
	Name() string

	// Open returns exactly one handle per granule, in input order.
	// Credentials must be unexpired when remote access is attempted;
	// an expired set surfaces as an AuthError on the access, not here.
	Open(ctx context.Context, granules []catalog.Granule, creds *credentials.Credentials) ([]Handle, error)

	// Close releases resources. Handles returned by Open stay usable
	// until individually closed.
	Close() error
}

package platform

import (
	"context"
	"log/slog"

	"github.com/polarpath/earthdata/pkg/auth"
	"github.com/polarpath/earthdata/pkg/catalog"
	"github.com/polarpath/earthdata/pkg/credentials"
	"github.com/polarpath/earthdata/pkg/dataset"
	"github.com/polarpath/earthdata/pkg/store"
)

// TokenIssuer issues session tokens. auth.Client implements it.
type TokenIssuer interface {
	Login(ctx context.Context) (*auth.Session, error)
}

// CredentialFetcher exchanges sessions for storage credentials.
// credentials.Client implements it.
type CredentialFetcher interface {
	Fetch(ctx context.Context, session *auth.Session) (*credentials.Credentials, error)
}

// OpenerFactory builds a store opener once a session and storage
// credentials exist.
type OpenerFactory func(ctx context.Context, session *auth.Session, creds *credentials.Credentials) (store.Opener, error)

// Option customizes platform construction. Used by tests to substitute
// providers.
type Option func(*Platform)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Platform) { p.logger = logger }
}

// WithCatalogProvider substitutes the catalog provider.
func WithCatalogProvider(c catalog.Provider) Option {
	return func(p *Platform) { p.catalog = c }
}

// WithDecoder substitutes the dataset decoder.
func WithDecoder(d dataset.Decoder) Option {
	return func(p *Platform) { p.decoder = d }
}

// WithTokenIssuer substitutes the identity client.
func WithTokenIssuer(i TokenIssuer) Option {
	return func(p *Platform) { p.identity = i }
}

// WithCredentialFetcher substitutes the broker client.
func WithCredentialFetcher(f CredentialFetcher) Option {
	return func(p *Platform) { p.broker = f }
}

// WithOpenerFactory substitutes how store openers are built.
func WithOpenerFactory(f OpenerFactory) Option {
	return func(p *Platform) { p.openerFactory = f }
}

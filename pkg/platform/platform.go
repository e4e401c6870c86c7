package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/polarpath/earthdata/pkg/auth"
	"github.com/polarpath/earthdata/pkg/catalog"
	"github.com/polarpath/earthdata/pkg/catalog/cmr"
	"github.com/polarpath/earthdata/pkg/credentials"
	"github.com/polarpath/earthdata/pkg/dataset"
	"github.com/polarpath/earthdata/pkg/dataset/nc"
	"github.com/polarpath/earthdata/pkg/plot"
	"github.com/polarpath/earthdata/pkg/store"
	storehttps "github.com/polarpath/earthdata/pkg/store/https"
	stores3 "github.com/polarpath/earthdata/pkg/store/s3"
)

// Version is the platform version.
const Version = "0.3.0"

// Platform orchestrates the analysis workflow: authenticate, broker
// storage credentials, search the catalog, open granules, load labeled
// arrays, render. Each step is one synchronous call into its client;
// failures surface directly with no retry.
type Platform struct {
	cfg    Config
	logger *slog.Logger

	identity      TokenIssuer
	broker        CredentialFetcher
	catalog       catalog.Provider
	decoder       dataset.Decoder
	openerFactory OpenerFactory

	lifecycle *Lifecycle

	session *auth.Session
	creds   *credentials.Credentials
	opener  store.Opener
}

// New creates a platform from configuration.
func New(cfg Config, opts ...Option) (*Platform, error) {
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		cfg:       cfg,
		logger:    slog.Default(),
		lifecycle: NewLifecycle(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.buildProviders(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Platform) buildProviders() error {
	if p.identity == nil {
		client, err := auth.New(auth.Config{
			Endpoint:  p.cfg.Auth.Endpoint,
			Username:  p.cfg.Auth.Username,
			Password:  p.cfg.Auth.Password,
			NetrcPath: p.cfg.Auth.NetrcPath,
		})
		if err != nil {
			return fmt.Errorf("building identity client: %w", err)
		}
		p.identity = client
	}

	if p.broker == nil && p.cfg.Credentials.Endpoint != "" {
		client, err := credentials.New(credentials.Config{Endpoint: p.cfg.Credentials.Endpoint})
		if err != nil {
			return fmt.Errorf("building broker client: %w", err)
		}
		p.broker = client
	}

	if p.catalog == nil {
		adapter, err := cmr.New(cmr.Config{
			Endpoint: p.cfg.Catalog.Endpoint,
			ClientID: p.cfg.Catalog.ClientID,
			PageSize: p.cfg.Catalog.PageSize,
			Timeout:  p.cfg.Catalog.Timeout,
		})
		if err != nil {
			return fmt.Errorf("building catalog provider: %w", err)
		}
		p.catalog = adapter
	}
	p.lifecycle.RegisterCloser(p.catalog)

	if p.decoder == nil {
		p.decoder = nc.New()
	}
	p.lifecycle.RegisterCloser(p.decoder)

	if p.openerFactory == nil {
		p.openerFactory = p.defaultOpenerFactory()
	}
	p.lifecycle.OnStop(func(context.Context) error {
		if p.opener == nil {
			return nil
		}
		return p.opener.Close()
	})
	return nil
}

func (p *Platform) defaultOpenerFactory() OpenerFactory {
	switch p.cfg.Store.Provider {
	case "https":
		return func(_ context.Context, session *auth.Session, _ *credentials.Credentials) (store.Opener, error) {
			if session == nil {
				return nil, fmt.Errorf("login required before opening granules")
			}
			if session.Expired(time.Now()) {
				return nil, fmt.Errorf("session expired; login again before opening granules")
			}
			return storehttps.New(storehttps.Config{Token: session.Token})
		}
	default:
		return func(ctx context.Context, _ *auth.Session, creds *credentials.Credentials) (store.Opener, error) {
			if creds == nil {
				return nil, fmt.Errorf("storage credentials required before opening granules")
			}
			return stores3.NewFromCredentials(ctx, stores3.Config{
				Region:       p.cfg.Store.Region,
				Endpoint:     p.cfg.Store.Endpoint,
				UsePathStyle: p.cfg.Store.UsePathStyle,
			}, creds)
		}
	}
}

// Config returns the platform configuration.
func (p *Platform) Config() Config {
	return p.cfg
}

// Session returns the current session, or nil before Login.
func (p *Platform) Session() *auth.Session {
	return p.session
}

// Credentials returns the current storage credentials, or nil before
// FetchCredentials.
func (p *Platform) Credentials() *credentials.Credentials {
	return p.creds
}

// Login authenticates against the identity service and stores the
// session for subsequent steps. A previously built opener is discarded
// so granule access picks up the new session.
func (p *Platform) Login(ctx context.Context) (*auth.Session, error) {
	session, err := p.identity.Login(ctx)
	if err != nil {
		return nil, err
	}
	p.session = session
	p.dropOpener()
	p.logger.Info("authenticated",
		"user", session.UserID,
		"expires", session.ExpiresAt)
	return session, nil
}

// FetchCredentials exchanges the session for temporary storage
// credentials. Credentials are not renewed automatically; call again
// after expiry. A previously built opener is discarded so the next
// OpenGranules signs with the new credentials.
func (p *Platform) FetchCredentials(ctx context.Context) (*credentials.Credentials, error) {
	if p.session == nil {
		return nil, fmt.Errorf("login required before fetching storage credentials")
	}
	if p.session.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired; login again before fetching storage credentials")
	}
	if p.broker == nil {
		return nil, fmt.Errorf("no credential broker configured")
	}
	creds, err := p.broker.Fetch(ctx, p.session)
	if err != nil {
		return nil, err
	}
	p.creds = creds
	p.dropOpener()
	p.logger.Info("storage credentials issued",
		"access_key", creds.AccessKeyID,
		"expires", creds.Expiration)
	return creds, nil
}

// SearchCollections searches the catalog for collections.
func (p *Platform) SearchCollections(ctx context.Context, filter catalog.CollectionFilter) (*catalog.CollectionPage, error) {
	page, err := p.catalog.SearchCollections(ctx, filter)
	if err != nil {
		return nil, err
	}
	p.logger.Info("collection search complete",
		"keyword", filter.Keyword,
		"hits", page.Hits,
		"returned", len(page.Collections))
	return page, nil
}

// SearchGranules searches the catalog for granules.
func (p *Platform) SearchGranules(ctx context.Context, filter catalog.GranuleFilter) (*catalog.GranulePage, error) {
	page, err := p.catalog.SearchGranules(ctx, filter)
	if err != nil {
		return nil, err
	}
	p.logger.Info("granule search complete",
		"hits", page.Hits,
		"returned", len(page.Granules))
	return page, nil
}

// OpenGranules opens one seekable handle per granule, in input order.
// The opener is built lazily from the current session and credentials
// and rebuilt after Login or FetchCredentials installs a new set, so
// re-authentication after expiry is Login/FetchCredentials followed by
// a fresh OpenGranules call.
func (p *Platform) OpenGranules(ctx context.Context, granules []catalog.Granule) ([]store.Handle, error) {
	if p.opener == nil {
		opener, err := p.openerFactory(ctx, p.session, p.creds)
		if err != nil {
			return nil, err
		}
		p.opener = opener
	}
	handles, err := p.opener.Open(ctx, granules, p.creds)
	if err != nil {
		return nil, err
	}
	p.logger.Info("granules opened", "count", len(handles), "opener", p.opener.Name())
	return handles, nil
}

// dropOpener discards the cached opener so the next OpenGranules
// builds one from the current session and credentials. Handles already
// returned stay open.
func (p *Platform) dropOpener() {
	if p.opener == nil {
		return
	}
	if err := p.opener.Close(); err != nil {
		p.logger.Warn("closing stale opener", "error", err)
	}
	p.opener = nil
}

// LoadGroup decodes the subgroup at groupPath from one open handle.
func (p *Platform) LoadGroup(ctx context.Context, h store.Handle, groupPath string) (*dataset.Group, error) {
	started := time.Now()
	g, err := p.decoder.Load(ctx, h, groupPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s from %s: %w", groupPath, h.Name(), err)
	}
	p.logger.Info("group loaded",
		"object", h.Name(),
		"path", g.Path,
		"variables", len(g.Variables),
		"elapsed", time.Since(started))
	return g, nil
}

// RenderScatter renders yName against xName from a loaded group as PNG.
func (p *Platform) RenderScatter(g *dataset.Group, xName, yName string, w io.Writer) error {
	return plot.Render(g, xName, yName, plot.Config{
		WidthInches:  p.cfg.Plot.WidthInches,
		HeightInches: p.cfg.Plot.HeightInches,
	}, w)
}

// Close shuts down all components in reverse construction order.
func (p *Platform) Close() error {
	return p.lifecycle.Stop(context.Background())
}

// Package https provides a store opener over granule download gateways,
// for granules without direct object-store links. Reads use HTTP range
// requests; authentication is the session bearer token, not brokered
// storage credentials.
package https

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/polarpath/earthdata/pkg/catalog"
	"github.com/polarpath/earthdata/pkg/credentials"
	"github.com/polarpath/earthdata/pkg/store"
)

// Config holds https opener configuration.
type Config struct {
	// Token is the session bearer token sent on every request.
	Token string

	// Timeout bounds each request. Defaults to 60s.
	Timeout time.Duration
}

// Opener implements store.Opener over HTTPS download links.
type Opener struct {
	cfg Config
	hc  *http.Client
}

// New creates a new https opener.
func New(cfg Config) (*Opener, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("session token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Opener{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the opener name.
func (o *Opener) Name() string {
	return "https"
}

// Open returns one handle per granule, in input order. The creds
// argument is unused; gateway requests authenticate with the bearer
// token.
func (o *Opener) Open(ctx context.Context, granules []catalog.Granule, _ *credentials.Credentials) ([]store.Handle, error) {
	handles := make([]store.Handle, 0, len(granules))
	for _, g := range granules {
		h, err := o.openOne(ctx, g)
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

func (o *Opener) openOne(ctx context.Context, g catalog.Granule) (store.Handle, error) {
	link, ok := g.DownloadLink()
	if !ok {
		return nil, store.ErrNoAccessLink
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating head request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.Token)

	resp, err := o.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", link.URL, err)
	}
	_ = resp.Body.Close()

	if err := classifyStatus("head", link.URL, resp.StatusCode); err != nil {
		return nil, err
	}

	size := g.SizeBytes
	if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && n > 0 {
		size = n
	}

	return &remote{opener: o, ctx: ctx, url: link.URL, size: size}, nil
}

// Download streams one granule wholesale to w. This is the fallback for
// workflows that cannot read in place.
func (o *Opener) Download(ctx context.Context, g catalog.Granule, w io.Writer) (int64, error) {
	link, ok := g.DownloadLink()
	if !ok {
		return 0, store.ErrNoAccessLink
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.Token)

	resp, err := o.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", link.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus("download", link.URL, resp.StatusCode); err != nil {
		return 0, err
	}
	return io.Copy(w, resp.Body)
}

// Close releases resources.
func (o *Opener) Close() error {
	o.hc.CloseIdleConnections()
	return nil
}

func classifyStatus(op, url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &store.AuthError{Op: op, Object: url, Err: fmt.Errorf("status %d", code)}
	default:
		return fmt.Errorf("%s %s: status %d", op, url, code)
	}
}

// remote is a seekable handle over one gateway URL.
type remote struct {
	opener *Opener
	ctx    context.Context
	url    string
	size   int64

	pos    int64
	closed bool
}

// Name returns the gateway URL.
func (r *remote) Name() string {
	return r.url
}

// Size returns the object size reported at open time.
func (r *remote) Size() int64 {
	return r.size
}

// ReadAt reads len(p) bytes at offset off via an HTTP range request.
func (r *remote) ReadAt(p []byte, off int64) (int, error) {
	if r.closed {
		return 0, store.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s: negative offset", r.url)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= r.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end > r.size-1 {
		end = r.size - 1
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating range request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.opener.cfg.Token)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := r.opener.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus("read", r.url, resp.StatusCode); err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("read %s: server ignored range request", r.url)
	}

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err == nil && int64(n) < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// Read reads from the current position.
func (r *remote) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

// Seek sets the position for the next Read.
func (r *remote) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.pos + offset
	case io.SeekEnd:
		next = r.size + offset
	default:
		return 0, fmt.Errorf("seek %s: invalid whence %d", r.url, whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek %s: negative position", r.url)
	}
	r.pos = next
	return next, nil
}

// Close marks the handle closed.
func (r *remote) Close() error {
	r.closed = true
	return nil
}

// Verify interface compliance.
var _ store.Opener = (*Opener)(nil)
var _ store.Handle = (*remote)(nil)

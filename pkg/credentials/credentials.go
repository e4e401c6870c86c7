// Package credentials exchanges a session bearer token for temporary
// object-storage credentials at a credential broker endpoint.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/polarpath/earthdata/pkg/auth"
)

var (
	// ErrExpired means the storage credentials' expiration timestamp
	// has passed.
	ErrExpired = errors.New("storage credentials expired")

	// ErrTokenRejected means the broker rejected the session token.
	ErrTokenRejected = errors.New("credential broker rejected token")
)

// Credentials is a temporary object-storage key/secret/session triple.
// Immutable once issued; refresh by fetching a new set after expiry.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Expired reports whether the credentials have expired at now.
func (c *Credentials) Expired(now time.Time) bool {
	return !c.Expiration.IsZero() && !now.Before(c.Expiration)
}

// Config configures the broker client.
type Config struct {
	// Endpoint is the broker URL issuing credentials for one cloud
	// provider region, e.g. https://data.nsidc.earthdatacloud.nasa.gov/s3credentials.
	Endpoint string

	// Timeout bounds each broker request. Defaults to 30s.
	Timeout time.Duration
}

// Client fetches temporary storage credentials from a broker.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New creates a new broker client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("credential broker endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Fetch exchanges the session token for storage credentials. A rejected
// or expired session surfaces immediately; no retry is performed.
func (c *Client) Fetch(ctx context.Context, session *auth.Session) (*Credentials, error) {
	if session == nil || session.Token == "" {
		return nil, fmt.Errorf("%w: no session token", ErrTokenRejected)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating broker request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading broker response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrTokenRejected, resp.Status)
	default:
		return nil, fmt.Errorf("broker request failed: %s", resp.Status)
	}

	var issued struct {
		AccessKeyID     string `json:"accessKeyId"`
		SecretAccessKey string `json:"secretAccessKey"`
		SessionToken    string `json:"sessionToken"`
		Expiration      string `json:"expiration"`
	}
	if err := json.Unmarshal(body, &issued); err != nil {
		return nil, fmt.Errorf("parsing broker response: %w", err)
	}
	if issued.AccessKeyID == "" || issued.SecretAccessKey == "" {
		return nil, fmt.Errorf("broker returned incomplete credentials")
	}

	creds := &Credentials{
		AccessKeyID:     issued.AccessKeyID,
		SecretAccessKey: issued.SecretAccessKey,
		SessionToken:    issued.SessionToken,
	}
	exp, err := parseExpiration(issued.Expiration)
	if err != nil {
		return nil, err
	}
	creds.Expiration = exp
	return creds, nil
}

// parseExpiration accepts the timestamp layouts brokers are known to
// emit.
func parseExpiration(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05+00",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing credential expiration %q: unrecognized format", s)
}

// Package auth authenticates against the federated identity service and
// issues session bearer tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Environment variables consulted when no explicit credentials are set.
const (
	EnvUsername = "EARTHDATA_USERNAME"
	EnvPassword = "EARTHDATA_PASSWORD"
)

var (
	// ErrMissingCredentials means no identity credentials could be
	// resolved from config, environment, or netrc.
	ErrMissingCredentials = errors.New("no identity credentials found")

	// ErrInvalidCredentials means the identity service rejected the
	// supplied credentials.
	ErrInvalidCredentials = errors.New("identity service rejected credentials")
)

// Config configures the identity client.
type Config struct {
	// Endpoint is the identity service root, e.g. https://urs.earthdata.nasa.gov.
	Endpoint string

	// Username and Password, when set, take precedence over the
	// environment and the netrc file.
	Username string
	Password string

	// NetrcPath points at a netrc file to consult as the last
	// credential source. Empty means ~/.netrc.
	NetrcPath string

	// Timeout bounds each identity request. Defaults to 30s.
	Timeout time.Duration
}

// Session holds an issued bearer token. Immutable once issued; a new
// session must be obtained after expiry.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the session token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Client issues session tokens from the identity service.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New creates a new identity client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("identity endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Login resolves identity credentials and exchanges them for a session
// bearer token. Invalid credentials surface immediately; no retry is
// performed.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	username, password, err := c.resolveCredentials()
	if err != nil {
		return nil, err
	}

	u := strings.TrimSuffix(c.cfg.Endpoint, "/") + "/api/users/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, resp.Status)
	default:
		return nil, fmt.Errorf("token request failed: %s", resp.Status)
	}

	var issued struct {
		AccessToken    string `json:"access_token"`
		TokenType      string `json:"token_type"`
		ExpirationDate string `json:"expiration_date"`
	}
	if err := json.Unmarshal(body, &issued); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if issued.AccessToken == "" {
		return nil, fmt.Errorf("identity service returned no token")
	}

	return &Session{
		Token:     issued.AccessToken,
		UserID:    username,
		ExpiresAt: tokenExpiry(issued.AccessToken, issued.ExpirationDate),
	}, nil
}

// resolveCredentials picks the first available source: explicit config,
// environment, netrc.
func (c *Client) resolveCredentials() (username, password string, err error) {
	if c.cfg.Username != "" && c.cfg.Password != "" {
		return c.cfg.Username, c.cfg.Password, nil
	}
	if u, p := os.Getenv(EnvUsername), os.Getenv(EnvPassword); u != "" && p != "" {
		return u, p, nil
	}
	host := endpointHost(c.cfg.Endpoint)
	if u, p, ok := netrcLookup(c.cfg.NetrcPath, host); ok {
		return u, p, nil
	}
	return "", "", fmt.Errorf("%w: set %s/%s or add a netrc entry for %s",
		ErrMissingCredentials, EnvUsername, EnvPassword, host)
}

// tokenExpiry determines session expiry, preferring the token's own exp
// claim over the service-reported expiration date. The claim is read
// without signature verification; this client only tracks expiry, it
// does not trust the token for authorization decisions.
func tokenExpiry(token, expirationDate string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	for _, layout := range []string{time.RFC3339, "01/02/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, expirationDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

func endpointHost(endpoint string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

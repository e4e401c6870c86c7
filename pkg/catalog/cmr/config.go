package cmr

import (
	"fmt"
	"time"
)

// Config holds CMR adapter configuration.
type Config struct {
	// Endpoint is the CMR search root, e.g. https://cmr.earthdata.nasa.gov.
	Endpoint string

	// Token is an optional bearer token for authenticated searches.
	Token string

	// ClientID identifies this client to the catalog (Client-Id header).
	ClientID string

	// PageSize is the per-request result count. Defaults to 100,
	// capped at the service maximum of 2000.
	PageSize int

	// Timeout bounds each catalog request. Defaults to 30s.
	Timeout time.Duration
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("cmr endpoint is required")
	}
	if c.ClientID == "" {
		c.ClientID = "earthdata-go"
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// Package platform wires the identity, broker, catalog, store, and
// dataset clients into one analysis workflow.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete platform configuration.
type Config struct {
	Auth        AuthConfig        `yaml:"auth"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Store       StoreConfig       `yaml:"store"`
	Dataset     DatasetConfig     `yaml:"dataset"`
	Plot        PlotConfig        `yaml:"plot"`
}

// AuthConfig configures the identity client.
type AuthConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	NetrcPath string `yaml:"netrc_path"`
}

// CredentialsConfig configures the credential broker client.
type CredentialsConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// CatalogConfig configures the catalog provider.
type CatalogConfig struct {
	Provider string        `yaml:"provider"` // "cmr"
	Endpoint string        `yaml:"endpoint"`
	ClientID string        `yaml:"client_id"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StoreConfig configures the object store opener.
type StoreConfig struct {
	Provider     string `yaml:"provider"` // "s3", "https"
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// DatasetConfig configures the container decoder.
type DatasetConfig struct {
	Decoder string `yaml:"decoder"` // "netcdf"
}

// PlotConfig configures rendering.
type PlotConfig struct {
	WidthInches  float64 `yaml:"width_inches"`
	HeightInches float64 `yaml:"height_inches"`
}

// LoadConfig reads and parses a YAML config file. ${VAR} references are
// expanded from the environment before parsing, so secrets stay out of
// the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.Endpoint == "" {
		cfg.Auth.Endpoint = "https://urs.earthdata.nasa.gov"
	}
	if cfg.Catalog.Provider == "" {
		cfg.Catalog.Provider = "cmr"
	}
	if cfg.Catalog.Endpoint == "" {
		cfg.Catalog.Endpoint = "https://cmr.earthdata.nasa.gov"
	}
	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "s3"
	}
	if cfg.Store.Region == "" {
		cfg.Store.Region = "us-west-2"
	}
	if cfg.Dataset.Decoder == "" {
		cfg.Dataset.Decoder = "netcdf"
	}
}

// Validate checks the configuration, collecting all problems into one
// descriptive error.
func (c *Config) Validate() error {
	var problems []string

	if c.Auth.Endpoint == "" {
		problems = append(problems, "auth.endpoint is required")
	}
	if c.Catalog.Endpoint == "" {
		problems = append(problems, "catalog.endpoint is required")
	}
	switch c.Catalog.Provider {
	case "cmr":
	default:
		problems = append(problems, fmt.Sprintf("unknown catalog provider %q", c.Catalog.Provider))
	}
	switch c.Store.Provider {
	case "s3", "https":
	default:
		problems = append(problems, fmt.Sprintf("unknown store provider %q", c.Store.Provider))
	}
	switch c.Dataset.Decoder {
	case "netcdf":
	default:
		problems = append(problems, fmt.Sprintf("unknown dataset decoder %q", c.Dataset.Decoder))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %v", problems)
	}
	return nil
}

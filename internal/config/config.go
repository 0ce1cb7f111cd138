// Package config loads service configuration from a YAML file, a .env file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given.
const DefaultFile = "config.yaml"

// Environment variables that override file values.
const (
	EnvConfigFile      = "VIDEOHUB_CONFIG"
	EnvCatalogURL      = "VIDEOHUB_CATALOG_URL"
	EnvCatalogFile     = "VIDEOHUB_CATALOG_FILE"
	EnvPort            = "VIDEOHUB_PORT"
	EnvStorePath       = "VIDEOHUB_STORE_PATH"
	EnvRefreshSchedule = "VIDEOHUB_REFRESH_SCHEDULE"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails"`
	Store      StoreConfig      `yaml:"store"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port      string `yaml:"port" env:"VIDEOHUB_PORT"`
	StaticDir string `yaml:"static_dir"`
	// MaxClients caps concurrent non-localhost socket.io clients; 0 = no cap.
	MaxClients int `yaml:"max_clients"`
}

type CatalogConfig struct {
	URL  string `yaml:"url" env:"VIDEOHUB_CATALOG_URL"`
	File string `yaml:"file" env:"VIDEOHUB_CATALOG_FILE"`
	// PreferLocal tries File before URL.
	PreferLocal bool `yaml:"prefer_local"`
}

type ThumbnailsConfig struct {
	Concurrency int           `yaml:"concurrency"`
	MaxBytes    int64         `yaml:"max_bytes"`
	MaxPixels   int64         `yaml:"max_pixels"` // largest decoded image, width*height
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Dedupe      bool          `yaml:"dedupe"`
}

type StoreConfig struct {
	Path string `yaml:"path" env:"VIDEOHUB_STORE_PATH"`
}

type RefreshConfig struct {
	// Schedule is a cron spec with a seconds field. Empty disables refresh.
	Schedule string `yaml:"schedule" env:"VIDEOHUB_REFRESH_SCHEDULE"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "3002"},
		Catalog: CatalogConfig{
			PreferLocal: true,
		},
		Thumbnails: ThumbnailsConfig{
			Concurrency: 8,
			MaxBytes:    10 << 20,
			MaxPixels:   40_000_000,
			Timeout:     30 * time.Second,
			Dedupe:      true,
		},
		Store: StoreConfig{Path: "data/videohub.db"},
	}
}

// Load reads path (or $VIDEOHUB_CONFIG, or config.yaml) on top of the
// defaults and applies environment overrides. A missing default file is not
// an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCatalogURL); v != "" {
		c.Catalog.URL = v
	}
	if v := os.Getenv(EnvCatalogFile); v != "" {
		c.Catalog.File = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Store.Path = v
	}
	if v, ok := os.LookupEnv(EnvRefreshSchedule); ok {
		c.Refresh.Schedule = v
	}
}

// Validate checks the configuration after flag overrides have been applied.
func (c *Config) Validate() error {
	return c.validate()
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port %q (set VIDEOHUB_PORT or server.port)", c.Server.Port)
	}
	if c.Server.MaxClients < 0 {
		return fmt.Errorf("server.max_clients must not be negative, got %d", c.Server.MaxClients)
	}
	if c.Thumbnails.Concurrency < 1 {
		return fmt.Errorf("thumbnails.concurrency must be at least 1, got %d", c.Thumbnails.Concurrency)
	}
	if c.Thumbnails.MaxBytes < 1 {
		return fmt.Errorf("thumbnails.max_bytes must be positive, got %d", c.Thumbnails.MaxBytes)
	}
	if c.Thumbnails.MaxPixels < 1 {
		return fmt.Errorf("thumbnails.max_pixels must be positive, got %d", c.Thumbnails.MaxPixels)
	}
	if c.Thumbnails.Timeout <= 0 {
		return fmt.Errorf("thumbnails.timeout must be positive, got %s", c.Thumbnails.Timeout)
	}
	if c.Thumbnails.RateLimit < 0 {
		return fmt.Errorf("thumbnails.rate_limit must not be negative, got %g", c.Thumbnails.RateLimit)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required (set VIDEOHUB_STORE_PATH or store.path)")
	}
	return nil
}

// HasCatalogSource reports whether a catalog URL or file is configured.
func (c *Config) HasCatalogSource() bool {
	return c.Catalog.URL != "" || c.Catalog.File != ""
}

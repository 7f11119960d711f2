package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config represents the global ~/.kvs/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile" validate:"omitempty,max=64"`
	LogLevel       string `toml:"log_level" validate:"oneof=debug info warn error"`
	// MetricsAddr enables the metrics and health listener when set.
	MetricsAddr string `toml:"metrics_addr" validate:"omitempty,hostname_port"`

	Search    SearchConfig      `toml:"search"`
	Network   NetworkConfig     `toml:"network"`
	Location  LocationConfig    `toml:"location"`
	Files     FilesConfig       `toml:"files"`
	Wikipedia WikipediaConfig   `toml:"wikipedia"`
	Rates     RatesConfig       `toml:"rates"`
	WebSearch []WebSearchEngine `toml:"web_search" validate:"dive"`
	// Holidays lists public holiday dates (YYYY-MM-DD) for PH rules.
	Holidays []string `toml:"holidays" validate:"dive,datetime=2006-01-02"`
}

// SearchConfig tunes the aggregator.
type SearchConfig struct {
	ArticleDelay  Duration `toml:"article_delay"`
	LocationDelay Duration `toml:"location_delay"`
}

// NetworkConfig controls outbound requests.
type NetworkConfig struct {
	Enabled   bool     `toml:"enabled"`
	UserAgent string   `toml:"user_agent" validate:"required"`
	Timeout   Duration `toml:"timeout"`
	CacheTTL  Duration `toml:"cache_ttl"`
	// CacheDir holds the response cache. Empty keeps it in memory.
	CacheDir          string  `toml:"cache_dir"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gt=0"`
	Burst             int     `toml:"burst" validate:"gte=1"`
}

// LocationConfig is the device position used for place search.
type LocationConfig struct {
	Latitude     float64 `toml:"latitude" validate:"latitude"`
	Longitude    float64 `toml:"longitude" validate:"longitude"`
	RadiusMeters int     `toml:"radius_m" validate:"min=100,max=50000"`
	OverpassURL  string  `toml:"overpass_url" validate:"required,url"`
}

// Known reports whether a position is configured.
func (l LocationConfig) Known() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// FilesConfig controls local file search.
type FilesConfig struct {
	Roots      []string `toml:"roots"`
	MaxDepth   int      `toml:"max_depth" validate:"min=1,max=32"`
	MaxResults int      `toml:"max_results" validate:"min=1,max=100"`
}

// WikipediaConfig selects the article source.
type WikipediaConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"`
}

// RatesConfig controls currency rate refreshes.
type RatesConfig struct {
	URL      string   `toml:"url" validate:"required,url"`
	Interval Duration `toml:"interval"`
}

// WebSearchEngine is a web search action template. ${1} in URLTemplate is
// replaced by the query.
type WebSearchEngine struct {
	Name        string `toml:"name" validate:"required"`
	URLTemplate string `toml:"url" validate:"required,contains=${1}"`
}

// Duration is a time.Duration read from strings such as "750ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogLevel: "info",
		Search: SearchConfig{
			ArticleDelay:  Duration{750 * time.Millisecond},
			LocationDelay: Duration{250 * time.Millisecond},
		},
		Network: NetworkConfig{
			Enabled:           true,
			UserAgent:         "kvs/1.0 (+https://github.com/kvaesitso/kvs)",
			Timeout:           Duration{10 * time.Second},
			CacheTTL:          Duration{time.Hour},
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Location: LocationConfig{
			RadiusMeters: 1500,
			OverpassURL:  "https://overpass-api.de/api/interpreter",
		},
		Files: FilesConfig{
			Roots:      []string{home},
			MaxDepth:   6,
			MaxResults: 10,
		},
		Wikipedia: WikipediaConfig{
			BaseURL: "https://en.wikipedia.org",
		},
		Rates: RatesConfig{
			URL:      "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml",
			Interval: Duration{6 * time.Hour},
		},
		WebSearch: []WebSearchEngine{
			{Name: "DuckDuckGo", URLTemplate: "https://duckduckgo.com/?q=${1}"},
		},
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Search.ArticleDelay.Duration < 0, c.Search.LocationDelay.Duration < 0:
		return fmt.Errorf("invalid config: search delays must not be negative")
	case c.Network.Timeout.Duration <= 0:
		return fmt.Errorf("invalid config: network.timeout must be positive")
	case c.Network.CacheTTL.Duration < 0:
		return fmt.Errorf("invalid config: network.cache_ttl must not be negative")
	case c.Rates.Interval.Duration < time.Minute:
		return fmt.Errorf("invalid config: rates.interval must be at least 1m")
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads config from the given path on top of the defaults and
// validates it. Returns an error wrapping fs.ErrNotExist if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to the defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

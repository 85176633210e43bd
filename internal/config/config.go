// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/speech-scraper/internal/crawler"
)

// EnvPrefix namespaces environment overrides, e.g. SCRAPER_SCRAPER_DELAY.
const EnvPrefix = "SCRAPER"

// DefaultBaseURL is the archive the scraper targets.
const DefaultBaseURL = "https://www.presidency.ucsb.edu"

// Config captures all scraper configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Output  OutputConfig  `mapstructure:"output"`
	Filters FiltersConfig `mapstructure:"filters"`
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
}

// ScraperConfig governs the crawl itself.
type ScraperConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	StartURL       string  `mapstructure:"start_url"`
	DelaySeconds   float64 `mapstructure:"delay"`
	Limit          int     `mapstructure:"limit"`
	UserAgent      string  `mapstructure:"user_agent"`
	RespectRobots  bool    `mapstructure:"respect_robots"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	// Headers are sent with every request. Viper lowercases the names;
	// RequestHeaders canonicalizes them again.
	Headers map[string]string `mapstructure:"headers"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Root     string `mapstructure:"root"`
	Override bool   `mapstructure:"override"`
	// Metrics writes a Prometheus textfile next to the artifacts.
	Metrics bool `mapstructure:"metrics"`
}

// FiltersConfig holds the raw include/exclude dictionaries.
type FiltersConfig struct {
	Include map[string][]string `mapstructure:"include"`
	Exclude map[string][]string `mapstructure:"exclude"`
}

// LoggingConfig toggles zap development features and verbosity.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StorageConfig enables mirroring artifacts to a GCS bucket.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig enables mirroring accepted records into Postgres.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"start-url":   "scraper.start_url",
	"delay":       "scraper.delay",
	"limit":       "scraper.limit",
	"log-level":   "logging.level",
	"override":    "output.override",
	"output-root": "output.root",
}

// Load builds a Config from the optional YAML file at path, the environment
// and any flags in flags that were set on the command line. Filter flags are
// merged by the caller through MergeFilters.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.base_url", DefaultBaseURL)
	v.SetDefault("scraper.start_url", DefaultBaseURL+"/advanced-search")
	v.SetDefault("scraper.delay", 1.0)
	v.SetDefault("scraper.limit", crawler.NoLimit)
	v.SetDefault("scraper.user_agent", "speech-scraper/0.1")
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("output.root", ".")
	v.SetDefault("output.override", false)
	v.SetDefault("output.metrics", true)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("storage.prefix", "speech-scraper")
	v.SetDefault("db.table", "speech_records")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validateStartURL(c.Scraper.BaseURL, c.Scraper.StartURL); err != nil {
		return err
	}
	if c.Scraper.DelaySeconds < 0 || math.IsNaN(c.Scraper.DelaySeconds) {
		return fmt.Errorf("scraper.delay must be >= 0")
	}
	if c.Scraper.Limit < crawler.NoLimit {
		return fmt.Errorf("scraper.limit must be >= -1")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	for name := range c.Scraper.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " :\t\r\n") {
			return fmt.Errorf("scraper.headers: invalid header name %q", name)
		}
	}
	if strings.TrimSpace(c.Output.Root) == "" {
		return fmt.Errorf("output.root must be set")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if c.DB.DSN != "" && !validIdentifier(c.DB.Table) {
		return fmt.Errorf("db.table %q is not a valid table name", c.DB.Table)
	}
	if _, err := c.FilterSpec(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	return nil
}

func validateStartURL(base, start string) error {
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return fmt.Errorf("scraper.base_url %q must be an absolute URL", base)
	}
	startURL, err := url.Parse(start)
	if err != nil {
		return fmt.Errorf("scraper.start_url: %w", err)
	}
	if startURL.Scheme != "http" && startURL.Scheme != "https" {
		return fmt.Errorf("scraper.start_url %q must be an http(s) URL", start)
	}
	if !strings.EqualFold(startURL.Host, baseURL.Host) {
		return fmt.Errorf("scraper.start_url %q does not match base url %s", start, base)
	}
	return nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Delay converts the configured seconds into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Scraper.DelaySeconds * float64(time.Second))
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// RequestHeaders returns the configured extra request headers, or nil.
func (c Config) RequestHeaders() http.Header {
	if len(c.Scraper.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(c.Scraper.Headers))
	for name, value := range c.Scraper.Headers {
		h.Set(name, value)
	}
	return h
}

// FilterSpec validates the configured dictionaries into rules.
func (c Config) FilterSpec() (*crawler.FilterSpec, error) {
	spec, err := crawler.NewFilterSpec(c.Filters.Include, c.Filters.Exclude)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// ErrInvalidFilterFlag reports a --include/--exclude value without "key=value".
var ErrInvalidFilterFlag = errors.New("filter flag must look like key=value")

// MergeFilters adds repeated key=value flag values to the configured filters
// and revalidates them.
func (c *Config) MergeFilters(include, exclude []string) error {
	var err error
	if c.Filters.Include, err = mergePairs(c.Filters.Include, include); err != nil {
		return fmt.Errorf("include: %w", err)
	}
	if c.Filters.Exclude, err = mergePairs(c.Filters.Exclude, exclude); err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	if _, err := c.FilterSpec(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	return nil
}

func mergePairs(dst map[string][]string, pairs []string) (map[string][]string, error) {
	if len(pairs) == 0 {
		return dst, nil
	}
	if dst == nil {
		dst = make(map[string][]string, len(pairs))
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q: %w", p, ErrInvalidFilterFlag)
		}
		dst[key] = append(dst[key], value)
	}
	return dst, nil
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for the isnad scraper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Delay   DelayConfig   `mapstructure:"delay"   yaml:"delay"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Mongo   MongoConfig   `mapstructure:"mongo"   yaml:"mongo"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SiteConfig locates the library pages and the reference API.
type SiteConfig struct {
	BaseURL     string `mapstructure:"base_url"     yaml:"base_url"`
	ContentPath string `mapstructure:"content_path" yaml:"content_path"`
	APIPath     string `mapstructure:"api_path"     yaml:"api_path"`
}

// APIBase is the prefix that narrator, verse and subject fragments are
// resolved against.
func (s SiteConfig) APIBase() string {
	return strings.TrimRight(s.BaseURL, "/") + s.APIPath
}

// PageURL returns the content page URL of a book page.
func (s SiteConfig) PageURL(book, page int) string {
	return fmt.Sprintf("%s%s%d/%d/", strings.TrimRight(s.BaseURL, "/"), s.ContentPath, book, page)
}

// Absolute resolves a site-relative href. Empty and "N/A" hrefs map to
// fallback.
func (s SiteConfig) Absolute(href, fallback string) string {
	if href == "" || href == "N/A" {
		return fallback
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(s.BaseURL, "/") + href
}

// ScraperConfig selects the book and drives page segmentation.
type ScraperConfig struct {
	BookID               int      `mapstructure:"book_id"                yaml:"book_id"`
	BaseName             string   `mapstructure:"base_name"              yaml:"base_name"`
	StartPage            int      `mapstructure:"start_page"             yaml:"start_page"`
	EndPage              int      `mapstructure:"end_page"               yaml:"end_page"`
	ContainerID          string   `mapstructure:"container_id"           yaml:"container_id"`
	VocalizedContainerID string   `mapstructure:"vocalized_container_id" yaml:"vocalized_container_id"`
	Marker               string   `mapstructure:"marker"                 yaml:"marker"`
	HadithPadding        int      `mapstructure:"hadith_padding"         yaml:"hadith_padding"`
	ModalClasses         []string `mapstructure:"modal_classes"          yaml:"modal_classes"`
	SkipSaved            bool     `mapstructure:"skip_saved"             yaml:"skip_saved"`
	Humanize             bool     `mapstructure:"humanize"               yaml:"humanize"`
}

// FetcherConfig controls page and API fetching.
type FetcherConfig struct {
	Type        string        `mapstructure:"type"          yaml:"type"`
	Headless    bool          `mapstructure:"headless"      yaml:"headless"`
	Stealth     bool          `mapstructure:"stealth"       yaml:"stealth"`
	Timeout     time.Duration `mapstructure:"timeout"       yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"   yaml:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"   yaml:"retry_delay"`
	RateLimit   float64       `mapstructure:"rate_limit"    yaml:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"    yaml:"rate_burst"`
	MaxBodySize int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
	ModalWait   time.Duration `mapstructure:"modal_wait"    yaml:"modal_wait"`
	UserAgents  []string      `mapstructure:"user_agents"   yaml:"user_agents"`
}

// DelayConfig shapes the pause between page fetches.
type DelayConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Mean    time.Duration `mapstructure:"mean"    yaml:"mean"`
	StdDev  time.Duration `mapstructure:"stddev"  yaml:"stddev"`
	Min     time.Duration `mapstructure:"min"     yaml:"min"`
	Max     time.Duration `mapstructure:"max"     yaml:"max"`
}

// StorageConfig controls where output is written.
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// MongoConfig is the export target of `isnad export`.
type MongoConfig struct {
	URI      string `mapstructure:"uri"      yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:     "https://www.islamweb.net",
			ContentPath: "/ar/library/content/",
			APIPath:     "/ar/library/maktaba/",
		},
		Scraper: ScraperConfig{
			BookID:               1681,
			BaseName:             "bukhari",
			StartPage:            1,
			EndPage:              1,
			ContainerID:          "pagebody",
			VocalizedContainerID: "pagebody_thaskeel",
			Marker:               "ح وَحَدَّثَنَا",
			HadithPadding:        5,
			SkipSaved:            true,
			Humanize:             true,
		},
		Fetcher: FetcherConfig{
			Type:        "browser",
			Headless:    true,
			Stealth:     true,
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			RetryDelay:  1 * time.Second,
			RateLimit:   1,
			RateBurst:   1,
			MaxBodySize: 10 * 1024 * 1024, // 10MB
			ModalWait:   2 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Delay: DelayConfig{
			Enabled: true,
			Mean:    5 * time.Second,
			StdDev:  2 * time.Second,
			Min:     1 * time.Second,
			Max:     10 * time.Second,
		},
		Storage: StorageConfig{
			OutputDir: "./data",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "isnad",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}

	if cfg.Scraper.BookID < 1 {
		return fmt.Errorf("scraper.book_id must be >= 1, got %d", cfg.Scraper.BookID)
	}
	if cfg.Scraper.BaseName == "" {
		return fmt.Errorf("scraper.base_name must not be empty")
	}
	if cfg.Scraper.StartPage < 1 {
		return fmt.Errorf("scraper.start_page must be >= 1, got %d", cfg.Scraper.StartPage)
	}
	if cfg.Scraper.EndPage < cfg.Scraper.StartPage {
		return fmt.Errorf("scraper.end_page (%d) must be >= scraper.start_page (%d)", cfg.Scraper.EndPage, cfg.Scraper.StartPage)
	}
	if cfg.Scraper.ContainerID == "" {
		return fmt.Errorf("scraper.container_id must not be empty")
	}
	if cfg.Scraper.Marker == "" {
		return fmt.Errorf("scraper.marker must not be empty")
	}
	if cfg.Scraper.HadithPadding < 1 || cfg.Scraper.HadithPadding > 10 {
		return fmt.Errorf("scraper.hadith_padding must be 1-10, got %d", cfg.Scraper.HadithPadding)
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxRetries < 1 {
		return fmt.Errorf("fetcher.max_retries must be >= 1, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.RetryDelay < 0 {
		return fmt.Errorf("fetcher.retry_delay must be >= 0")
	}
	if cfg.Fetcher.RateLimit < 0 {
		return fmt.Errorf("fetcher.rate_limit must be >= 0, got %g", cfg.Fetcher.RateLimit)
	}
	if cfg.Fetcher.RateLimit > 0 && cfg.Fetcher.RateBurst < 1 {
		return fmt.Errorf("fetcher.rate_burst must be >= 1 when rate_limit is set")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}

	if cfg.Delay.Enabled {
		if cfg.Delay.Min < 0 || cfg.Delay.Max < cfg.Delay.Min {
			return fmt.Errorf("delay bounds must satisfy 0 <= min <= max, got [%s, %s]", cfg.Delay.Min, cfg.Delay.Max)
		}
		if cfg.Delay.StdDev < 0 {
			return fmt.Errorf("delay.stddev must be >= 0")
		}
	}

	if cfg.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks that a URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

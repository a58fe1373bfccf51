package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults. CLI flags
// are applied on top by the command.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("ISNAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("isnad")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".isnad"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Dump renders the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// setDefaults registers default values in viper so env vars can override
// keys that are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	v.SetDefault("site.content_path", cfg.Site.ContentPath)
	v.SetDefault("site.api_path", cfg.Site.APIPath)

	v.SetDefault("scraper.book_id", cfg.Scraper.BookID)
	v.SetDefault("scraper.base_name", cfg.Scraper.BaseName)
	v.SetDefault("scraper.start_page", cfg.Scraper.StartPage)
	v.SetDefault("scraper.end_page", cfg.Scraper.EndPage)
	v.SetDefault("scraper.container_id", cfg.Scraper.ContainerID)
	v.SetDefault("scraper.vocalized_container_id", cfg.Scraper.VocalizedContainerID)
	v.SetDefault("scraper.marker", cfg.Scraper.Marker)
	v.SetDefault("scraper.hadith_padding", cfg.Scraper.HadithPadding)
	v.SetDefault("scraper.modal_classes", cfg.Scraper.ModalClasses)
	v.SetDefault("scraper.skip_saved", cfg.Scraper.SkipSaved)
	v.SetDefault("scraper.humanize", cfg.Scraper.Humanize)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.headless", cfg.Fetcher.Headless)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)
	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.rate_limit", cfg.Fetcher.RateLimit)
	v.SetDefault("fetcher.rate_burst", cfg.Fetcher.RateBurst)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.modal_wait", cfg.Fetcher.ModalWait)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)

	v.SetDefault("delay.enabled", cfg.Delay.Enabled)
	v.SetDefault("delay.mean", cfg.Delay.Mean)
	v.SetDefault("delay.stddev", cfg.Delay.StdDev)
	v.SetDefault("delay.min", cfg.Delay.Min)
	v.SetDefault("delay.max", cfg.Delay.Max)

	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)

	v.SetDefault("mongo.uri", cfg.Mongo.URI)
	v.SetDefault("mongo.database", cfg.Mongo.Database)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

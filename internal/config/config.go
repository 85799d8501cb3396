// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	ProductURLs   []string `mapstructure:"productUrls"`
	SellerHandles []string `mapstructure:"sellerHandles"`
	Keywords      []string `mapstructure:"keywords"`
	CategoryURLs  []string `mapstructure:"categoryUrls"`

	Region         string `mapstructure:"region"`
	AcceptLanguage string `mapstructure:"acceptLanguage"`
	UserAgent      string `mapstructure:"userAgent"`

	MaxConcurrency       int  `mapstructure:"maxConcurrency"`
	MaxAttempts          int  `mapstructure:"maxAttempts"`
	IncludeCreatorVideos bool `mapstructure:"includeCreatorVideos"`
	CaptureScreenshots   bool `mapstructure:"captureScreenshots"`
	Debug                bool `mapstructure:"debug"`

	Limits    LimitsConfig    `mapstructure:"limits"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Server    ServerConfig    `mapstructure:"server"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
	Seeds     SeedsConfig     `mapstructure:"seeds"`
}

// LimitsConfig caps product discovery. Zero means unlimited.
type LimitsConfig struct {
	MaxProducts            int `mapstructure:"maxProducts"`
	MaxProductsPerSeller   int `mapstructure:"maxProductsPerSeller"`
	MaxProductsPerCategory int `mapstructure:"maxProductsPerCategory"`
}

// TimeoutsConfig holds second-granularity operation deadlines.
type TimeoutsConfig struct {
	NavigationTimeoutSecs int `mapstructure:"navigationTimeoutSecs"`
	SinkTimeoutSecs       int `mapstructure:"sinkTimeoutSecs"`
}

// SinkConfig describes one notification destination.
type SinkConfig struct {
	Type string `mapstructure:"type"`
	URL  string `mapstructure:"url"`
}

// NotifyConfig gates notification dispatch.
type NotifyConfig struct {
	Enabled      bool         `mapstructure:"enabled"`
	OnlyOnChange bool         `mapstructure:"onlyOnChange"`
	Sinks        []SinkConfig `mapstructure:"sinks"`
}

// HeadlessConfig configures the rendering browser.
type HeadlessConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxParallel int  `mapstructure:"maxParallel"`
}

// ProxyConfig lists proxies handed out round-robin.
type ProxyConfig struct {
	URLs []string `mapstructure:"urls"`
}

// StorageConfig selects and configures the snapshot/screenshot store.
type StorageConfig struct {
	// Backend is one of memory, local, gcs, postgres.
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"baseDir"`
	GCSBucket string `mapstructure:"gcsBucket"`
	GCSPrefix string `mapstructure:"gcsPrefix"`
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"projectId"`
	TopicName string `mapstructure:"topicName"`
}

// ServerConfig controls the status API server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatasetConfig locates the output dataset.
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// SelectorsConfig carries the site-specific query hooks.
type SelectorsConfig struct {
	ProductLinks    string `mapstructure:"productLinks"`
	StateExpression string `mapstructure:"stateExpression"`
	StateSelector   string `mapstructure:"stateSelector"`
}

// SeedsConfig expands handles and keywords into start URLs.
type SeedsConfig struct {
	SellerURLTemplate  string `mapstructure:"sellerUrlTemplate"`
	KeywordURLTemplate string `mapstructure:"keywordUrlTemplate"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
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
	v.SetDefault("maxConcurrency", 4)
	v.SetDefault("maxAttempts", 3)
	v.SetDefault("acceptLanguage", "en-US")
	v.SetDefault("userAgent", "catalog-crawler/0.1")
	v.SetDefault("timeouts.navigationTimeoutSecs", 30)
	v.SetDefault("timeouts.sinkTimeoutSecs", 10)
	v.SetDefault("notify.onlyOnChange", true)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.maxParallel", 4)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.table", "catalog_kv")
	v.SetDefault("server.port", 8080)
	v.SetDefault("dataset.path", "catalog-records.jsonl")
	v.SetDefault("selectors.productLinks", `a[href*="/product"]`)
	v.SetDefault("seeds.sellerUrlTemplate", "https://www.example.com/@%s")
	v.SetDefault("seeds.keywordUrlTemplate", "https://www.example.com/search?q=%s")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("maxConcurrency must be > 0")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("maxAttempts must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.maxParallel must be > 0 when headless is enabled")
	}
	switch c.Storage.Backend {
	case "memory":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.baseDir must be set for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcsBucket must be set for the gcs backend")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	for i, sink := range c.Notify.Sinks {
		switch sink.Type {
		case "webhook", "chat":
			if sink.URL == "" {
				return fmt.Errorf("notify.sinks[%d].url must be set", i)
			}
		default:
			return fmt.Errorf("notify.sinks[%d].type %q is not supported", i, sink.Type)
		}
	}
	return nil
}

// NavigationTimeout converts the configured deadline into a duration.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Timeouts.NavigationTimeoutSecs) * time.Second
}

// SinkTimeout converts the configured sink deadline into a duration.
func (c Config) SinkTimeout() time.Duration {
	return time.Duration(c.Timeouts.SinkTimeoutSecs) * time.Second
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Storage StorageConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	Render  RenderConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// CacheConfig holds memoization settings shared by the three caches
type CacheConfig struct {
	TTL      time.Duration
	Capacity int
}

// RedisConfig holds the optional second-level article text store
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds history ledger and artifact settings
type StorageConfig struct {
	// HistoryDriver selects the ledger backend: memory or sqlite
	HistoryDriver string
	// HistoryPath is the SQLite file used when the driver is sqlite
	HistoryPath string
	// DownloadDir is the single directory rendered PDFs live in
	DownloadDir string
}

// BrowserConfig holds shared rendering browser settings
type BrowserConfig struct {
	RemoteURL      string
	Headless       bool
	DisableGPU     bool
	NoSandbox      bool
	StartupTimeout time.Duration
}

// ScraperConfig holds register and commentary client settings
type ScraperConfig struct {
	RegisterBaseURL   string
	CommentaryBaseURL string
	Timeout           time.Duration
	UserAgent         string
}

// RenderConfig holds PDF export settings
type RenderConfig struct {
	Timeout         time.Duration
	Scale           float64
	PrintBackground bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with VISUALEX_ prefix (e.g. VISUALEX_REDIS_HOST)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("VISUALEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Boolean defaults go through viper so an explicit false in the
	// file or environment is distinguishable from an unset key.
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Cache: CacheConfig{
			TTL:      v.GetDuration("cache.ttl"),
			Capacity: v.GetInt("cache.capacity"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			HistoryDriver: v.GetString("storage.history_driver"),
			HistoryPath:   v.GetString("storage.history_path"),
			DownloadDir:   v.GetString("storage.download_dir"),
		},
		Browser: BrowserConfig{
			RemoteURL:      v.GetString("browser.remote_url"),
			Headless:       v.GetBool("browser.headless"),
			DisableGPU:     v.GetBool("browser.disable_gpu"),
			NoSandbox:      v.GetBool("browser.no_sandbox"),
			StartupTimeout: v.GetDuration("browser.startup_timeout"),
		},
		Scraper: ScraperConfig{
			RegisterBaseURL:   v.GetString("scraper.register_base_url"),
			CommentaryBaseURL: v.GetString("scraper.commentary_base_url"),
			Timeout:           v.GetDuration("scraper.timeout"),
			UserAgent:         v.GetString("scraper.user_agent"),
		},
		Render: RenderConfig{
			Timeout:         v.GetDuration("render.timeout"),
			Scale:           v.GetFloat64("render.scale"),
			PrintBackground: v.GetBool("render.print_background"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "visualex"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Renders can take a while; the write timeout must outlive them.
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 100
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Storage.HistoryDriver == "" {
		cfg.Storage.HistoryDriver = "memory"
	}
	if cfg.Storage.HistoryPath == "" {
		cfg.Storage.HistoryPath = "history.db"
	}
	if cfg.Storage.DownloadDir == "" {
		cfg.Storage.DownloadDir = "download"
	}
	if cfg.Browser.StartupTimeout == 0 {
		cfg.Browser.StartupTimeout = 30 * time.Second
	}
	if cfg.Scraper.Timeout == 0 {
		cfg.Scraper.Timeout = 20 * time.Second
	}
	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = "VisuaLex/1.0"
	}
	if cfg.Render.Timeout == 0 {
		cfg.Render.Timeout = 30 * time.Second
	}
	if cfg.Render.Scale == 0 {
		cfg.Render.Scale = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity cannot be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	switch c.Storage.HistoryDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.history_driver must be memory or sqlite, got %q", c.Storage.HistoryDriver)
	}
	if c.App.Env == "production" && c.Log.Format == "console" {
		return fmt.Errorf("log.format should be json in production")
	}
	return nil
}

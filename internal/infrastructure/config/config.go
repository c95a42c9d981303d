package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Redis        RedisConfig
	Cache        CacheConfig
	JWT          JWTConfig
	WooCommerce  WooCommerceConfig
	TBank        TBankConfig
	Subscription SubscriptionConfig
	Scheduler    SchedulerConfig
	Address      AddressConfig
	Metrics      MetricsConfig
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
	Dir    string // directory for log files, created at startup
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds cache TTL settings
type CacheConfig struct {
	CatalogTTL      time.Duration // products grouped by category
	SearchTTL       time.Duration // search result sets
	CartTTL         time.Duration // cached cart contents
	CartTokenTTL    time.Duration // Store API cart tokens
	AddressTTL      time.Duration // delivery address list
	AutocompleteTTL time.Duration // autocomplete index
	InvalidationCh  string        // pub/sub channel for cross-instance invalidation
}

// JWTConfig holds settings for validating store-issued tokens
type JWTConfig struct {
	Secret    string
	Algorithm string
}

// WooCommerceConfig holds upstream store API settings
type WooCommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	AuthKey        string // shared key for the Simple JWT Login plugin
	RequestTimeout time.Duration
}

// TBankConfig holds payment gateway settings
type TBankConfig struct {
	BaseURL          string
	TerminalKey      string
	Password         string
	NotificationURL  string
	MembershipAmount string // plan price in rubles, decimal string
	RequestTimeout   time.Duration
}

// SubscriptionConfig holds the external subscription service settings
type SubscriptionConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// SchedulerConfig holds background refresh job configuration
type SchedulerConfig struct {
	Enabled              bool
	CatalogInterval      time.Duration // full catalog + per-category refresh
	AutocompleteInterval time.Duration // autocomplete index rebuild
	LockTTL              time.Duration // distributed lock TTL per run
	LockedRetryInterval  time.Duration // sleep when another instance holds the lock
	JobTimeout           time.Duration
}

// AddressConfig holds delivery address list configuration
type AddressConfig struct {
	FilePath string
}

// MetricsConfig holds Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g. STOREFRONT_WOOCOMMERCE_CONSUMER_KEY)
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

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
			Dir:    v.GetString("log.dir"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			CatalogTTL:      v.GetDuration("cache.catalog_ttl"),
			SearchTTL:       v.GetDuration("cache.search_ttl"),
			CartTTL:         v.GetDuration("cache.cart_ttl"),
			CartTokenTTL:    v.GetDuration("cache.cart_token_ttl"),
			AddressTTL:      v.GetDuration("cache.address_ttl"),
			AutocompleteTTL: v.GetDuration("cache.autocomplete_ttl"),
			InvalidationCh:  v.GetString("cache.invalidation_channel"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			Algorithm: v.GetString("jwt.algorithm"),
		},
		WooCommerce: WooCommerceConfig{
			BaseURL:        v.GetString("woocommerce.base_url"),
			ConsumerKey:    v.GetString("woocommerce.consumer_key"),
			ConsumerSecret: v.GetString("woocommerce.consumer_secret"),
			AuthKey:        v.GetString("woocommerce.auth_key"),
			RequestTimeout: v.GetDuration("woocommerce.request_timeout"),
		},
		TBank: TBankConfig{
			BaseURL:          v.GetString("tbank.base_url"),
			TerminalKey:      v.GetString("tbank.terminal_key"),
			Password:         v.GetString("tbank.password"),
			NotificationURL:  v.GetString("tbank.notification_url"),
			MembershipAmount: v.GetString("tbank.membership_amount"),
			RequestTimeout:   v.GetDuration("tbank.request_timeout"),
		},
		Subscription: SubscriptionConfig{
			BaseURL:        v.GetString("subscription.base_url"),
			RequestTimeout: v.GetDuration("subscription.request_timeout"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("scheduler.enabled"),
			CatalogInterval:      v.GetDuration("scheduler.catalog_interval"),
			AutocompleteInterval: v.GetDuration("scheduler.autocomplete_interval"),
			LockTTL:              v.GetDuration("scheduler.lock_ttl"),
			LockedRetryInterval:  v.GetDuration("scheduler.locked_retry_interval"),
			JobTimeout:           v.GetDuration("scheduler.job_timeout"),
		},
		Address: AddressConfig{
			FilePath: v.GetString("address.file_path"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
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
		cfg.App.Name = "storefront-api"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
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
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, cart and auth payloads are small
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.CatalogTTL == 0 {
		cfg.Cache.CatalogTTL = time.Hour
	}
	if cfg.Cache.SearchTTL == 0 {
		cfg.Cache.SearchTTL = time.Hour
	}
	if cfg.Cache.CartTTL == 0 {
		cfg.Cache.CartTTL = 5 * time.Minute
	}
	if cfg.Cache.CartTokenTTL == 0 {
		cfg.Cache.CartTokenTTL = time.Hour
	}
	if cfg.Cache.AddressTTL == 0 {
		cfg.Cache.AddressTTL = time.Hour
	}
	if cfg.Cache.AutocompleteTTL == 0 {
		cfg.Cache.AutocompleteTTL = time.Hour
	}
	if cfg.Cache.InvalidationCh == "" {
		cfg.Cache.InvalidationCh = "cache:invalidate"
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.WooCommerce.RequestTimeout == 0 {
		cfg.WooCommerce.RequestTimeout = 30 * time.Second
	}
	if cfg.TBank.BaseURL == "" {
		cfg.TBank.BaseURL = "https://securepay.tinkoff.ru"
	}
	if cfg.TBank.RequestTimeout == 0 {
		cfg.TBank.RequestTimeout = 30 * time.Second
	}
	if cfg.TBank.MembershipAmount == "" {
		cfg.TBank.MembershipAmount = "990"
	}
	if cfg.Subscription.RequestTimeout == 0 {
		cfg.Subscription.RequestTimeout = 10 * time.Second
	}
	if cfg.Scheduler.CatalogInterval == 0 {
		cfg.Scheduler.CatalogInterval = time.Hour
	}
	if cfg.Scheduler.AutocompleteInterval == 0 {
		cfg.Scheduler.AutocompleteInterval = 30 * time.Minute
	}
	if cfg.Scheduler.LockTTL == 0 {
		cfg.Scheduler.LockTTL = 10 * time.Minute
	}
	if cfg.Scheduler.LockedRetryInterval == 0 {
		cfg.Scheduler.LockedRetryInterval = 30 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Address.FilePath == "" {
		cfg.Address.FilePath = "addresses.txt"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.JWT.Algorithm != "HS256" {
		return fmt.Errorf("jwt.algorithm %q is not supported, only HS256 tokens are issued by the store", c.JWT.Algorithm)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if c.WooCommerce.BaseURL == "" {
			return fmt.Errorf("woocommerce.base_url is required in production")
		}
		if c.WooCommerce.ConsumerKey == "" || c.WooCommerce.ConsumerSecret == "" {
			return fmt.Errorf("woocommerce consumer credentials are required in production")
		}
		if c.TBank.TerminalKey == "" || c.TBank.Password == "" {
			return fmt.Errorf("tbank terminal credentials are required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// Addr returns the Redis connection address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

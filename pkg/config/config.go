package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:stockwatch.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Finnhub FinnhubConfig `yaml:"finnhub" json:"finnhub" jsonschema:"description=Market data API configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for digest summaries"`

	SMTP SMTPConfig `yaml:"smtp" json:"smtp" jsonschema:"description=SMTP configuration for outgoing email"`

	Digest DigestConfig `yaml:"digest" json:"digest" jsonschema:"description=Daily digest scheduling"`

	RateLimits RateLimitsConfig `yaml:"rate_limits" json:"rate_limits" jsonschema:"description=Per-purpose rate limit windows"`
}

// FinnhubConfig holds upstream news/quote API settings
type FinnhubConfig struct {
	BaseURL  string        `yaml:"base_url" json:"base_url" jsonschema:"default=https://finnhub.io/api/v1,description=Finnhub API base URL"`
	APIKey   string        `yaml:"api_key" json:"api_key" jsonschema:"required,description=Finnhub API token (can use environment variable)"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Per-request timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" jsonschema:"default=1h,description=News response cache TTL"`
}

// LLMConfig holds LLM configuration for digest summary generation
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint (default OpenAI)"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"required,description=Model name (e.g. gpt-4o-mini)"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=800,description=Maximum tokens in response"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries" jsonschema:"default=2,description=Extra attempts on rate-limit responses"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=2s,description=Initial backoff delay for rate-limit retries"`
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host" jsonschema:"required,description=SMTP server host"`
	Port     int    `yaml:"port" json:"port" jsonschema:"default=587,description=SMTP server port"`
	User     string `yaml:"user" json:"user" jsonschema:"description=SMTP username"`
	Password string `yaml:"password" json:"password" jsonschema:"description=SMTP password (can use environment variable)"`
	From     string `yaml:"from" json:"from" jsonschema:"required,description=From address for outgoing mail"`

	// pointer so an omitted key keeps the documented enabled-by-default
	Enabled *bool `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Disable to log instead of sending"`
}

// Disabled reports whether outgoing mail is explicitly turned off; an unset
// enabled flag means mail stays on
func (s SMTPConfig) Disabled() bool {
	return s.Enabled != nil && !*s.Enabled
}

// DigestConfig holds daily digest scheduling settings
type DigestConfig struct {
	// pointer so hour 0 (midnight UTC) is distinguishable from an omitted key
	Hour       *int `yaml:"hour" json:"hour" jsonschema:"default=12,minimum=0,maximum=23,description=UTC hour of the daily digest run"`
	MaxWorkers int  `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,description=Maximum concurrent per-user pipelines"`
}

// RateLimitWindow is a single (max requests, window) pair
type RateLimitWindow struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests" jsonschema:"description=Requests allowed per window"`
	Window      time.Duration `yaml:"window" json:"window" jsonschema:"description=Window duration"`
}

// RateLimitsConfig holds the named rate limit tiers, each with its own keyspace
type RateLimitsConfig struct {
	API      RateLimitWindow `yaml:"api" json:"api" jsonschema:"description=General API endpoints"`
	Strict   RateLimitWindow `yaml:"strict" json:"strict" jsonschema:"description=Sensitive operations"`
	Generous RateLimitWindow `yaml:"generous" json:"generous" jsonschema:"description=High-volume endpoints"`
	Auth     RateLimitWindow `yaml:"auth" json:"auth" jsonschema:"description=Authentication attempts"`
	Quote    RateLimitWindow `yaml:"quote" json:"quote" jsonschema:"description=Quote endpoint"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values with defaults
func (c *Config) setDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "file:stockwatch.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	if c.Finnhub.BaseURL == "" {
		c.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Finnhub.Timeout == 0 {
		c.Finnhub.Timeout = 10 * time.Second
	}
	if c.Finnhub.CacheTTL == 0 {
		c.Finnhub.CacheTTL = time.Hour
	}

	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.RetryDelay == 0 {
		c.LLM.RetryDelay = 2 * time.Second
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.Enabled == nil {
		enabled := true
		c.SMTP.Enabled = &enabled
	}

	if c.Digest.Hour == nil {
		hour := 12
		c.Digest.Hour = &hour
	}
	if c.Digest.MaxWorkers == 0 {
		c.Digest.MaxWorkers = 5
	}

	// tier values mirror the original deployment limits
	if c.RateLimits.API.MaxRequests == 0 {
		c.RateLimits.API = RateLimitWindow{MaxRequests: 100, Window: time.Hour}
	}
	if c.RateLimits.Strict.MaxRequests == 0 {
		c.RateLimits.Strict = RateLimitWindow{MaxRequests: 10, Window: time.Hour}
	}
	if c.RateLimits.Generous.MaxRequests == 0 {
		c.RateLimits.Generous = RateLimitWindow{MaxRequests: 1000, Window: time.Hour}
	}
	if c.RateLimits.Auth.MaxRequests == 0 {
		c.RateLimits.Auth = RateLimitWindow{MaxRequests: 5, Window: 15 * time.Minute}
	}
	if c.RateLimits.Quote.MaxRequests == 0 {
		c.RateLimits.Quote = RateLimitWindow{MaxRequests: 200, Window: time.Hour}
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required")
	}

	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be non-negative")
	}

	if !cfg.SMTP.Disabled() {
		if cfg.SMTP.Host == "" {
			return fmt.Errorf("smtp.host is required when smtp is enabled")
		}
		if cfg.SMTP.From == "" {
			return fmt.Errorf("smtp.from is required when smtp is enabled")
		}
	}

	if cfg.Digest.Hour != nil && (*cfg.Digest.Hour < 0 || *cfg.Digest.Hour > 23) {
		return fmt.Errorf("digest.hour must be between 0 and 23")
	}

	for name, w := range map[string]RateLimitWindow{
		"api":      cfg.RateLimits.API,
		"strict":   cfg.RateLimits.Strict,
		"generous": cfg.RateLimits.Generous,
		"auth":     cfg.RateLimits.Auth,
		"quote":    cfg.RateLimits.Quote,
	} {
		if w.MaxRequests < 1 {
			return fmt.Errorf("rate_limits.%s.max_requests must be at least 1", name)
		}
		if w.Window < time.Second {
			return fmt.Errorf("rate_limits.%s.window must be at least 1 second", name)
		}
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetFinnhubConfig returns upstream API configuration
func (c *Config) GetFinnhubConfig() FinnhubConfig {
	return c.Finnhub
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}

// GetRateLimits returns the named rate limit tiers
func (c *Config) GetRateLimits() RateLimitsConfig {
	return c.RateLimits
}

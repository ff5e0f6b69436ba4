package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultCoinGeckoURL is the public CoinGecko API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		DefaultDays    int      `yaml:"default_days"`
	} `yaml:"server"`
	CoinGecko struct {
		BaseURL      string  `yaml:"base_url"`
		APIKey       string  `yaml:"api_key"`
		APIKeyHeader string  `yaml:"api_key_header"`
		VsCurrency   string  `yaml:"vs_currency"`
		RequestDelay float64 `yaml:"request_delay"`
		RetryCount   *int    `yaml:"retry_count"`
		RetryDelay   float64 `yaml:"retry_delay"`
	} `yaml:"coingecko"`
	// CoinCap serves range requests when BaseURL is set.
	CoinCap struct {
		BaseURL      string  `yaml:"base_url"`
		APIKey       string  `yaml:"api_key"`
		RequestDelay float64 `yaml:"request_delay"`
		RetryCount   *int    `yaml:"retry_count"`
		RetryDelay   float64 `yaml:"retry_delay"`
	} `yaml:"coincap"`
	History struct {
		MaxDays int `yaml:"max_days"`
	} `yaml:"history"`
	Schedule struct {
		Timezone   string `yaml:"timezone"`
		Hour       int    `yaml:"hour"`
		Minute     int    `yaml:"minute"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIURL   string `yaml:"api_url"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Toggles struct {
		Backend  string        `yaml:"backend"`
		File     string        `yaml:"file"`
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"toggles"`
	Chart struct {
		CacheTTL         time.Duration `yaml:"cache_ttl"`
		DayThresholdDays int           `yaml:"ruler_day_threshold_days"`
	} `yaml:"chart"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then a .env file, then applies
// environment variable overrides and defaults. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	digits := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); isDigits(v) {
			n, _ := strconv.Atoi(v)
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	str("PORT", &c.Server.Port)
	str("COINGECKO_BASE_URL", &c.CoinGecko.BaseURL)
	str("COINGECKO_API_KEY", &c.CoinGecko.APIKey)
	str("COINGECKO_API_KEY_HEADER", &c.CoinGecko.APIKeyHeader)
	str("COINGECKO_VS_CURRENCY", &c.CoinGecko.VsCurrency)
	float("COINGECKO_REQUEST_DELAY", &c.CoinGecko.RequestDelay)
	if v := strings.TrimSpace(os.Getenv("COINGECKO_RETRY_COUNT")); isDigits(v) {
		n, _ := strconv.Atoi(v)
		c.CoinGecko.RetryCount = &n
	}
	float("COINGECKO_RETRY_DELAY", &c.CoinGecko.RetryDelay)
	str("COINCAP_BASE_URL", &c.CoinCap.BaseURL)
	str("COINCAP_API_KEY", &c.CoinCap.APIKey)
	float("COINCAP_REQUEST_DELAY", &c.CoinCap.RequestDelay)
	if v := strings.TrimSpace(os.Getenv("COINCAP_RETRY_COUNT")); isDigits(v) {
		n, _ := strconv.Atoi(v)
		c.CoinCap.RetryCount = &n
	}
	float("COINCAP_RETRY_DELAY", &c.CoinCap.RetryDelay)
	digits("MAX_HISTORY_DAYS", &c.History.MaxDays)
	str("SCHEDULER_TIMEZONE", &c.Schedule.Timezone)
	digits("SCHEDULE_HOUR", &c.Schedule.Hour)
	digits("SCHEDULE_MINUTE", &c.Schedule.Minute)
	if v := os.Getenv("SCHEDULE_RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "1" || strings.EqualFold(v, "true")
	}
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("SQLITE_PATH", &c.Database.SQLitePath)
	str("REDIS_URL", &c.Toggles.RedisURL)
	str("LOG_LEVEL", &c.Log.Level)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.DefaultDays == 0 {
		c.Server.DefaultDays = 365
	}

	c.CoinGecko.BaseURL = NormalizeBaseURL(c.CoinGecko.BaseURL)
	if c.CoinGecko.BaseURL == "" {
		c.CoinGecko.BaseURL = DefaultCoinGeckoURL
	}
	c.CoinGecko.APIKeyHeader = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.CoinGecko.APIKeyHeader)), "_", "-")
	if c.CoinGecko.APIKeyHeader == "" {
		if strings.Contains(c.CoinGecko.BaseURL, "pro-api.coingecko.com") {
			c.CoinGecko.APIKeyHeader = "x-cg-pro-api-key"
		} else {
			c.CoinGecko.APIKeyHeader = "x-cg-demo-api-key"
		}
	}
	c.CoinGecko.VsCurrency = strings.ToLower(c.CoinGecko.VsCurrency)
	if c.CoinGecko.VsCurrency == "" {
		c.CoinGecko.VsCurrency = "usd"
	}
	if c.CoinGecko.RequestDelay == 0 {
		c.CoinGecko.RequestDelay = 1.1
	}
	if c.CoinGecko.RetryCount == nil {
		n := 2
		c.CoinGecko.RetryCount = &n
	}
	if c.CoinGecko.RetryDelay == 0 {
		c.CoinGecko.RetryDelay = 1.0
	}

	c.CoinCap.BaseURL = NormalizeBaseURL(c.CoinCap.BaseURL)
	if c.CoinCap.RequestDelay == 0 {
		c.CoinCap.RequestDelay = 1.1
	}
	if c.CoinCap.RetryCount == nil {
		n := 2
		c.CoinCap.RetryCount = &n
	}
	if c.CoinCap.RetryDelay == 0 {
		c.CoinCap.RetryDelay = 1.0
	}

	if c.History.MaxDays == 0 {
		c.History.MaxDays = 3650
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/cryptodash.db"
	}
	if c.Toggles.Backend == "" {
		if c.Toggles.RedisURL != "" {
			c.Toggles.Backend = "redis"
		} else {
			c.Toggles.Backend = "sqlite"
		}
	}
	if c.Toggles.File == "" {
		c.Toggles.File = "data/toggles.json"
	}
	if c.Chart.CacheTTL == 0 {
		c.Chart.CacheTTL = 5 * time.Minute
	}
	if c.Chart.DayThresholdDays == 0 {
		c.Chart.DayThresholdDays = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("schedule.hour must be 0-23, got %d", c.Schedule.Hour)
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		return fmt.Errorf("schedule.minute must be 0-59, got %d", c.Schedule.Minute)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.History.MaxDays <= 0 {
		return fmt.Errorf("history.max_days must be positive")
	}
	if c.CoinGecko.RequestDelay < 0 || c.CoinGecko.RetryDelay < 0 || *c.CoinGecko.RetryCount < 0 {
		return fmt.Errorf("coingecko delays and retry count must not be negative")
	}
	if c.CoinCap.RequestDelay < 0 || c.CoinCap.RetryDelay < 0 || *c.CoinCap.RetryCount < 0 {
		return fmt.Errorf("coincap delays and retry count must not be negative")
	}
	switch c.Toggles.Backend {
	case "memory", "file", "sqlite":
	case "redis":
		if c.Toggles.RedisURL == "" {
			return fmt.Errorf("toggles.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("toggles.backend %q is not one of memory, file, sqlite, redis", c.Toggles.Backend)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// RequestDelay is the pause between CoinGecko requests.
func (c *Config) RequestDelay() time.Duration { return seconds(c.CoinGecko.RequestDelay) }

// RetryDelay is the wait before retrying a CoinGecko request.
func (c *Config) RetryDelay() time.Duration { return seconds(c.CoinGecko.RetryDelay) }

// CoinCapRequestDelay is the pause between CoinCap requests.
func (c *Config) CoinCapRequestDelay() time.Duration { return seconds(c.CoinCap.RequestDelay) }

// CoinCapRetryDelay is the wait before retrying a CoinCap request.
func (c *Config) CoinCapRetryDelay() time.Duration { return seconds(c.CoinCap.RetryDelay) }

// Location is the scheduler time zone. Validate has checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NormalizeBaseURL strips the query, the fragment and trailing slashes.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "COINGECKO_BASE_URL", "COINGECKO_API_KEY", "COINGECKO_API_KEY_HEADER",
		"COINGECKO_VS_CURRENCY", "COINGECKO_REQUEST_DELAY", "COINGECKO_RETRY_COUNT",
		"COINGECKO_RETRY_DELAY", "MAX_HISTORY_DAYS", "SCHEDULER_TIMEZONE", "SCHEDULE_HOUR",
		"SCHEDULE_MINUTE", "SCHEDULE_RUN_ON_START", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"SQLITE_PATH", "REDIS_URL", "LOG_LEVEL", "COINCAP_BASE_URL", "COINCAP_API_KEY",
		"COINCAP_REQUEST_DELAY", "COINCAP_RETRY_COUNT", "COINCAP_RETRY_DELAY",
	} {
		t.Setenv(k, "")
	}
	// godotenv reads .env from the working directory.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.CoinGecko.BaseURL != DefaultCoinGeckoURL {
		t.Errorf("base url = %q", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.APIKeyHeader != "x-cg-demo-api-key" {
		t.Errorf("header = %q", cfg.CoinGecko.APIKeyHeader)
	}
	if cfg.CoinGecko.VsCurrency != "usd" || cfg.History.MaxDays != 3650 {
		t.Errorf("currency/max days = %q/%d", cfg.CoinGecko.VsCurrency, cfg.History.MaxDays)
	}
	if cfg.RequestDelay() != 1100*time.Millisecond || cfg.RetryDelay() != time.Second || *cfg.CoinGecko.RetryCount != 2 {
		t.Errorf("pacing = %v/%v/%d", cfg.RequestDelay(), cfg.RetryDelay(), *cfg.CoinGecko.RetryCount)
	}
	if cfg.Schedule.Timezone != "UTC" || cfg.Schedule.RunOnStart {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Toggles.Backend != "sqlite" || cfg.Chart.DayThresholdDays != 10 {
		t.Errorf("toggles/chart = %q/%d", cfg.Toggles.Backend, cfg.Chart.DayThresholdDays)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
coingecko:
  base_url: https://pro-api.coingecko.com/api/v3/?x=1#frag
  vs_currency: EUR
  retry_count: 0
schedule:
  hour: 6
  minute: 30
  timezone: Europe/Madrid
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCHEDULE_MINUTE", "45")
	t.Setenv("MAX_HISTORY_DAYS", "abc")
	t.Setenv("SCHEDULE_RUN_ON_START", "1")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.CoinGecko.BaseURL != "https://pro-api.coingecko.com/api/v3" {
		t.Errorf("base url = %q", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.APIKeyHeader != "x-cg-pro-api-key" {
		t.Errorf("header = %q", cfg.CoinGecko.APIKeyHeader)
	}
	if cfg.CoinGecko.VsCurrency != "eur" {
		t.Errorf("currency = %q", cfg.CoinGecko.VsCurrency)
	}
	if *cfg.CoinGecko.RetryCount != 0 {
		t.Errorf("retry count = %d, want explicit 0 kept", *cfg.CoinGecko.RetryCount)
	}
	if cfg.Schedule.Hour != 6 || cfg.Schedule.Minute != 45 || !cfg.Schedule.RunOnStart {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.History.MaxDays != 3650 {
		t.Errorf("non-digit MAX_HISTORY_DAYS should keep default, got %d", cfg.History.MaxDays)
	}
	if cfg.Toggles.Backend != "redis" {
		t.Errorf("backend = %q", cfg.Toggles.Backend)
	}
	if cfg.Location().String() != "Europe/Madrid" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestCoinCapSettings(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CoinCap.BaseURL != "" {
		t.Errorf("coincap should be off by default, base url = %q", cfg.CoinCap.BaseURL)
	}
	if cfg.CoinCapRequestDelay() != 1100*time.Millisecond || cfg.CoinCapRetryDelay() != time.Second || *cfg.CoinCap.RetryCount != 2 {
		t.Errorf("pacing = %v/%v/%d", cfg.CoinCapRequestDelay(), cfg.CoinCapRetryDelay(), *cfg.CoinCap.RetryCount)
	}

	t.Setenv("COINCAP_BASE_URL", "https://api.coincap.io/v2/?a=b")
	t.Setenv("COINCAP_API_KEY", "cc-key")
	t.Setenv("COINCAP_REQUEST_DELAY", "0.5")
	t.Setenv("COINCAP_RETRY_COUNT", "4")
	t.Setenv("COINCAP_RETRY_DELAY", "2")
	cfg, err = Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.CoinCap.BaseURL != "https://api.coincap.io/v2" || cfg.CoinCap.APIKey != "cc-key" {
		t.Errorf("coincap = %+v", cfg.CoinCap)
	}
	if cfg.CoinCapRequestDelay() != 500*time.Millisecond || cfg.CoinCapRetryDelay() != 2*time.Second || *cfg.CoinCap.RetryCount != 4 {
		t.Errorf("pacing = %v/%v/%d", cfg.CoinCapRequestDelay(), cfg.CoinCapRetryDelay(), *cfg.CoinCap.RetryCount)
	}

	bad := *cfg
	bad.CoinCap.RetryDelay = -1
	if bad.Validate() == nil {
		t.Error("negative coincap retry delay should fail")
	}
}

func TestAPIKeyHeaderNormalized(t *testing.T) {
	clearEnv(t)
	t.Setenv("COINGECKO_API_KEY_HEADER", "X_CG_DEMO_API_KEY")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CoinGecko.APIKeyHeader != "x-cg-demo-api-key" {
		t.Errorf("header = %q", cfg.CoinGecko.APIKeyHeader)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	bad := *cfg
	bad.Schedule.Hour = 24
	if bad.Validate() == nil {
		t.Error("hour 24 should fail")
	}

	bad = *cfg
	bad.Schedule.Timezone = "Mars/Olympus"
	if bad.Validate() == nil {
		t.Error("unknown timezone should fail")
	}

	bad = *cfg
	bad.Toggles.Backend = "etcd"
	if bad.Validate() == nil {
		t.Error("unknown backend should fail")
	}

	bad = *cfg
	bad.Telegram.BotToken = "token"
	if bad.Validate() == nil {
		t.Error("token without chat id should fail")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://api.coingecko.com/api/v3/": "https://api.coingecko.com/api/v3",
		" https://x.test/api?key=1 ":        "https://x.test/api",
		"https://x.test/api/#top":           "https://x.test/api",
		"":                                  "",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

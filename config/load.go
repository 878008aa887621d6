package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path on top of the defaults and applies TWBOT_*
// environment overrides. A missing file is not an error; the defaults plus
// environment are used so the bot can run from env alone.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Pick up a .env file if present, silently ignore if missing.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets operators inject the session cookie and other
// secrets at start time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Session.WorldURL, "TWBOT_WORLD_URL")
	setStr(&cfg.Session.SessionCookie, "TWBOT_SESSION_COOKIE")
	setStr(&cfg.Session.CookieDomain, "TWBOT_COOKIE_DOMAIN")
	setStr(&cfg.Session.UserAgent, "TWBOT_USER_AGENT")
	setBool(&cfg.Session.Enabled, "TWBOT_ENABLED")
	setBool(&cfg.Session.Headless, "TWBOT_HEADLESS")

	setInt(&cfg.Pacing.MaxActionsPerSession, "TWBOT_MAX_ACTIONS_PER_SESSION")

	setFloat(&cfg.Trade.MinProfitPct, "TWBOT_MIN_PROFIT_PCT")
	setInt(&cfg.Trade.MinStock, "TWBOT_MIN_STOCK")
	setInt(&cfg.Trade.MaxStock, "TWBOT_MAX_STOCK")

	setStr(&cfg.Store.Path, "TWBOT_STORE_PATH")
	setStr(&cfg.LogLevel, "TWBOT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

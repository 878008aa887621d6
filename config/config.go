// Package config defines the bot configuration and provides loading and
// validation helpers. Values come from a TOML file, overridden by TWBOT_*
// environment variables.
package config

import (
	"fmt"
	"time"

	"twmarketbot/market"
)

// Config is the root configuration structure.
type Config struct {
	Session  SessionConfig  `toml:"session" json:"session"`
	Pacing   PacingConfig   `toml:"pacing" json:"pacing"`
	Trade    TradeConfig    `toml:"trade" json:"trade"`
	Priority PriorityConfig `toml:"priority" json:"priority"`
	Store    StoreConfig    `toml:"store" json:"store"`
	LogLevel string         `toml:"log_level" json:"log_level"`
}

// SessionConfig holds the game world endpoint and browser session settings.
type SessionConfig struct {
	Enabled       bool   `toml:"enabled" json:"enabled"`
	WorldURL      string `toml:"world_url" json:"world_url"`
	SessionCookie string `toml:"session_cookie" json:"session_cookie"`
	CookieDomain  string `toml:"cookie_domain" json:"cookie_domain"`
	Headless      bool   `toml:"headless" json:"headless"`
	UserAgent     string `toml:"user_agent" json:"user_agent"`
}

// PacingConfig controls the human-like action rhythm.
type PacingConfig struct {
	MinActionDelayMs     int  `toml:"min_action_delay_ms" json:"min_action_delay_ms"`
	MaxActionDelayMs     int  `toml:"max_action_delay_ms" json:"max_action_delay_ms"`
	MinCycleDelaySec     int  `toml:"min_cycle_delay_sec" json:"min_cycle_delay_sec"`
	MaxCycleDelaySec     int  `toml:"max_cycle_delay_sec" json:"max_cycle_delay_sec"`
	MinSessionPauseMin   int  `toml:"min_session_pause_min" json:"min_session_pause_min"`
	MaxSessionPauseMin   int  `toml:"max_session_pause_min" json:"max_session_pause_min"`
	MaxActionsPerSession int  `toml:"max_actions_per_session" json:"max_actions_per_session"`
	HumanPatterns        bool `toml:"human_patterns" json:"human_patterns"`
}

// TradeConfig holds every numeric threshold of the decision engine and
// executor.
type TradeConfig struct {
	MinProfitPct         float64 `toml:"min_profit_pct" json:"min_profit_pct"`
	MinStock             int     `toml:"min_stock" json:"min_stock"`
	MaxStock             int     `toml:"max_stock" json:"max_stock"`
	AutoLimits           bool    `toml:"auto_limits" json:"auto_limits"`
	MinStockPct          float64 `toml:"min_stock_pct" json:"min_stock_pct"`
	MaxStockPct          float64 `toml:"max_stock_pct" json:"max_stock_pct"`
	BalanceResources     bool    `toml:"balance_resources" json:"balance_resources"`
	DryRun               bool    `toml:"dry_run" json:"dry_run"`
	AllowOwnOffers       bool    `toml:"allow_own_offers" json:"allow_own_offers"`
	PreferSingleMerchant bool    `toml:"prefer_single_merchant" json:"prefer_single_merchant"`
	MaxTradeChunk        int     `toml:"max_trade_chunk" json:"max_trade_chunk"`
	MinAfterPayPct       float64 `toml:"min_after_pay_pct" json:"min_after_pay_pct"`
	MaxMerchants         int     `toml:"max_merchants" json:"max_merchants"`
	MaxTravelMinutes     float64 `toml:"max_travel_minutes" json:"max_travel_minutes"`
	PaginationPages      int     `toml:"pagination_pages" json:"pagination_pages"`
	PendingTimeoutMin    int     `toml:"pending_timeout_min" json:"pending_timeout_min"`
	LookbackDays         float64 `toml:"lookback_days" json:"lookback_days"`
}

// PriorityConfig assigns a 1-10 importance weight to each resource.
type PriorityConfig struct {
	Wood  int `toml:"wood" json:"wood"`
	Stone int `toml:"stone" json:"stone"`
	Iron  int `toml:"iron" json:"iron"`
}

// Map keys the weights by resource.
func (p PriorityConfig) Map() map[market.Resource]int {
	return map[market.Resource]int{
		market.Wood:  p.Wood,
		market.Stone: p.Stone,
		market.Iron:  p.Iron,
	}
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `toml:"path" json:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Session: SessionConfig{
			Enabled:      true,
			CookieDomain: ".die-staemme.de",
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		},
		Pacing: PacingConfig{
			MinActionDelayMs:     1500,
			MaxActionDelayMs:     4500,
			MinCycleDelaySec:     30,
			MaxCycleDelaySec:     120,
			MinSessionPauseMin:   15,
			MaxSessionPauseMin:   45,
			MaxActionsPerSession: 12,
			HumanPatterns:        true,
		},
		Trade: TradeConfig{
			MinProfitPct:         15,
			MinStock:             5000,
			MaxStock:             25000,
			AutoLimits:           false,
			MinStockPct:          0.2,
			MaxStockPct:          0.8,
			BalanceResources:     true,
			AllowOwnOffers:       true,
			PreferSingleMerchant: true,
			MaxTradeChunk:        10000,
			MinAfterPayPct:       0.9,
			MaxMerchants:         10,
			MaxTravelMinutes:     24 * 60,
			PaginationPages:      2,
			PendingTimeoutMin:    5,
			LookbackDays:         1,
		},
		Priority: PriorityConfig{Wood: 5, Stone: 5, Iron: 5},
		Store:    StoreConfig{Path: "data/twmarket.db"},
		LogLevel: "info",
	}
}

// PendingTimeout returns the pending-action timeout as a duration.
func (c *Config) PendingTimeout() time.Duration {
	return time.Duration(c.Trade.PendingTimeoutMin) * time.Minute
}

// Validate checks the configuration for values the bot cannot run with.
func (c *Config) Validate() error {
	if c.Session.WorldURL == "" {
		return fmt.Errorf("session.world_url is required")
	}
	if c.Pacing.MinActionDelayMs <= 0 || c.Pacing.MaxActionDelayMs < c.Pacing.MinActionDelayMs {
		return fmt.Errorf("pacing: invalid action delay range %d-%d", c.Pacing.MinActionDelayMs, c.Pacing.MaxActionDelayMs)
	}
	if c.Pacing.MinCycleDelaySec <= 0 || c.Pacing.MaxCycleDelaySec < c.Pacing.MinCycleDelaySec {
		return fmt.Errorf("pacing: invalid cycle delay range %d-%d", c.Pacing.MinCycleDelaySec, c.Pacing.MaxCycleDelaySec)
	}
	if c.Pacing.MinSessionPauseMin <= 0 || c.Pacing.MaxSessionPauseMin < c.Pacing.MinSessionPauseMin {
		return fmt.Errorf("pacing: invalid session pause range %d-%d", c.Pacing.MinSessionPauseMin, c.Pacing.MaxSessionPauseMin)
	}
	if c.Pacing.MaxActionsPerSession <= 0 {
		return fmt.Errorf("pacing: max_actions_per_session must be positive")
	}
	if c.Trade.MinStock < 0 || c.Trade.MaxStock < c.Trade.MinStock {
		return fmt.Errorf("trade: invalid stock range %d-%d", c.Trade.MinStock, c.Trade.MaxStock)
	}
	if c.Trade.AutoLimits && (c.Trade.MinStockPct <= 0 || c.Trade.MaxStockPct <= c.Trade.MinStockPct || c.Trade.MaxStockPct > 1) {
		return fmt.Errorf("trade: invalid auto-limit percentages %.2f-%.2f", c.Trade.MinStockPct, c.Trade.MaxStockPct)
	}
	if c.Trade.MinAfterPayPct < 0 || c.Trade.MinAfterPayPct > 1 {
		return fmt.Errorf("trade: min_after_pay_pct must be in [0,1]")
	}
	if c.Trade.PaginationPages < 0 {
		return fmt.Errorf("trade: pagination_pages must not be negative")
	}
	for _, p := range []struct {
		name string
		val  int
	}{{"wood", c.Priority.Wood}, {"stone", c.Priority.Stone}, {"iron", c.Priority.Iron}} {
		if p.val < 0 || p.val > 10 {
			return fmt.Errorf("priority.%s must be in [0,10], got %d", p.name, p.val)
		}
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

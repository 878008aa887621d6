// Command twmarketbot watches a Tribal Wars village's market through a real
// browser session and trades to keep the resource stocks balanced, taking
// profitable offers when the board allows it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"twmarketbot/config"
	"twmarketbot/market"
	"twmarketbot/page"
	"twmarketbot/store"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "run", "run, once, report or trend")
	out := flag.String("out", "prices.png", "chart output path for -mode report")
	headless := flag.String("headless", "", "override headless setting (true/false)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if *headless != "" {
		cfg.Session.Headless = *headless == "true"
	}
	if *mode == "once" {
		// A single inspection cycle never touches the live market.
		cfg.Trade.DryRun = true
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.SetMeta("config", cfg); err != nil {
		logger.Warn("active config not persisted", "error", err)
	}

	switch *mode {
	case "report":
		if err := RenderPriceChart(st, *out); err != nil {
			logger.Error("report failed", "error", err)
			os.Exit(1)
		}
		logger.Info("chart written", "path", *out)
		return

	case "trend":
		for _, r := range market.Resources {
			pts, err := st.PricePoints(r)
			if err != nil {
				logger.Error("trend failed", "resource", string(r), "error", err)
				os.Exit(1)
			}
			t := market.AnalyzeTrend(r, pts)
			fmt.Printf("%-6s %-8s %+6.1f%%  volatility=%s  samples=%d\n",
				t.Resource, t.Direction, t.ChangePct, t.Volatility, t.Samples)
		}
		return
	}

	if !cfg.Session.Enabled {
		logger.Error("session disabled in config, nothing to do")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser, err := page.NewBrowser(cfg.Session)
	if err != nil {
		logger.Error("failed to start browser", "error", err)
		os.Exit(1)
	}
	defer browser.Close()

	if err := browser.Login(ctx); err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}
	logger.Info("logged in", "world", cfg.Session.WorldURL)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bot, err := NewBot(cfg, logger, st, page.NewDriver(browser, rng, cfg.Pacing), rng)
	if err != nil {
		logger.Error("failed to build bot", "error", err)
		os.Exit(1)
	}

	switch *mode {
	case "once":
		if _, err := bot.Cycle(ctx); err != nil {
			logger.Error("cycle failed", "error", err)
			os.Exit(1)
		}
	case "run":
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bot stopped", "error", err)
			os.Exit(1)
		}
		logger.Info("shutting down")
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"twmarketbot/config"
	"twmarketbot/market"
	"twmarketbot/page"
	"twmarketbot/store"
)

// Bot ties the whole loop together: navigate, read, decide, act, settle,
// wait. Pacing is everything here; every delay is jittered and the session
// quota forces long breaks so the activity pattern stays plausible.
type Bot struct {
	cfg *config.Config
	log *slog.Logger
	st  *store.Store

	nav page.Navigator
	q   page.Querier

	exec *Executor
	rec  *Reconciler
	sim  *TradeSimulator

	hist   *market.History
	policy market.Policy
	rng    *rand.Rand

	actionsThisSession int
}

func NewBot(cfg *config.Config, log *slog.Logger, st *store.Store, drv *page.Driver, rng *rand.Rand) (*Bot, error) {
	hist, err := st.LoadHistory()
	if err != nil {
		return nil, err
	}

	return &Bot{
		cfg:  cfg,
		log:  log,
		st:   st,
		nav:  drv,
		q:    drv,
		exec: NewExecutor(drv, drv, drv, st, log, cfg.Trade),
		rec:  NewReconciler(st, log, cfg.PendingTimeout()),
		sim:  NewTradeSimulator(st, log),
		hist: hist,
		policy: market.Policy{
			DisableBalance: !cfg.Trade.BalanceResources,
			MinProfitPct:   cfg.Trade.MinProfitPct,
			MinStock:       cfg.Trade.MinStock,
			MaxStock:       cfg.Trade.MaxStock,
			AutoLimits:     cfg.Trade.AutoLimits,
			MinStockPct:    cfg.Trade.MinStockPct,
			MaxStockPct:    cfg.Trade.MaxStockPct,
			MinAfterPayPct: cfg.Trade.MinAfterPayPct,
			Priorities:     cfg.Priority.Map(),
			AllowOwnOffer:  cfg.Trade.AllowOwnOffers,
			MaxTradeChunk:  cfg.Trade.MaxTradeChunk,
			Lookback:       time.Duration(cfg.Trade.LookbackDays * 24 * float64(time.Hour)),
		},
		rng: rng,
	}, nil
}

// Run cycles until the context ends.
func (b *Bot) Run(ctx context.Context) error {
	for {
		// The enable flag is re-checked every cycle so flipping it off
		// degrades to cheap reschedules without side effects.
		if !b.cfg.Session.Enabled {
			if !sleepCtx(ctx, b.cycleDelay()) {
				return ctx.Err()
			}
			continue
		}

		if b.actionsThisSession >= b.cfg.Pacing.MaxActionsPerSession {
			b.sessionBreak(ctx)
			b.actionsThisSession = 0
		}

		acted, err := b.Cycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := b.cycleDelay()
		if err != nil {
			b.log.Error("cycle failed", "error", err)
			delay = time.Minute
		}
		if acted {
			b.actionsThisSession++
		}

		b.log.Debug("next cycle scheduled", "in", delay.Round(time.Second).String())
		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}
	}
}

// Cycle performs one pass: read the market, settle pendings, record prices
// and act on the decision. Returns whether a trade action was taken.
func (b *Bot) Cycle(ctx context.Context) (bool, error) {
	now := time.Now()

	status, err := b.nav.OpenTab(ctx, page.TabOffers)
	if err != nil {
		return false, err
	}
	if status == page.Reloaded {
		b.log.Info("market reached via full page load, skipping cycle")
		return false, nil
	}

	html, err := b.q.HTML(ctx)
	if err != nil {
		return false, err
	}
	v, err := market.ExtractVillage(html)
	if err != nil {
		return false, err
	}
	offers, err := market.ExtractOffers(html, v.CarryCapacity)
	if err != nil {
		b.log.Warn("offer extraction failed", "error", err)
	}

	if _, err := b.rec.Reconcile(v, now); err != nil {
		b.log.Warn("reconcile failed", "error", err)
	}

	// Merchants promised to unconfirmed trades are not free to commit again.
	if inflight, err := b.rec.PendingMerchants(); err != nil {
		b.log.Warn("pending merchants unknown", "error", err)
	} else if inflight > 0 {
		v.MerchantsAvailable -= inflight
		if v.MerchantsAvailable < 0 {
			v.MerchantsAvailable = 0
		}
	}

	board := market.Aggregate(offers)
	b.recordPrices(board, now)

	b.log.Info("market read",
		"offers", len(offers),
		"wood", v.Resources[market.Wood],
		"stone", v.Resources[market.Stone],
		"iron", v.Resources[market.Iron],
		"merchants", v.MerchantsAvailable,
	)

	d := b.policy.Decide(v, board, offers, b.hist, now)
	if d.Kind == market.NoAction {
		b.log.Info("standing pat", "reason", d.Reason)
		return false, nil
	}

	b.log.Info("decision",
		"kind", string(d.Kind),
		"resource", string(d.Resource),
		"pay_with", string(d.PayWith),
		"amount", d.Amount,
		"reason", d.Reason,
	)

	if b.cfg.Trade.DryRun {
		b.sim.Apply(d, now)
		return true, nil
	}

	b.humanPause(ctx)

	_, err = b.exec.Execute(ctx, d, b.policy, now)
	switch {
	case errors.Is(err, errStalePage):
		b.log.Info("execution skipped", "reason", err.Error())
		return false, nil
	case errors.Is(err, errNoViableOffer):
		b.log.Info("execution skipped", "reason", err.Error())
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// recordPrices appends each resource's best sell ratio to the history.
func (b *Bot) recordPrices(board market.Board, now time.Time) {
	for _, r := range market.Resources {
		price := board.BestSell[r]
		if price <= 0 {
			continue
		}
		b.hist.Add(r, now, price)
		if err := b.st.AddPricePoint(r, now, price); err != nil {
			b.log.Warn("price point not stored", "resource", string(r), "error", err)
		}
	}
}

// cycleDelay picks the pause between cycles with a 0.85 to 1.15 spread.
func (b *Bot) cycleDelay() time.Duration {
	lo := b.cfg.Pacing.MinCycleDelaySec
	hi := b.cfg.Pacing.MaxCycleDelaySec
	base := time.Duration(lo+b.rng.Intn(hi-lo+1)) * time.Second
	return b.vary(base)
}

func (b *Bot) vary(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.85 + b.rng.Float64()*0.3))
}

// humanPause occasionally inserts a longer idle stretch before acting, the
// way a player stops to think.
func (b *Bot) humanPause(ctx context.Context) {
	if !b.cfg.Pacing.HumanPatterns || b.rng.Float64() >= 0.15 {
		return
	}
	d := time.Duration(2000+b.rng.Intn(6000)) * time.Millisecond
	b.log.Debug("pausing", "for", d.Round(time.Millisecond).String())
	sleepCtx(ctx, d)
}

// sessionBreak idles between sessions once the action quota is spent.
func (b *Bot) sessionBreak(ctx context.Context) {
	lo := b.cfg.Pacing.MinSessionPauseMin
	hi := b.cfg.Pacing.MaxSessionPauseMin
	d := b.vary(time.Duration(lo+b.rng.Intn(hi-lo+1)) * time.Minute)
	b.log.Info("session quota reached, taking a break",
		"actions", b.actionsThisSession,
		"for", d.Round(time.Second).String(),
	)
	if err := b.st.IncrStat("sessions", 1); err != nil {
		b.log.Warn("stat not recorded", "key", "sessions", "error", err)
	}
	sleepCtx(ctx, d)
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

package main

import (
	"log/slog"
	"time"

	"twmarketbot/market"
	"twmarketbot/store"
)

// TradeSimulator applies decisions to a virtual ledger instead of the live
// market. Enables testing a policy without moving real resources.
type TradeSimulator struct {
	log *slog.Logger
	st  *store.Store

	Received map[market.Resource]int
	Spent    map[market.Resource]int
	Trades   int
}

func NewTradeSimulator(st *store.Store, log *slog.Logger) *TradeSimulator {
	ts := &TradeSimulator{
		log:      log,
		st:       st,
		Received: make(map[market.Resource]int),
		Spent:    make(map[market.Resource]int),
	}
	// Resume a previous dry run's ledger when one is stored.
	if _, err := ts.st.GetMeta("simulator", ts); err != nil {
		log.Warn("previous dry-run ledger not loaded", "error", err)
	}
	return ts
}

// Apply books a decision into the ledger.
func (ts *TradeSimulator) Apply(d market.Decision, now time.Time) {
	switch d.Kind {
	case market.RebalanceBuy, market.ProfitBuy:
		ts.Received[d.Resource] += d.Amount
		if d.PayWith != "" {
			ts.Spent[d.PayWith] += d.Amount
		}
	case market.ProfitSell:
		ts.Spent[d.Resource] += d.Amount
	case market.OwnOffer:
		ts.Received[d.Resource] += d.Amount
		ts.Spent[d.PayWith] += d.Amount
	default:
		return
	}
	ts.Trades++

	if err := ts.st.IncrStat("simulated_trades", 1); err != nil {
		ts.log.Warn("stat not recorded", "key", "simulated_trades", "error", err)
	}
	if err := ts.st.SetMeta("simulator", ts); err != nil {
		ts.log.Warn("simulator ledger not stored", "error", err)
	}
	ts.log.Info("simulated trade",
		"kind", string(d.Kind),
		"resource", string(d.Resource),
		"pay_with", string(d.PayWith),
		"amount", d.Amount,
		"reason", d.Reason,
		"at", now.Format(time.RFC3339),
	)
}

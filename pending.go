package main

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"twmarketbot/market"
	"twmarketbot/store"
)

// Pending action kinds.
const (
	pendingAccept   = "accept_offer"
	pendingOwnOffer = "own_offer"
)

func newPending(kind string, v market.Village, merchantsDelta int, recv market.Resource, amount int, now time.Time) store.PendingAction {
	return store.PendingAction{
		ID:              uuid.NewString(),
		Kind:            kind,
		MerchantsBefore: v.MerchantsAvailable,
		MerchantsDelta:  merchantsDelta,
		ReceiveResource: string(recv),
		ReceiveAmount:   amount,
		CreatedAt:       now.Unix(),
	}
}

// Reconciler settles submitted trades against fresh page reads. A trade is
// confirmed once the available merchant count has dropped by at least its
// expected delta; a trade that never shows up is discarded after the
// timeout so its merchants are not considered spoken-for forever.
type Reconciler struct {
	store   *store.Store
	log     *slog.Logger
	timeout time.Duration
}

func NewReconciler(st *store.Store, log *slog.Logger, timeout time.Duration) *Reconciler {
	return &Reconciler{store: st, log: log, timeout: timeout}
}

// Reconcile walks the pending list against the current village state.
// Returns the number of confirmed trades.
func (r *Reconciler) Reconcile(v market.Village, now time.Time) (int, error) {
	pendings, err := r.store.Pendings()
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, p := range pendings {
		switch {
		case v.MerchantsAvailable <= p.MerchantsBefore-p.MerchantsDelta:
			if err := r.store.DeletePending(p.ID); err != nil {
				return confirmed, err
			}
			confirmed++
			if err := r.store.IncrStat("trades_confirmed", 1); err != nil {
				r.log.Warn("stat not recorded", "key", "trades_confirmed", "error", err)
			}
			if err := r.store.IncrStat("traded_"+p.ReceiveResource, p.ReceiveAmount); err != nil {
				r.log.Warn("stat not recorded", "key", "traded_"+p.ReceiveResource, "error", err)
			}
			if err := r.store.SetMeta("last_action_at", now); err != nil {
				r.log.Warn("last action time not stored", "error", err)
			}
			r.log.Info("trade confirmed",
				"id", p.ID,
				"kind", p.Kind,
				"receive", p.ReceiveResource,
				"amount", p.ReceiveAmount,
			)

		case now.Sub(p.Created()) >= r.timeout:
			if err := r.store.DeletePending(p.ID); err != nil {
				return confirmed, err
			}
			if err := r.store.IncrStat("trades_expired", 1); err != nil {
				r.log.Warn("stat not recorded", "key", "trades_expired", "error", err)
			}
			r.log.Warn("pending trade expired without confirmation",
				"id", p.ID,
				"kind", p.Kind,
				"age", now.Sub(p.Created()).Round(time.Second).String(),
			)
		}
	}
	return confirmed, nil
}

// PendingMerchants sums the merchants expected to be consumed by trades
// still awaiting confirmation.
func (r *Reconciler) PendingMerchants() (int, error) {
	pendings, err := r.store.Pendings()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range pendings {
		total += p.MerchantsDelta
	}
	return total, nil
}

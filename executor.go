package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"twmarketbot/config"
	"twmarketbot/market"
	"twmarketbot/page"
	"twmarketbot/store"
)

// errStalePage is returned when reaching the market forced a full page load.
// The snapshot the decision was made from no longer matches the page, so the
// cycle is abandoned and the next one starts from the fresh state.
var errStalePage = errors.New("page reloaded, market state is stale")

// errNoViableOffer is returned when the listings hold nothing that satisfies
// the decision within the configured bounds.
var errNoViableOffer = errors.New("no viable offer on the board")

// Executor turns a trade decision into form interactions on the market
// screen.
type Executor struct {
	nav page.Navigator
	q   page.Querier
	in  page.Input
	st  *store.Store
	log *slog.Logger
	cfg config.TradeConfig
}

func NewExecutor(nav page.Navigator, q page.Querier, in page.Input, st *store.Store, log *slog.Logger, cfg config.TradeConfig) *Executor {
	return &Executor{nav: nav, q: q, in: in, st: st, log: log, cfg: cfg}
}

// Execute carries out one decision. The returned pending action has already
// been persisted when err is nil.
func (e *Executor) Execute(ctx context.Context, d market.Decision, pol market.Policy, now time.Time) (store.PendingAction, error) {
	switch d.Kind {
	case market.RebalanceBuy, market.ProfitBuy:
		return e.acceptOffer(ctx, market.Buy, d, pol, now)
	case market.ProfitSell:
		return e.acceptOffer(ctx, market.Sell, d, pol, now)
	case market.OwnOffer:
		return e.createOwnOffer(ctx, d, now)
	default:
		return store.PendingAction{}, fmt.Errorf("decision %s is not executable", d.Kind)
	}
}

// acceptOffer walks the listing pages until one holds a matching offer and
// accepts it there, while its form is still in the live DOM. Buying means
// taking a listing that sells the wanted resource; selling means taking one
// that asks for it.
func (e *Executor) acceptOffer(ctx context.Context, action market.Action, d market.Decision, pol market.Policy, now time.Time) (store.PendingAction, error) {
	status, err := e.nav.OpenTab(ctx, page.TabOffers)
	if err != nil {
		return store.PendingAction{}, err
	}
	if status == page.Reloaded {
		return store.PendingAction{}, errStalePage
	}

	var (
		v market.Village
		c market.Criteria
	)
	for pageNum := 1; ; pageNum++ {
		html, err := e.q.HTML(ctx)
		if err != nil {
			return store.PendingAction{}, err
		}
		if pageNum == 1 {
			v, err = market.ExtractVillage(html)
			if err != nil {
				return store.PendingAction{}, err
			}
			min, _ := pol.EffectiveLimits(v)
			c = market.Criteria{
				Action:           action,
				Resource:         d.Resource,
				MaxAmount:        e.cfg.MaxTradeChunk,
				MaxMerchants:     e.cfg.MaxMerchants,
				MaxTravelMinutes: e.cfg.MaxTravelMinutes,
				RequireAccept:    true,
				RankBy:           market.ByRatio,
				MinAfterPay:      int(e.cfg.MinAfterPayPct * float64(min)),
			}
		}

		offers, err := market.ExtractOffers(html, v.CarryCapacity)
		if err != nil {
			e.log.Warn("offer extraction failed", "page", pageNum, "error", err)
		}
		// Rebalances name the resource to spend; restrict the board to
		// listings paid in it.
		if action == market.Buy && d.PayWith != "" {
			kept := make([]market.Offer, 0, len(offers))
			for _, o := range offers {
				if o.BuyResource == d.PayWith {
					kept = append(kept, o)
				}
			}
			offers = kept
		}

		if viable := market.Select(offers, c, v); len(viable) > 0 {
			return e.submitAccept(ctx, viable[0], v, c.MinAfterPay, now)
		}

		if pageNum >= e.cfg.PaginationPages {
			break
		}
		ok, err := e.nav.NextPage(ctx, pageNum+1)
		if err != nil {
			e.log.Warn("pagination failed", "page", pageNum+1, "error", err)
			break
		}
		if !ok {
			break
		}
	}
	return store.PendingAction{}, errNoViableOffer
}

// submitAccept fills and submits the accept form of the given listing on
// the currently displayed page.
func (e *Executor) submitAccept(ctx context.Context, best market.Offer, v market.Village, minAfterPay int, now time.Time) (store.PendingAction, error) {
	count := acceptCount(best, v, minAfterPay)
	if count < 1 {
		return store.PendingAction{}, fmt.Errorf("offer %s: %w", best.ID, errNoViableOffer)
	}

	formSel := fmt.Sprintf(`form.market_accept_offer:has(input[name="id"][value=%q])`, best.ID)
	if err := e.in.SetText(ctx, formSel+` input[name="count"]`, strconv.Itoa(count)); err != nil {
		return store.PendingAction{}, fmt.Errorf("set count: %w", err)
	}
	if err := e.in.Submit(ctx, formSel); err != nil {
		return store.PendingAction{}, fmt.Errorf("submit accept: %w", err)
	}

	p := newPending(pendingAccept, v, best.Merchants*count, best.SellResource, best.SellAmount*count, now)
	if err := e.st.AddPending(p); err != nil {
		return store.PendingAction{}, err
	}

	if err := e.st.IncrStat("offers_accepted", 1); err != nil {
		e.log.Warn("stat not recorded", "key", "offers_accepted", "error", err)
	}
	e.log.Info("accepted offer",
		"offer", best.ID,
		"receive", best.SellResource,
		"amount", best.SellAmount*count,
		"pay", best.BuyResource,
		"cost", best.BuyAmount*count,
		"ratio", best.Ratio,
		"count", count,
	)
	return p, nil
}

// acceptCount sizes a multi-accept: bounded by the listing's availability,
// what the paying stock can cover without dipping under the floor, and the
// merchants on hand.
func acceptCount(o market.Offer, v market.Village, minAfterPay int) int {
	count := o.Availability
	if o.BuyAmount > 0 {
		if byStock := (v.Resources[o.BuyResource] - minAfterPay) / o.BuyAmount; byStock < count {
			count = byStock
		}
	}
	if o.Merchants > 0 {
		if byMerchants := v.MerchantsAvailable / o.Merchants; byMerchants < count {
			count = byMerchants
		}
	}
	return count
}

// createOwnOffer posts a 1:1 listing that gives away the excess resource.
func (e *Executor) createOwnOffer(ctx context.Context, d market.Decision, now time.Time) (store.PendingAction, error) {
	status, err := e.nav.OpenTab(ctx, page.TabOwnOffer)
	if err != nil {
		return store.PendingAction{}, err
	}
	if status == page.Reloaded {
		return store.PendingAction{}, errStalePage
	}

	html, err := e.q.HTML(ctx)
	if err != nil {
		return store.PendingAction{}, err
	}
	v, err := market.ExtractVillage(html)
	if err != nil {
		return store.PendingAction{}, err
	}

	amount := d.Amount
	if e.cfg.PreferSingleMerchant && amount > v.CarryCapacity {
		amount = v.CarryCapacity
	}
	if limit := v.MerchantsAvailable * v.CarryCapacity; amount > limit {
		amount = limit
	}
	if amount < 1 {
		return store.PendingAction{}, errors.New("no merchant capacity for an own offer")
	}

	steps := []struct {
		sel, val string
		selectOp bool
	}{
		{`select[name="sell_resource"]`, string(d.PayWith), true},
		{`input[name="sell_amount"]`, strconv.Itoa(amount), false},
		{`select[name="buy_resource"]`, string(d.Resource), true},
		{`input[name="buy_amount"]`, strconv.Itoa(amount), false},
	}
	for _, s := range steps {
		if s.selectOp {
			err = e.in.SelectOption(ctx, s.sel, s.val)
		} else {
			err = e.in.SetText(ctx, s.sel, s.val)
		}
		if err != nil {
			return store.PendingAction{}, fmt.Errorf("fill %s: %w", s.sel, err)
		}
	}
	if err := e.in.Submit(ctx, `input[name="sell_amount"]`); err != nil {
		return store.PendingAction{}, fmt.Errorf("submit own offer: %w", err)
	}

	merchants := market.MerchantsFor(amount, v.CarryCapacity)
	p := newPending(pendingOwnOffer, v, merchants, d.Resource, amount, now)
	if err := e.st.AddPending(p); err != nil {
		return store.PendingAction{}, err
	}

	if err := e.st.IncrStat("offers_created", 1); err != nil {
		e.log.Warn("stat not recorded", "key", "offers_created", "error", err)
	}
	e.log.Info("posted own offer",
		"give", d.PayWith,
		"receive", d.Resource,
		"amount", amount,
		"merchants", merchants,
	)
	return p, nil
}

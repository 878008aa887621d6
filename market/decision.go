package market

import (
	"fmt"
	"time"
)

// Kind classifies what the engine wants done this cycle.
type Kind string

const (
	NoAction     Kind = "no_action"
	RebalanceBuy Kind = "rebalance_buy" // acquire a deficit resource by spending a surplus one
	ProfitSell   Kind = "profit_sell"   // current best sell price beats the trailing average
	ProfitBuy    Kind = "profit_buy"    // current best buy price undercuts the trailing average
	OwnOffer     Kind = "own_offer"     // post a 1:1 listing asking for a deficit resource
)

// Decision is one cycle's verdict. Resource is the resource being acquired
// (or, for ProfitSell, disposed of); PayWith is the resource spent on
// rebalances and own offers. Reason is a short human-readable note carried
// into the logs.
type Decision struct {
	Kind     Kind
	Resource Resource
	PayWith  Resource
	Amount   int
	Reason   string
}

// Policy is the decision engine's configuration. Priorities weight how
// urgently each resource is kept inside its band: a high priority amplifies
// that resource's deficits and dampens its excesses, so priority 10 never
// registers an excess and priority 0 never registers a deficit.
type Policy struct {
	// DisableBalance turns the deficit and excess handling off, leaving
	// only profit trades.
	DisableBalance bool

	MinProfitPct   float64
	MinStock       int
	MaxStock       int
	AutoLimits     bool
	MinStockPct    float64
	MaxStockPct    float64
	MinAfterPayPct float64
	Priorities     map[Resource]int
	AllowOwnOffer  bool
	MaxTradeChunk  int
	Lookback       time.Duration
}

// EffectiveLimits resolves the stock band, deriving it from storage capacity
// when auto limits are on and the capacity is known.
func (p Policy) EffectiveLimits(v Village) (min, max int) {
	if p.AutoLimits && v.Storage > 0 {
		return int(float64(v.Storage) * p.MinStockPct),
			int(float64(v.Storage) * p.MaxStockPct)
	}
	return p.MinStock, p.MaxStock
}

func (p Policy) priority(r Resource) int {
	pr, ok := p.Priorities[r]
	if !ok {
		return 5
	}
	if pr < 0 {
		return 0
	}
	if pr > 10 {
		return 10
	}
	return pr
}

// Decide produces the cycle's trade verdict from the village state, the
// current board, the listed offers and the price history. A deficit served
// by a usable listing wins first, then profit edges on the imbalanced
// resources, then a reciprocal own offer when the board had nothing usable
// for the shortfall.
func (p Policy) Decide(v Village, b Board, offers []Offer, h *History, now time.Time) Decision {
	if v.MerchantsAvailable < 1 {
		return Decision{Kind: NoAction, Reason: "no merchants available"}
	}

	min, max := p.EffectiveLimits(v)

	type weighted struct {
		r      Resource
		weight float64
		amount int
	}
	var worstDeficit, worstExcess weighted
	for _, r := range Resources {
		amt := v.Resources[r]
		pr := p.priority(r)
		if amt < min {
			w := float64(min-amt) * float64(pr) / 10
			if w > worstDeficit.weight {
				worstDeficit = weighted{r, w, min - amt}
			}
		}
		if amt > max {
			w := float64(amt-max) * float64(10-pr) / 10
			if w > worstExcess.weight {
				worstExcess = weighted{r, w, amt - max}
			}
		}
	}

	if !p.DisableBalance && worstDeficit.weight > 0 {
		if pay, ok := p.fillingPayer(worstDeficit.r, offers, v, min, worstExcess.r); ok {
			return Decision{
				Kind:     RebalanceBuy,
				Resource: worstDeficit.r,
				PayWith:  pay,
				Amount:   p.chunk(worstDeficit.amount),
				Reason:   fmt.Sprintf("%s below minimum by %d", worstDeficit.r, worstDeficit.amount),
			}
		}
	}

	if d, ok := p.profitDecision(v, b, h, now, min, max, worstExcess.r, worstDeficit.r); ok {
		return d
	}

	if !p.DisableBalance && worstDeficit.weight > 0 {
		if p.AllowOwnOffer {
			if give, ok := p.giverFor(worstDeficit.r, v, min); ok {
				return Decision{
					Kind:     OwnOffer,
					Resource: worstDeficit.r,
					PayWith:  give,
					Amount:   p.chunk(worstDeficit.amount),
					Reason:   fmt.Sprintf("no listed offer fills the %s shortfall of %d", worstDeficit.r, worstDeficit.amount),
				}
			}
		}
		return Decision{Kind: NoAction, Reason: fmt.Sprintf("no usable offer or payment for the %s shortfall", worstDeficit.r)}
	}

	return Decision{Kind: NoAction, Reason: "resources within min/max limits"}
}

// fillingPayer reports whether any listed offer could supply the deficit
// resource right now, and which resource would pay for it. A listing counts
// when it can be accepted, its merchants fit, and paying it leaves the
// paying stock at or above the safety floor. The worst weighted excess is
// the preferred payment when it has a matching listing.
func (p Policy) fillingPayer(target Resource, offers []Offer, v Village, min int, excess Resource) (Resource, bool) {
	floor := int(p.MinAfterPayPct * float64(min))
	var fallback Resource
	for _, o := range offers {
		if o.SellResource != target || !o.CanAccept {
			continue
		}
		if o.Merchants > v.MerchantsAvailable {
			continue
		}
		have := v.Resources[o.BuyResource]
		if o.BuyResource == target || have < o.BuyAmount || have-o.BuyAmount < floor {
			continue
		}
		if o.BuyResource == excess {
			return excess, true
		}
		if fallback == "" {
			fallback = o.BuyResource
		}
	}
	return fallback, fallback != ""
}

// giverFor picks what a shortfall-driven own offer gives away: the resource
// with the most headroom above the minimum, damped for high-priority
// resources the same way excesses are.
func (p Policy) giverFor(target Resource, v Village, min int) (Resource, bool) {
	var best Resource
	bestW := 0.0
	for _, r := range Resources {
		if r == target {
			continue
		}
		room := v.Resources[r] - min
		if room <= 0 {
			continue
		}
		w := float64(room) * float64(10-p.priority(r)) / 10
		if w > bestW {
			best, bestW = r, w
		}
	}
	return best, best != ""
}

// profitDecision checks for a sell edge on the excess resource and a buy
// edge on the deficit resource against their trailing averages. Balanced
// resources never trade for profit, and a resource with no history is
// skipped rather than treated as an opportunity.
func (p Policy) profitDecision(v Village, b Board, h *History, now time.Time, min, max int, excess, deficit Resource) (Decision, bool) {
	var best Decision
	var bestPct float64
	if excess != "" {
		if avg := h.Average(excess, p.Lookback, now); avg > 0 {
			if bs := b.BestSell[excess]; bs > 0 {
				if pct := (bs/avg - 1) * 100; pct > bestPct {
					bestPct = pct
					best = Decision{
						Kind:     ProfitSell,
						Resource: excess,
						Amount:   p.chunk(v.Resources[excess] - min),
						Reason:   fmt.Sprintf("%s sell price %.1f%% above average", excess, pct),
					}
				}
			}
		}
	}
	if deficit != "" {
		if avg := h.Average(deficit, p.Lookback, now); avg > 0 {
			if bb := b.BestBuy[deficit]; bb > 0 {
				if pct := (1 - bb/avg) * 100; pct > bestPct {
					bestPct = pct
					best = Decision{
						Kind:     ProfitBuy,
						Resource: deficit,
						Amount:   p.chunk(max - v.Resources[deficit]),
						Reason:   fmt.Sprintf("%s buy price %.1f%% below average", deficit, pct),
					}
				}
			}
		}
	}
	if best.Kind == "" || bestPct < p.MinProfitPct {
		return Decision{}, false
	}
	return best, true
}

func (p Policy) chunk(amount int) int {
	if p.MaxTradeChunk > 0 && amount > p.MaxTradeChunk {
		return p.MaxTradeChunk
	}
	return amount
}

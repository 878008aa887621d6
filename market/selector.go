package market

import "sort"

// Action is the side of a trade we want the listings to serve.
type Action string

const (
	Buy  Action = "buy"  // acquire Resource, pay with something else
	Sell Action = "sell" // dispose of Resource for something else
)

// RankKey selects the ordering applied to the surviving offers.
type RankKey string

const (
	ByRatio  RankKey = "ratio"  // cheapest first when buying, richest first when selling
	ByTime   RankKey = "time"   // shortest travel first
	ByAmount RankKey = "amount" // largest lot first
)

// Criteria narrows and orders the offer list for one intended trade.
// MinAfterPay guards affordability: an offer is viable only if the stock of
// the resource we would pay with stays at or above it after payment.
type Criteria struct {
	Action           Action
	Resource         Resource
	MinAmount        int
	MaxAmount        int
	MinRatio         float64
	MaxRatio         float64
	MaxMerchants     int
	MaxTravelMinutes float64
	RequireAccept    bool
	RankBy           RankKey
	MinAfterPay      int
}

// Select filters offers against the criteria and the village's current
// state, then orders the survivors. Bounds are inclusive; a zero bound is
// not enforced. The input slice is not modified.
func Select(offers []Offer, c Criteria, v Village) []Offer {
	maxMerchants := c.MaxMerchants
	if v.MerchantsAvailable < maxMerchants || maxMerchants == 0 {
		maxMerchants = v.MerchantsAvailable
	}

	var out []Offer
	for _, o := range offers {
		if c.RequireAccept && !o.CanAccept {
			continue
		}
		if c.MaxTravelMinutes > 0 && o.TravelMinutes > c.MaxTravelMinutes {
			continue
		}
		if o.Merchants > maxMerchants {
			continue
		}

		// The side of the listing we care about: buying means the
		// counterparty sells our target resource, selling means they
		// want it.
		var amount int
		switch c.Action {
		case Buy:
			if o.SellResource != c.Resource {
				continue
			}
			amount = o.SellAmount
		case Sell:
			if o.BuyResource != c.Resource {
				continue
			}
			amount = o.BuyAmount
		default:
			continue
		}

		if c.MinAmount > 0 && amount < c.MinAmount {
			continue
		}
		if c.MaxAmount > 0 && amount > c.MaxAmount {
			continue
		}
		if c.MinRatio > 0 && o.Ratio < c.MinRatio {
			continue
		}
		if c.MaxRatio > 0 && o.Ratio > c.MaxRatio {
			continue
		}

		// Affordability: paying must not drain the paid resource below
		// the floor.
		pay := o.BuyAmount
		have := v.Resources[o.BuyResource]
		if pay > have {
			continue
		}
		if have-pay < c.MinAfterPay {
			continue
		}

		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch c.RankBy {
		case ByTime:
			return a.TravelMinutes < b.TravelMinutes
		case ByAmount:
			if c.Action == Sell {
				return a.BuyAmount > b.BuyAmount
			}
			return a.SellAmount > b.SellAmount
		default:
			if c.Action == Sell {
				return a.Ratio > b.Ratio
			}
			return a.Ratio < b.Ratio
		}
	})
	return out
}

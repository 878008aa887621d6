package market

import "time"

// Board summarizes the current listings into per-resource best prices. All
// ratios are keyed by the resource the counterparty is selling: BestSell is
// the highest ratio a buyer of that resource pays (what we could earn
// selling it), BestBuy the lowest ratio we would pay acquiring it. A zero
// entry means no listing for that resource.
type Board struct {
	BestSell map[Resource]float64
	BestBuy  map[Resource]float64
}

// Aggregate folds the offer list into a Board.
func Aggregate(offers []Offer) Board {
	b := Board{
		BestSell: map[Resource]float64{},
		BestBuy:  map[Resource]float64{},
	}
	for _, o := range offers {
		if !o.SellResource.Valid() || o.Ratio <= 0 {
			continue
		}
		r := o.SellResource
		if o.Ratio > b.BestSell[r] {
			b.BestSell[r] = o.Ratio
		}
		if cur, ok := b.BestBuy[r]; !ok || o.Ratio < cur {
			b.BestBuy[r] = o.Ratio
		}
	}
	return b
}

// PricePoint is one observed best-sell ratio at a point in time.
type PricePoint struct {
	Resource Resource  `db:"resource"`
	At       time.Time `db:"ts"`
	Price    float64   `db:"price"`
}

const historyCap = 100

// History is a bounded per-resource record of observed prices, oldest
// dropped first.
type History struct {
	points map[Resource][]PricePoint
}

func NewHistory() *History {
	return &History{points: map[Resource][]PricePoint{}}
}

// Add records a price observation, evicting the oldest entry for that
// resource once the cap is reached. Non-positive prices are ignored.
func (h *History) Add(r Resource, at time.Time, price float64) {
	if price <= 0 || !r.Valid() {
		return
	}
	pts := append(h.points[r], PricePoint{Resource: r, At: at, Price: price})
	if len(pts) > historyCap {
		pts = pts[len(pts)-historyCap:]
	}
	h.points[r] = pts
}

// Points returns the recorded observations for a resource, oldest first. The
// returned slice is shared; callers must not mutate it.
func (h *History) Points(r Resource) []PricePoint {
	return h.points[r]
}

// Average returns the mean observed price for a resource over the trailing
// lookback window, or 0 when the window holds no observations.
func (h *History) Average(r Resource, lookback time.Duration, now time.Time) float64 {
	cutoff := now.Add(-lookback)
	var sum float64
	var n int
	for _, p := range h.points[r] {
		if p.At.Before(cutoff) {
			continue
		}
		sum += p.Price
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Package market implements the trading core: offer extraction from rendered
// markup, price aggregation with history, offer selection against criteria,
// and the per-cycle trade decision.
package market

import (
	"strconv"
	"strings"
)

// Resource is one of the three tradeable resource types.
type Resource string

const (
	Wood  Resource = "wood"
	Stone Resource = "stone"
	Iron  Resource = "iron"
)

// Resources lists all resource types in display order.
var Resources = []Resource{Wood, Stone, Iron}

// Valid reports whether r is a known resource type.
func (r Resource) Valid() bool {
	return r == Wood || r == Stone || r == Iron
}

// Offer is one market listing: the resource you receive, the resource you
// give, and the logistics attached to accepting it. Offers are rebuilt from
// the page on every extraction pass and never mutated.
type Offer struct {
	ID            string
	SellResource  Resource // what the offer delivers to us
	SellAmount    int
	BuyResource   Resource // what the offer costs us
	BuyAmount     int
	Ratio         float64 // cost of one unit of SellResource in BuyResource
	TravelMinutes float64
	Availability  int // identical repeats obtainable from this listing
	Merchants     int // merchants needed for one acceptance
	CanAccept     bool
}

// Village is a snapshot of the current village state, refreshed once per
// cycle. It may be slightly stale by the time an action runs.
type Village struct {
	Resources          map[Resource]int
	Storage            int
	MerchantsAvailable int
	MerchantsTotal     int
	CarryCapacity      int // per-merchant transport capacity
}

// ParseTravelTime decodes a "H:MM" or "H:MM:SS" duration into total minutes,
// seconds contributing as a fraction. Any other shape yields 0, which callers
// must read as "unknown", not "instant".
func ParseTravelTime(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0
		}
		nums[i] = n
	}
	switch len(nums) {
	case 2:
		return float64(nums[0])*60 + float64(nums[1])
	case 3:
		return float64(nums[0])*60 + float64(nums[1]) + float64(nums[2])/60
	}
	return 0
}

// MerchantsFor returns the merchant count needed to move amount units at the
// given per-merchant carry capacity, never less than one.
func MerchantsFor(amount, carry int) int {
	if carry <= 0 {
		carry = 1000
	}
	m := (amount + carry - 1) / carry
	if m < 1 {
		m = 1
	}
	return m
}

package market

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	digitsRe = regexp.MustCompile(`\d+`)
	floatRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	pairRe   = regexp.MustCompile(`(\d+)/(\d+)`)
)

// ExtractOffers parses the offer table out of a rendered page snapshot and
// returns the listings in row order. Rows that fail structural validation
// (missing resource icon, non-positive amount, wrong column count) are
// skipped. carry is the per-merchant transport capacity used to derive the
// merchant count. Internal faults never propagate as panics; they surface as
// an error alongside an empty slice.
func ExtractOffers(html string, carry int) (offers []Offer, err error) {
	defer func() {
		if r := recover(); r != nil {
			offers, err = nil, fmt.Errorf("offer extraction panicked: %v", r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := findOfferTable(doc)
	if table == nil {
		return nil, nil
	}

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		if o, ok := parseOfferRow(row, carry); ok {
			offers = append(offers, o)
		}
	})
	return offers, nil
}

// findOfferTable locates the offer listing among the page's visual tables by
// its header keywords, falling back to the id the game used in older
// versions.
func findOfferTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table.vis").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		header := strings.ToLower(tbl.Find("tr").First().Text())
		if strings.Contains(header, "erhalte") && strings.Contains(header, "für") &&
			strings.Contains(header, "annehmen") {
			found = tbl
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	if tbl := doc.Find("#market_offer_table"); tbl.Length() > 0 {
		return tbl.First()
	}
	return nil
}

// parseOfferRow decodes a single table row. The current game layout packs
// icon and amount into one cell per side; an older layout used separate icon
// and amount cells. The primary layout is tried first and the alternate only
// when its resource-icon detection fails, since icons are the stable signal
// across locales (displayed numbers are locale-formatted).
func parseOfferRow(row *goquery.Selection, carry int) (Offer, bool) {
	cells := row.Find("td")
	if cells.Length() < 7 {
		return Offer{}, false
	}

	cell := func(i int) *goquery.Selection { return cells.Eq(i) }

	o := Offer{Availability: 1}
	o.SellResource = resourceIn(cell(0))
	o.BuyResource = resourceIn(cell(1))
	var timeCell, ratioCell, availCell *goquery.Selection

	if o.SellResource.Valid() && o.BuyResource.Valid() {
		// Primary layout: receive | for | player | duration | ratio |
		// availability | accept.
		o.SellAmount = intIn(cell(0))
		o.BuyAmount = intIn(cell(1))
		timeCell, ratioCell, availCell = cell(3), cell(4), cell(5)
	} else {
		// Alternate layout: icon | amount | icon | amount | village |
		// duration | accept.
		o.BuyResource = resourceIn(cell(2))
		if !o.SellResource.Valid() || !o.BuyResource.Valid() {
			return Offer{}, false
		}
		o.SellAmount = intIn(cell(1))
		o.BuyAmount = intIn(cell(3))
		timeCell = cell(5)
	}

	if o.SellAmount <= 0 || o.BuyAmount <= 0 {
		return Offer{}, false
	}

	o.Ratio = float64(o.BuyAmount) / float64(o.SellAmount)
	if ratioCell != nil {
		// The rendered ratio wins over our arithmetic when it parses;
		// rendering and arithmetic can diverge.
		txt := strings.ReplaceAll(ratioCell.Text(), ",", ".")
		if m := floatRe.FindString(txt); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil && f > 0 {
				o.Ratio = f
			}
		}
	}

	if timeCell != nil {
		o.TravelMinutes = ParseTravelTime(timeCell.Text())
	}
	if availCell != nil {
		if m := digitsRe.FindString(availCell.Text()); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n > 0 {
				o.Availability = n
			}
		}
	}

	actionCell := cells.Eq(cells.Length() - 1)
	form := actionCell.Find("form.market_accept_offer")
	if form.Length() > 0 {
		o.CanAccept = true
		if id, ok := form.Find(`input[name="id"]`).Attr("value"); ok {
			o.ID = id
		}
	}

	o.Merchants = MerchantsFor(o.BuyAmount, carry)
	return o, true
}

// resourceIn detects the resource type of a cell by its icon class. Text
// content is deliberately not consulted.
func resourceIn(cell *goquery.Selection) Resource {
	switch {
	case cell.Find(".wood").Length() > 0:
		return Wood
	case cell.Find(".stone").Length() > 0:
		return Stone
	case cell.Find(".iron").Length() > 0:
		return Iron
	}
	return ""
}

// intIn extracts the first integer from a cell, tolerating locale separators
// by dropping every non-digit rune.
func intIn(cell *goquery.Selection) int {
	var b strings.Builder
	for _, r := range cell.Text() {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// ExtractVillage reads the resource bar and merchant counters out of a page
// snapshot. Missing elements leave their fields at zero.
func ExtractVillage(html string) (Village, error) {
	v := Village{Resources: map[Resource]int{}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return v, fmt.Errorf("parse page: %w", err)
	}

	for _, r := range Resources {
		v.Resources[r] = intIn(doc.Find("#" + string(r)))
	}
	v.Storage = intIn(doc.Find("#storage"))
	v.MerchantsAvailable = intIn(doc.Find("#market_merchant_available_count"))
	v.MerchantsTotal = intIn(doc.Find("#market_merchant_total_count"))
	v.CarryCapacity = intIn(doc.Find("#market_merchant_max_transport"))

	// Older markup shows merchants only as "x/y" in the status bar.
	if v.MerchantsAvailable == 0 && v.MerchantsTotal == 0 {
		if m := pairRe.FindStringSubmatch(doc.Find("#market_status_bar").Text()); m != nil {
			v.MerchantsAvailable, _ = strconv.Atoi(m[1])
			v.MerchantsTotal, _ = strconv.Atoi(m[2])
		}
	}
	if v.CarryCapacity <= 0 {
		v.CarryCapacity = 1000
	}
	return v, nil
}

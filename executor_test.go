package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"twmarketbot/config"
	"twmarketbot/market"
	"twmarketbot/page"
)

// fakeDriver satisfies the page interfaces with canned responses and records
// every interaction. When pageHTML is set it serves per-page markup and
// NextPage switches the displayed page, like the real pagination does.
type fakeDriver struct {
	tabStatus page.Status
	html      string
	pageHTML  map[int]string
	curPage   int

	nextPages   []int
	setTexts    []string
	selects     []string
	submits     []string
	submitPages []int
}

func (f *fakeDriver) page() int {
	if f.curPage == 0 {
		return 1
	}
	return f.curPage
}

func (f *fakeDriver) OpenTab(ctx context.Context, tab string) (page.Status, error) {
	return f.tabStatus, nil
}

func (f *fakeDriver) NextPage(ctx context.Context, pageNum int) (bool, error) {
	f.nextPages = append(f.nextPages, pageNum)
	if _, ok := f.pageHTML[pageNum]; ok {
		f.curPage = pageNum
		return true, nil
	}
	return false, nil
}

func (f *fakeDriver) HTML(ctx context.Context) (string, error) {
	if h, ok := f.pageHTML[f.page()]; ok {
		return h, nil
	}
	return f.html, nil
}

func (f *fakeDriver) WaitMarker(ctx context.Context, selector string) error {
	return nil
}

func (f *fakeDriver) Click(ctx context.Context, selector string) error {
	return nil
}

func (f *fakeDriver) SetText(ctx context.Context, selector, text string) error {
	f.setTexts = append(f.setTexts, selector+"="+text)
	return nil
}

func (f *fakeDriver) SelectOption(ctx context.Context, selector, value string) error {
	f.selects = append(f.selects, selector+"="+value)
	return nil
}

func (f *fakeDriver) Submit(ctx context.Context, selector string) error {
	f.submits = append(f.submits, selector)
	f.submitPages = append(f.submitPages, f.page())
	return nil
}

const marketPage = `
<span id="wood">20000</span>
<span id="stone">5000</span>
<span id="iron">20000</span>
<span id="storage">40000</span>
<span id="market_merchant_available_count">5</span>
<span id="market_merchant_total_count">8</span>
<span id="market_merchant_max_transport">1000</span>
<table class="vis">
<tr><th>Erhalte</th><th>Für</th><th>Anbieter</th><th>Dauer</th><th>Verhältnis</th><th>Verfügbar</th><th>Annehmen</th></tr>
<tr>
  <td><span class="stone"></span> 1.000</td>
  <td><span class="wood"></span> 1.000</td>
  <td>Wanderer</td>
  <td>0:30</td>
  <td>1,00</td>
  <td>3</td>
  <td><form class="market_accept_offer"><input name="id" value="77"><input name="count" value="1"></form></td>
</tr>
</table>`

func testExecutor(f *fakeDriver, t *testing.T) *Executor {
	st := testStore(t)
	return NewExecutor(f, f, f, st, quietLogger(), config.Defaults().Trade)
}

func testPolicy() market.Policy {
	return market.Policy{
		AutoLimits:  true,
		MinStockPct: 0.2,
		MaxStockPct: 0.8,
		Priorities:  map[market.Resource]int{market.Wood: 5, market.Stone: 5, market.Iron: 5},
	}
}

func TestExecuteAcceptOffer(t *testing.T) {
	f := &fakeDriver{tabStatus: page.AlreadyThere, html: marketPage}
	ex := testExecutor(f, t)

	d := market.Decision{
		Kind:     market.RebalanceBuy,
		Resource: market.Stone,
		PayWith:  market.Wood,
		Amount:   3000,
	}
	p, err := ex.Execute(context.Background(), d, testPolicy(), time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Availability 3, wood covers 12 lots above the floor, 5 merchants at
	// 1 per lot: availability is the binding bound.
	if len(f.setTexts) != 1 || !strings.Contains(f.setTexts[0], `input[name="count"]=3`) {
		t.Fatalf("count input = %v, want count set to 3", f.setTexts)
	}
	if len(f.submits) != 1 || !strings.Contains(f.submits[0], `input[name="id"][value="77"]`) {
		t.Fatalf("submits = %v, want the offer-77 accept form", f.submits)
	}

	// The match sat on page 1, so no pagination happened.
	if len(f.nextPages) != 0 {
		t.Errorf("nextPages = %v, want no pagination on an in-page match", f.nextPages)
	}

	if p.Kind != pendingAccept {
		t.Errorf("pending kind = %s, want %s", p.Kind, pendingAccept)
	}
	if p.MerchantsBefore != 5 || p.MerchantsDelta != 3 {
		t.Errorf("merchants = %d/%d, want before 5 delta 3", p.MerchantsBefore, p.MerchantsDelta)
	}
	if p.ReceiveResource != "stone" || p.ReceiveAmount != 3000 {
		t.Errorf("receive = %s %d, want stone 3000", p.ReceiveResource, p.ReceiveAmount)
	}

	pendings, err := ex.st.Pendings()
	if err != nil || len(pendings) != 1 {
		t.Fatalf("persisted pendings = %d, %v; want 1", len(pendings), err)
	}
}

// ironFrontPage is a first listing page with only an iron offer, so a stone
// search has to advance. It carries the village header like the real page 1.
const ironFrontPage = `
<span id="wood">20000</span>
<span id="stone">5000</span>
<span id="iron">20000</span>
<span id="storage">40000</span>
<span id="market_merchant_available_count">5</span>
<span id="market_merchant_total_count">8</span>
<span id="market_merchant_max_transport">1000</span>
<table class="vis">
<tr><th>Erhalte</th><th>Für</th><th>Anbieter</th><th>Dauer</th><th>Verhältnis</th><th>Verfügbar</th><th>Annehmen</th></tr>
<tr>
  <td><span class="iron"></span> 1.000</td>
  <td><span class="wood"></span> 1.000</td>
  <td>Wanderer</td>
  <td>0:30</td>
  <td>1,00</td>
  <td>3</td>
  <td><form class="market_accept_offer"><input name="id" value="55"><input name="count" value="1"></form></td>
</tr>
</table>`

const stoneSecondPage = `
<table class="vis">
<tr><th>Erhalte</th><th>Für</th><th>Anbieter</th><th>Dauer</th><th>Verhältnis</th><th>Verfügbar</th><th>Annehmen</th></tr>
<tr>
  <td><span class="stone"></span> 1.000</td>
  <td><span class="wood"></span> 1.000</td>
  <td>Wanderer</td>
  <td>0:45</td>
  <td>1,00</td>
  <td>2</td>
  <td><form class="market_accept_offer"><input name="id" value="88"><input name="count" value="1"></form></td>
</tr>
</table>`

func TestExecuteAcceptOnLaterPage(t *testing.T) {
	f := &fakeDriver{
		tabStatus: page.AlreadyThere,
		pageHTML:  map[int]string{1: ironFrontPage, 2: stoneSecondPage},
	}
	ex := testExecutor(f, t)

	d := market.Decision{
		Kind:     market.RebalanceBuy,
		Resource: market.Stone,
		PayWith:  market.Wood,
		Amount:   3000,
	}
	_, err := ex.Execute(context.Background(), d, testPolicy(), time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(f.nextPages) != 1 || f.nextPages[0] != 2 {
		t.Fatalf("nextPages = %v, want a single advance to page 2", f.nextPages)
	}
	if len(f.submits) != 1 || !strings.Contains(f.submits[0], `input[name="id"][value="88"]`) {
		t.Fatalf("submits = %v, want the page-2 offer-88 form", f.submits)
	}
	// The form must be filled and submitted while its page is displayed.
	if len(f.submitPages) != 1 || f.submitPages[0] != 2 {
		t.Fatalf("submitPages = %v, want the submit on page 2", f.submitPages)
	}
}

func TestExecuteStalePage(t *testing.T) {
	f := &fakeDriver{tabStatus: page.Reloaded, html: marketPage}
	ex := testExecutor(f, t)

	d := market.Decision{Kind: market.RebalanceBuy, Resource: market.Stone, PayWith: market.Wood}
	_, err := ex.Execute(context.Background(), d, testPolicy(), time.Now())
	if !errors.Is(err, errStalePage) {
		t.Fatalf("err = %v, want errStalePage", err)
	}
	if len(f.submits) != 0 {
		t.Fatalf("nothing may be submitted on a stale page, got %v", f.submits)
	}
}

func TestExecuteNoViableOffer(t *testing.T) {
	f := &fakeDriver{tabStatus: page.AlreadyThere, html: marketPage}
	ex := testExecutor(f, t)

	// The board only sells stone; asking for iron finds nothing.
	d := market.Decision{Kind: market.RebalanceBuy, Resource: market.Iron, PayWith: market.Wood}
	_, err := ex.Execute(context.Background(), d, testPolicy(), time.Now())
	if !errors.Is(err, errNoViableOffer) {
		t.Fatalf("err = %v, want errNoViableOffer", err)
	}
}

func TestExecuteOwnOffer(t *testing.T) {
	f := &fakeDriver{tabStatus: page.Navigated, html: marketPage}
	st := testStore(t)
	cfg := config.Defaults().Trade
	cfg.PreferSingleMerchant = false
	ex := NewExecutor(f, f, f, st, quietLogger(), cfg)

	d := market.Decision{
		Kind:     market.OwnOffer,
		Resource: market.Iron,
		PayWith:  market.Wood,
		Amount:   4000,
	}
	p, err := ex.Execute(context.Background(), d, testPolicy(), time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantSelects := []string{
		`select[name="sell_resource"]=wood`,
		`select[name="buy_resource"]=iron`,
	}
	for i, want := range wantSelects {
		if i >= len(f.selects) || f.selects[i] != want {
			t.Fatalf("selects = %v, want %v", f.selects, wantSelects)
		}
	}
	for _, set := range f.setTexts {
		if !strings.HasSuffix(set, "=4000") {
			t.Errorf("amount input %q, want 4000", set)
		}
	}
	if len(f.submits) != 1 {
		t.Fatalf("submits = %v, want one form submit", f.submits)
	}

	if p.Kind != pendingOwnOffer || p.MerchantsDelta != 4 {
		t.Errorf("pending = %s delta %d, want own_offer delta 4", p.Kind, p.MerchantsDelta)
	}
}

func TestExecuteOwnOfferSingleMerchant(t *testing.T) {
	f := &fakeDriver{tabStatus: page.AlreadyThere, html: marketPage}
	st := testStore(t)
	cfg := config.Defaults().Trade
	cfg.PreferSingleMerchant = true
	ex := NewExecutor(f, f, f, st, quietLogger(), cfg)

	d := market.Decision{
		Kind:     market.OwnOffer,
		Resource: market.Iron,
		PayWith:  market.Wood,
		Amount:   4000,
	}
	p, err := ex.Execute(context.Background(), d, testPolicy(), time.Now())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p.MerchantsDelta != 1 || p.ReceiveAmount != 1000 {
		t.Errorf("delta %d amount %d, want the offer clipped to one merchant load", p.MerchantsDelta, p.ReceiveAmount)
	}
}

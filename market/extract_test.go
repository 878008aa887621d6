package market

import "testing"

const offerPage = `
<html><body>
<table class="vis">
<tr><th>Erhalte</th><th>Für</th><th>Anbieter</th><th>Dauer</th><th>Verhältnis</th><th>Verfügbar</th><th>Annehmen</th></tr>
<tr>
  <td><span class="icon header wood"></span> 1.000</td>
  <td><span class="icon header stone"></span> 800</td>
  <td>Wanderer</td>
  <td>1:30</td>
  <td>0,75</td>
  <td>3</td>
  <td><form class="market_accept_offer" method="post"><input name="id" type="hidden" value="4711"><input name="count" value="1"></form></td>
</tr>
<tr>
  <td>kein Symbol 500</td>
  <td><span class="icon header iron"></span> 500</td>
  <td>Wanderer</td>
  <td>0:10</td>
  <td>1,00</td>
  <td>1</td>
  <td></td>
</tr>
<tr>
  <td><span class="icon header iron"></span> 2.000</td>
  <td><span class="icon header wood"></span> 2.400</td>
  <td>Siedler</td>
  <td>0:45</td>
  <td>1,20</td>
  <td>2</td>
  <td><form class="market_accept_offer" method="post"><input name="id" type="hidden" value="4712"><input name="count" value="1"></form></td>
</tr>
</table>
</body></html>`

func TestExtractOffers(t *testing.T) {
	offers, err := ExtractOffers(offerPage, 1000)
	if err != nil {
		t.Fatalf("ExtractOffers: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2 (iconless row skipped)", len(offers))
	}

	o := offers[0]
	if o.ID != "4711" {
		t.Errorf("ID = %q, want 4711", o.ID)
	}
	if o.SellResource != Wood || o.SellAmount != 1000 {
		t.Errorf("sell side = %s %d, want wood 1000", o.SellResource, o.SellAmount)
	}
	if o.BuyResource != Stone || o.BuyAmount != 800 {
		t.Errorf("buy side = %s %d, want stone 800", o.BuyResource, o.BuyAmount)
	}
	if o.Ratio != 0.75 {
		t.Errorf("Ratio = %v, want the displayed 0.75 over the computed 0.8", o.Ratio)
	}
	if o.TravelMinutes != 90 {
		t.Errorf("TravelMinutes = %v, want 90", o.TravelMinutes)
	}
	if o.Availability != 3 {
		t.Errorf("Availability = %d, want 3", o.Availability)
	}
	if !o.CanAccept {
		t.Error("offer with accept form should be acceptable")
	}
	if o.Merchants != 1 {
		t.Errorf("Merchants = %d, want 1", o.Merchants)
	}

	if offers[1].Merchants != 3 {
		t.Errorf("Merchants = %d, want 3 for a 2400 payment at carry 1000", offers[1].Merchants)
	}
}

func TestExtractOffersAlternateLayout(t *testing.T) {
	page := `
<table class="vis">
<tr><th>Erhalte</th><th>Menge</th><th>Für</th><th>Menge</th><th>Dorf</th><th>Dauer</th><th>Annehmen</th></tr>
<tr>
  <td><span class="wood"></span></td>
  <td>600</td>
  <td><span class="iron"></span></td>
  <td>900</td>
  <td>Barbarendorf</td>
  <td>0:20</td>
  <td><form class="market_accept_offer"><input name="id" value="99"></form></td>
</tr>
</table>`
	offers, err := ExtractOffers(page, 1000)
	if err != nil {
		t.Fatalf("ExtractOffers: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}
	o := offers[0]
	if o.SellResource != Wood || o.SellAmount != 600 {
		t.Errorf("sell side = %s %d, want wood 600", o.SellResource, o.SellAmount)
	}
	if o.BuyResource != Iron || o.BuyAmount != 900 {
		t.Errorf("buy side = %s %d, want iron 900", o.BuyResource, o.BuyAmount)
	}
	if o.Ratio != 1.5 {
		t.Errorf("Ratio = %v, want computed 1.5", o.Ratio)
	}
	if o.TravelMinutes != 20 {
		t.Errorf("TravelMinutes = %v, want 20", o.TravelMinutes)
	}
	if o.ID != "99" || !o.CanAccept {
		t.Errorf("accept form not picked up: id=%q canAccept=%v", o.ID, o.CanAccept)
	}
}

func TestExtractOffersNoTable(t *testing.T) {
	offers, err := ExtractOffers("<html><body><p>loading</p></body></html>", 1000)
	if err != nil {
		t.Fatalf("ExtractOffers: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("got %d offers, want none", len(offers))
	}
}

func TestExtractVillage(t *testing.T) {
	page := `
<span id="wood">12.345</span>
<span id="stone">6789</span>
<span id="iron">10</span>
<span id="storage">40000</span>
<span id="market_merchant_available_count">5</span>
<span id="market_merchant_total_count">8</span>
<span id="market_merchant_max_transport">1000</span>`
	v, err := ExtractVillage(page)
	if err != nil {
		t.Fatalf("ExtractVillage: %v", err)
	}
	if v.Resources[Wood] != 12345 || v.Resources[Stone] != 6789 || v.Resources[Iron] != 10 {
		t.Errorf("resources = %v", v.Resources)
	}
	if v.Storage != 40000 {
		t.Errorf("Storage = %d, want 40000", v.Storage)
	}
	if v.MerchantsAvailable != 5 || v.MerchantsTotal != 8 {
		t.Errorf("merchants = %d/%d, want 5/8", v.MerchantsAvailable, v.MerchantsTotal)
	}
	if v.CarryCapacity != 1000 {
		t.Errorf("CarryCapacity = %d, want 1000", v.CarryCapacity)
	}
}

func TestExtractVillageStatusBarFallback(t *testing.T) {
	page := `<div id="market_status_bar">Händler: 3/7</div>`
	v, err := ExtractVillage(page)
	if err != nil {
		t.Fatalf("ExtractVillage: %v", err)
	}
	if v.MerchantsAvailable != 3 || v.MerchantsTotal != 7 {
		t.Errorf("merchants = %d/%d, want 3/7", v.MerchantsAvailable, v.MerchantsTotal)
	}
	if v.CarryCapacity != 1000 {
		t.Errorf("CarryCapacity = %d, want default 1000", v.CarryCapacity)
	}
}

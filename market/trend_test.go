package market

import (
	"testing"
	"time"
)

func pointSeries(prices []float64) []PricePoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = PricePoint{Resource: Wood, At: base.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return pts
}

func TestAnalyzeTrendDirections(t *testing.T) {
	rising := AnalyzeTrend(Wood, pointSeries([]float64{1.0, 1.0, 1.0, 1.5, 1.5, 1.5}))
	if rising.Direction != Rising {
		t.Errorf("Direction = %s (%.1f%%), want rising", rising.Direction, rising.ChangePct)
	}

	falling := AnalyzeTrend(Wood, pointSeries([]float64{2.0, 2.0, 2.0, 1.0, 1.0, 1.0}))
	if falling.Direction != Falling {
		t.Errorf("Direction = %s (%.1f%%), want falling", falling.Direction, falling.ChangePct)
	}

	flat := AnalyzeTrend(Wood, pointSeries([]float64{1.0, 1.01, 1.0, 1.02, 1.0, 1.01}))
	if flat.Direction != Flat {
		t.Errorf("Direction = %s (%.1f%%), want flat", flat.Direction, flat.ChangePct)
	}
}

func TestAnalyzeTrendVolatility(t *testing.T) {
	calm := AnalyzeTrend(Wood, pointSeries([]float64{1.0, 1.0, 1.01, 1.0, 0.99, 1.0}))
	if calm.Volatility != VolLow {
		t.Errorf("Volatility = %s, want low", calm.Volatility)
	}

	wild := AnalyzeTrend(Wood, pointSeries([]float64{1.0, 2.0, 0.5, 2.5, 0.4, 2.2}))
	if wild.Volatility != VolHigh {
		t.Errorf("Volatility = %s, want high", wild.Volatility)
	}
}

func TestAnalyzeTrendShortSeries(t *testing.T) {
	tr := AnalyzeTrend(Wood, nil)
	if tr.Direction != Flat || tr.Samples != 0 {
		t.Errorf("empty series should be flat with 0 samples, got %+v", tr)
	}
	tr = AnalyzeTrend(Wood, pointSeries([]float64{1.0}))
	if tr.Direction != Flat {
		t.Errorf("single point should be flat, got %s", tr.Direction)
	}
}

package market

import (
	"math"

	"github.com/chewxy/stl"
)

type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Flat    Direction = "flat"
)

type Volatility string

const (
	VolLow    Volatility = "low"
	VolMedium Volatility = "medium"
	VolHigh   Volatility = "high"
)

// Trend summarizes the recent price movement of one resource. ChangePct is
// the percentage move of the second half of the window against the first.
type Trend struct {
	Resource   Resource
	Direction  Direction
	ChangePct  float64
	Volatility Volatility
	Samples    int
}

// stlPeriod is the assumed seasonal cycle length in observations. Cycles
// run every couple of minutes, so this is roughly an hour of market data.
const stlPeriod = 12

// AnalyzeTrend classifies a resource's price series. A move under 5 percent
// counts as flat. With enough samples the series is first decomposed with
// STL so that the direction reads off the smoothed trend component instead
// of raw observations.
func AnalyzeTrend(r Resource, pts []PricePoint) Trend {
	t := Trend{Resource: r, Direction: Flat, Volatility: VolLow, Samples: len(pts)}
	if len(pts) < 2 {
		return t
	}

	series := make([]float64, len(pts))
	for i, p := range pts {
		series[i] = p.Price
	}

	mean, sd := meanStd(series)
	if mean > 0 {
		switch cv := sd / mean; {
		case cv >= 0.25:
			t.Volatility = VolHigh
		case cv >= 0.1:
			t.Volatility = VolMedium
		}
	}

	if len(series) >= 3*stlPeriod {
		res := stl.Decompose(series, stlPeriod, stlPeriod*2+1, stl.Additive(),
			stl.WithIter(2), stl.WithRobustIter(2))
		if res.Err == nil && len(res.Trend) == len(series) {
			series = res.Trend
		}
	}

	half := len(series) / 2
	early, _ := meanStd(series[:half])
	late, _ := meanStd(series[half:])
	if early > 0 {
		t.ChangePct = (late/early - 1) * 100
	}
	switch {
	case t.ChangePct >= 5:
		t.Direction = Rising
	case t.ChangePct <= -5:
		t.Direction = Falling
	}
	return t
}

func meanStd(xs []float64) (mean, sd float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

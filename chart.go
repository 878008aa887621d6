package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"twmarketbot/market"
	"twmarketbot/store"
)

// RenderPriceChart draws the stored price history of all resources into a
// PNG at path. Timestamps go on the X axis as unix hours so the lines share
// a scale.
func RenderPriceChart(st *store.Store, path string) error {
	p := plot.New()
	p.Title.Text = "Market prices"
	p.X.Label.Text = "hours"
	p.Y.Label.Text = "ratio"

	var args []interface{}
	for _, r := range market.Resources {
		pts, err := st.PricePoints(r)
		if err != nil {
			return fmt.Errorf("load %s history: %w", r, err)
		}
		if len(pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(pts))
		base := pts[0].At
		for i, pt := range pts {
			xys[i].X = pt.At.Sub(base).Hours()
			xys[i].Y = pt.Price
		}
		args = append(args, string(r), xys)
	}
	if len(args) == 0 {
		return fmt.Errorf("no price history to chart")
	}

	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return fmt.Errorf("plot lines: %w", err)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

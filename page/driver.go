package page

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"twmarketbot/config"
)

// Status reports how a tab navigation was satisfied.
type Status int

const (
	// AlreadyThere means the requested tab was already open.
	AlreadyThere Status = iota
	// Navigated means the tab was reached by an in-page click.
	Navigated
	// Reloaded means a full page load was needed. Callers should treat
	// the page state as stale and restart their read on the next cycle.
	Reloaded
	// Failed means the tab could not be reached.
	Failed
)

// Market tabs.
const (
	TabOffers   = "other_offer"
	TabOwnOffer = "own_offer"
)

// Querier reads page state.
type Querier interface {
	HTML(ctx context.Context) (string, error)
	WaitMarker(ctx context.Context, selector string) error
}

// Navigator moves between market tabs and listing pages.
type Navigator interface {
	OpenTab(ctx context.Context, tab string) (Status, error)
	NextPage(ctx context.Context, pageNum int) (bool, error)
}

// Input performs form interaction.
type Input interface {
	Click(ctx context.Context, selector string) error
	SetText(ctx context.Context, selector, text string) error
	SelectOption(ctx context.Context, selector, value string) error
	Submit(ctx context.Context, selector string) error
}

// Driver is the chromedp-backed implementation of Querier, Navigator and
// Input. Every input op is preceded by a short randomized pause so that
// interactions never land back to back at machine speed.
type Driver struct {
	browser *Browser
	rng     *rand.Rand

	// bounds for the pre-action pause
	pauseMin, pauseMax time.Duration
}

func NewDriver(b *Browser, rng *rand.Rand, pacing config.PacingConfig) *Driver {
	return &Driver{
		browser:  b,
		rng:      rng,
		pauseMin: time.Duration(pacing.MinActionDelayMs) * time.Millisecond,
		pauseMax: time.Duration(pacing.MaxActionDelayMs) * time.Millisecond,
	}
}

func (d *Driver) pause() {
	wait := d.pauseMin
	if span := d.pauseMax - d.pauseMin; span > 0 {
		wait += time.Duration(d.rng.Int63n(int64(span)))
	}
	time.Sleep(wait)
}

func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := mergeTimeout(d.browser.ctx, ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// HTML snapshots the full document.
func (d *Driver) HTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, 15*time.Second,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("snapshot page: %w", err)
	}
	return html, nil
}

// WaitMarker polls until the selector matches an element, checking every
// 100ms with a bounded try count rather than blocking indefinitely.
func (d *Driver) WaitMarker(ctx context.Context, selector string) error {
	const tries = 50
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	for i := 0; i < tries; i++ {
		var present bool
		if err := d.run(ctx, 5*time.Second, chromedp.Evaluate(script, &present)); err != nil {
			return err
		}
		if present {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("marker %q not found", selector)
}

// OpenTab brings the requested market tab up. When already on the market
// screen the tab link is clicked in place; otherwise a full navigation is
// issued and Reloaded is returned so the caller can start over from a fresh
// page.
func (d *Driver) OpenTab(ctx context.Context, tab string) (Status, error) {
	var loc string
	if err := d.run(ctx, 10*time.Second, chromedp.Location(&loc)); err != nil {
		return Failed, fmt.Errorf("read location: %w", err)
	}

	switch {
	case strings.Contains(loc, "screen=market") && strings.Contains(loc, "mode="+tab):
		return AlreadyThere, nil

	case strings.Contains(loc, "screen=market"):
		d.pause()
		sel := fmt.Sprintf(`a[href*="screen=market"][href*="mode=%s"]`, tab)
		err := d.run(ctx, 15*time.Second,
			chromedp.Click(sel, chromedp.NodeVisible, chromedp.ByQuery),
		)
		if err != nil {
			return Failed, fmt.Errorf("open tab %s: %w", tab, err)
		}
		if err := d.WaitMarker(ctx, "#market_merchant_available_count"); err != nil {
			return Failed, err
		}
		return Navigated, nil

	default:
		d.pause()
		url := d.browser.cfg.WorldURL + "/game.php?screen=market&mode=" + tab
		if err := d.run(ctx, 20*time.Second, chromedp.Navigate(url)); err != nil {
			return Failed, fmt.Errorf("navigate to market: %w", err)
		}
		return Reloaded, nil
	}
}

// NextPage clicks the pagination link for pageNum. Returns false when the
// listing has no such page.
func (d *Driver) NextPage(ctx context.Context, pageNum int) (bool, error) {
	script := fmt.Sprintf(`(function() {
		var links = document.querySelectorAll('a.paged-nav-item');
		for (var i = 0; i < links.length; i++) {
			if (links[i].textContent.replace(/\D/g, '') === '%d') {
				links[i].click();
				return true;
			}
		}
		return false;
	})()`, pageNum)

	d.pause()
	var clicked bool
	if err := d.run(ctx, 10*time.Second, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, fmt.Errorf("page %d: %w", pageNum, err)
	}
	if !clicked {
		return false, nil
	}
	return true, d.WaitMarker(ctx, "table.vis")
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	d.pause()
	return d.run(ctx, 10*time.Second,
		chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery),
	)
}

func (d *Driver) SetText(ctx context.Context, selector, text string) error {
	d.pause()
	return d.run(ctx, 10*time.Second,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (d *Driver) SelectOption(ctx context.Context, selector, value string) error {
	d.pause()
	return d.run(ctx, 10*time.Second,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	)
}

func (d *Driver) Submit(ctx context.Context, selector string) error {
	d.pause()
	return d.run(ctx, 15*time.Second,
		chromedp.Submit(selector, chromedp.ByQuery),
	)
}

package page

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"twmarketbot/config"
)

// Browser owns a Chrome instance bound to one game world.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.SessionConfig
}

// NewBrowser launches Chrome and opens the world's landing page.
func NewBrowser(cfg config.SessionConfig) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), Flags(cfg)...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx, chromedp.Navigate(cfg.WorldURL)); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("open world page: %w", err)
	}

	return &Browser{
		ctx: ctx,
		cancel: func() {
			cancel()
			allocCancel()
		},
		cfg: cfg,
	}, nil
}

// Login injects the session cookie and reloads until the in-game top bar is
// visible. The world must already allow the cookie's session.
func (b *Browser) Login(ctx context.Context) error {
	ctx, cancel := mergeTimeout(b.ctx, ctx, 30*time.Second)
	defer cancel()

	return chromedp.Run(ctx,
		chromedp.Navigate(b.cfg.WorldURL),

		// Set the session cookie
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies([]*network.CookieParam{
				{
					Name:     "sid",
					Value:    b.cfg.SessionCookie,
					Domain:   b.cfg.CookieDomain,
					Path:     "/",
					Secure:   true,
					HTTPOnly: true,
				},
			}).Do(ctx)
		}),

		// Reload to apply the cookie
		chromedp.Reload(),

		// Wait for logged-in state (resource bar)
		chromedp.WaitVisible("#wood", chromedp.ByQuery),
	)
}

// Context returns the browser's chromedp context.
func (b *Browser) Context() context.Context {
	return b.ctx
}

// Close tears the browser down.
func (b *Browser) Close() {
	b.cancel()
}

// mergeTimeout derives a bounded chromedp context that is also cancelled
// when the caller's context ends.
func mergeTimeout(browser, caller context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(browser, d)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

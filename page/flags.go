// Package page drives the game through a real Chrome instance: session
// bootstrap, market navigation, snapshot reads and form input.
package page

import (
	"github.com/chromedp/chromedp"

	"twmarketbot/config"
)

// Flags builds the allocator options for a fast, quiet browser that does not
// advertise itself as automated.
func Flags(cfg config.SessionConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Core performance flags
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		// Network and loading optimizations
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-default-apps", true),

		// Memory and resource optimizations
		chromedp.Flag("memory-pressure-off", true),
		chromedp.Flag("aggressive-cache-discard", true),

		// Disable unnecessary features
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-plugins", true),

		// Audio optimizations
		chromedp.Flag("disable-audio-output", true),

		// Hide the automation fingerprint
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-component-extensions-with-background-pages", true),

		// Logging (disable for speed)
		chromedp.Flag("disable-logging", true),
		chromedp.Flag("log-level", "3"),

		// User agent
		chromedp.Flag("user-agent", cfg.UserAgent),
	)

	return opts
}

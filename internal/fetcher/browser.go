package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/automation"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/config"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod. It
// renders the page, opens the modals named by the request and returns the
// final DOM together with the captured modal bodies.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.Config
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewBrowserFetcher launches a browser and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:    cfg,
		logger: logger.With("component", "browser_fetcher"),
	}

	launchURL, err := bf.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready",
		"headless", cfg.Fetcher.Headless,
		"stealth", cfg.Fetcher.Stealth,
	)
	return bf, nil
}

// launchBrowser starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(bf.cfg.Fetcher.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", "1366,768")

	return l.Launch()
}

func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.cfg.Fetcher.Stealth {
		page, err := stealth.Page(bf.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Fetch navigates to the request URL and returns the rendered page. Pages are
// fetched one at a time.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	start := time.Now()

	page, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	defer page.Close()
	page = page.Context(ctx)

	if len(bf.cfg.Fetcher.UserAgents) > 0 {
		ua := bf.cfg.Fetcher.UserAgents[req.Page%len(bf.cfg.Fetcher.UserAgents)]
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	timeout := bf.cfg.Fetcher.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	ba := automation.NewBrowserAutomation(page, bf.cfg.Fetcher.ModalWait, bf.logger)
	if bf.cfg.Scraper.Humanize {
		if err := ba.HumanScroll(ctx); err != nil {
			bf.logger.Debug("scroll simulation failed", "error", err)
		}
		if err := ba.MoveMouseRandomly(ctx); err != nil {
			bf.logger.Debug("mouse simulation failed", "error", err)
		}
	}

	modals, err := ba.CaptureModals(ctx, req.ModalClasses)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	resp := types.NewBrowserResponse(req, []byte(html), finalURL, modals, duration)

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"modals", len(modals),
		"duration", duration,
	)
	return resp, nil
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// -----------------------------------------------------------------------
// Browser Service - owned Chrome instance driven through chromedp
// One browser process per application lifetime; scans open pages (tabs)
// against it. Closed-context errors surface as typed automation faults.
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/services/pacing"
)

// Browser wraps a single Chrome process shared by sequential scans.
type Browser struct {
	config          common.BrowserConfig
	logger          arbor.ILogger
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	mu              sync.Mutex
	initialized     bool
}

// New launches the shared browser and verifies it responds.
func New(config common.BrowserConfig, logger arbor.ILogger) (*Browser, error) {
	b := &Browser{
		config: config,
		logger: logger,
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = pacing.RandomUserAgent()
	}

	opts := buildAllocatorOptions(config, userAgent)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	b.allocatorCancel = allocatorCancel

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel

	startupWait := config.StartupWait
	if startupWait <= 0 {
		startupWait = 30 * time.Second
	}

	testCtx, testCancel := context.WithTimeout(browserCtx, startupWait)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	b.initialized = true
	b.logger.Info().
		Bool("headless", config.Headless).
		Str("user_agent", userAgent).
		Msg("Browser initialized")

	return b, nil
}

// buildAllocatorOptions assembles the Chrome flag set, including the stealth
// flags that suppress automation fingerprints.
func buildAllocatorOptions(config common.BrowserConfig, userAgent string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(userAgent),

		// Stealth flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),

		chromedp.WindowSize(1920, 1080),
	}

	if config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
		opts = append(opts, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if config.DisableGPU {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.Headless {
		// New headless mode is less detectable than the classic one
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}

// NewPage opens a fresh tab in the shared browser.
func (b *Browser) NewPage(ctx context.Context) (interfaces.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil, &interfaces.AutomationFault{Op: "new_page", Err: fmt.Errorf("browser not initialized")}
	}
	if b.browserCtx.Err() != nil {
		return nil, &interfaces.AutomationFault{Op: "new_page", Err: b.browserCtx.Err()}
	}

	pageCtx, pageCancel := chromedp.NewContext(b.browserCtx)
	return &Page{
		ctx:    pageCtx,
		cancel: pageCancel,
		logger: b.logger,
	}, nil
}

// Close shuts down the browser process. Safe to call more than once.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	b.initialized = false

	b.logger.Info().Msg("Shutting down browser")

	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocatorCancel != nil {
		b.allocatorCancel()
	}
	return nil
}

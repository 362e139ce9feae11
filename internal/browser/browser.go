package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// stealthScript hides the most obvious automation markers. Best effort only.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// Options controls how pages are loaded and captured
type Options struct {
	Headless          bool
	UserAgent         string
	Width             int
	Height            int
	ExecPath          string
	Stealth           bool
	Screenshot        bool
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ScrollPause       time.Duration
	MaxScrolls        int
}

// DefaultOptions mirrors the settings the share pages were tuned against.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		Width:             1920,
		Height:            1080,
		Stealth:           true,
		Screenshot:        true,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       5 * time.Second,
		ScrollPause:       1500 * time.Millisecond,
		MaxScrolls:        15,
	}
}

// FetchOption adjusts the options of a single Fetch.
type FetchOption func(*Options)

// Light loads the page and waits briefly, without scrolling or a screenshot.
func Light() FetchOption {
	return func(o *Options) {
		o.SettleDelay = 2 * time.Second
		o.MaxScrolls = 0
		o.Screenshot = false
	}
}

// Page is what was captured from one URL
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	HTML       string
	Screenshot []byte
	Scrolls    int
}

// Browser owns one headless Chrome; every Fetch runs in its own tab.
type Browser struct {
	opts          Options
	logger        *log.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent(opts.UserAgent),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	return allocOpts
}

// New launches the browser. Close must be called to shut it down.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		// CDP unmarshal errors for newer protocol events are noise
		chromedp.WithErrorf(logger.Debugf),
	)

	// start the browser now so that tab contexts do not own its lifetime
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		opts:          opts,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// Fetch loads targetURL in a fresh tab, waits for lazy content and captures
// the rendered page.
func (b *Browser) Fetch(ctx context.Context, targetURL string, fetchOpts ...FetchOption) (*Page, error) {
	opts := b.opts
	for _, apply := range fetchOpts {
		apply(&opts)
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	// the tab must not outlive the caller
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	if opts.Stealth {
		err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}))
		if err != nil {
			b.logger.Warn("Could not install stealth script", "url", targetURL, "err", err)
		}
	}

	p := &Page{URL: targetURL}

	navCtx, navCancel := context.WithTimeout(tabCtx, opts.NavigationTimeout)
	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(targetURL))
	navCancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigation timed out after %s: %w", opts.NavigationTimeout, err)
		}
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if resp != nil {
		p.StatusCode = int(resp.Status)
	}
	b.logger.Debug("Page loaded", "url", targetURL, "status", p.StatusCode)

	if opts.SettleDelay > 0 {
		if err := chromedp.Run(tabCtx, chromedp.Sleep(opts.SettleDelay)); err != nil {
			return nil, fmt.Errorf("interrupted while waiting for content: %w", err)
		}
	}

	if opts.MaxScrolls > 0 {
		if err := chromedp.Run(tabCtx, scrollToBottom(opts.MaxScrolls, opts.ScrollPause, &p.Scrolls)); err != nil {
			b.logger.Warn("Could not scroll page", "url", targetURL, "err", err)
		}
		b.logger.Debug("Scrolling complete", "url", targetURL, "attempts", p.Scrolls)
	}

	err = chromedp.Run(tabCtx,
		chromedp.Title(&p.Title),
		chromedp.Location(&p.FinalURL),
		chromedp.OuterHTML("html", &p.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}

	if opts.Screenshot {
		if err := chromedp.Run(tabCtx, chromedp.FullScreenshot(&p.Screenshot, 100)); err != nil {
			b.logger.Warn("Could not take screenshot", "url", targetURL, "err", err)
			p.Screenshot = nil
		}
	}

	return p, nil
}

// scrollToBottom keeps scrolling until the document stops growing or max
// attempts is reached. attempts receives the number of scrolls that grew
// the page.
func scrollToBottom(limit int, pause time.Duration, attempts *int) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var last int64
		if err := chromedp.Evaluate(`document.body.scrollHeight`, &last).Do(ctx); err != nil {
			return err
		}

		for *attempts < limit {
			if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx); err != nil {
				return err
			}
			if err := chromedp.Sleep(pause).Do(ctx); err != nil {
				return err
			}

			var height int64
			if err := chromedp.Evaluate(`document.body.scrollHeight`, &height).Do(ctx); err != nil {
				return err
			}
			if height == last {
				return nil
			}
			last = height
			*attempts++
		}
		return nil
	}
}

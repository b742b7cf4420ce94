package registration

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"

	"classconnect-scraper/utils"
)

// BrowserLoader renders pages in headless Chrome before parsing them. The registration
// site only hands out a usable session after its landing script has run, which plain
// HTTP cannot do from some networks.
type BrowserLoader struct {
	baseURL    string
	browserCtx context.Context
	cancel     context.CancelFunc
	timeout    time.Duration
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewBrowserLoader starts one headless browser shared by every Load, so cookies set by
// the landing script carry over between pages. Close releases it.
func NewBrowserLoader(baseURL, chromeBin string, timeout time.Duration, retry *utils.RetryConfig, logger *utils.Logger) (*BrowserLoader, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[registration] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Running the first context launches the browser; tabs created from it reuse it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, errors.WithHint(errors.Wrap(err, "registration: start browser"),
			"install Chrome or Chromium, or set CHROME_BIN")
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &BrowserLoader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		timeout: timeout,
		retry:   retry,
		logger:  logger,
	}, nil
}

// Load implements PageLoader.
func (b *BrowserLoader) Load(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	target := b.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var doc *goquery.Document
	err := b.retry.Do(ctx, "render "+path, func() error {
		tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
		defer cancelTab()
		stop := context.AfterFunc(ctx, cancelTab)
		defer stop()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()

		var html string
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(target),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		); err != nil {
			return errors.Wrap(err, "chromedp render")
		}

		parsed, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return utils.Permanent(errors.Wrap(err, "parse html"))
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("[registration] Rendered %s", target)
	return doc, nil
}

// Close shuts the browser down.
func (b *BrowserLoader) Close() {
	b.cancel()
}

// findChromeBinary locates a Chrome/Chromium binary; empty means "let chromedp search".
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

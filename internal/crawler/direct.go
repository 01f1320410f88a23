package crawler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"infracal/internal/model"
)

// Default direct-fetch parameters. Event pages are frequently rendered
// client-side, so a plain HTTP GET would miss their text entirely.
const (
	DefaultFetchTimeout = 30 * time.Second
)

// FetchOptions defines parameters for a headless direct page fetch.
type FetchOptions struct {
	// URL of the page to render.
	URL string

	// ConfigID recorded on the resulting page row.
	ConfigID string

	// Timeout bounds the entire navigate-and-extract operation. Zero
	// means DefaultFetchTimeout.
	Timeout time.Duration
}

// FetchPageText launches a headless Chromium instance via chromedp,
// navigates to opts.URL, waits for the document body, and extracts its
// rendered inner text as a Page. This fills the gap for URLs the crawl
// service has not exported yet.
func FetchPageText(parentCtx context.Context, opts FetchOptions) (model.Page, error) {
	if opts.URL == "" {
		return model.Page{}, errors.New("crawler: direct fetch URL is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
		)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var text string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady("body"),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return model.Page{}, err
	}

	return model.Page{
		URL:        opts.URL,
		HTTPStatus: http.StatusOK,
		FetchedAt:  time.Now().UTC(),
		ConfigID:   opts.ConfigID,
		PlainText:  strings.TrimSpace(text),
	}, nil
}

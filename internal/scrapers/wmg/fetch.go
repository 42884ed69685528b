package wmg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursewatch/internal/browser"
	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"
)

const report_fetcher_fetch = "fetcher.fetch"

const scrollToBottomScript = "window.scrollTo(0, document.body.scrollHeight);"

type FetchOptions struct {
	TargetUrl string
	// Marker is the selector that shows the course listing has rendered.
	Marker string
	Wait   time.Duration
	Settle time.Duration
}

// Fetcher loads the course listing in an authenticated browser.
type Fetcher struct {
	opts FetchOptions
	tel  telemetry.API
}

func NewFetcher(opts FetchOptions, tel telemetry.API) Fetcher {
	assert.NotEmptyStr(opts.TargetUrl)
	assert.NotEmptyStr(opts.Marker)
	assert.NotNil(tel)
	return Fetcher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("wmg", tel),
	}
}

// Fetch returns the markup of the listing, a listing that never shows the
// marker is still returned as is.
func (f Fetcher) Fetch(ctx context.Context, b browser.Browser) (string, bool) {
	err := b.Navigate(ctx, f.opts.TargetUrl)
	if err != nil {
		f.tel.ReportBroken(report_fetcher_fetch, fmt.Errorf("navigate: %w", err))
		return "", false
	}

	err = b.WaitFor(ctx, f.opts.Marker, f.opts.Wait)
	if errors.Is(err, browser.ErrWaitTimeout) {
		f.tel.ReportWarning(report_fetcher_fetch, fmt.Errorf("course cards did not appear within %s", f.opts.Wait))
	} else if err != nil {
		f.tel.ReportBroken(report_fetcher_fetch, fmt.Errorf("wait for %s: %w", f.opts.Marker, err))
		return "", false
	}

	err = b.ExecuteScript(ctx, scrollToBottomScript, nil)
	if err != nil {
		f.tel.ReportWarning(report_fetcher_fetch, fmt.Errorf("scroll: %w", err))
	}
	err = chrono.Sleep(ctx, f.opts.Settle)
	if err != nil {
		f.tel.ReportBroken(report_fetcher_fetch, err)
		return "", false
	}

	markup, err := b.Markup(ctx)
	if err != nil {
		f.tel.ReportBroken(report_fetcher_fetch, fmt.Errorf("read markup: %w", err))
		return "", false
	}
	if strings.TrimSpace(markup) == "" {
		f.tel.ReportBroken(report_fetcher_fetch, fmt.Errorf("empty page"))
		return "", false
	}
	return markup, true
}

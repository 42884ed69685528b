package wmg

import (
	"context"
	"fmt"

	"coursewatch/internal/browser"
	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"
)

const (
	report_scraper_launch       = "scraper.launch"
	report_scraper_page_content = "scraper.page-content"
)

// Scraper runs each operation in its own browser which is closed before
// the operation returns.
type Scraper struct {
	launcher browser.Launcher
	auth     Authenticator
	fetcher  Fetcher
	tel      telemetry.API
}

func NewScraper(launcher browser.Launcher, auth Authenticator, fetcher Fetcher, tel telemetry.API) Scraper {
	assert.NotNil(launcher)
	assert.NotNil(tel)
	return Scraper{
		launcher: launcher,
		auth:     auth,
		fetcher:  fetcher,
		tel:      telemetry.NewScopedAPI("wmg", tel),
	}
}

func (s Scraper) withBrowser(ctx context.Context, fn func(b browser.Browser)) error {
	b, err := s.launcher.Launch(ctx)
	if err != nil {
		s.tel.ReportBroken(report_scraper_launch, err)
		return err
	}
	defer func() {
		err := b.Close()
		if err != nil {
			s.tel.ReportWarning(report_scraper_launch, fmt.Errorf("close browser: %w", err))
		}
	}()
	fn(b)
	return nil
}

// PageContent logs in and returns the course listing markup, ok is false
// when either step failed.
func (s Scraper) PageContent(ctx context.Context) (markup string, ok bool) {
	err := s.withBrowser(ctx, func(b browser.Browser) {
		status := s.auth.Login(ctx, b)
		if !status.Success {
			s.tel.ReportWarning(report_scraper_page_content, fmt.Errorf("login failed: %s", status.Message), status.Detail)
			return
		}
		markup, ok = s.fetcher.Fetch(ctx, b)
	})
	if err != nil {
		return "", false
	}
	return markup, ok
}

// TestLogin runs only the login.
func (s Scraper) TestLogin(ctx context.Context) LoginStatus {
	var status LoginStatus
	err := s.withBrowser(ctx, func(b browser.Browser) {
		status = s.auth.Login(ctx, b)
	})
	if err != nil {
		return LoginStatus{
			Success: false,
			Message: "could not start browser",
			Detail:  err.Error(),
		}
	}
	return status
}

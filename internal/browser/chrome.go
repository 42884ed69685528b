package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	report_chrome_launch = "chrome.launch"
	report_chrome_close  = "chrome.close"
	report_chrome_dialog = "chrome.dialog"
	report_chrome_log    = "chrome.log"
)

type ChromeOptions struct {
	// ExecPath is left empty to let chromedp find chrome on its own.
	ExecPath  string
	Headed    bool
	UserAgent string
}

// ChromeLauncher launches headless chrome through chromedp, one process
// per Launch.
type ChromeLauncher struct {
	opts ChromeOptions
	tel  telemetry.API
}

func NewChromeLauncher(opts ChromeOptions, tel telemetry.API) ChromeLauncher {
	assert.NotNil(tel)
	return ChromeLauncher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("browser", tel),
	}
}

func (l ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}
	if l.opts.Headed {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

func (l ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			l.tel.ReportDebug(report_chrome_log, fmt.Sprintf(format, args...))
		}),
	)

	b := &chrome{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		tel:         l.tel,
	}
	chromedp.ListenTarget(tabCtx, b.onEvent)

	// the first Run starts the browser process
	err := chromedp.Run(tabCtx)
	if err != nil {
		tabCancel()
		allocCancel()
		l.tel.ReportBroken(report_chrome_launch, err)
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return b, nil
}

type chrome struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	tel         telemetry.API

	dialogMutex sync.Mutex
	dialogText  string
	dialogOpen  bool

	closeOnce sync.Once
}

// Dialogs block the page, they are accepted as they open and the text is
// kept until AcceptDialog.
func (c *chrome) onEvent(ev any) {
	opening, ok := ev.(*page.EventJavascriptDialogOpening)
	if !ok {
		return
	}
	c.dialogMutex.Lock()
	c.dialogText = opening.Message
	c.dialogOpen = true
	c.dialogMutex.Unlock()

	go func() {
		err := chromedp.Run(c.ctx, page.HandleJavaScriptDialog(true))
		if err != nil && c.ctx.Err() == nil {
			c.tel.ReportWarning(report_chrome_dialog, err)
		}
	}()
}

// run executes actions on the tab, giving up when either ctx or the tab is done.
func (c *chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, chromedp.Location(&url))
	return url, err
}

func (c *chrome) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (c *chrome) SetValue(ctx context.Context, selector, value string) error {
	return c.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (c *chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *chrome) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	exists, err := c.Exists(ctx, selector)
	if err != nil || !exists {
		return "", false, err
	}
	var (
		value string
		ok    bool
	)
	err = c.run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

func (c *chrome) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil && ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return ErrWaitTimeout
	}
	return err
}

func (c *chrome) Markup(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (c *chrome) ExecuteScript(ctx context.Context, script string, out any) error {
	return c.run(ctx, chromedp.Evaluate(script, out))
}

func (c *chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		out = make([]Cookie, len(cookies))
		for i, ck := range cookies {
			out[i] = Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
				SameSite: ck.SameSite.String(),
			}
			if !ck.Session {
				out[i].Expires = ck.Expires
			}
		}
		return nil
	}))
	return out, err
}

func (c *chrome) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*network.CookieParam, len(cookies))
	for i, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		}
		if ck.SameSite != "" {
			p.SameSite = network.CookieSameSite(ck.SameSite)
		}
		if ck.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			p.Expires = &expires
		}
		params[i] = p
	}
	return c.run(ctx, network.SetCookies(params))
}

func (c *chrome) Dialog() (string, bool) {
	c.dialogMutex.Lock()
	defer c.dialogMutex.Unlock()
	return c.dialogText, c.dialogOpen
}

func (c *chrome) AcceptDialog(context.Context) error {
	c.dialogMutex.Lock()
	defer c.dialogMutex.Unlock()
	c.dialogText = ""
	c.dialogOpen = false
	return nil
}

func (c *chrome) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = chromedp.Cancel(c.ctx)
		c.tabCancel()
		c.allocCancel()
		if err != nil {
			c.tel.ReportWarning(report_chrome_close, err)
		}
	})
	return err
}

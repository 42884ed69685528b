// Package browser is the capability surface the scraper needs from a real
// browser. Everything above it is written against Browser so it can run
// against a fake in tests.
package browser

import (
	"context"
	"errors"
	"time"
)

var ErrWaitTimeout = errors.New("timed out waiting for element")

type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	// Expires is in unix seconds, zero for session cookies.
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// Browser is a single browser tab. Selectors are CSS selectors.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// Exists reports whether selector matches anything right now, it does
	// not wait.
	Exists(ctx context.Context, selector string) (bool, error)
	SetValue(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Attribute(ctx context.Context, selector, name string) (value string, ok bool, err error)
	// WaitFor waits until selector matches, returning ErrWaitTimeout after timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Markup returns the serialized document.
	Markup(ctx context.Context) (string, error)
	// ExecuteScript evaluates script, the result is decoded into out unless
	// out is nil.
	ExecuteScript(ctx context.Context, script string, out any) error
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	// Dialog returns the text of the javascript dialog that opened since the
	// last AcceptDialog.
	Dialog() (text string, open bool)
	AcceptDialog(ctx context.Context) error
	Close() error
}

// Launcher starts a fresh browser, the caller owns it and must Close it.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

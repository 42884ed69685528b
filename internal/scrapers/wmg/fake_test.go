package wmg

import (
	"context"
	"errors"
	"sync"
	"time"

	"coursewatch/internal/browser"
	"coursewatch/internal/captcha"
)

const (
	testBaseUrl  = "https://www.wmg2025warmup.org.tw"
	testLoginUrl = testBaseUrl + "/member_login.php"
)

// fakeBrowser is a scripted stand-in for the registration site in a tab.
type fakeBrowser struct {
	mutex sync.Mutex

	url         string
	navigations []string
	values      map[string]string
	cookies     []browser.Cookie
	setCookies  [][]browser.Cookie

	// missing selectors are reported as absent by Exists
	missing     map[string]bool
	existsCalls int
	captchaSrc  string

	// bounceBase sends navigations to the base url to the login page, as
	// the site does for a dead session
	bounceBase bool
	// onSubmit decides where a form submission lands and which dialog it
	// opens, an empty landing keeps the current url
	onSubmit func(submit int, values map[string]string) (landing string, dialog string)
	submits  int
	// lateDialogs opens a dialog on the first url read after the given
	// submit, as a slow alert does
	lateDialogs map[int]string

	dialog     string
	dialogOpen bool
	accepted   []string

	navigateErr  error
	waitErr      error
	markup       string
	markupErr    error
	scriptResult string
	scrolls      int

	closed bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		values:     map[string]string{},
		missing:    map[string]bool{},
		captchaSrc: "images/check/7.jpg",
		cookies: []browser.Cookie{
			{Name: "PHPSESSID", Value: "fresh", Domain: "www.wmg2025warmup.org.tw", Path: "/"},
		},
	}
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.navigations = append(f.navigations, url)
	if f.navigateErr != nil {
		return f.navigateErr
	}
	if url == testBaseUrl && f.bounceBase {
		f.url = testLoginUrl
		return nil
	}
	f.url = url
	return nil
}

func (f *fakeBrowser) CurrentURL(context.Context) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if text, ok := f.lateDialogs[f.submits]; ok {
		delete(f.lateDialogs, f.submits)
		f.dialog = text
		f.dialogOpen = true
	}
	return f.url, nil
}

func (f *fakeBrowser) Exists(_ context.Context, selector string) (bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.existsCalls++
	return !f.missing[selector], nil
}

func (f *fakeBrowser) SetValue(_ context.Context, selector, value string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.values[selector] = value
	return nil
}

func (f *fakeBrowser) Click(_ context.Context, selector string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if selector != selectorSubmit {
		return errors.New("unexpected click on " + selector)
	}
	f.submits++
	if f.onSubmit == nil {
		return nil
	}
	landing, dialog := f.onSubmit(f.submits, f.values)
	if landing != "" {
		f.url = landing
	}
	if dialog != "" {
		f.dialog = dialog
		f.dialogOpen = true
	}
	return nil
}

func (f *fakeBrowser) Attribute(_ context.Context, selector, name string) (string, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if selector == selectorCaptchaImage && name == "src" && f.captchaSrc != "" {
		return f.captchaSrc, true, nil
	}
	return "", false, nil
}

func (f *fakeBrowser) WaitFor(context.Context, string, time.Duration) error {
	return f.waitErr
}

func (f *fakeBrowser) Markup(context.Context) (string, error) {
	return f.markup, f.markupErr
}

func (f *fakeBrowser) ExecuteScript(_ context.Context, script string, out any) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if script == scrollToBottomScript {
		f.scrolls++
	}
	if s, ok := out.(*string); ok {
		*s = f.scriptResult
	}
	return nil
}

func (f *fakeBrowser) Cookies(context.Context) ([]browser.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeBrowser) SetCookies(_ context.Context, cookies []browser.Cookie) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.setCookies = append(f.setCookies, cookies)
	return nil
}

func (f *fakeBrowser) Dialog() (string, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.dialog, f.dialogOpen
}

func (f *fakeBrowser) AcceptDialog(context.Context) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.dialogOpen {
		f.accepted = append(f.accepted, f.dialog)
	}
	f.dialog = ""
	f.dialogOpen = false
	return nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

type fakeLauncher struct {
	browser  *fakeBrowser
	err      error
	launches int
}

func (l *fakeLauncher) Launch(context.Context) (browser.Browser, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

type memorySession struct {
	cookies []browser.Cookie
	valid   bool
	saved   [][]browser.Cookie
}

func (m *memorySession) Load() ([]browser.Cookie, bool) {
	if !m.valid {
		return nil, false
	}
	return m.cookies, true
}

func (m *memorySession) Save(cookies []browser.Cookie) bool {
	m.saved = append(m.saved, cookies)
	m.cookies = cookies
	m.valid = true
	return true
}

type fakeResolver struct {
	answer string
	ok     bool
	seen   []captcha.Image
}

func (r *fakeResolver) Resolve(_ context.Context, img captcha.Image) (string, bool) {
	r.seen = append(r.seen, img)
	return r.answer, r.ok
}

// landOnHome is an onSubmit for a site that accepts every login.
func landOnHome(int, map[string]string) (string, string) {
	return testBaseUrl + "/index.php", ""
}

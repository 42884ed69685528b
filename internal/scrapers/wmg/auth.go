package wmg

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"coursewatch/internal/browser"
	"coursewatch/internal/captcha"
	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"
)

const (
	report_authenticator_login   = "authenticator.login"
	report_authenticator_restore = "authenticator.restore"
	report_authenticator_popup   = "authenticator.popup"
	report_authenticator_save    = "authenticator.save-session"
)

const (
	selectorUsername     = "input[name=member_userid]"
	selectorPassword     = "input[name=member_password]"
	selectorCaptchaInput = "input[name=check_num]"
	selectorSubmit       = "[name=b1]"
	selectorCaptchaImage = "img[src^='images/check/']"
)

type loginField struct {
	name     string
	selector string
}

var loginFields = []loginField{
	{name: "username field", selector: selectorUsername},
	{name: "password field", selector: selectorPassword},
	{name: "captcha field", selector: selectorCaptchaInput},
	{name: "submit button", selector: selectorSubmit},
}

// draws the captcha onto a canvas so the exact image shown to this session
// can be read without fetching it again
const captchaCanvasScript = `(() => {
	const img = document.querySelector("img[src^='images/check/']");
	if (!img || !img.complete) return "";
	const canvas = document.createElement("canvas");
	canvas.width = img.naturalWidth;
	canvas.height = img.naturalHeight;
	canvas.getContext("2d").drawImage(img, 0, 0);
	return canvas.toDataURL("image/png");
})()`

// SessionStore is the part of the session cache the authenticator needs.
type SessionStore interface {
	Load() ([]browser.Cookie, bool)
	Save(cookies []browser.Cookie) bool
}

type AuthOptions struct {
	BaseUrl  string
	LoginUrl string
	Username string
	Password string
	// MaxRetries is the number of fresh login attempts before giving up.
	MaxRetries int
	RetryDelay time.Duration
	// Settle is how long to let the page react after navigating or submitting.
	Settle time.Duration
}

type Authenticator struct {
	opts     AuthOptions
	session  SessionStore
	resolver captcha.Resolver
	tel      telemetry.API

	loginPage string
}

func NewAuthenticator(opts AuthOptions, session SessionStore, resolver captcha.Resolver, tel telemetry.API) (Authenticator, error) {
	assert.NotNil(session)
	assert.NotNil(resolver)
	assert.NotNil(tel)
	assert.Positive("max retries", opts.MaxRetries)

	loginUrl, err := url.Parse(opts.LoginUrl)
	if err != nil {
		return Authenticator{}, fmt.Errorf("parse login url: %w", err)
	}
	loginPage := path.Base(loginUrl.Path)
	if loginPage == "." || loginPage == "/" {
		return Authenticator{}, fmt.Errorf("login url has no page: %s", opts.LoginUrl)
	}

	return Authenticator{
		opts:      opts,
		session:   session,
		resolver:  resolver,
		tel:       telemetry.NewScopedAPI("wmg", tel),
		loginPage: loginPage,
	}, nil
}

type authState int

const (
	stateUnauthenticated authState = iota
	stateSessionRestore
	stateFreshLogin
)

type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRetry
	outcomeFatal
)

type failureKind int

const (
	failureNone failureKind = iota
	failureCaptchaUnresolved
	failureCaptchaRejected
	failureStatus
	failureError
)

type attemptResult struct {
	outcome attemptOutcome
	kind    failureKind
	message string
	err     error
}

func retry(kind failureKind, err error) attemptResult {
	return attemptResult{outcome: outcomeRetry, kind: kind, err: err}
}

// Login leaves b authenticated, reusing the saved session when it is
// still accepted and otherwise logging in through the form.
func (a Authenticator) Login(ctx context.Context, b browser.Browser) LoginStatus {
	state := stateUnauthenticated
	attempts := 0
	var last attemptResult

	for {
		if err := ctx.Err(); err != nil {
			return LoginStatus{
				Success:  false,
				Message:  "login cancelled",
				Detail:   err.Error(),
				Attempts: attempts,
			}
		}

		switch state {
		case stateUnauthenticated:
			state = stateSessionRestore
		case stateSessionRestore:
			if a.restore(ctx, b) {
				a.tel.ReportDebug("reused saved session")
				return LoginStatus{Success: true, Message: "reused saved session"}
			}
			state = stateFreshLogin
		case stateFreshLogin:
			attempts++
			res := a.attempt(ctx, b)
			switch res.outcome {
			case outcomeSuccess:
				return a.succeed(ctx, b, res.message, attempts)
			case outcomeFatal:
				a.tel.ReportBroken(report_authenticator_login, res.err)
				return LoginStatus{
					Success:  false,
					Message:  res.message,
					Detail:   errorDetail(res.err),
					Attempts: attempts,
				}
			}

			last = res
			a.tel.ReportWarning(report_authenticator_login, fmt.Errorf("attempt %d of %d failed: %w", attempts, a.opts.MaxRetries, res.err))
			if attempts >= a.opts.MaxRetries {
				return a.exhausted(last, attempts)
			}
			err := chrono.Sleep(ctx, a.opts.RetryDelay)
			if err != nil {
				continue
			}
		}
	}
}

func (a Authenticator) exhausted(last attemptResult, attempts int) LoginStatus {
	var message string
	switch last.kind {
	case failureCaptchaUnresolved:
		message = fmt.Sprintf("captcha could not be resolved after %d attempts", attempts)
	case failureCaptchaRejected:
		message = fmt.Sprintf("captcha was rejected %d times", attempts)
	default:
		message = fmt.Sprintf("login failed after %d attempts", attempts)
	}
	a.tel.ReportBroken(report_authenticator_login, errors.New(message), errorDetail(last.err))
	return LoginStatus{
		Success:  false,
		Message:  message,
		Detail:   errorDetail(last.err),
		Attempts: attempts,
	}
}

func (a Authenticator) succeed(ctx context.Context, b browser.Browser, message string, attempts int) LoginStatus {
	status := LoginStatus{
		Success:  true,
		Message:  message,
		Attempts: attempts,
	}
	cookies, err := b.Cookies(ctx)
	if err != nil {
		a.tel.ReportBroken(report_authenticator_save, err)
		return status
	}
	status.CookiesSaved = a.session.Save(cookies)
	return status
}

func (a Authenticator) restore(ctx context.Context, b browser.Browser) bool {
	cookies, ok := a.session.Load()
	if !ok {
		return false
	}

	err := b.Navigate(ctx, a.opts.BaseUrl)
	if err == nil {
		err = b.SetCookies(ctx, cookies)
	}
	if err == nil {
		err = b.Navigate(ctx, a.opts.BaseUrl)
	}
	if err == nil {
		err = chrono.Sleep(ctx, a.opts.Settle)
	}
	if err != nil {
		a.tel.ReportWarning(report_authenticator_restore, err)
		a.acceptDialog(ctx, b)
		return false
	}
	if !a.loggedIn(ctx, b) {
		a.acceptDialog(ctx, b)
		return false
	}
	return true
}

// loggedIn trusts an "already logged in" popup, otherwise the session is
// considered live if the site did not bounce us to the login page.
func (a Authenticator) loggedIn(ctx context.Context, b browser.Browser) bool {
	text, open := b.Dialog()
	if open && ClassifyPopup(text) == PopupAlreadyLoggedIn {
		a.acceptDialog(ctx, b)
		return true
	}
	current, err := b.CurrentURL(ctx)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_login, fmt.Errorf("read current url: %w", err))
		return false
	}
	return !strings.Contains(current, a.loginPage)
}

func (a Authenticator) acceptDialog(ctx context.Context, b browser.Browser) {
	err := b.AcceptDialog(ctx)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_popup, err)
	}
}

func (a Authenticator) attempt(ctx context.Context, b browser.Browser) attemptResult {
	// a popup left over from an earlier step must not be read as the
	// answer to this submit
	a.acceptDialog(ctx, b)

	err := b.Navigate(ctx, a.opts.LoginUrl)
	if err != nil {
		return retry(failureError, fmt.Errorf("navigate to login page: %w", err))
	}
	err = chrono.Sleep(ctx, a.opts.Settle)
	if err != nil {
		return retry(failureError, err)
	}

	for _, field := range loginFields {
		exists, err := b.Exists(ctx, field.selector)
		if err != nil {
			return retry(failureError, fmt.Errorf("look up %s: %w", field.name, err))
		}
		if !exists {
			return attemptResult{
				outcome: outcomeFatal,
				message: fmt.Sprintf("login form is missing the %s", field.name),
				err:     fmt.Errorf("%s not found (%s)", field.name, field.selector),
			}
		}
	}

	err = b.SetValue(ctx, selectorUsername, a.opts.Username)
	if err != nil {
		return retry(failureError, fmt.Errorf("fill username: %w", err))
	}
	err = b.SetValue(ctx, selectorPassword, a.opts.Password)
	if err != nil {
		return retry(failureError, fmt.Errorf("fill password: %w", err))
	}

	digits, err := a.solveCaptcha(ctx, b)
	if err != nil {
		return retry(failureCaptchaUnresolved, err)
	}
	err = b.SetValue(ctx, selectorCaptchaInput, digits)
	if err != nil {
		return retry(failureError, fmt.Errorf("fill captcha: %w", err))
	}

	err = b.Click(ctx, selectorSubmit)
	if err != nil {
		return retry(failureError, fmt.Errorf("submit: %w", err))
	}
	err = chrono.Sleep(ctx, a.opts.Settle)
	if err != nil {
		return retry(failureError, err)
	}

	text, open := b.Dialog()
	if open {
		a.acceptDialog(ctx, b)
		popup := ClassifyPopup(text)
		a.tel.ReportDebug("login popup", popup.String(), text)
		switch popup {
		case PopupAlreadyLoggedIn:
			return attemptResult{outcome: outcomeSuccess, message: "already logged in"}
		case PopupCaptchaError:
			return retry(failureCaptchaRejected, fmt.Errorf("site rejected captcha %s", digits))
		default:
			a.tel.ReportWarning(report_authenticator_popup, fmt.Errorf("unexpected popup"), text)
		}
	}

	if a.loggedIn(ctx, b) {
		return attemptResult{outcome: outcomeSuccess, message: "logged in"}
	}
	return retry(failureStatus, fmt.Errorf("still on %s after submitting", a.loginPage))
}

func (a Authenticator) solveCaptcha(ctx context.Context, b browser.Browser) (string, error) {
	src, ok, err := b.Attribute(ctx, selectorCaptchaImage, "src")
	if err != nil {
		return "", fmt.Errorf("read captcha image: %w", err)
	}
	if !ok || src == "" {
		return "", fmt.Errorf("captcha image not found")
	}
	src = a.absolute(ctx, b, src)

	digits, ok := a.resolver.Resolve(ctx, captcha.Image{
		Src: src,
		Load: func(ctx context.Context) ([]byte, error) {
			return renderedCaptcha(ctx, b)
		},
	})
	if !ok {
		return "", fmt.Errorf("no answer for captcha %s", src)
	}
	return digits, nil
}

// absolute resolves src the way the browser would.
func (a Authenticator) absolute(ctx context.Context, b browser.Browser, src string) string {
	base, err := b.CurrentURL(ctx)
	if err != nil || base == "" {
		base = a.opts.LoginUrl
	}
	baseUrl, err := url.Parse(base)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return baseUrl.ResolveReference(ref).String()
}

func renderedCaptcha(ctx context.Context, b browser.Browser) ([]byte, error) {
	var dataUrl string
	err := b.ExecuteScript(ctx, captchaCanvasScript, &dataUrl)
	if err != nil {
		return nil, err
	}
	return decodeDataUrl(dataUrl)
}

func decodeDataUrl(dataUrl string) ([]byte, error) {
	header, payload, ok := strings.Cut(dataUrl, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("not a base64 data url")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

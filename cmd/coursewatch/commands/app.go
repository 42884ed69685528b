package commands

import (
	"context"
	"fmt"

	"coursewatch/internal/browser"
	"coursewatch/internal/captcha"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/serviceutil"
	"coursewatch/internal/components/telemetry"
	"coursewatch/internal/config"
	"coursewatch/internal/history"
	"coursewatch/internal/notify"
	"coursewatch/internal/scrapers/wmg"
	"coursewatch/internal/session"
	"coursewatch/internal/site"

	"github.com/spf13/cobra"
)

// app is every component a command may need, built from the config.
type app struct {
	cfg      config.Config
	tel      telemetry.API
	clock    chrono.TimeAPI
	session  session.Cache
	parser   wmg.Parser
	scraper  wmg.Scraper
	shutdown func()
}

type appOptions struct {
	// notify requires the notification settings to be present.
	notify    bool
	perfStats bool
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		serviceutil.Fatal("load config", err)
	}
	return cfg
}

func newApp(cmd *cobra.Command, opts appOptions) *app {
	cfg := loadConfig()
	validate := cfg.ValidateScraper
	if opts.notify {
		validate = cfg.Validate
	}
	err := validate()
	if err != nil {
		serviceutil.Fatal("invalid config", err)
	}

	tel, shutdown := initTelemetry(cmd.Context(), cfg.Telemetry, opts.perfStats)
	clock := chrono.NewStandardTime()

	a := &app{
		cfg:      cfg,
		tel:      tel,
		clock:    clock,
		session:  newSession(cfg, clock, tel),
		shutdown: shutdown,
	}

	schema, err := wmg.SchemaByID(cfg.Monitor.Schema)
	if err != nil {
		serviceutil.Fatal("select card schema", err)
	}
	a.parser = wmg.NewParser(schema, clock, tel)

	resolver, err := newResolver(cfg, tel)
	if err != nil {
		serviceutil.Fatal("init captcha resolver", err)
	}
	auth, err := wmg.NewAuthenticator(wmg.AuthOptions{
		BaseUrl:    cfg.Site.BaseUrl,
		LoginUrl:   cfg.Site.LoginUrl(),
		Username:   cfg.Credentials.Username,
		Password:   cfg.Credentials.Password,
		MaxRetries: cfg.Monitor.MaxRetries,
		RetryDelay: cfg.Monitor.RetryDelay(),
		Settle:     cfg.Monitor.Settle(),
	}, a.session, resolver, tel)
	if err != nil {
		serviceutil.Fatal("init authenticator", err)
	}
	fetcher := wmg.NewFetcher(wmg.FetchOptions{
		TargetUrl: cfg.Site.TargetUrl(),
		Marker:    schema.CardSelector(),
		Wait:      cfg.Monitor.PageWait(),
		Settle:    cfg.Monitor.Settle(),
	}, tel)
	launcher := browser.NewChromeLauncher(browser.ChromeOptions{
		ExecPath:  cfg.Browser.ExecPath,
		Headed:    cfg.Browser.Headed,
		UserAgent: cfg.Browser.UserAgent,
	}, tel)
	a.scraper = wmg.NewScraper(launcher, auth, fetcher, tel)

	return a
}

func (a *app) close() {
	a.shutdown()
}

func newSession(cfg config.Config, clock chrono.TimeAPI, tel telemetry.API) session.Cache {
	return session.NewCache(
		cfg.Monitor.DataDir,
		cfg.Monitor.CookieMaxAge(),
		clock,
		tel,
	)
}

func newResolver(cfg config.Config, tel telemetry.API) (captcha.Resolver, error) {
	switch cfg.Captcha.Strategy {
	case "optical":
		tesseract := captcha.Tesseract{Path: cfg.Captcha.TesseractPath}
		if !tesseract.Available() {
			return nil, fmt.Errorf("tesseract not found at %q", cfg.Captcha.TesseractPath)
		}
		return captcha.NewOptical(tesseract, cfg.Captcha.Threshold, tel), nil
	default:
		return captcha.DefaultLookup(cfg.Site.BaseUrl, tel)
	}
}

func (a *app) notifier() notify.Notifier {
	notifiers := notify.Multi{
		notify.NewTelegram(notify.TelegramOptions{
			BotToken: a.cfg.Telegram.BotToken,
			ChatId:   a.cfg.Telegram.ChatId,
			ApiUrl:   a.cfg.Telegram.ApiUrl,
		}, a.tel),
	}
	if a.cfg.Email.Enabled() {
		from := a.cfg.Email.From
		if from == "" {
			from = a.cfg.Email.Username
		}
		notifiers = append(notifiers, notify.NewEmail(notify.EmailOptions{
			SmtpHost: a.cfg.Email.SmtpHost,
			SmtpPort: a.cfg.Email.SmtpPort,
			Username: a.cfg.Email.Username,
			Password: a.cfg.Email.Password,
			From:     from,
			To:       a.cfg.Email.To,
			Subject:  "課程報名開放通知",
		}, a.tel))
	}
	return notifiers
}

// history opens the check history, ok is false when it is not configured.
func (a *app) history() (history.Store, bool) {
	if !a.cfg.History.Enabled() {
		return history.Store{}, false
	}
	store, err := history.Open(a.cfg.History)
	if err != nil {
		serviceutil.Fatal("open history", err)
	}
	return store, true
}

func (a *app) prober() site.Prober {
	prober, err := site.NewProber(site.ProberOptions{
		BaseUrl:   a.cfg.Site.BaseUrl,
		UserAgent: a.cfg.Browser.UserAgent,
	}, a.tel)
	if err != nil {
		serviceutil.Fatal("init site prober", err)
	}
	return prober
}

func withTimeout(ctx context.Context, a *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.Monitor.CheckBudget())
}

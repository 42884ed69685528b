package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"coursewatch/internal/components/configutil"
	"coursewatch/internal/components/db"
	"coursewatch/internal/components/telemetry"
)

var ErrMissingConfig = errors.New("missing required configuration")

type Site struct {
	BaseUrl   string `json:"base_url"`
	LoginPath string `json:"login_path"`
	// TargetPath is the course listing, relative to BaseUrl.
	TargetPath string `json:"target_path"`
}

func (s Site) LoginUrl() string {
	return joinUrl(s.BaseUrl, s.LoginPath)
}

func (s Site) TargetUrl() string {
	return joinUrl(s.BaseUrl, s.TargetPath)
}

func joinUrl(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Telegram struct {
	BotToken string `json:"bot_token"`
	ChatId   string `json:"chat_id"`
	// ApiUrl is only overridden in tests.
	ApiUrl string `json:"api_url"`
}

type Email struct {
	SmtpHost string   `json:"smtp_host"`
	SmtpPort int      `json:"smtp_port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

func (e Email) Enabled() bool {
	return e.SmtpHost != "" && len(e.To) > 0
}

type Target struct {
	Event    string `json:"event"`
	Location string `json:"location"`
}

type Monitor struct {
	IntervalSeconds  int    `json:"interval_seconds"`
	DataDir          string `json:"data_dir"`
	CookieMaxAgeSecs int    `json:"cookie_max_age_seconds"`
	MaxRetries       int    `json:"max_retries"`
	RetryDelaySecs   int    `json:"retry_delay_seconds"`
	SettleSeconds    int    `json:"settle_seconds"`
	PageWaitSeconds  int    `json:"page_wait_seconds"`
	// Schema selects the course card markup, `activity-card` or `card`.
	Schema string `json:"schema"`
}

func (m Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

func (m Monitor) CookieMaxAge() time.Duration {
	return time.Duration(m.CookieMaxAgeSecs) * time.Second
}

func (m Monitor) RetryDelay() time.Duration {
	return time.Duration(m.RetryDelaySecs) * time.Second
}

func (m Monitor) Settle() time.Duration {
	return time.Duration(m.SettleSeconds) * time.Second
}

func (m Monitor) PageWait() time.Duration {
	return time.Duration(m.PageWaitSeconds) * time.Second
}

// CheckBudget is how long one fetch may take end to end. A full login may
// retry and every attempt can wait on the page and settle.
func (m Monitor) CheckBudget() time.Duration {
	budget := m.PageWait() + m.Settle()*2 + m.RetryDelay()
	return budget * time.Duration(2+m.MaxRetries)
}

type Captcha struct {
	// Strategy is either `lookup` or `optical`.
	Strategy      string `json:"strategy"`
	Threshold     int    `json:"threshold"`
	TesseractPath string `json:"tesseract_path"`
}

type Browser struct {
	ExecPath  string `json:"exec_path"`
	Headed    bool   `json:"headed"`
	UserAgent string `json:"user_agent"`
}

type Server struct {
	Port int `json:"port"`
}

type Config struct {
	Site        Site             `json:"site"`
	Credentials Credentials      `json:"credentials"`
	Telegram    Telegram         `json:"telegram"`
	Email       Email            `json:"email"`
	Target      Target           `json:"target"`
	Monitor     Monitor          `json:"monitor"`
	Captcha     Captcha          `json:"captcha"`
	Browser     Browser          `json:"browser"`
	Server      Server           `json:"server"`
	History     db.Config        `json:"history"`
	Telemetry   telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Site: Site{
			BaseUrl:    "https://www.wmg2025warmup.org.tw",
			LoginPath:  "/member_login.php",
			TargetPath: "/index.php?folder=&level=&activity_date=課程報名中#event",
		},
		Target: Target{
			Event:    "射箭-反曲弓進階",
			Location: "新北市輔大射箭場",
		},
		Monitor: Monitor{
			IntervalSeconds:  300,
			DataDir:          "data",
			CookieMaxAgeSecs: 24 * 60 * 60,
			MaxRetries:       3,
			RetryDelaySecs:   5,
			SettleSeconds:    3,
			PageWaitSeconds:  20,
			Schema:           "activity-card",
		},
		Captcha: Captcha{
			Strategy:      "lookup",
			Threshold:     128,
			TesseractPath: "tesseract",
		},
		Browser: Browser{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		},
		Server: Server{Port: 8000},
	}
}

// Load reads the config file at path on top of Default, a missing file is
// not an error. Secrets are then taken from the environment when set.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		_, err := configutil.ReadConfig(path, &cfg)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("WMG_USERNAME", &c.Credentials.Username)
	set("WMG_PASSWORD", &c.Credentials.Password)
	set("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	set("TELEGRAM_CHAT_ID", &c.Telegram.ChatId)
}

// Validate returns an error naming every missing required value.
func (c Config) Validate() error {
	return c.validate(true)
}

// ValidateScraper is Validate without the notification settings, for
// commands that only log in or read the listing.
func (c Config) ValidateScraper() error {
	return c.validate(false)
}

func (c Config) validate(notify bool) error {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("WMG_USERNAME", c.Credentials.Username)
	check("WMG_PASSWORD", c.Credentials.Password)
	if notify {
		check("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
		check("TELEGRAM_CHAT_ID", c.Telegram.ChatId)
	}
	check("target.event", c.Target.Event)
	check("target.location", c.Target.Location)
	check("site.base_url", c.Site.BaseUrl)

	var invalid []string
	if c.Monitor.MaxRetries <= 0 {
		invalid = append(invalid, "monitor.max_retries must be positive")
	}
	if c.Monitor.IntervalSeconds <= 0 {
		invalid = append(invalid, "monitor.interval_seconds must be positive")
	}
	switch c.Captcha.Strategy {
	case "lookup", "optical":
	default:
		invalid = append(invalid, fmt.Sprintf("unknown captcha.strategy %q", c.Captcha.Strategy))
	}
	switch c.Monitor.Schema {
	case "activity-card", "card":
	default:
		invalid = append(invalid, fmt.Sprintf("unknown monitor.schema %q", c.Monitor.Schema))
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; ")))
	}
	return errors.Join(errs...)
}

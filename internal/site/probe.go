// Package site checks whether the course site answers at all, without
// starting a browser.
package site

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const report_probe = "site.probe"

type ProbeResult struct {
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency"`
	Title      string        `json:"title,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type ProberOptions struct {
	BaseUrl   string
	UserAgent string
	Timeout   time.Duration
}

type Prober struct {
	http *resty.Client
	tel  telemetry.API
}

func NewProber(opts ProberOptions, tel telemetry.API) (Prober, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("site", tel)

	parsed, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return Prober{}, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Prober{}, fmt.Errorf("base url %q is not absolute", opts.BaseUrl)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 15
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsed.Hostname()))
	client.SetTimeout(timeout)

	// a probe per second is plenty, /status may be polled by anyone
	limiter := rate.NewLimiter(1, 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)

	return Prober{http: client, tel: tel}, nil
}

// Probe fetches the site root once. Any response, even an error status,
// counts as reachable.
func (p Prober) Probe(ctx context.Context) ProbeResult {
	start := time.Now()
	res, err := p.http.R().
		SetContext(ctx).
		Get("/")
	latency := time.Since(start)
	if err != nil {
		p.tel.ReportWarning(report_probe, err)
		return ProbeResult{Latency: latency, Error: err.Error()}
	}

	result := ProbeResult{
		Reachable:  true,
		StatusCode: res.StatusCode(),
		Latency:    latency,
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err == nil {
		result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	p.tel.ReportCount("site.latency-ms", latency.Milliseconds())
	return result
}

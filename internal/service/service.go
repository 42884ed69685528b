// Package service is the http surface: it calls straight into the scraper,
// session cache and monitor and returns what they return as json.
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"
	"coursewatch/internal/history"
	"coursewatch/internal/monitor"
	"coursewatch/internal/scrapers/wmg"
	"coursewatch/internal/site"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	report_service_encode  = "service.encode"
	report_service_fetch   = "service.fetch"
	report_service_history = "service.history"
)

type Scraper interface {
	PageContent(ctx context.Context) (string, bool)
	TestLogin(ctx context.Context) wmg.LoginStatus
}

type SessionCache interface {
	IsValid() bool
	Age() (time.Duration, bool)
	Clear() bool
}

type LastCycle interface {
	Last() (monitor.CycleResult, bool)
}

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Check, error)
}

type Prober interface {
	Probe(ctx context.Context) site.ProbeResult
}

type Options struct {
	Scraper Scraper
	Parser  wmg.Parser
	Session SessionCache
	Time    chrono.TimeAPI
	Monitor LastCycle
	// History and Prober are optional, their endpoints report them as
	// disabled when unset.
	History HistoryReader
	Prober  Prober
	// Timeout bounds the endpoints that drive the browser, zero leaves
	// them to the request context.
	Timeout time.Duration
}

type Service struct {
	opts Options
	tel  telemetry.API
}

func NewService(opts Options, tel telemetry.API) Service {
	assert.NotNil(opts.Scraper)
	assert.NotNil(opts.Parser.Schema())
	assert.NotNil(opts.Session)
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Monitor)
	assert.NotNil(tel)
	return Service{
		opts: opts,
		tel:  telemetry.NewScopedAPI("service", tel),
	}
}

// Handler routes every endpoint and wraps them in otel http spans.
func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("GET /events", s.events)
	mux.HandleFunc("GET /events/search", s.searchEvents)
	mux.HandleFunc("GET /login/test", s.loginTest)
	mux.HandleFunc("GET /cookies/clear", s.clearCookies)
	mux.HandleFunc("GET /history", s.history)
	return otelhttp.NewHandler(mux, "coursewatch")
}

func (s Service) bounded(r *http.Request) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(r.Context(), s.opts.Timeout)
	}
	return context.WithCancel(r.Context())
}

type errorResponse struct {
	Detail      string   `json:"detail"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (s Service) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_service_encode, err)
	}
}

func (s Service) writeError(w http.ResponseWriter, code int, detail string) {
	s.writeJSON(w, code, errorResponse{Detail: detail})
}

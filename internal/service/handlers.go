package service

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coursewatch/internal/history"
	"coursewatch/internal/monitor"
	"coursewatch/internal/scrapers/wmg"
	"coursewatch/internal/site"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	suggestionLimit     = 5
)

type statusResponse struct {
	Status           string               `json:"status"`
	Now              string               `json:"now"`
	CookiesValid     bool                 `json:"cookies_valid"`
	CookieAgeSeconds *float64             `json:"cookie_age_seconds"`
	LastCycle        *monitor.CycleResult `json:"last_cycle"`
	CurrentEvents    []wmg.EventRecord    `json:"current_events"`
	Site             *site.ProbeResult    `json:"site,omitempty"`
}

// status reports what the monitor saw last, it never starts a browser.
func (s Service) status(w http.ResponseWriter, r *http.Request) {
	res := statusResponse{
		Status:        "running",
		Now:           s.opts.Time.Now().Format(wmg.LastCheckedLayout),
		CookiesValid:  s.opts.Session.IsValid(),
		CurrentEvents: []wmg.EventRecord{},
	}
	if age, ok := s.opts.Session.Age(); ok {
		seconds := age.Seconds()
		res.CookieAgeSeconds = &seconds
	}
	if last, ok := s.opts.Monitor.Last(); ok {
		res.LastCycle = &last
		if last.Events != nil {
			res.CurrentEvents = last.Events
		}
	}
	if s.opts.Prober != nil && r.URL.Query().Get("probe") != "" {
		probe := s.opts.Prober.Probe(r.Context())
		res.Site = &probe
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s Service) fetch(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx, cancel := s.bounded(r)
	defer cancel()
	markup, ok := s.opts.Scraper.PageContent(ctx)
	if !ok {
		s.tel.ReportWarning(report_service_fetch, fmt.Errorf("could not load the course listing"))
		s.writeError(w, http.StatusBadGateway, "無法獲取頁面內容")
		return "", false
	}
	return markup, true
}

func (s Service) events(w http.ResponseWriter, r *http.Request) {
	markup, ok := s.fetch(w, r)
	if !ok {
		return
	}
	records := s.opts.Parser.Parse(markup, wmg.Filter{})
	if records == nil {
		records = []wmg.EventRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s Service) searchEvents(w http.ResponseWriter, r *http.Request) {
	filter := wmg.Filter{
		Name: strings.TrimSpace(r.URL.Query().Get("event_name")),
		Date: strings.TrimSpace(r.URL.Query().Get("event_date")),
	}
	if filter.Empty() {
		s.writeError(w, http.StatusBadRequest, "必須提供課程名稱或活動日期")
		return
	}
	if filter.Date != "" {
		_, err := time.Parse(wmg.DateLayout, filter.Date)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "活動日期格式必須為 YYYY/MM/DD")
			return
		}
	}

	markup, ok := s.fetch(w, r)
	if !ok {
		return
	}
	records := s.opts.Parser.Parse(markup, filter)
	if len(records) == 0 {
		res := errorResponse{Detail: "未找到符合條件的課程"}
		if filter.Name != "" {
			res.Suggestions = wmg.Suggest(s.opts.Parser.Names(markup), filter.Name, suggestionLimit)
		}
		s.writeJSON(w, http.StatusNotFound, res)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s Service) loginTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.bounded(r)
	defer cancel()
	s.writeJSON(w, http.StatusOK, s.opts.Scraper.TestLogin(ctx))
}

type clearResponse struct {
	Message string `json:"message"`
	Cleared bool   `json:"cleared"`
}

func (s Service) clearCookies(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Session.Clear() {
		s.writeJSON(w, http.StatusInternalServerError, clearResponse{Message: "無法清除 Cookies"})
		return
	}
	s.writeJSON(w, http.StatusOK, clearResponse{Message: "Cookies 已清除", Cleared: true})
}

func (s Service) history(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	checks, err := s.opts.History.Recent(r.Context(), limit)
	if err != nil {
		s.tel.ReportBroken(report_service_history, err)
		s.writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	if checks == nil {
		checks = []history.Check{}
	}
	s.writeJSON(w, http.StatusOK, checks)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"
	"coursewatch/internal/history"
	"coursewatch/internal/monitor"
	"coursewatch/internal/scrapers/wmg"
	"coursewatch/internal/site"

	"github.com/stretchr/testify/require"
)

const listing = `<html><body>
<div class="activity-card">
	<h3>射箭體驗營</h3>
	<h4>新北市輔大射箭場</h4>
	<h4>2025/06/01</h4>
	<h4>2025/05/01</h4>
	<h4>2025/05/25</h4>
</div>
<div class="activity-card">
	<h3>飛盤體驗營</h3>
	<h4>臺北市立體育場</h4>
	<h4>2025/06/02</h4>
	<h4>2025/05/01</h4>
	<h4>2025/05/26</h4>
	<span class="stateFull">額滿</span>
</div>
</body></html>`

type fakeScraper struct {
	markup string
	ok     bool
	login  wmg.LoginStatus
	// hang waits for the context like a page that never loads
	hang bool
}

func (f fakeScraper) PageContent(ctx context.Context) (string, bool) {
	if f.hang {
		<-ctx.Done()
		return "", false
	}
	return f.markup, f.ok
}

func (f fakeScraper) TestLogin(ctx context.Context) wmg.LoginStatus {
	if f.hang {
		<-ctx.Done()
		return wmg.LoginStatus{Message: "login cancelled", Detail: ctx.Err().Error()}
	}
	return f.login
}

type fakeSession struct {
	valid   bool
	age     time.Duration
	cleared int
}

func (f *fakeSession) IsValid() bool {
	return f.valid
}

func (f *fakeSession) Age() (time.Duration, bool) {
	return f.age, f.age > 0
}

func (f *fakeSession) Clear() bool {
	f.cleared++
	return true
}

type fakeLast struct {
	result *monitor.CycleResult
}

func (f fakeLast) Last() (monitor.CycleResult, bool) {
	if f.result == nil {
		return monitor.CycleResult{}, false
	}
	return *f.result, true
}

type fakeHistory struct {
	checks []history.Check
	err    error
	limit  int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Check, error) {
	f.limit = limit
	return f.checks, f.err
}

type fakeProber struct{}

func (fakeProber) Probe(context.Context) site.ProbeResult {
	return site.ProbeResult{Reachable: true, StatusCode: 200}
}

type harness struct {
	opts    Options
	session *fakeSession
	history *fakeHistory
	tel     *telemetry.MemoryAPI
}

func newHarness() *harness {
	clock := chrono.NewFixedTime(time.Date(2025, 5, 10, 9, 30, 0, 0, chrono.Taipei()))
	tel := telemetry.NewMemoryAPI()
	h := &harness{
		session: &fakeSession{valid: true, age: time.Hour},
		history: &fakeHistory{},
		tel:     tel,
	}
	h.opts = Options{
		Scraper: fakeScraper{
			markup: listing,
			ok:     true,
			login:  wmg.LoginStatus{Success: true, Message: "logged in", CookiesSaved: true, Attempts: 1},
		},
		Parser:  wmg.NewParser(wmg.ActivityCardSchema{}, clock, tel),
		Session: h.session,
		Time:    clock,
		Monitor: fakeLast{},
		History: h.history,
		Prober:  fakeProber{},
	}
	return h
}

func (h *harness) get(t *testing.T, target string, out any) int {
	t.Helper()
	srv := httptest.NewServer(NewService(h.opts, h.tel).Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + target)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, "application/json; charset=utf-8", res.Header.Get("content-type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

type eventJSON struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	LastChecked string `json:"last_checked"`
}

func TestEvents(t *testing.T) {
	h := newHarness()
	var events []eventJSON
	code := h.get(t, "/events", &events)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []eventJSON{
		{Name: "射箭體驗營", Location: "新北市輔大射箭場", Status: "open", LastChecked: "2025-05-10 09:30:00"},
		{Name: "飛盤體驗營", Location: "臺北市立體育場", Status: "full", LastChecked: "2025-05-10 09:30:00"},
	}, events)
}

func TestEventsFetchFailure(t *testing.T) {
	h := newHarness()
	h.opts.Scraper = fakeScraper{}
	var res errorResponse
	code := h.get(t, "/events", &res)
	require.Equal(t, http.StatusBadGateway, code)
	require.True(t, h.tel.Has(telemetry.KindWarning, report_service_fetch))
}

func TestBrowserEndpointsAreBounded(t *testing.T) {
	h := newHarness()
	h.opts.Scraper = fakeScraper{hang: true}
	h.opts.Timeout = 50 * time.Millisecond

	start := time.Now()
	var res errorResponse
	require.Equal(t, http.StatusBadGateway, h.get(t, "/events", &res))

	var status wmg.LoginStatus
	require.Equal(t, http.StatusOK, h.get(t, "/login/test", &status))
	require.False(t, status.Success)
	require.Equal(t, "login cancelled", status.Message)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSearchEvents(t *testing.T) {
	h := newHarness()

	t.Run("no filters", func(t *testing.T) {
		var res errorResponse
		require.Equal(t, http.StatusBadRequest, h.get(t, "/events/search", &res))
		require.Equal(t, "必須提供課程名稱或活動日期", res.Detail)
	})

	t.Run("bad date", func(t *testing.T) {
		require.Equal(t, http.StatusBadRequest, h.get(t, "/events/search?event_date=2025-06-01", nil))
	})

	t.Run("by name", func(t *testing.T) {
		var events []eventJSON
		code := h.get(t, "/events/search?event_name="+url.QueryEscape("飛盤體驗營"), &events)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, events, 1)
		require.Equal(t, "full", events[0].Status)
	})

	t.Run("by date", func(t *testing.T) {
		var events []eventJSON
		code := h.get(t, "/events/search?event_date="+url.QueryEscape("2025/06/01"), &events)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, events, 1)
		require.Equal(t, "射箭體驗營", events[0].Name)
	})

	t.Run("not found suggests", func(t *testing.T) {
		var res errorResponse
		code := h.get(t, "/events/search?event_name="+url.QueryEscape("射箭體驗"), &res)
		require.Equal(t, http.StatusNotFound, code)
		require.Equal(t, "未找到符合條件的課程", res.Detail)
		require.Contains(t, res.Suggestions, "射箭體驗營")
	})
}

func TestStatus(t *testing.T) {
	h := newHarness()
	last := monitor.CycleResult{
		ID: "abcd1234",
		Ok: true,
		Events: []wmg.EventRecord{
			{Name: "射箭體驗營", Status: wmg.StatusOpen},
		},
	}
	h.opts.Monitor = fakeLast{result: &last}

	var res struct {
		Status           string      `json:"status"`
		Now              string      `json:"now"`
		CookiesValid     bool        `json:"cookies_valid"`
		CookieAgeSeconds float64     `json:"cookie_age_seconds"`
		CurrentEvents    []eventJSON `json:"current_events"`
		LastCycle        struct {
			ID string `json:"id"`
		} `json:"last_cycle"`
		Site *site.ProbeResult `json:"site"`
	}
	require.Equal(t, http.StatusOK, h.get(t, "/status", &res))
	require.Equal(t, "running", res.Status)
	require.Equal(t, "2025-05-10 09:30:00", res.Now)
	require.True(t, res.CookiesValid)
	require.Equal(t, 3600.0, res.CookieAgeSeconds)
	require.Equal(t, "abcd1234", res.LastCycle.ID)
	require.Len(t, res.CurrentEvents, 1)
	require.Nil(t, res.Site)

	require.Equal(t, http.StatusOK, h.get(t, "/status?probe=1", &res))
	require.NotNil(t, res.Site)
	require.True(t, res.Site.Reachable)
}

func TestLoginTest(t *testing.T) {
	h := newHarness()
	var status wmg.LoginStatus
	require.Equal(t, http.StatusOK, h.get(t, "/login/test", &status))
	require.True(t, status.Success)
	require.Equal(t, 1, status.Attempts)
}

func TestClearCookies(t *testing.T) {
	h := newHarness()
	var res clearResponse
	require.Equal(t, http.StatusOK, h.get(t, "/cookies/clear", &res))
	require.True(t, res.Cleared)
	require.Equal(t, 1, h.session.cleared)
}

func TestHistory(t *testing.T) {
	h := newHarness()
	h.history.checks = []history.Check{{ID: "a", Ok: true, Message: "1 events, 0 notified"}}

	var checks []history.Check
	require.Equal(t, http.StatusOK, h.get(t, "/history", &checks))
	require.Equal(t, defaultHistoryLimit, h.history.limit)
	require.Len(t, checks, 1)

	require.Equal(t, http.StatusOK, h.get(t, "/history?limit=1000", &checks))
	require.Equal(t, maxHistoryLimit, h.history.limit)

	require.Equal(t, http.StatusBadRequest, h.get(t, "/history?limit=abc", nil))

	h.history.err = errors.New("database is locked")
	require.Equal(t, http.StatusInternalServerError, h.get(t, "/history", nil))
	require.True(t, h.tel.Has(telemetry.KindBroken, report_service_history))

	h.opts.History = nil
	require.Equal(t, http.StatusNotFound, h.get(t, "/history", nil))
}

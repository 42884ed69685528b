// Package monitor runs the periodic check: fetch the listing, find the
// target course and alert once when it opens.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"
	"coursewatch/internal/history"
	"coursewatch/internal/notify"
	"coursewatch/internal/scrapers/wmg"

	"github.com/mazen160/go-random"
)

const (
	report_monitor_check    = "monitor.check"
	report_monitor_notify   = "monitor.notify"
	report_monitor_history  = "monitor.history"
	report_monitor_schedule = "monitor.schedule"
)

// PageSource produces the listing markup of an authenticated session.
type PageSource interface {
	PageContent(ctx context.Context) (string, bool)
}

// SessionClearer drops the saved session.
type SessionClearer interface {
	Clear() bool
}

// Recorder keeps a log of finished cycles.
type Recorder interface {
	Record(ctx context.Context, check history.Check) error
}

type Options struct {
	// Target selects the course to watch, usually a name and a location.
	Target wmg.Filter
	// Link is put into alerts so the recipient can go register.
	Link string
	// FetchTimeout bounds loading the listing, zero leaves it to ctx.
	FetchTimeout time.Duration
}

type Dependencies struct {
	Source   PageSource
	Parser   wmg.Parser
	Notifier notify.Notifier
	Notified NotifiedStore
	Session  SessionClearer
	// Recorder is optional.
	Recorder Recorder
	Time     chrono.TimeAPI
}

type CycleResult struct {
	ID        string            `json:"id"`
	CheckedAt time.Time         `json:"checked_at"`
	Ok        bool              `json:"ok"`
	Message   string            `json:"message"`
	Events    []wmg.EventRecord `json:"events"`
	Notified  []string          `json:"notified"`
	// Skipped is set when another check was still running.
	Skipped bool `json:"skipped,omitempty"`
}

type Monitor struct {
	opts Options
	deps Dependencies
	tel  telemetry.API

	running   sync.Mutex
	lastMutex sync.RWMutex
	last      *CycleResult
}

func NewMonitor(opts Options, deps Dependencies, tel telemetry.API) *Monitor {
	assert.NotNil(deps.Source)
	assert.NotNil(deps.Notifier)
	assert.NotNil(deps.Notified)
	assert.NotNil(deps.Session)
	assert.NotNil(deps.Time)
	assert.NotNil(tel)

	return &Monitor{
		opts: opts,
		deps: deps,
		tel:  telemetry.NewScopedAPI("monitor", tel),
	}
}

func cycleID() string {
	id, err := random.String(8)
	if err != nil {
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return id
}

// Check runs one monitoring cycle. A call made while another cycle is in
// flight returns at once with Skipped set.
func (m *Monitor) Check(ctx context.Context) CycleResult {
	result := CycleResult{
		ID:        cycleID(),
		CheckedAt: m.deps.Time.Now(),
	}
	tel := telemetry.NewScopedAPI(result.ID, m.tel)
	if !m.running.TryLock() {
		result.Skipped = true
		result.Message = "a check is already running"
		tel.ReportDebug("skipping check", result.Message)
		return result
	}
	defer m.running.Unlock()
	tel.ReportDebug("starting check")

	m.run(ctx, tel, &result)

	m.record(ctx, tel, result)
	m.lastMutex.Lock()
	m.last = &result
	m.lastMutex.Unlock()
	return result
}

func (m *Monitor) fetch(ctx context.Context) (string, bool) {
	if m.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.FetchTimeout)
		defer cancel()
	}
	return m.deps.Source.PageContent(ctx)
}

func (m *Monitor) run(ctx context.Context, tel telemetry.API, result *CycleResult) {
	markup, ok := m.fetch(ctx)
	if !ok {
		result.Message = "could not load the course listing"
		tel.ReportBroken(report_monitor_check, fmt.Errorf("%s", result.Message))
		m.send(ctx, tel, fetchFailedMessage)
		// the saved session is the likeliest culprit, force a fresh login next time
		m.deps.Session.Clear()
		return
	}

	result.Ok = true
	result.Events = m.deps.Parser.Parse(markup, m.opts.Target)
	if len(result.Events) == 0 {
		result.Message = "target course not found"
		tel.ReportWarning(report_monitor_check, fmt.Errorf("%s", result.Message), m.opts.Target.Name)
		return
	}

	for _, event := range result.Events {
		if event.Status != wmg.StatusOpen {
			tel.ReportDebug("course status", event.Name, event.Status.Label())
			continue
		}
		if m.deps.Notified.Contains(event.Name) {
			tel.ReportDebug("already notified", event.Name)
			continue
		}
		if m.send(ctx, tel, OpenMessage(event, m.opts.Link)) {
			result.Notified = append(result.Notified, event.Name)
		}
		// a failed alert is not retried on the next cycle either
		m.deps.Notified.Add(event.Name)
	}
	result.Message = fmt.Sprintf("%d events, %d notified", len(result.Events), len(result.Notified))
	tel.ReportCount("monitor.notified", int64(len(result.Notified)))
}

func (m *Monitor) send(ctx context.Context, tel telemetry.API, text string) bool {
	ok := m.deps.Notifier.Send(ctx, text)
	if !ok {
		tel.ReportWarning(report_monitor_notify, fmt.Errorf("notification was not delivered"))
	}
	return ok
}

func (m *Monitor) record(ctx context.Context, tel telemetry.API, result CycleResult) {
	if m.deps.Recorder == nil {
		return
	}
	check := history.Check{
		ID:        result.ID,
		CheckedAt: result.CheckedAt,
		Ok:        result.Ok,
		Message:   result.Message,
		Events:    make([]history.Event, len(result.Events)),
	}
	notified := map[string]bool{}
	for _, name := range result.Notified {
		notified[name] = true
	}
	for i, e := range result.Events {
		check.Events[i] = history.Event{
			Name:      e.Name,
			Location:  e.Location,
			EventDate: e.EventDate,
			Status:    string(e.Status),
			Notified:  notified[e.Name],
		}
	}
	err := m.deps.Recorder.Record(ctx, check)
	if err != nil {
		tel.ReportBroken(report_monitor_history, err)
	}
}

// Last returns the result of the most recent cycle.
func (m *Monitor) Last() (CycleResult, bool) {
	m.lastMutex.RLock()
	defer m.lastMutex.RUnlock()
	if m.last == nil {
		return CycleResult{}, false
	}
	return *m.last, true
}

// Schedule runs Check every interval until ctx is done.
func (m *Monitor) Schedule(ctx context.Context, cron chrono.CronAPI, interval time.Duration) error {
	assert.Positive("interval", interval.Seconds())
	err := cron.Cron(chrono.Every(interval), func() {
		if ctx.Err() != nil {
			return
		}
		m.Check(ctx)
	})
	if err != nil {
		m.tel.ReportBroken(report_monitor_schedule, err)
		return err
	}
	return nil
}

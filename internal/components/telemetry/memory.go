package telemetry

import (
	"strings"
	"sync"
)

type ReportKind int

const (
	KindBroken ReportKind = iota
	KindWarning
	KindDebug
	KindCount
)

type Report struct {
	Kind   ReportKind
	ID     string
	Params []any
	Count  int64
}

// MemoryAPI records every report it receives, tests use it to check that a
// failure was actually reported and not swallowed.
type MemoryAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{}
}

func (m *MemoryAPI) push(r Report) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reports = append(m.reports, r)
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.push(Report{Kind: KindBroken, ID: id, Params: params})
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.push(Report{Kind: KindWarning, ID: id, Params: params})
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.push(Report{Kind: KindDebug, ID: msg, Params: params})
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.push(Report{Kind: KindCount, ID: id, Count: count})
}

// Reports returns a copy of the reports of the given kind.
func (m *MemoryAPI) Reports(kind ReportKind) []Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var out []Report
	for _, r := range m.reports {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether a report of the given kind has an id ending with suffix,
// so assertions do not depend on scope prefixes.
func (m *MemoryAPI) Has(kind ReportKind, suffix string) bool {
	for _, r := range m.Reports(kind) {
		if strings.HasSuffix(r.ID, suffix) {
			return true
		}
	}
	return false
}

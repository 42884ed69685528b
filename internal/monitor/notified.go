package monitor

import (
	"sort"
	"sync"
)

// NotifiedStore remembers which events an alert was already sent for.
type NotifiedStore interface {
	Add(name string)
	Contains(name string) bool
}

// MemoryNotified only lives as long as the process, a restart alerts on
// every open event again.
type MemoryNotified struct {
	mutex sync.RWMutex
	names map[string]struct{}
}

func NewMemoryNotified() *MemoryNotified {
	return &MemoryNotified{names: map[string]struct{}{}}
}

func (m *MemoryNotified) Add(name string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.names[name] = struct{}{}
}

func (m *MemoryNotified) Contains(name string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.names[name]
	return ok
}

// Names returns the notified names in sorted order.
func (m *MemoryNotified) Names() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]string, 0, len(m.names))
	for name := range m.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

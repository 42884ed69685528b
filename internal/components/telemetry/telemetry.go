package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics so that components can be
// asserted on in tests, including the paths that only ever log.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that broke in a way someone should look at.
	//
	// The `id` names the **component** that broke, not the line of code. Think of
	// reading the id on a dashboard: it should be enough to find the code at fault.
	//
	// ex. the fetcher failing to navigate to the course listing reports
	// `fetcher.fetch`. Whether it was a timeout or a crashed tab goes into params.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	//
	// Wrap the API with ScopedAPI to get the package namespace for free, then
	// ids only need `<struct or intf>.<method>`. See the `report_...` constants.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is not broken yet but may be worth a look.
	//
	// For what value to provide as `id` refer to ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports some debug information that will be ignored in production
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of some quantity, values are
	// points over time and should not be summed.
	//
	// For what value to provide as `id` refer to ReportBroken.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, like a child logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}

// Multi fans every report out to several APIs, used to log and export
// metrics at the same time.
type Multi []API

func (m Multi) ReportBroken(id string, params ...any) {
	for _, api := range m {
		api.ReportBroken(id, params...)
	}
}

func (m Multi) ReportWarning(id string, params ...any) {
	for _, api := range m {
		api.ReportWarning(id, params...)
	}
}

func (m Multi) ReportDebug(msg string, params ...any) {
	for _, api := range m {
		api.ReportDebug(msg, params...)
	}
}

func (m Multi) ReportCount(id string, count int64) {
	for _, api := range m {
		api.ReportCount(id, count)
	}
}

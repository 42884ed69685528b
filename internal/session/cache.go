// Package session persists browser cookies between runs so a login can be
// reused until it ages out.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"coursewatch/internal/browser"
	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"
)

const (
	report_cache_save     = "cache.save"
	report_cache_load     = "cache.load"
	report_cache_is_valid = "cache.is-valid"
	report_cache_clear    = "cache.clear"
)

const (
	CookieFile    = "wmg_cookies.json"
	TimestampFile = "cookie_timestamp.txt"
)

// Cache stores cookies and the time they were saved as two files under a
// directory. It is not safe to share a directory between processes.
type Cache struct {
	dir    string
	maxAge time.Duration
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewCache(dir string, maxAge time.Duration, clock chrono.TimeAPI, tel telemetry.API) Cache {
	assert.NotEmptyStr(dir)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return Cache{
		dir:    dir,
		maxAge: maxAge,
		time:   clock,
		tel:    telemetry.NewScopedAPI("session_cache", tel),
	}
}

func (c Cache) cookiePath() string {
	return filepath.Join(c.dir, CookieFile)
}

func (c Cache) timestampPath() string {
	return filepath.Join(c.dir, TimestampFile)
}

// Save writes the cookies and stamps them with the current time, it
// returns false if either file could not be written.
func (c Cache) Save(cookies []browser.Cookie) bool {
	err := c.save(cookies)
	if err != nil {
		c.tel.ReportBroken(report_cache_save, err)
		return false
	}
	c.tel.ReportDebug("saved session cookies", len(cookies))
	return true
}

func (c Cache) save(cookies []browser.Cookie) error {
	err := os.MkdirAll(c.dir, 0700)
	if err != nil {
		return err
	}
	if cookies == nil {
		cookies = []browser.Cookie{}
	}
	serialized, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	err = os.WriteFile(c.cookiePath(), serialized, 0600)
	if err != nil {
		return err
	}

	now := c.time.Now()
	stamp := strconv.FormatFloat(float64(now.UnixNano())/float64(time.Second), 'f', 6, 64)
	return os.WriteFile(c.timestampPath(), []byte(stamp), 0600)
}

// Load returns the stored cookies when the session is still valid.
func (c Cache) Load() ([]browser.Cookie, bool) {
	if !c.IsValid() {
		return nil, false
	}
	serialized, err := os.ReadFile(c.cookiePath())
	if err != nil {
		c.tel.ReportBroken(report_cache_load, err)
		return nil, false
	}
	var cookies []browser.Cookie
	err = json.Unmarshal(serialized, &cookies)
	if err != nil {
		c.tel.ReportBroken(report_cache_load, fmt.Errorf("decode cookies: %w", err))
		return nil, false
	}
	return cookies, true
}

// SavedAt returns the time the session was last saved.
func (c Cache) SavedAt() (time.Time, bool) {
	raw, err := os.ReadFile(c.timestampPath())
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false
	}
	if err != nil {
		c.tel.ReportBroken(report_cache_is_valid, err)
		return time.Time{}, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		c.tel.ReportWarning(report_cache_is_valid, fmt.Errorf("parse timestamp: %w", err))
		return time.Time{}, false
	}
	return time.Unix(0, int64(seconds*float64(time.Second))).In(chrono.Taipei()), true
}

// Age returns how long ago the session was saved.
func (c Cache) Age() (time.Duration, bool) {
	savedAt, ok := c.SavedAt()
	if !ok {
		return 0, false
	}
	return c.time.Now().Sub(savedAt), true
}

// IsValid is true when the session is younger than the max age and the
// cookie file is still there.
func (c Cache) IsValid() bool {
	age, ok := c.Age()
	if !ok || age >= c.maxAge {
		return false
	}
	_, err := os.Stat(c.cookiePath())
	return err == nil
}

// Clear removes both files, clearing an empty cache succeeds.
func (c Cache) Clear() bool {
	ok := true
	for _, path := range []string{c.cookiePath(), c.timestampPath()} {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.tel.ReportBroken(report_cache_clear, err)
			ok = false
		}
	}
	if ok {
		c.tel.ReportDebug("cleared session cookies")
	}
	return ok
}

package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"coursewatch/internal/browser"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testCookies = []browser.Cookie{
	{Name: "PHPSESSID", Value: "3f9a", Domain: "www.wmg2025warmup.org.tw", Path: "/", HTTPOnly: true},
	{Name: "member", Value: "alice", Domain: "www.wmg2025warmup.org.tw", Path: "/", Expires: 1767225600},
}

func newTestCache(t *testing.T) (Cache, *chrono.FixedTime, *telemetry.MemoryAPI) {
	clock := chrono.NewFixedTime(time.Date(2025, 5, 1, 9, 0, 0, 0, chrono.Taipei()))
	tel := telemetry.NewMemoryAPI()
	dir := filepath.Join(t.TempDir(), "data")
	return NewCache(dir, 24*time.Hour, clock, tel), clock, tel
}

func TestSaveLoad(t *testing.T) {
	cache, _, _ := newTestCache(t)

	require.True(t, cache.Save(testCookies))

	loaded, ok := cache.Load()
	require.True(t, ok)
	if diff := cmp.Diff(testCookies, loaded); diff != "" {
		t.Fatalf("loaded cookies differ (-want +got):\n%s", diff)
	}

	age, ok := cache.Age()
	require.True(t, ok)
	require.InDelta(t, 0, age.Seconds(), 0.001)
	require.True(t, cache.IsValid())
}

func TestExpiry(t *testing.T) {
	cache, clock, _ := newTestCache(t)
	require.True(t, cache.Save(testCookies))

	clock.Advance(23 * time.Hour)
	_, ok := cache.Load()
	require.True(t, ok)

	clock.Advance(time.Hour)
	_, ok = cache.Load()
	require.False(t, ok)
	require.False(t, cache.IsValid())
}

func TestMissingCookieFile(t *testing.T) {
	cache, _, _ := newTestCache(t)
	require.True(t, cache.Save(testCookies))

	require.NoError(t, os.Remove(cache.cookiePath()))
	require.False(t, cache.IsValid())
	_, ok := cache.Load()
	require.False(t, ok)
}

func TestCorruptTimestamp(t *testing.T) {
	cache, _, tel := newTestCache(t)
	require.True(t, cache.Save(testCookies))

	require.NoError(t, os.WriteFile(cache.timestampPath(), []byte("yesterday"), 0600))
	require.False(t, cache.IsValid())
	require.True(t, tel.Has(telemetry.KindWarning, report_cache_is_valid))
}

func TestTimestampFormat(t *testing.T) {
	cache, clock, _ := newTestCache(t)
	require.True(t, cache.Save(nil))

	raw, err := os.ReadFile(cache.timestampPath())
	require.NoError(t, err)
	require.Equal(t, "1746061200.000000", string(raw))

	savedAt, ok := cache.SavedAt()
	require.True(t, ok)
	require.True(t, savedAt.Equal(clock.Now()))
}

func TestClear(t *testing.T) {
	cache, _, _ := newTestCache(t)

	// clearing nothing is fine
	require.True(t, cache.Clear())

	require.True(t, cache.Save(testCookies))
	require.True(t, cache.Clear())
	require.True(t, cache.Clear())

	_, ok := cache.Load()
	require.False(t, ok)
	_, err := os.Stat(cache.timestampPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

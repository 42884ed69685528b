package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardTimeZone(t *testing.T) {
	now := NewStandardTime().Now()
	_, offset := now.Zone()
	require.Equal(t, 8*60*60, offset)
}

func TestFixedTime(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedTime(start)
	require.True(t, clock.Now().Equal(start))

	clock.Advance(time.Hour)
	require.True(t, clock.Now().Equal(start.Add(time.Hour)))
	require.Equal(t, 9, clock.Now().Hour())
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, Sleep(context.Background(), 0))
}

func TestEvery(t *testing.T) {
	require.Equal(t, "@every 5m0s", Every(300*time.Second))
}

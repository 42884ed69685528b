package chrono

import (
	"context"
	"sync"
	"time"
)

var taipei *time.Location

func init() {
	var err error
	taipei, err = time.LoadLocation("Asia/Taipei")
	if err != nil {
		// Taiwan has had no DST since 1979, a fixed offset is equivalent.
		taipei = time.FixedZone("Asia/Taipei", 8*60*60)
	}
}

// Taipei returns a [*time.Location] for Asia/Taipei, the zone the site
// publishes its schedule in.
func Taipei() *time.Location {
	return taipei
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Asia/Taipei.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(taipei)
}

// FixedTime is a TimeAPI for tests that only moves when told to.
type FixedTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFixedTime(now time.Time) *FixedTime {
	return &FixedTime{now: now}
}

func (f *FixedTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now.In(taipei)
}

func (f *FixedTime) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

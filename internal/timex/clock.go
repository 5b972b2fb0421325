package timex

import "time"

// Clock supplies wall-clock time. Services never call time.Now directly so
// tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the machine clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Advance moves it forward.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// StoreTime normalises t to UTC with microsecond precision, which is what
// PostgreSQL keeps. Timestamps compared against stored values (change-feed
// watermarks, cursors) must go through it.
func StoreTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// SortableLayout is RFC 3339 with a fixed nine-digit fraction, so formatted
// UTC times compare correctly as strings.
const SortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

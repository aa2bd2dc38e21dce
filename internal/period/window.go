// Package period derives time-windowed summaries, chart bucket series and
// consecutive-day streaks from an append-only log of completed sessions.
// Everything here is pure computation over an already-fetched session list.
package period

import "time"

// Granularity keywords accepted by Resolve. These match the values the
// mobile client sends in the period query parameter.
const (
	Today   = "today"
	Week    = "week"
	Month   = "month"
	Year    = "year"
	AllTime = "all time"
)

// AllTimeYears is the rolling horizon of the all-time view: the current
// year and the four before it.
const AllTimeYears = 5

// SessionType distinguishes a single focus interval from a completed cycle.
type SessionType string

const (
	Tomato SessionType = "tomato"
	Plant  SessionType = "plant"
)

// Session is one completed focus or break interval. Timestamp is the
// instant the session finished, Duration the minutes credited to it.
type Session struct {
	Timestamp time.Time   `json:"timestamp"`
	Type      SessionType `json:"type"`
	Duration  int         `json:"duration"`
}

// Window is an absolute, closed-inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Resolve computes the absolute window for a granularity keyword and a
// signed whole-period offset, anchored to now. Offset 0 is the current
// period, negative offsets go into the past. Unknown keywords fall back to
// the all-time window so a client/server skew never breaks the stats view;
// all-time ignores the offset.
func Resolve(granularity string, offset int, now time.Time) Window {
	switch granularity {
	case Today:
		d := now.AddDate(0, 0, offset)
		return dayWindow(d)
	case Week:
		d := now.AddDate(0, 0, offset*7)
		sunday := d.AddDate(0, 0, -int(d.Weekday()))
		start := midnight(sunday)
		return Window{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
	case Month:
		// Anchor on the first of the month before shifting so that a
		// 31st never normalizes into the month after the intended one.
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		start := first.AddDate(0, offset, 0)
		return Window{Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
	case Year:
		y := now.Year() + offset
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: endOfDay(time.Date(y, time.December, 31, 0, 0, 0, 0, now.Location()))}
	default:
		start := time.Date(now.Year()-(AllTimeYears-1), time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: now}
	}
}

func dayWindow(d time.Time) Window {
	start := midnight(d)
	return Window{Start: start, End: endOfDay(d)}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DaysApart returns the number of calendar days from a to b, ignoring the
// time of day. Negative when b is before a. Rounded so DST transitions
// don't shave a day off.
func DaysApart(a, b time.Time) int {
	d := midnight(b).Sub(midnight(a))
	days := d.Hours() / 24
	if days >= 0 {
		return int(days + 0.5)
	}
	return int(days - 0.5)
}

package period

import (
	"fmt"
	"strconv"
	"time"
)

// Bucket is one unit of a chart series. Index maps directly onto a
// calendar unit for the granularity (hour of day, day of week, day of
// month, month of year, or year) so renderers can draw zero-filled gaps.
type Bucket struct {
	Index           int    `json:"index"`
	Label           string `json:"label"`
	Value           int    `json:"value"`
	IsPastOrCurrent bool   `json:"isPastOrCurrent"`
}

// Summary holds the window-filtered counters and the bucketed series.
// TotalMinutes sums the duration of every filtered session regardless of
// type; the per-type split stays visible through Tomatoes and Plants.
type Summary struct {
	Tomatoes     int      `json:"tomatoes"`
	Plants       int      `json:"plants"`
	TotalMinutes int      `json:"totalMinutes"`
	Series       []Bucket `json:"series"`
}

var weekdayLabels = [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

var monthLabels = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Aggregate filters sessions to the window (both ends inclusive), counts
// them by type, sums minutes across all types, and reconstructs the
// fixed-length series for the granularity. Future-dated buckets always
// carry value 0, even if the log somehow contained a future session.
func Aggregate(sessions []Session, w Window, granularity string, offset int, now time.Time) Summary {
	var sum Summary
	filtered := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if !w.Contains(s.Timestamp) {
			continue
		}
		filtered = append(filtered, s)
		switch s.Type {
		case Tomato:
			sum.Tomatoes++
		case Plant:
			sum.Plants++
		}
		sum.TotalMinutes += s.Duration
	}

	sum.Series = buildSeries(filtered, w, granularity, offset, now)
	return sum
}

// Filter returns the sessions falling inside the window, preserving order.
func Filter(sessions []Session, w Window) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if w.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out
}

func buildSeries(filtered []Session, w Window, granularity string, offset int, now time.Time) []Bucket {
	switch granularity {
	case Today:
		return series(24, filtered, offset, now.Hour(),
			func(s Session) int { return s.Timestamp.Hour() },
			hourLabel)
	case Week:
		return series(7, filtered, offset, int(now.Weekday()),
			func(s Session) int { return int(s.Timestamp.Weekday()) },
			func(i int) string { return weekdayLabels[i] })
	case Month:
		days := daysIn(w.Start)
		return series(31, filtered, offset, now.Day()-1,
			func(s Session) int { return s.Timestamp.Day() - 1 },
			func(i int) string { return monthDayLabel(i, days) })
	case Year:
		return series(12, filtered, offset, int(now.Month())-1,
			func(s Session) int { return int(s.Timestamp.Month()) - 1 },
			func(i int) string { return monthLabels[i] })
	default:
		firstYear := now.Year() - (AllTimeYears - 1)
		// The all-time view ignores the offset; the last bucket is the
		// current year, so every bucket is at or before now.
		return series(AllTimeYears, filtered, 0, AllTimeYears-1,
			func(s Session) int { return s.Timestamp.Year() - firstYear },
			func(i int) string { return strconv.Itoa(firstYear + i) })
	}
}

// series builds n buckets. currentIdx is the calendar unit "now" sits in
// for the zero-offset period; together with the offset sign it decides
// IsPastOrCurrent per bucket.
func series(n int, filtered []Session, offset, currentIdx int, index func(Session) int, label func(int) string) []Bucket {
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i] = Bucket{
			Index:           i,
			Label:           label(i),
			IsPastOrCurrent: offset < 0 || (offset == 0 && i <= currentIdx),
		}
	}
	for _, s := range filtered {
		i := index(s)
		if i < 0 || i >= n {
			continue
		}
		if !buckets[i].IsPastOrCurrent {
			continue
		}
		buckets[i].Value++
	}
	return buckets
}

// hourLabel marks every sixth hour the way the stats chart does.
func hourLabel(h int) string {
	if h%6 != 0 {
		return ""
	}
	switch {
	case h == 0:
		return "12AM"
	case h == 12:
		return "12PM"
	case h > 12:
		return fmt.Sprintf("%dPM", h-12)
	default:
		return fmt.Sprintf("%dAM", h)
	}
}

// monthDayLabel labels days 1, 8, 15, 22 and 29; indexes past the month's
// real length stay unlabeled.
func monthDayLabel(i, daysInMonth int) string {
	day := i + 1
	if day > daysInMonth || (day-1)%7 != 0 {
		return ""
	}
	return strconv.Itoa(day)
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}

package period

import (
	"sort"
	"time"
)

// Streaks holds the two streak figures derived from the session log.
// Current counts consecutive calendar days with at least one session,
// ending today; it is 0 when nothing has been logged yet today. Longest is
// the longest such run anywhere in the log, so a quiet day never erases
// history.
type Streaks struct {
	Current int `json:"currentStreak"`
	Longest int `json:"longestStreak"`
}

const dayKey = "2006-01-02"

// ComputeStreaks scans the full session log and derives both streak
// figures relative to today. The scan works over the set of distinct
// session days, so repeated sessions on one day count once.
func ComputeStreaks(sessions []Session, today time.Time) Streaks {
	if len(sessions) == 0 {
		return Streaks{}
	}

	days := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		days[s.Timestamp.Format(dayKey)] = true
	}

	var st Streaks
	if days[today.Format(dayKey)] {
		st.Current = 1
		check := midnight(today)
		for {
			check = check.AddDate(0, 0, -1)
			if !days[check.Format(dayKey)] {
				break
			}
			st.Current++
		}
	}

	st.Longest = longestRun(days)
	if st.Current > st.Longest {
		st.Longest = st.Current
	}
	return st
}

// longestRun finds the longest chain of consecutive days in the set.
func longestRun(days map[string]bool) int {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	longest, run := 0, 0
	var prev time.Time
	for i, k := range keys {
		d, err := time.Parse(dayKey, k)
		if err != nil {
			continue
		}
		if i > 0 && d.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}
	return longest
}

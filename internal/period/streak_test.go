package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func onDay(y int, m time.Month, d int) Session {
	return Session{Timestamp: date(y, m, d, 9, 0), Type: Tomato, Duration: 25}
}

func TestComputeStreaksEmptyLog(t *testing.T) {
	assert.Equal(t, Streaks{}, ComputeStreaks(nil, date(2024, time.June, 11, 12, 0)))
}

func TestComputeStreaksSingleSessionToday(t *testing.T) {
	today := date(2024, time.June, 11, 12, 0)
	st := ComputeStreaks([]Session{onDay(2024, time.June, 11)}, today)
	assert.Equal(t, Streaks{Current: 1, Longest: 1}, st)
}

func TestComputeStreaksNothingLoggedTodayKeepsHistory(t *testing.T) {
	// Five consecutive days ending yesterday: no current streak, but the
	// historical best must still be reported.
	sessions := []Session{
		onDay(2024, time.June, 6),
		onDay(2024, time.June, 7),
		onDay(2024, time.June, 8),
		onDay(2024, time.June, 9),
		onDay(2024, time.June, 10),
	}
	st := ComputeStreaks(sessions, date(2024, time.June, 11, 12, 0))
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 5, st.Longest)
}

func TestComputeStreaksOrphanSessionDoesNotExtend(t *testing.T) {
	// One session three days ago, then yesterday and today: the gap stops
	// the backward walk at two.
	sessions := []Session{
		onDay(2024, time.June, 8),
		onDay(2024, time.June, 10),
		onDay(2024, time.June, 11),
	}
	st := ComputeStreaks(sessions, date(2024, time.June, 11, 12, 0))
	assert.Equal(t, 2, st.Current)
	assert.Equal(t, 2, st.Longest)
}

func TestComputeStreaksMultipleSessionsPerDayCountOnce(t *testing.T) {
	sessions := []Session{
		onDay(2024, time.June, 10),
		{Timestamp: date(2024, time.June, 10, 21, 0), Type: Plant, Duration: 25},
		onDay(2024, time.June, 11),
	}
	st := ComputeStreaks(sessions, date(2024, time.June, 11, 12, 0))
	assert.Equal(t, 2, st.Current)
}

func TestComputeStreaksLongestBeatsCurrent(t *testing.T) {
	// An old four-day run outweighs the fresh two-day one.
	sessions := []Session{
		onDay(2024, time.May, 1),
		onDay(2024, time.May, 2),
		onDay(2024, time.May, 3),
		onDay(2024, time.May, 4),
		onDay(2024, time.June, 10),
		onDay(2024, time.June, 11),
	}
	st := ComputeStreaks(sessions, date(2024, time.June, 11, 12, 0))
	assert.Equal(t, 2, st.Current)
	assert.Equal(t, 4, st.Longest)
}

func TestComputeStreaksAcrossMonthBoundary(t *testing.T) {
	sessions := []Session{
		onDay(2024, time.February, 28),
		onDay(2024, time.February, 29),
		onDay(2024, time.March, 1),
	}
	st := ComputeStreaks(sessions, date(2024, time.March, 1, 12, 0))
	assert.Equal(t, 3, st.Current)
}

func TestComputeStreaksIdempotent(t *testing.T) {
	today := date(2024, time.June, 11, 12, 0)
	sessions := []Session{onDay(2024, time.June, 10), onDay(2024, time.June, 11)}
	first := ComputeStreaks(sessions, today)
	second := ComputeStreaks(sessions, today)
	assert.Equal(t, first, second)
}

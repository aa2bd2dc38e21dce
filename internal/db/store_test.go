package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/period"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func at(y int, m time.Month, d, hh int) time.Time {
	return time.Date(y, m, d, hh, 0, 0, 0, time.Local)
}

func TestStatsUnknownUser(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Stats(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordSessionCreatesAggregate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	st, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 9))
	require.NoError(t, err)

	assert.Equal(t, "u1", st.UserID)
	assert.Equal(t, 1, st.Tomatoes)
	assert.Equal(t, 0, st.Plants)
	assert.Equal(t, 25, st.TotalMinutes)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 11, st.LastStudyDate.Day())

	sessions, err := store.Sessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, period.Tomato, sessions[0].Type)
	assert.Equal(t, 25, sessions[0].Duration)
}

func TestRecordSessionSameDayLeavesStreakAlone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 9))
	require.NoError(t, err)
	st, err := store.RecordSession(ctx, "u1", period.Plant, 30, at(2024, time.June, 11, 14))
	require.NoError(t, err)

	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 1, st.Tomatoes)
	assert.Equal(t, 1, st.Plants)
	assert.Equal(t, 55, st.TotalMinutes)
	assert.Equal(t, 14, st.LastStudyDate.Hour())
}

func TestRecordSessionNextDayExtendsStreak(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 10, 23))
	require.NoError(t, err)
	st, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, st.Streak)
}

func TestRecordSessionGapResetsStreak(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 5, 9))
	require.NoError(t, err)
	_, err = store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 6, 9))
	require.NoError(t, err)
	st, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 9))
	require.NoError(t, err)

	assert.Equal(t, 1, st.Streak)
}

func TestRecordSessionKeepsUsersIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 9))
	require.NoError(t, err)
	_, err = store.RecordSession(ctx, "u2", period.Plant, 50, at(2024, time.June, 11, 10))
	require.NoError(t, err)

	st1, err := store.Stats(ctx, "u1")
	require.NoError(t, err)
	st2, err := store.Stats(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, st1.Tomatoes)
	assert.Equal(t, 0, st1.Plants)
	assert.Equal(t, 1, st2.Plants)
	assert.Equal(t, 50, st2.TotalMinutes)
}

func TestSessionsOrderedByTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 14))
	require.NoError(t, err)
	_, err = store.RecordSession(ctx, "u1", period.Plant, 25, at(2024, time.June, 11, 18))
	require.NoError(t, err)

	sessions, err := store.Sessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].Timestamp.Before(sessions[1].Timestamp))
}

func TestRaiseStreakIsARatchet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 11, 9))
	require.NoError(t, err)

	require.NoError(t, store.RaiseStreak(ctx, "u1", 4))
	st, err := store.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Streak)

	// Lower values never lower the ratchet.
	require.NoError(t, store.RaiseStreak(ctx, "u1", 2))
	st, err = store.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Streak)
}

func TestResetZeroesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.RecordSession(ctx, "u1", period.Tomato, 25, at(2024, time.June, 10, 9))
	require.NoError(t, err)
	_, err = store.RecordSession(ctx, "u1", period.Plant, 50, at(2024, time.June, 11, 9))
	require.NoError(t, err)

	st, err := store.Reset(ctx, "u1", at(2024, time.June, 11, 12))
	require.NoError(t, err)
	assert.Zero(t, st.Tomatoes)
	assert.Zero(t, st.Plants)
	assert.Zero(t, st.TotalMinutes)
	assert.Zero(t, st.Streak)

	sessions, err := store.Sessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestResetUnknownUserCreatesZeroAggregate(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Reset(context.Background(), "fresh", at(2024, time.June, 11, 12))
	require.NoError(t, err)
	assert.Equal(t, "fresh", st.UserID)
	assert.Zero(t, st.Tomatoes)
	assert.Zero(t, st.Streak)
}

func TestCountersMatchSessionLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	times := []time.Time{
		at(2024, time.June, 9, 9),
		at(2024, time.June, 10, 9),
		at(2024, time.June, 10, 14),
		at(2024, time.June, 11, 9),
	}
	kinds := []period.SessionType{period.Tomato, period.Plant, period.Tomato, period.Tomato}
	for i := range times {
		_, err := store.RecordSession(ctx, "u1", kinds[i], 25, times[i])
		require.NoError(t, err)
	}

	st, err := store.Stats(ctx, "u1")
	require.NoError(t, err)
	sessions, err := store.Sessions(ctx, "u1")
	require.NoError(t, err)

	// The running counters are a cache over the log: re-derive them.
	tomatoes, plants, minutes := 0, 0, 0
	for _, s := range sessions {
		if s.Type == period.Tomato {
			tomatoes++
		} else {
			plants++
		}
		minutes += s.Duration
	}
	assert.Equal(t, st.Tomatoes, tomatoes)
	assert.Equal(t, st.Plants, plants)
	assert.Equal(t, st.TotalMinutes, minutes)
}

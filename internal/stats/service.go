// Package stats orchestrates the stats store and the period engine:
// fetch-then-compute reads and serialized per-user writes.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"grove/internal/db"
	"grove/internal/period"
)

// PeriodStats is the merged response for one stats query: window-filtered
// counters, the chart series, the filtered session list the client charts
// from, and both streak figures. Streak is the ratcheted best-ever value,
// CurrentStreak the run ending today.
type PeriodStats struct {
	Tomatoes      int              `json:"tomatoes"`
	Plants        int              `json:"plants"`
	TotalMinutes  int              `json:"totalMinutes"`
	CurrentStreak int              `json:"currentStreak"`
	Streak        int              `json:"streak"`
	Sessions      []period.Session `json:"sessions"`
	Series        []period.Bucket  `json:"series"`
	Window        period.Window    `json:"window"`
}

// Service answers stats queries and records completed sessions. Writes for
// one user are serialized through a per-user mutex on top of the store's
// transactions; aggregates of different users are independent.
type Service struct {
	store *db.Store

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewService creates a stats service over the given store.
func NewService(store *db.Store) *Service {
	return &Service{
		store: store,
		users: make(map[string]*sync.Mutex),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.users[userID]
	if !ok {
		l = &sync.Mutex{}
		s.users[userID] = l
	}
	return l
}

// PeriodStats resolves the window for the granularity and offset, filters
// and buckets the user's log, and recomputes streaks from scratch. The
// stored streak is only a cache: when the fresh computation beats it, the
// ratchet is raised. A user with no aggregate gets zero values.
func (s *Service) PeriodStats(ctx context.Context, userID, granularity string, offset int, now time.Time) (*PeriodStats, error) {
	stored, err := s.store.Stats(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		stored = &db.UserStats{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("loading stats for %s: %w", userID, err)
	}

	sessions, err := s.store.Sessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading sessions for %s: %w", userID, err)
	}

	win := period.Resolve(granularity, offset, now)
	sum := period.Aggregate(sessions, win, granularity, offset, now)
	streaks := period.ComputeStreaks(sessions, now)

	best := streaks.Longest
	if stored.Streak > best {
		best = stored.Streak
	} else if best > stored.Streak {
		if err := s.store.RaiseStreak(ctx, userID, best); err != nil {
			// The ratchet is a cache; a failed raise only costs a
			// recompute on the next read.
			log.Warn("Failed to raise streak ratchet", "user", userID, "error", err)
		}
	}

	filtered := period.Filter(sessions, win)
	return &PeriodStats{
		Tomatoes:      sum.Tomatoes,
		Plants:        sum.Plants,
		TotalMinutes:  sum.TotalMinutes,
		CurrentStreak: streaks.Current,
		Streak:        best,
		Sessions:      filtered,
		Series:        sum.Series,
		Window:        win,
	}, nil
}

// RecordSession appends one completed session for the user and returns the
// updated aggregate.
func (s *Service) RecordSession(ctx context.Context, userID string, kind period.SessionType, duration int, now time.Time) (*db.UserStats, error) {
	if kind != period.Tomato && kind != period.Plant {
		return nil, fmt.Errorf("unknown session type %q", kind)
	}
	if duration < 0 {
		return nil, fmt.Errorf("negative duration %d", duration)
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	updated, err := s.store.RecordSession(ctx, userID, kind, duration, now)
	if err != nil {
		return nil, fmt.Errorf("recording session for %s: %w", userID, err)
	}
	log.Info("Recorded session", "user", userID, "type", kind, "duration", duration)
	return updated, nil
}

// Reset zeroes the user's counters and empties the session log.
func (s *Service) Reset(ctx context.Context, userID string, now time.Time) (*db.UserStats, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	updated, err := s.store.Reset(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("resetting stats for %s: %w", userID, err)
	}
	log.Info("Reset stats", "user", userID)
	return updated, nil
}

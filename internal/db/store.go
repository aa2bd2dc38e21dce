package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grove/internal/period"
)

// UserStats is the per-user aggregate row. The counters are a cache over
// the session log: always re-derivable, kept running for cheap reads.
// Streak is a ratchet raised by reads that recompute a higher value and
// maintained incrementally by the record transaction.
type UserStats struct {
	UserID        string    `json:"userId"`
	Tomatoes      int       `json:"tomatoes"`
	Plants        int       `json:"plants"`
	TotalMinutes  int       `json:"totalMinutes"`
	Streak        int       `json:"streak"`
	LastStudyDate time.Time `json:"lastStudyDate"`
}

// Store owns all reads and writes against the SQLite database.
type Store struct {
	db *sql.DB
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats loads the aggregate row for a user. Returns ErrNotFound when the
// user has never recorded a session.
func (s *Store) Stats(ctx context.Context, userID string) (*UserStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, tomatoes, plants, total_minutes, streak, last_study_date
		 FROM user_stats WHERE user_id = ?`, userID)
	return scanStats(row)
}

// Sessions returns the full session log for a user, oldest first.
func (s *Store) Sessions(ctx context.Context, userID string) ([]period.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT completed_at, type, duration FROM sessions
		 WHERE user_id = ? ORDER BY completed_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []period.Session
	for rows.Next() {
		var ts string
		var sess period.Session
		if err := rows.Scan(&ts, &sess.Type, &sess.Duration); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing session timestamp %q: %w", ts, err)
		}
		sess.Timestamp = t.Local()
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// RecordSession appends one completed session and applies the counter
// increments and write-time streak bookkeeping in a single transaction, so
// concurrent completions for the same user can't lose an update. The
// aggregate row is created on first use. Returns the post-update row.
func (s *Store) RecordSession(ctx context.Context, userID string, kind period.SessionType, duration int, now time.Time) (*UserStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting record transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current, err := scanStats(tx.QueryRowContext(ctx,
		`SELECT user_id, tomatoes, plants, total_minutes, streak, last_study_date
		 FROM user_stats WHERE user_id = ?`, userID))
	if errors.Is(err, ErrNotFound) {
		// First session for this user: the aggregate is created here and
		// a one-day streak starts.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_stats (user_id, streak, last_study_date) VALUES (?, 1, ?)`,
			userID, now.Format(time.RFC3339)); err != nil {
			return nil, fmt.Errorf("creating user stats: %w", err)
		}
	} else if err != nil {
		return nil, err
	} else {
		streak := current.Streak
		switch gap := period.DaysApart(current.LastStudyDate, now); {
		case gap == 1:
			streak++
		case gap > 1:
			streak = 1
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_stats SET streak = ?, last_study_date = ? WHERE user_id = ?`,
			streak, now.Format(time.RFC3339), userID); err != nil {
			return nil, fmt.Errorf("updating streak: %w", err)
		}
	}

	tomatoInc, plantInc := 0, 0
	switch kind {
	case period.Tomato:
		tomatoInc = 1
	case period.Plant:
		plantInc = 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_stats SET tomatoes = tomatoes + ?, plants = plants + ?, total_minutes = total_minutes + ?
		 WHERE user_id = ?`,
		tomatoInc, plantInc, duration, userID); err != nil {
		return nil, fmt.Errorf("incrementing counters: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, completed_at, type, duration) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, now.Format(time.RFC3339), string(kind), duration); err != nil {
		return nil, fmt.Errorf("appending session: %w", err)
	}

	updated, err := scanStats(tx.QueryRowContext(ctx,
		`SELECT user_id, tomatoes, plants, total_minutes, streak, last_study_date
		 FROM user_stats WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing record transaction: %w", err)
	}
	committed = true
	return updated, nil
}

// RaiseStreak lifts the stored streak ratchet to value if it is higher.
// The ratchet never decreases.
func (s *Store) RaiseStreak(ctx context.Context, userID string, value int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_stats SET streak = ? WHERE user_id = ? AND streak < ?`,
		value, userID, value)
	if err != nil {
		return fmt.Errorf("raising streak: %w", err)
	}
	return nil
}

// Reset zeroes every counter and empties the session log for a user,
// creating the aggregate row if it never existed.
func (s *Store) Reset(ctx context.Context, userID string, now time.Time) (*UserStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting reset transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE user_stats SET tomatoes = 0, plants = 0, total_minutes = 0, streak = 0, last_study_date = ?
		 WHERE user_id = ?`, now.Format(time.RFC3339), userID)
	if err != nil {
		return nil, fmt.Errorf("resetting counters: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_stats (user_id, last_study_date) VALUES (?, ?)`,
			userID, now.Format(time.RFC3339)); err != nil {
			return nil, fmt.Errorf("creating user stats: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("clearing sessions: %w", err)
	}

	updated, err := scanStats(tx.QueryRowContext(ctx,
		`SELECT user_id, tomatoes, plants, total_minutes, streak, last_study_date
		 FROM user_stats WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reset transaction: %w", err)
	}
	committed = true
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStats(row rowScanner) (*UserStats, error) {
	var st UserStats
	var lastStudy string
	err := row.Scan(&st.UserID, &st.Tomatoes, &st.Plants, &st.TotalMinutes, &st.Streak, &lastStudy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user stats: %w", err)
	}
	if lastStudy != "" {
		t, err := time.Parse(time.RFC3339, lastStudy)
		if err != nil {
			return nil, fmt.Errorf("parsing last study date %q: %w", lastStudy, err)
		}
		st.LastStudyDate = t.Local()
	}
	return &st, nil
}

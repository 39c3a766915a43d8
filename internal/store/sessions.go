package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/caseload/internal/model"
)

// EntryError reports the batch entry that made LogSessions reject the whole batch.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// ErrEmptyBatch is returned when LogSessions receives no entries.
var ErrEmptyBatch = errors.New("empty session batch")

// LogSessions validates and stores a batch of entries in one transaction. Either every
// entry is stored or none is.
func (s *Store) LogSessions(entries []model.SessionLogEntry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	ids := make([]int64, 0, len(entries))
	for i, e := range entries {
		o, err := scanObjective(tx.QueryRow(`SELECT `+objectiveColumns+` `+objectiveFrom+` WHERE o.id = ?`, e.ObjectiveID))
		if err != nil {
			return nil, &EntryError{Index: i, Err: notFound(err, "objective", e.ObjectiveID)}
		}
		if o.StudentID != e.StudentID {
			return nil, &EntryError{Index: i, Err: fmt.Errorf("objective %d does not belong to student %d: %w",
				e.ObjectiveID, e.StudentID, ErrNotFound)}
		}
		if err := o.CheckProgress(e.ObjectiveProgress); err != nil {
			return nil, &EntryError{Index: i, Err: err}
		}
		at := e.Timestamp
		if at.IsZero() {
			at = now
		}
		res, err := tx.Exec(
			`INSERT INTO session_logs (student_id, objective_id, memo, logged_at, trials_completed, trials_total, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.StudentID, e.ObjectiveID, e.Memo, at.UTC(),
			e.ObjectiveProgress.TrialsCompleted, e.ObjectiveProgress.TrialsTotal, now,
		)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListStudentSessions returns a student's logged sessions, newest first.
func (s *Store) ListStudentSessions(studentID int64) ([]model.LoggedSession, error) {
	if _, err := s.GetStudent(studentID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, student_id, objective_id, memo, logged_at, trials_completed, trials_total, created_at
		 FROM session_logs WHERE student_id = ? ORDER BY logged_at DESC, id DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := []model.LoggedSession{}
	for rows.Next() {
		var ls model.LoggedSession
		if err := rows.Scan(&ls.ID, &ls.StudentID, &ls.ObjectiveID, &ls.Memo, &ls.Timestamp,
			&ls.ObjectiveProgress.TrialsCompleted, &ls.ObjectiveProgress.TrialsTotal, &ls.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, ls)
	}
	return sessions, rows.Err()
}

// SessionCount returns the number of logged sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM session_logs`).Scan(&count)
	return count, err
}

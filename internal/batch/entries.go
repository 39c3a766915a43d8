package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/transcript"
	"github.com/pavelanni/caseload/internal/wizard"
)

// ManualEntries validates a wizard state and shapes one entry per selected objective,
// every entry stamped with at. It stops at the first offending item.
func ManualEntries(s wizard.State, at time.Time) ([]model.SessionLogEntry, error) {
	for i, e := range s.Students() {
		var err error
		switch {
		case e.Status == wizard.FetchLoading:
			err = wizard.ErrFetchPending
		case e.Status == wizard.FetchFailed:
			err = fmt.Errorf("%w: %v", ErrNoSubjectAreas, e.Err)
		case len(e.Areas) == 0:
			err = ErrNoSubjectAreas
		}
		if err != nil {
			return nil, &ValidationError{
				Path: PathManual, Index: i, Step: wizard.StepStudents,
				StudentID: e.Student.ID, Err: err,
			}
		}
	}

	sel := s.Selection()
	if len(sel) == 0 {
		return nil, &ValidationError{Path: PathManual, Index: -1, Step: wizard.StepObjectives, Err: ErrEmpty}
	}
	entries := make([]model.SessionLogEntry, 0, len(sel))
	for i, item := range sel {
		verr := &ValidationError{
			Path: PathManual, Index: i, Step: wizard.StepProgress,
			StudentID: item.Student.ID, ObjectiveID: item.Objective.ID,
		}
		if item.Objective.StudentID != 0 && item.Objective.StudentID != item.Student.ID {
			verr.Step = wizard.StepObjectives
			verr.Err = ErrMismatch
			return nil, verr
		}
		p, err := item.Draft.Progress()
		if err == nil {
			err = item.Objective.CheckProgress(p)
		}
		if err != nil {
			verr.Err = err
			return nil, verr
		}
		entries = append(entries, model.SessionLogEntry{
			StudentID:         item.Student.ID,
			ObjectiveID:       item.Objective.ID,
			Memo:              item.Draft.Memo,
			Timestamp:         at,
			ObjectiveProgress: p,
		})
	}
	return entries, nil
}

// TranscriptEntries validates every parsed session in delivery order and shapes one entry
// per session, stamped with at. It halts at the first invalid session.
func TranscriptEntries(r *transcript.Resolver, at time.Time) ([]model.SessionLogEntry, error) {
	sessions := r.Sessions()
	if len(sessions) == 0 {
		return nil, &ValidationError{Path: PathTranscript, Index: -1, Err: ErrEmpty}
	}
	entries := make([]model.SessionLogEntry, 0, len(sessions))
	for i, ps := range sessions {
		c, _ := r.Choice(ps.ID)
		verr := &ValidationError{
			Path: PathTranscript, Index: i, Step: wizard.StepProgress,
			SessionID: ps.ID, StudentID: c.StudentID, ObjectiveID: c.ObjectiveID,
		}
		res, err := r.Resolve(ps.ID)
		if errors.Is(err, transcript.ErrForeignObjective) {
			err = fmt.Errorf("%w: %w", ErrMismatch, err)
		}
		if err != nil {
			verr.Err = err
			return nil, verr
		}
		d, _ := r.Draft(ps.ID)
		p, err := d.Progress()
		if err == nil {
			err = res.Objective.CheckProgress(p)
		}
		if err != nil {
			verr.Err = err
			return nil, verr
		}
		entries = append(entries, model.SessionLogEntry{
			StudentID:         res.Student.ID,
			ObjectiveID:       res.Objective.ID,
			Memo:              d.Memo,
			Timestamp:         at,
			ObjectiveProgress: p,
		})
	}
	return entries, nil
}

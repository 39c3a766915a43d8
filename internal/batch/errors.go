package batch

import (
	"errors"
	"fmt"

	"github.com/pavelanni/caseload/internal/wizard"
)

var (
	ErrInFlight       = errors.New("a submission is already in progress")
	ErrEmpty          = errors.New("nothing to submit")
	ErrNoSubjectAreas = errors.New("student has no subject areas")
	ErrMismatch       = errors.New("objective does not belong to student")
)

// Path names the workflow a batch was assembled from.
type Path string

const (
	PathManual     Path = "manual"
	PathTranscript Path = "transcript"
)

// ValidationError points at the first item that blocks a batch.
//
// Index is the session's position for the transcript path. For the manual path it is the
// student's position when Step is wizard.StepStudents, and the objective's position in
// wizard.State.Selection otherwise. Index is -1 when no single item is at fault.
type ValidationError struct {
	Path        Path
	Index       int
	Step        wizard.Step
	SessionID   string
	StudentID   int64
	ObjectiveID int64
	Err         error
}

func (e *ValidationError) Error() string {
	if e.Path == PathTranscript {
		return fmt.Sprintf("session %d (%s): %v", e.Index, e.SessionID, e.Err)
	}
	if e.ObjectiveID != 0 {
		return fmt.Sprintf("%s step, student %d objective %d: %v", e.Step, e.StudentID, e.ObjectiveID, e.Err)
	}
	if e.StudentID != 0 {
		return fmt.Sprintf("%s step, student %d: %v", e.Step, e.StudentID, e.Err)
	}
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SubmissionError is a transport or server failure of a whole batch. Nothing was saved.
type SubmissionError struct {
	Path    Path
	Entries int
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %d %s entries: %v", e.Entries, e.Path, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

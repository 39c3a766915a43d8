package i18n

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavelanni/caseload/internal/batch"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
	"github.com/pavelanni/caseload/internal/transcript"
	"github.com/pavelanni/caseload/internal/wizard"
)

// Notice turns a workflow error into a localized user-facing message. Errors it does
// not recognize are returned as their Error text.
func Notice(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	var verr *batch.ValidationError
	if errors.As(err, &verr) {
		reason := reason(ctx, verr.Err, verr.StudentID)
		if verr.Index < 0 {
			return reason
		}
		if verr.Path == batch.PathTranscript {
			return Td(ctx, "SessionBlocked", map[string]any{"N": verr.Index + 1, "Reason": reason})
		}
		return Td(ctx, "ItemBlocked", map[string]any{"Step": verr.Step.String(), "N": verr.Index + 1, "Reason": reason})
	}
	var serr *batch.SubmissionError
	if errors.As(err, &serr) {
		return T(ctx, "SubmissionFailed")
	}
	var ferr *wizard.FetchError
	if errors.As(err, &ferr) {
		return Td(ctx, "FetchFailed", map[string]any{"Student": studentRef(ferr.StudentID)})
	}
	var stErr *wizard.StudentError
	if errors.As(err, &stErr) {
		return reason(ctx, stErr.Err, stErr.StudentID)
	}
	return reason(ctx, err, 0)
}

func reason(ctx context.Context, err error, studentID int64) string {
	student := map[string]any{"Student": studentRef(studentID)}
	switch {
	case errors.Is(err, transcript.ErrNoObjectives):
		return T(ctx, "NoObjectivesForStudent")
	case errors.Is(err, transcript.ErrNoMatches):
		return T(ctx, "NoMatchesForSession")
	case errors.Is(err, batch.ErrMismatch), errors.Is(err, transcript.ErrForeignObjective):
		return T(ctx, "ObjectiveMismatch")
	case errors.Is(err, transcript.ErrUnknownStudent), errors.Is(err, transcript.ErrUnknownObjective):
		return T(ctx, "SessionUnresolved")
	case errors.Is(err, progress.ErrIncomplete):
		return T(ctx, "IncompleteProgress")
	case errors.Is(err, model.ErrInvalidProgress):
		return T(ctx, "InvalidProgress")
	case errors.Is(err, batch.ErrNoSubjectAreas):
		return Td(ctx, "NoSubjectAreas", student)
	case errors.Is(err, batch.ErrEmpty):
		return T(ctx, "NothingToSubmit")
	case errors.Is(err, batch.ErrInFlight):
		return T(ctx, "SubmissionPending")
	case errors.Is(err, wizard.ErrNoStudents):
		return T(ctx, "NoStudents")
	case errors.Is(err, wizard.ErrNoSubjectArea):
		return Td(ctx, "NoSubjectArea", student)
	case errors.Is(err, wizard.ErrFetchPending):
		return Td(ctx, "FetchPending", student)
	case errors.Is(err, wizard.ErrUnknownGoal):
		return Td(ctx, "UnknownGoal", student)
	case errors.Is(err, wizard.ErrWrongStep):
		return T(ctx, "WrongStep")
	case errors.Is(err, wizard.ErrNoObjectives):
		return T(ctx, "NoObjectivesSelected")
	default:
		return err.Error()
	}
}

func studentRef(id int64) string {
	return fmt.Sprintf("#%d", id)
}

// ObjectivesFilled renders a manual progress counter such as "3 of 7 objectives filled".
func ObjectivesFilled(ctx context.Context, s progress.Summary) string {
	return Tpd(ctx, "ObjectivesFilled", s.Total, map[string]any{"Filled": s.Filled})
}

// SessionsResolved renders a transcript counter such as "2 of 3 sessions resolved".
func SessionsResolved(ctx context.Context, resolved, total int) string {
	return Tpd(ctx, "SessionsResolved", total, map[string]any{"Resolved": resolved})
}

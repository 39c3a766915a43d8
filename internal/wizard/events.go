package wizard

import (
	"time"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
)

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// ToggleStudent selects an unselected student or deselects a selected one.
type ToggleStudent struct{ Student model.Student }

// RetryStudent re-fetches a selected student's subject areas.
type RetryStudent struct{ StudentID int64 }

// SubjectAreasLoaded carries the result of a subject-area fetch.
type SubjectAreasLoaded struct {
	StudentID int64
	Gen       uint64
	Areas     []model.SubjectArea
	Err       error
}

// ToggleSubjectArea selects or deselects one of a student's subject areas.
type ToggleSubjectArea struct {
	StudentID int64
	AreaID    int64
}

// ToggleObjective adds or removes one objective from a student's selection.
type ToggleObjective struct {
	StudentID   int64
	ObjectiveID int64
}

// ToggleGoal selects every objective under a goal, or deselects them all if all
// were already selected.
type ToggleGoal struct {
	StudentID int64
	GoalKey   string
}

// SetAnswer records a binary objective's answer.
type SetAnswer struct {
	StudentID   int64
	ObjectiveID int64
	Answer      progress.Answer
}

// EditTrial changes the raw text of a trial field.
type EditTrial struct {
	StudentID   int64
	ObjectiveID int64
	Field       progress.Field
	Text        string
}

// CommitTrial coerces a trial field, as when it loses focus.
type CommitTrial struct {
	StudentID   int64
	ObjectiveID int64
	Field       progress.Field
}

// SetMemo sets the free-text memo of a draft.
type SetMemo struct {
	StudentID   int64
	ObjectiveID int64
	Memo        string
}

// SetTimestamp sets an explicit session time for every entry.
type SetTimestamp struct{ At time.Time }

// Next advances one step if the current step's exit condition holds.
type Next struct{}

// Back returns one step. Entered data is kept.
type Back struct{}

// Reset discards all selection and draft state.
type Reset struct{}

func (ToggleStudent) isEvent()      {}
func (RetryStudent) isEvent()       {}
func (SubjectAreasLoaded) isEvent() {}
func (ToggleSubjectArea) isEvent()  {}
func (ToggleObjective) isEvent()    {}
func (ToggleGoal) isEvent()         {}
func (SetAnswer) isEvent()          {}
func (EditTrial) isEvent()          {}
func (CommitTrial) isEvent()        {}
func (SetMemo) isEvent()            {}
func (SetTimestamp) isEvent()       {}
func (Next) isEvent()               {}
func (Back) isEvent()               {}
func (Reset) isEvent()              {}

// Effect is work the caller must perform after a transition.
type Effect interface {
	isEffect()
}

// FetchSubjectAreas asks the caller to fetch a student's subject areas and dispatch
// SubjectAreasLoaded with the same Gen.
type FetchSubjectAreas struct {
	StudentID int64
	Gen       uint64
}

func (FetchSubjectAreas) isEffect() {}

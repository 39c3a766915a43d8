// Package wizard implements the manual selection workflow: pick students, their subject
// areas and objectives, then fill one progress draft per selected objective.
//
// All transitions are pure: Reduce takes a State and an Event and returns the next State
// plus any effects (subject-area fetches) the caller must run. Controller runs those
// effects and feeds their results back as events.
package wizard

import (
	"time"

	"github.com/pavelanni/caseload/internal/hierarchy"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
)

// Step is a wizard step.
type Step int

const (
	StepStudents Step = iota
	StepObjectives
	StepProgress
)

func (s Step) String() string {
	switch s {
	case StepStudents:
		return "students"
	case StepObjectives:
		return "objectives"
	case StepProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// FetchStatus tracks the subject-area fetch of a selected student.
type FetchStatus int

const (
	FetchLoading FetchStatus = iota
	FetchLoaded
	FetchFailed
)

// DraftKey identifies the progress draft of one student's objective.
type DraftKey struct {
	StudentID   int64
	ObjectiveID int64
}

// StudentEntry is the selection slice owned by one selected student.
type StudentEntry struct {
	Student model.Student
	// Areas are the subject areas available for the student, as fetched.
	Areas  []model.SubjectArea
	Status FetchStatus
	Err    error

	gen        uint64
	areas      map[int64]bool
	objectives hierarchy.IDSet
}

// AreaSelected reports whether the subject area is selected.
func (e StudentEntry) AreaSelected(areaID int64) bool { return e.areas[areaID] }

// ObjectiveSelected reports whether the objective is selected.
func (e StudentEntry) ObjectiveSelected(objectiveID int64) bool { return e.objectives.Has(objectiveID) }

// SelectedAreas returns selected subject areas in fetch order.
func (e StudentEntry) SelectedAreas() []model.SubjectArea {
	var out []model.SubjectArea
	for _, a := range e.Areas {
		if e.areas[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// VisibleObjectives returns the objectives under the selected subject areas. Ownership
// reported by the fetcher is kept, so a foreign objective stays detectable at submission.
func (e StudentEntry) VisibleObjectives() []model.Objective {
	var out []model.Objective
	for _, a := range e.SelectedAreas() {
		if a.StudentID == 0 {
			a.StudentID = e.Student.ID
		}
		out = append(out, a.Objectives()...)
	}
	return out
}

// Selection returns the student's selected objectives for goal counting.
func (e StudentEntry) Selection() hierarchy.Selection { return e.objectives }

// SelectedObjectiveCount returns the number of selected objectives.
func (e StudentEntry) SelectedObjectiveCount() int { return len(e.objectives) }

func (e *StudentEntry) clone() *StudentEntry {
	ne := *e
	ne.areas = make(map[int64]bool, len(e.areas))
	for k, v := range e.areas {
		ne.areas[k] = v
	}
	ne.objectives = make(hierarchy.IDSet, len(e.objectives))
	for k := range e.objectives {
		ne.objectives[k] = struct{}{}
	}
	return &ne
}

func (e *StudentEntry) findObjective(objectiveID int64) (model.Objective, bool) {
	for _, o := range e.VisibleObjectives() {
		if o.ID == objectiveID {
			return o, true
		}
	}
	return model.Objective{}, false
}

// State is the full wizard state. The zero value is not usable; call NewState.
type State struct {
	step      Step
	order     []int64
	students  map[int64]*StudentEntry
	drafts    *progress.Book[DraftKey]
	timestamp *time.Time
	nextGen   uint64
}

// NewState returns an empty wizard on the students step.
func NewState() State {
	return State{
		students: make(map[int64]*StudentEntry),
		drafts:   progress.NewBook[DraftKey](),
	}
}

func (s State) clone() State {
	ns := s
	ns.order = append([]int64(nil), s.order...)
	ns.students = make(map[int64]*StudentEntry, len(s.students))
	for id, e := range s.students {
		ns.students[id] = e.clone()
	}
	ns.drafts = s.drafts.Clone()
	return ns
}

// Step returns the current step.
func (s State) Step() Step { return s.step }

// Timestamp returns the explicit session time, if one was set.
func (s State) Timestamp() *time.Time { return s.timestamp }

// Students returns selected students in selection order.
func (s State) Students() []StudentEntry {
	out := make([]StudentEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.students[id].clone())
	}
	return out
}

// Student returns the selection slice of a student.
func (s State) Student(id int64) (StudentEntry, bool) {
	e, ok := s.students[id]
	if !ok {
		return StudentEntry{}, false
	}
	return *e.clone(), true
}

// IsStudentSelected reports whether the student is selected.
func (s State) IsStudentSelected(id int64) bool {
	_, ok := s.students[id]
	return ok
}

// Goals groups a student's visible objectives by goal.
func (s State) Goals(studentID int64) hierarchy.Grouped {
	e, ok := s.students[studentID]
	if !ok {
		return hierarchy.GroupByGoal(nil)
	}
	return hierarchy.GroupByGoal(e.VisibleObjectives())
}

// GoalCount returns selected/total objectives under a student's goal.
func (s State) GoalCount(studentID int64, goalKey string) hierarchy.Count {
	e, ok := s.students[studentID]
	if !ok {
		return hierarchy.Count{}
	}
	return s.Goals(studentID).CountSelected(goalKey, e.objectives)
}

// SelectedObjectiveCount returns the number of selected objectives across all students.
func (s State) SelectedObjectiveCount() int {
	n := 0
	for _, e := range s.students {
		n += len(e.objectives)
	}
	return n
}

// Draft returns the progress draft for a student's objective.
func (s State) Draft(studentID, objectiveID int64) (progress.Draft, bool) {
	return s.drafts.Get(DraftKey{StudentID: studentID, ObjectiveID: objectiveID})
}

// DraftCount returns the number of drafts held.
func (s State) DraftCount() int { return s.drafts.Len() }

// Selected is one selected objective with its owner and draft.
type Selected struct {
	Student   model.Student
	Objective model.Objective
	Draft     progress.Draft
}

// Selection lists every selected objective in student order, then hierarchy order.
func (s State) Selection() []Selected {
	var out []Selected
	for _, id := range s.order {
		e := s.students[id]
		for _, o := range e.VisibleObjectives() {
			if !e.objectives.Has(o.ID) {
				continue
			}
			d, _ := s.Draft(id, o.ID)
			out = append(out, Selected{Student: e.Student, Objective: o, Draft: d})
		}
	}
	return out
}

// Summary counts filled drafts across all selected objectives.
func (s State) Summary() progress.Summary {
	return s.drafts.Summarize(nil)
}

// StudentSummary counts filled drafts for one student.
func (s State) StudentSummary(studentID int64) progress.Summary {
	return s.drafts.Summarize(func(k DraftKey) bool { return k.StudentID == studentID })
}

// IsComplete reports whether every selected objective of the student has a complete draft.
func (s State) IsComplete(studentID int64) bool {
	return s.StudentSummary(studentID).Done()
}

package wizard

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
)

var (
	ErrNoStudents         = errors.New("select at least one student")
	ErrNoSubjectArea      = errors.New("select at least one subject area")
	ErrFetchPending       = errors.New("subject areas are still loading")
	ErrNoObjectives       = errors.New("select at least one objective")
	ErrLastStep           = errors.New("already on the last step")
	ErrStudentNotSelected = errors.New("student is not selected")
	ErrUnknownSubjectArea = errors.New("subject area is not available for student")
	ErrUnknownObjective   = errors.New("objective is not available for student")
	ErrUnknownGoal        = errors.New("goal is not available for student")
	ErrWrongStep          = errors.New("only allowed on the students step")
	ErrObjectiveNotChosen = errors.New("objective is not selected")
	ErrWrongMeasurement   = errors.New("input does not match objective measurement type")
	ErrStale              = errors.New("stale subject area result")
	ErrUnknownEvent       = errors.New("unknown wizard event")
)

// StudentError ties a step exit failure to the student that caused it.
type StudentError struct {
	StudentID int64
	Err       error
}

func (e *StudentError) Error() string {
	return fmt.Sprintf("student %d: %v", e.StudentID, e.Err)
}

func (e *StudentError) Unwrap() error { return e.Err }

// Reduce applies ev to s. On error the returned state equals s and no effects are returned.
// s itself is never modified.
func Reduce(s State, ev Event) (State, []Effect, error) {
	ns := s.clone()
	var (
		effects []Effect
		err     error
	)
	switch e := ev.(type) {
	case ToggleStudent:
		effects, err = ns.toggleStudent(e.Student)
	case RetryStudent:
		if err = ns.onStudentsStep(); err == nil {
			effects, err = ns.retryStudent(e.StudentID)
		}
	case SubjectAreasLoaded:
		err = ns.subjectAreasLoaded(e)
	case ToggleSubjectArea:
		if err = ns.onStudentsStep(); err == nil {
			err = ns.toggleSubjectArea(e.StudentID, e.AreaID)
		}
	case ToggleObjective:
		err = ns.toggleObjective(e.StudentID, e.ObjectiveID)
	case ToggleGoal:
		err = ns.toggleGoal(e.StudentID, e.GoalKey)
	case SetAnswer:
		err = ns.updateDraft(e.StudentID, e.ObjectiveID, model.MeasurementBinary, func(d *progress.Draft) {
			d.SetAnswer(e.Answer)
		})
	case EditTrial:
		err = ns.updateDraft(e.StudentID, e.ObjectiveID, model.MeasurementTrial, func(d *progress.Draft) {
			d.Edit(e.Field, e.Text)
		})
	case CommitTrial:
		err = ns.updateDraft(e.StudentID, e.ObjectiveID, model.MeasurementTrial, func(d *progress.Draft) {
			d.Commit(e.Field)
		})
	case SetMemo:
		err = ns.updateDraft(e.StudentID, e.ObjectiveID, "", func(d *progress.Draft) {
			d.Memo = e.Memo
		})
	case SetTimestamp:
		at := e.At
		ns.timestamp = &at
	case Next:
		err = ns.next()
	case Back:
		if ns.step > StepStudents {
			ns.step--
		}
	case Reset:
		gen := ns.nextGen
		ns = NewState()
		ns.nextGen = gen
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	if err != nil {
		return s, nil, err
	}
	return ns, effects, nil
}

// onStudentsStep guards edits that change what the students step exit checked.
func (s *State) onStudentsStep() error {
	if s.step != StepStudents {
		return fmt.Errorf("%w: on %s step", ErrWrongStep, s.step)
	}
	return nil
}

// toggleStudent adds or removes a student. Removal is allowed on any step; adding is not.
func (s *State) toggleStudent(st model.Student) ([]Effect, error) {
	if _, ok := s.students[st.ID]; ok {
		s.removeStudent(st.ID)
		return nil, nil
	}
	if err := s.onStudentsStep(); err != nil {
		return nil, err
	}
	s.nextGen++
	s.students[st.ID] = &StudentEntry{
		Student:    st,
		Status:     FetchLoading,
		gen:        s.nextGen,
		areas:      make(map[int64]bool),
		objectives: make(map[int64]struct{}),
	}
	s.order = append(s.order, st.ID)
	return []Effect{FetchSubjectAreas{StudentID: st.ID, Gen: s.nextGen}}, nil
}

func (s *State) removeStudent(id int64) {
	delete(s.students, id)
	s.order = slices.DeleteFunc(s.order, func(v int64) bool { return v == id })
	s.drafts.DeleteWhere(func(k DraftKey) bool { return k.StudentID == id })
}

func (s *State) retryStudent(id int64) ([]Effect, error) {
	e, ok := s.students[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrStudentNotSelected, id)
	}
	s.nextGen++
	e.gen = s.nextGen
	e.Status = FetchLoading
	e.Err = nil
	return []Effect{FetchSubjectAreas{StudentID: id, Gen: e.gen}}, nil
}

func (s *State) subjectAreasLoaded(ev SubjectAreasLoaded) error {
	e, ok := s.students[ev.StudentID]
	if !ok || e.gen != ev.Gen {
		return fmt.Errorf("%w: student %d gen %d", ErrStale, ev.StudentID, ev.Gen)
	}
	if ev.Err != nil {
		e.Status = FetchFailed
		e.Err = ev.Err
		e.Areas = nil
	} else {
		e.Status = FetchLoaded
		e.Err = nil
		e.Areas = ev.Areas
	}
	s.prune(e)
	return nil
}

// prune drops area and objective selections (and drafts) no longer visible for e.
func (s *State) prune(e *StudentEntry) {
	for id := range e.areas {
		if !slices.ContainsFunc(e.Areas, func(a model.SubjectArea) bool { return a.ID == id }) {
			delete(e.areas, id)
		}
	}
	visible := make(map[int64]bool)
	for _, o := range e.VisibleObjectives() {
		visible[o.ID] = true
	}
	for id := range e.objectives {
		if !visible[id] {
			delete(e.objectives, id)
		}
	}
	sid := e.Student.ID
	s.drafts.DeleteWhere(func(k DraftKey) bool {
		return k.StudentID == sid && !e.objectives.Has(k.ObjectiveID)
	})
}

func (s *State) toggleSubjectArea(studentID, areaID int64) error {
	e, ok := s.students[studentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStudentNotSelected, studentID)
	}
	if !slices.ContainsFunc(e.Areas, func(a model.SubjectArea) bool { return a.ID == areaID }) {
		return fmt.Errorf("%w: area %d", ErrUnknownSubjectArea, areaID)
	}
	if e.areas[areaID] {
		delete(e.areas, areaID)
		s.prune(e)
		return nil
	}
	e.areas[areaID] = true
	return nil
}

func (s *State) toggleObjective(studentID, objectiveID int64) error {
	e, ok := s.students[studentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStudentNotSelected, studentID)
	}
	o, ok := e.findObjective(objectiveID)
	if !ok {
		return fmt.Errorf("%w: objective %d", ErrUnknownObjective, objectiveID)
	}
	if e.objectives.Has(o.ID) {
		s.deselectObjective(e, o.ID)
	} else {
		s.selectObjective(e, o)
	}
	return nil
}

func (s *State) selectObjective(e *StudentEntry, o model.Objective) {
	e.objectives[o.ID] = struct{}{}
	s.drafts.Ensure(DraftKey{StudentID: e.Student.ID, ObjectiveID: o.ID}, progress.NewDraft(o.Type))
}

func (s *State) deselectObjective(e *StudentEntry, objectiveID int64) {
	delete(e.objectives, objectiveID)
	s.drafts.Delete(DraftKey{StudentID: e.Student.ID, ObjectiveID: objectiveID})
}

func (s *State) toggleGoal(studentID int64, goalKey string) error {
	e, ok := s.students[studentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStudentNotSelected, studentID)
	}
	grp, ok := s.Goals(studentID).Get(goalKey)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGoal, goalKey)
	}
	allSelected := true
	for _, o := range grp.Objectives {
		if !e.objectives.Has(o.ID) {
			allSelected = false
			break
		}
	}
	for _, o := range grp.Objectives {
		if allSelected {
			s.deselectObjective(e, o.ID)
		} else if !e.objectives.Has(o.ID) {
			s.selectObjective(e, o)
		}
	}
	return nil
}

// updateDraft applies fn to a selected objective's draft. A non-empty want restricts the
// edit to objectives of that measurement type.
func (s *State) updateDraft(studentID, objectiveID int64, want model.MeasurementType, fn func(*progress.Draft)) error {
	e, ok := s.students[studentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStudentNotSelected, studentID)
	}
	if !e.objectives.Has(objectiveID) {
		return fmt.Errorf("%w: objective %d", ErrObjectiveNotChosen, objectiveID)
	}
	key := DraftKey{StudentID: studentID, ObjectiveID: objectiveID}
	d, ok := s.drafts.Get(key)
	if !ok {
		return fmt.Errorf("%w: objective %d", ErrObjectiveNotChosen, objectiveID)
	}
	if want != "" && d.Type != want {
		return fmt.Errorf("%w: objective %d is %s", ErrWrongMeasurement, objectiveID, d.Type)
	}
	fn(&d)
	s.drafts.Put(key, d)
	return nil
}

func (s *State) next() error {
	switch s.step {
	case StepStudents:
		if err := s.studentsExit(); err != nil {
			return err
		}
	case StepObjectives:
		if s.SelectedObjectiveCount() == 0 {
			return ErrNoObjectives
		}
	default:
		return ErrLastStep
	}
	s.step++
	return nil
}

// studentsExit requires a subject area for every selected student that has any.
// Students without subject areas pass here and are flagged at submission.
func (s *State) studentsExit() error {
	if len(s.order) == 0 {
		return ErrNoStudents
	}
	for _, id := range s.order {
		e := s.students[id]
		if e.Status == FetchLoading {
			return &StudentError{StudentID: id, Err: ErrFetchPending}
		}
		if len(e.Areas) > 0 && len(e.areas) == 0 {
			return &StudentError{StudentID: id, Err: ErrNoSubjectArea}
		}
	}
	return nil
}

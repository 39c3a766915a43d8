package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
	"github.com/pavelanni/caseload/internal/wizard"
)

var (
	// ErrUnknownStudent is returned when a plan names a student missing from the roster.
	ErrUnknownStudent = errors.New("student not on roster")
	// ErrUnknownArea is returned when a plan names a subject area the student does not have.
	ErrUnknownArea = errors.New("subject area not found")
	// ErrAmbiguousObjective is returned when a description matches several objectives.
	ErrAmbiguousObjective = errors.New("objective description is ambiguous")
	// ErrUnknownObjective is returned when no visible objective matches an entry.
	ErrUnknownObjective = errors.New("objective not found")
)

// Manual is a logging plan for the manual path.
type Manual struct {
	Timestamp *time.Time      `yaml:"timestamp"`
	Students  []ManualStudent `yaml:"students"`
}

// ManualStudent picks a student by id or name. An empty SubjectAreas list selects every
// area the student has.
type ManualStudent struct {
	ID           int64    `yaml:"id"`
	Name         string   `yaml:"name"`
	SubjectAreas []string `yaml:"subject_areas"`
	Objectives   []Entry  `yaml:"objectives"`
}

// Entry is the input for one objective. Trial counts are kept as text so they go through
// the same coercion as typed form input.
type Entry struct {
	ID          int64  `yaml:"id"`
	Description string `yaml:"description"`
	Answer      string `yaml:"answer"`
	Completed   string `yaml:"completed"`
	Total       string `yaml:"total"`
	Memo        string `yaml:"memo"`
}

func (e Entry) label() string {
	if e.ID != 0 {
		return fmt.Sprintf("#%d", e.ID)
	}
	return fmt.Sprintf("%q", e.Description)
}

// LoadManual reads a manual plan file.
func LoadManual(path string) (Manual, error) {
	return load[Manual](path, "plan")
}

// Apply walks a fresh wizard through the plan: students, subject areas, objectives and
// then progress input. It stops at the first event the wizard refuses. The wizard is left
// on the progress step on success.
func (m Manual) Apply(c *wizard.Controller, roster []model.Student) error {
	picked := make([]model.Student, 0, len(m.Students))
	for _, ps := range m.Students {
		st, err := findStudent(roster, ps.ID, ps.Name)
		if err != nil {
			return err
		}
		picked = append(picked, st)
		if err := c.ToggleStudent(st); err != nil {
			return fmt.Errorf("student %d: %w", st.ID, err)
		}
	}
	c.Wait()

	for i, ps := range m.Students {
		if err := selectAreas(c, picked[i].ID, ps.SubjectAreas); err != nil {
			return err
		}
	}
	if err := c.Next(); err != nil {
		return err
	}

	for i, ps := range m.Students {
		sid := picked[i].ID
		for _, e := range ps.Objectives {
			o, err := findVisible(c.State(), sid, e)
			if err != nil {
				return err
			}
			if err := c.ToggleObjective(sid, o.ID); err != nil {
				return fmt.Errorf("student %d: %w", sid, err)
			}
		}
	}
	if err := c.Next(); err != nil {
		return err
	}

	for i, ps := range m.Students {
		sid := picked[i].ID
		for _, e := range ps.Objectives {
			o, err := findVisible(c.State(), sid, e)
			if err != nil {
				return err
			}
			if err := fillDraft(c, sid, o, e); err != nil {
				return fmt.Errorf("student %d, objective %d: %w", sid, o.ID, err)
			}
		}
	}
	if m.Timestamp != nil {
		return c.Dispatch(wizard.SetTimestamp{At: *m.Timestamp})
	}
	return nil
}

func findStudent(roster []model.Student, id int64, name string) (model.Student, error) {
	for _, st := range roster {
		if id != 0 && st.ID == id {
			return st, nil
		}
		if id == 0 && name != "" && strings.EqualFold(st.Name, strings.TrimSpace(name)) {
			return st, nil
		}
	}
	if id != 0 {
		return model.Student{}, fmt.Errorf("%w: #%d", ErrUnknownStudent, id)
	}
	return model.Student{}, fmt.Errorf("%w: %q", ErrUnknownStudent, name)
}

func selectAreas(c *wizard.Controller, studentID int64, names []string) error {
	e, _ := c.State().Student(studentID)
	if len(names) == 0 {
		for _, a := range e.Areas {
			if err := c.ToggleSubjectArea(studentID, a.ID); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		found := false
		for _, a := range e.Areas {
			if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
				found = true
				if err := c.ToggleSubjectArea(studentID, a.ID); err != nil {
					return err
				}
				break
			}
		}
		if !found {
			return fmt.Errorf("student %d: %w: %q", studentID, ErrUnknownArea, name)
		}
	}
	return nil
}

// findVisible resolves an entry by id, or by a case-insensitive substring of the
// objective description.
func findVisible(s wizard.State, studentID int64, e Entry) (model.Objective, error) {
	entry, _ := s.Student(studentID)
	var matches []model.Objective
	needle := strings.ToLower(strings.TrimSpace(e.Description))
	for _, o := range entry.VisibleObjectives() {
		switch {
		case e.ID != 0:
			if o.ID == e.ID {
				return o, nil
			}
		case needle != "" && strings.Contains(strings.ToLower(o.Description), needle):
			matches = append(matches, o)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.Objective{}, fmt.Errorf("student %d: %w: %s", studentID, ErrUnknownObjective, e.label())
	default:
		return model.Objective{}, fmt.Errorf("student %d: %w: %s matches %d objectives",
			studentID, ErrAmbiguousObjective, e.label(), len(matches))
	}
}

func fillDraft(c *wizard.Controller, studentID int64, o model.Objective, e Entry) error {
	switch o.Type {
	case model.MeasurementBinary:
		if e.Answer != "" {
			if err := c.SetAnswer(studentID, o.ID, progress.ParseAnswer(e.Answer)); err != nil {
				return err
			}
		}
	case model.MeasurementTrial:
		if e.Completed != "" || e.Total != "" {
			if err := c.EnterTrials(studentID, o.ID, e.Completed, e.Total); err != nil {
				return err
			}
		}
	}
	if e.Memo != "" {
		return c.SetMemo(studentID, o.ID, e.Memo)
	}
	return nil
}

package model

import (
	"errors"
	"fmt"
)

// MeasurementType is how an objective's progress is measured in a session.
type MeasurementType string

const (
	// MeasurementBinary records a single yes/no outcome per session.
	MeasurementBinary MeasurementType = "binary"
	// MeasurementTrial records completed out of total discrete trials.
	MeasurementTrial MeasurementType = "trial"
)

// Valid reports whether t is a known measurement type.
func (t MeasurementType) Valid() bool {
	return t == MeasurementBinary || t == MeasurementTrial
}

// ErrInvalidProgress is returned when a progress record violates its objective's shape.
var ErrInvalidProgress = errors.New("invalid objective progress")

// Student is a student on a case manager's roster.
type Student struct {
	ID           int64         `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	GradeLevel   *int          `json:"grade_level,omitempty" yaml:"grade_level,omitempty"`
	Category     string        `json:"disability_category,omitempty" yaml:"disability_category,omitempty"`
	SubjectAreas []SubjectArea `json:"subject_areas,omitempty" yaml:"subject_areas,omitempty"`
}

// SubjectArea groups a student's goals.
type SubjectArea struct {
	ID        int64  `json:"id" yaml:"id"`
	StudentID int64  `json:"student_id" yaml:"student_id"`
	Name      string `json:"name" yaml:"name"`
	Goals     []Goal `json:"goals,omitempty" yaml:"goals,omitempty"`
}

// Goal groups objectives inside a subject area.
type Goal struct {
	ID            int64       `json:"id" yaml:"id"`
	SubjectAreaID int64       `json:"subject_area_id" yaml:"subject_area_id"`
	Title         string      `json:"title" yaml:"title"`
	Objectives    []Objective `json:"objectives,omitempty" yaml:"objectives,omitempty"`
}

// Objective is the measurable unit progress is logged against.
// GoalID is zero when the objective is not attached to a goal.
type Objective struct {
	ID                         int64           `json:"id" yaml:"id"`
	StudentID                  int64           `json:"student_id" yaml:"student_id"`
	SubjectAreaID              int64           `json:"subject_area_id,omitempty" yaml:"subject_area_id,omitempty"`
	GoalID                     int64           `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	GoalTitle                  string          `json:"goal_title,omitempty" yaml:"goal_title,omitempty"`
	Description                string          `json:"description" yaml:"description"`
	Type                       MeasurementType `json:"objective_type" yaml:"objective_type"`
	TargetAccuracy             float64         `json:"target_accuracy,omitempty" yaml:"target_accuracy,omitempty"`
	TargetConsistencySuccesses int             `json:"target_consistency_successes,omitempty" yaml:"target_consistency_successes,omitempty"`
	TargetConsistencyTrials    int             `json:"target_consistency_trials,omitempty" yaml:"target_consistency_trials,omitempty"`
}

// ObjectiveProgress is the outcome of one session for one objective.
type ObjectiveProgress struct {
	TrialsCompleted int `json:"trials_completed" yaml:"trials_completed"`
	TrialsTotal     int `json:"trials_total" yaml:"trials_total"`
}

// CheckProgress reports whether p has the shape required by the objective's type.
func (o Objective) CheckProgress(p ObjectiveProgress) error {
	switch o.Type {
	case MeasurementBinary:
		if p.TrialsTotal != 1 || (p.TrialsCompleted != 0 && p.TrialsCompleted != 1) {
			return fmt.Errorf("%w: binary objective %d needs 0 or 1 of 1, got %d of %d",
				ErrInvalidProgress, o.ID, p.TrialsCompleted, p.TrialsTotal)
		}
	case MeasurementTrial:
		if p.TrialsTotal < 1 || p.TrialsCompleted < 0 {
			return fmt.Errorf("%w: trial objective %d got %d of %d",
				ErrInvalidProgress, o.ID, p.TrialsCompleted, p.TrialsTotal)
		}
	default:
		return fmt.Errorf("%w: objective %d has unknown type %q", ErrInvalidProgress, o.ID, o.Type)
	}
	return nil
}

// MeetsTarget reports whether a session outcome reaches the objective's target.
// Trial objectives compare accuracy against TargetAccuracy; binary ones need a yes.
func (o Objective) MeetsTarget(p ObjectiveProgress) bool {
	switch o.Type {
	case MeasurementBinary:
		return p.TrialsCompleted == 1
	case MeasurementTrial:
		if p.TrialsTotal < 1 {
			return false
		}
		return float64(p.TrialsCompleted)/float64(p.TrialsTotal) >= o.TargetAccuracy
	}
	return false
}

// Objectives flattens the area's goals into objectives carrying their goal and area ids.
// An objective's own StudentID is kept when set; only a zero owner inherits the area's.
func (a SubjectArea) Objectives() []Objective {
	var out []Objective
	for _, g := range a.Goals {
		for _, o := range g.Objectives {
			if o.StudentID == 0 {
				o.StudentID = a.StudentID
			}
			o.SubjectAreaID = a.ID
			o.GoalID = g.ID
			o.GoalTitle = g.Title
			out = append(out, o)
		}
	}
	return out
}

// Objectives flattens every subject area of the student.
func (s Student) Objectives() []Objective {
	var out []Objective
	for _, a := range s.SubjectAreas {
		if a.StudentID == 0 {
			a.StudentID = s.ID
		}
		out = append(out, a.Objectives()...)
	}
	return out
}

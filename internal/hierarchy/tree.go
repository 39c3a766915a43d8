package hierarchy

import "github.com/pavelanni/caseload/internal/model"

// AreaView is one subject area with its objectives grouped by goal.
type AreaView struct {
	Area  model.SubjectArea
	Goals Grouped
}

// StudentView is the normalized hierarchy for one student.
type StudentView struct {
	Student model.Student
	Areas   []AreaView
}

// FromStudent normalizes a roster student with nested subject areas.
func FromStudent(s model.Student) StudentView {
	v := StudentView{Student: s}
	for _, a := range s.SubjectAreas {
		if a.StudentID == 0 {
			a.StudentID = s.ID
		}
		v.Areas = append(v.Areas, AreaView{Area: a, Goals: GroupByGoal(a.Objectives())})
	}
	return v
}

// CandidateView is one match candidate with its proposed objectives grouped by goal.
type CandidateView struct {
	Student model.Student
	Goals   Grouped
	// Reasons maps objective id to the analyzer's queried description.
	Reasons map[int64]string
}

// FromMatch normalizes a transcript match candidate into the same grouped shape.
func FromMatch(m model.MatchCandidate) CandidateView {
	v := CandidateView{Student: m.Student, Reasons: make(map[int64]string)}
	objs := make([]model.Objective, 0, len(m.Objectives))
	for _, c := range m.Objectives {
		o := c.Objective
		if o.StudentID == 0 {
			o.StudentID = m.Student.ID
		}
		objs = append(objs, o)
		if c.QueriedDescription != "" {
			v.Reasons[o.ID] = c.QueriedDescription
		}
	}
	v.Goals = GroupByGoal(objs)
	return v
}

// FromParsedSession normalizes every candidate of a parsed session, in analyzer order.
func FromParsedSession(ps model.ParsedSession) []CandidateView {
	out := make([]CandidateView, 0, len(ps.Matches))
	for _, m := range ps.Matches {
		out = append(out, FromMatch(m))
	}
	return out
}

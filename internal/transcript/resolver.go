// Package transcript resolves analyzer-proposed student/objective matches for parsed sessions.
//
// Each parsed session starts on its default pair: the first match candidate's student and
// that candidate's first objective, in the order the analyzer delivered them. Callers may
// override either choice; switching the student always re-defaults the objective.
// A Resolver is not safe for concurrent use.
package transcript

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
)

var (
	ErrUnknownSession   = errors.New("unknown parsed session")
	ErrNoMatches        = errors.New("no student matches for session")
	ErrNoObjectives     = errors.New("no objectives available for selected student")
	ErrUnknownStudent   = errors.New("student is not a candidate for this session")
	ErrUnknownObjective = errors.New("objective is not a candidate for the selected student")
	ErrForeignObjective = errors.New("objective belongs to another student")
)

// Choice is the current student/objective pair of a session. Zero ids mean unresolved.
type Choice struct {
	StudentID   int64
	ObjectiveID int64
}

// Resolved reports whether both ids are set.
func (c Choice) Resolved() bool { return c.StudentID != 0 && c.ObjectiveID != 0 }

// Resolution is a validated choice with the full entities it refers to.
type Resolution struct {
	Session            model.ParsedSession
	Student            model.Student
	Objective          model.Objective
	QueriedDescription string
}

// DefaultChoice applies the default-selection rule to a session.
func DefaultChoice(ps model.ParsedSession) (Choice, error) {
	if len(ps.Matches) == 0 {
		return Choice{}, ErrNoMatches
	}
	return defaultFor(ps.Matches[0])
}

func defaultFor(m model.MatchCandidate) (Choice, error) {
	c := Choice{StudentID: m.Student.ID}
	if len(m.Objectives) == 0 {
		return c, ErrNoObjectives
	}
	c.ObjectiveID = m.Objectives[0].Objective.ID
	return c, nil
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for repair notices.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// Resolver holds the choice and progress draft of every parsed session.
type Resolver struct {
	sessions []model.ParsedSession
	index    map[string]int
	choices  map[string]Choice
	drafts   *progress.Book[string]
	active   string
	at       *time.Time
	log      *slog.Logger
}

// New creates a resolver and applies the default choice to every session.
func New(sessions []model.ParsedSession, opts ...Option) *Resolver {
	r := &Resolver{log: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	r.load(sessions)
	return r
}

func (r *Resolver) load(sessions []model.ParsedSession) {
	r.sessions = append([]model.ParsedSession(nil), sessions...)
	r.index = make(map[string]int, len(sessions))
	r.choices = make(map[string]Choice, len(sessions))
	r.drafts = progress.NewBook[string]()
	r.active = ""
	r.at = nil
	for i, ps := range r.sessions {
		r.index[ps.ID] = i
		c, err := DefaultChoice(ps)
		if err != nil {
			r.log.Debug("session has no default match", "session_id", ps.ID, "error", err)
		}
		r.choices[ps.ID] = c
		r.drafts.Put(ps.ID, progress.Seed(r.objectiveType(ps, c), ps.Progress, ps.Memo))
	}
}

// Reset discards every session, choice and draft.
func (r *Resolver) Reset() {
	r.load(nil)
}

// Len returns the number of sessions.
func (r *Resolver) Len() int { return len(r.sessions) }

// Sessions returns the sessions in delivery order.
func (r *Resolver) Sessions() []model.ParsedSession {
	return append([]model.ParsedSession(nil), r.sessions...)
}

// Session returns the session with the given id.
func (r *Resolver) Session(id string) (model.ParsedSession, bool) {
	i, ok := r.index[id]
	if !ok {
		return model.ParsedSession{}, false
	}
	return r.sessions[i], true
}

// Choice returns the current choice for a session.
func (r *Resolver) Choice(id string) (Choice, bool) {
	c, ok := r.choices[id]
	return c, ok
}

// SetTimestamp sets an explicit time for every logged session. Without one, entries
// carry the submission time.
func (r *Resolver) SetTimestamp(at time.Time) { r.at = &at }

// Timestamp returns the explicit session time, if one was set.
func (r *Resolver) Timestamp() *time.Time { return r.at }

// Active returns the id of the session currently being reviewed, if any.
func (r *Resolver) Active() string { return r.active }

// SelectStudent switches the session's student and re-defaults the objective to that
// student's first candidate, even if the previous objective id is also offered.
func (r *Resolver) SelectStudent(id string, studentID int64) error {
	ps, ok := r.Session(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	m, ok := findMatch(ps, studentID)
	if !ok {
		return fmt.Errorf("%w: student %d", ErrUnknownStudent, studentID)
	}
	c, err := defaultFor(m)
	r.setChoice(ps, c)
	if err != nil {
		return fmt.Errorf("student %d: %w", studentID, err)
	}
	return nil
}

// SelectObjective overrides the objective within the current student's candidates.
func (r *Resolver) SelectObjective(id string, objectiveID int64) error {
	ps, ok := r.Session(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	c := r.choices[id]
	m, ok := findMatch(ps, c.StudentID)
	if !ok {
		return fmt.Errorf("%w: student %d", ErrUnknownStudent, c.StudentID)
	}
	if _, ok := findObjective(m, objectiveID); !ok {
		return fmt.Errorf("%w: objective %d", ErrUnknownObjective, objectiveID)
	}
	c.ObjectiveID = objectiveID
	r.setChoice(ps, c)
	return nil
}

// UpdateSession replaces a session's analyzer output, keeping the current choice and
// draft. The kept choice may no longer be valid until the session is repaired.
func (r *Resolver) UpdateSession(ps model.ParsedSession) error {
	i, ok := r.index[ps.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, ps.ID)
	}
	r.sessions[i] = ps
	return nil
}

// Check reports why a session's current choice is invalid, or nil if it is valid.
// It never modifies state.
func (r *Resolver) Check(id string) error {
	ps, ok := r.Session(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if len(ps.Matches) == 0 {
		return ErrNoMatches
	}
	c := r.choices[id]
	m, ok := findMatch(ps, c.StudentID)
	if !ok || c.StudentID == 0 {
		return fmt.Errorf("%w: student %d", ErrUnknownStudent, c.StudentID)
	}
	if len(m.Objectives) == 0 {
		return ErrNoObjectives
	}
	co, ok := findObjective(m, c.ObjectiveID)
	if !ok {
		return fmt.Errorf("%w: objective %d", ErrUnknownObjective, c.ObjectiveID)
	}
	if owner := co.Objective.StudentID; owner != 0 && owner != m.Student.ID {
		return fmt.Errorf("%w: objective %d owned by student %d", ErrForeignObjective, c.ObjectiveID, owner)
	}
	return nil
}

// Validate reports whether the session has a student and an objective offered for them.
func (r *Resolver) Validate(id string) bool {
	return r.Check(id) == nil
}

// Repair re-applies the default-selection rule to an inconsistent session. A valid
// student keeps its place and only the objective is re-defaulted. It reports whether
// the session is valid afterwards.
func (r *Resolver) Repair(id string) bool {
	ps, ok := r.Session(id)
	if !ok {
		return false
	}
	if r.Check(id) == nil {
		return true
	}
	var (
		c   Choice
		err error
	)
	if m, ok := findMatch(ps, r.choices[id].StudentID); ok && r.choices[id].StudentID != 0 {
		c, err = defaultFor(m)
	} else {
		c, err = DefaultChoice(ps)
	}
	r.setChoice(ps, c)
	r.log.Debug("repaired session choice",
		"session_id", id, "student_id", c.StudentID, "objective_id", c.ObjectiveID, "error", err)
	return r.Check(id) == nil
}

// Activate makes a session the active one, repairing it and verifying the result.
func (r *Resolver) Activate(id string) error {
	if _, ok := r.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	r.active = id
	r.Repair(id)
	return r.Check(id)
}

// Resolve returns the validated entities for a session.
func (r *Resolver) Resolve(id string) (Resolution, error) {
	if err := r.Check(id); err != nil {
		return Resolution{}, err
	}
	ps, _ := r.Session(id)
	c := r.choices[id]
	m, _ := findMatch(ps, c.StudentID)
	co, _ := findObjective(m, c.ObjectiveID)
	obj := co.Objective
	if obj.StudentID == 0 {
		obj.StudentID = m.Student.ID
	}
	return Resolution{
		Session:            ps,
		Student:            m.Student,
		Objective:          obj,
		QueriedDescription: co.QueriedDescription,
	}, nil
}

// Draft returns the progress draft of a session.
func (r *Resolver) Draft(id string) (progress.Draft, bool) {
	return r.drafts.Get(id)
}

// UpdateDraft applies fn to the session's draft.
func (r *Resolver) UpdateDraft(id string, fn func(*progress.Draft)) error {
	if !r.drafts.Update(id, fn) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return nil
}

// IsComplete reports whether the session's draft can be finalized.
func (r *Resolver) IsComplete(id string) bool {
	d, ok := r.drafts.Get(id)
	return ok && d.Complete()
}

// Summary counts sessions with complete drafts.
func (r *Resolver) Summary() progress.Summary {
	return r.drafts.Summarize(nil)
}

// Resolved counts sessions whose current choice validates.
func (r *Resolver) Resolved() int {
	n := 0
	for _, ps := range r.sessions {
		if r.Validate(ps.ID) {
			n++
		}
	}
	return n
}

func (r *Resolver) setChoice(ps model.ParsedSession, c Choice) {
	r.choices[ps.ID] = c
	t := r.objectiveType(ps, c)
	d, _ := r.drafts.Get(ps.ID)
	if d.Type != t {
		r.drafts.Put(ps.ID, progress.Seed(t, ps.Progress, d.Memo))
	}
}

func (r *Resolver) objectiveType(ps model.ParsedSession, c Choice) model.MeasurementType {
	m, ok := findMatch(ps, c.StudentID)
	if !ok {
		return ""
	}
	co, ok := findObjective(m, c.ObjectiveID)
	if !ok {
		return ""
	}
	return co.Objective.Type
}

func findMatch(ps model.ParsedSession, studentID int64) (model.MatchCandidate, bool) {
	for _, m := range ps.Matches {
		if m.Student.ID == studentID {
			return m, true
		}
	}
	return model.MatchCandidate{}, false
}

func findObjective(m model.MatchCandidate, objectiveID int64) (model.CandidateObjective, bool) {
	for _, co := range m.Objectives {
		if co.Objective.ID == objectiveID {
			return co, true
		}
	}
	return model.CandidateObjective{}, false
}

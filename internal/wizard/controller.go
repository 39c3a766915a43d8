package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
)

// Fetcher loads a student's subject areas with their goals and objectives.
type Fetcher interface {
	SubjectAreas(ctx context.Context, studentID int64) ([]model.SubjectArea, error)
}

// FetchError is a non-fatal subject-area fetch failure for one student.
type FetchError struct {
	StudentID int64
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch subject areas for student %d: %v", e.StudentID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithFetchErrorHandler registers a callback for subject-area fetch failures.
// It runs on the fetching goroutine after the failure has been recorded in state.
func WithFetchErrorHandler(fn func(*FetchError)) Option {
	return func(c *Controller) { c.onFetchError = fn }
}

// Controller owns a wizard State, serializes events and runs fetch effects.
// Fetches for different students may be in flight at the same time; each writes
// only its own student's slice, and results for deselected students are dropped.
type Controller struct {
	mu           sync.Mutex
	state        State
	fetcher      Fetcher
	ctx          context.Context
	wg           sync.WaitGroup
	log          *slog.Logger
	onFetchError func(*FetchError)
}

// NewController creates a controller. ctx bounds every fetch it starts.
func NewController(ctx context.Context, fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		state:   NewState(),
		fetcher: fetcher,
		ctx:     ctx,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Dispatch applies ev and starts any resulting fetches.
func (c *Controller) Dispatch(ev Event) error {
	c.mu.Lock()
	next, effects, err := Reduce(c.state, ev)
	if err == nil {
		c.state = next
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrStale) {
			c.log.Debug("discarded stale subject areas", "error", err)
			return nil
		}
		return err
	}
	if loaded, ok := ev.(SubjectAreasLoaded); ok && loaded.Err != nil {
		fe := &FetchError{StudentID: loaded.StudentID, Err: loaded.Err}
		c.log.Warn("subject area fetch failed", "student_id", loaded.StudentID, "error", loaded.Err)
		if c.onFetchError != nil {
			c.onFetchError(fe)
		}
	}
	for _, eff := range effects {
		c.run(eff)
	}
	return nil
}

func (c *Controller) run(eff Effect) {
	switch e := eff.(type) {
	case FetchSubjectAreas:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			areas, err := c.fetcher.SubjectAreas(c.ctx, e.StudentID)
			if err != nil {
				err = fmt.Errorf("student %d: %w", e.StudentID, err)
			}
			_ = c.Dispatch(SubjectAreasLoaded{StudentID: e.StudentID, Gen: e.Gen, Areas: areas, Err: err})
		}()
	}
}

// Wait blocks until every fetch started so far has been applied or discarded.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// ToggleStudent selects or deselects a student. Selecting starts a subject-area fetch.
func (c *Controller) ToggleStudent(s model.Student) error {
	return c.Dispatch(ToggleStudent{Student: s})
}

// RetryStudent re-fetches a selected student's subject areas.
func (c *Controller) RetryStudent(studentID int64) error {
	return c.Dispatch(RetryStudent{StudentID: studentID})
}

// ToggleSubjectArea selects or deselects a subject area.
func (c *Controller) ToggleSubjectArea(studentID, areaID int64) error {
	return c.Dispatch(ToggleSubjectArea{StudentID: studentID, AreaID: areaID})
}

// ToggleObjective selects or deselects an objective.
func (c *Controller) ToggleObjective(studentID, objectiveID int64) error {
	return c.Dispatch(ToggleObjective{StudentID: studentID, ObjectiveID: objectiveID})
}

// ToggleGoal selects or deselects every objective under a goal.
func (c *Controller) ToggleGoal(studentID int64, goalKey string) error {
	return c.Dispatch(ToggleGoal{StudentID: studentID, GoalKey: goalKey})
}

// SetAnswer records a binary answer.
func (c *Controller) SetAnswer(studentID, objectiveID int64, a progress.Answer) error {
	return c.Dispatch(SetAnswer{StudentID: studentID, ObjectiveID: objectiveID, Answer: a})
}

// EnterTrials edits and commits both trial fields, as a form would on blur.
func (c *Controller) EnterTrials(studentID, objectiveID int64, completed, total string) error {
	for _, ev := range []Event{
		EditTrial{StudentID: studentID, ObjectiveID: objectiveID, Field: progress.FieldCompleted, Text: completed},
		CommitTrial{StudentID: studentID, ObjectiveID: objectiveID, Field: progress.FieldCompleted},
		EditTrial{StudentID: studentID, ObjectiveID: objectiveID, Field: progress.FieldTotal, Text: total},
		CommitTrial{StudentID: studentID, ObjectiveID: objectiveID, Field: progress.FieldTotal},
	} {
		if err := c.Dispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

// SetMemo sets a draft's memo.
func (c *Controller) SetMemo(studentID, objectiveID int64, memo string) error {
	return c.Dispatch(SetMemo{StudentID: studentID, ObjectiveID: objectiveID, Memo: memo})
}

// Next advances one step.
func (c *Controller) Next() error { return c.Dispatch(Next{}) }

// Back goes back one step.
func (c *Controller) Back() error { return c.Dispatch(Back{}) }

// Reset discards all state. Fetches still in flight are dropped when they land.
func (c *Controller) Reset() {
	_ = c.Dispatch(Reset{})
}

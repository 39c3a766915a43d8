package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
	"github.com/pavelanni/caseload/internal/transcript"
	"github.com/pavelanni/caseload/internal/wizard"
)

var fixedNow = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   [][]model.SessionLogEntry
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeSubmitter) LogSessions(ctx context.Context, entries []model.SessionLogEntry) error {
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, entries)
	return f.err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// rosterFetcher serves fixed subject areas per student.
type rosterFetcher map[int64][]model.SubjectArea

func (r rosterFetcher) SubjectAreas(_ context.Context, studentID int64) ([]model.SubjectArea, error) {
	return r[studentID], nil
}

var bobby = model.Student{ID: 7, Name: "Bobby"}

func bobbyAreas() rosterFetcher {
	return rosterFetcher{7: {{
		ID: 70, Name: "Reading",
		Goals: []model.Goal{{ID: 700, Title: "Fluency", Objectives: []model.Objective{
			{ID: 7000, Description: "Reads aloud", Type: model.MeasurementBinary},
			{ID: 7001, Description: "Decodes words", Type: model.MeasurementTrial},
		}}},
	}}}
}

func wizardAtProgress(t *testing.T, f wizard.Fetcher, objectives ...int64) *wizard.Controller {
	t.Helper()
	w := wizard.NewController(context.Background(), f)
	require.NoError(t, w.ToggleStudent(bobby))
	w.Wait()
	require.NoError(t, w.ToggleSubjectArea(7, 70))
	require.NoError(t, w.Next())
	for _, id := range objectives {
		require.NoError(t, w.ToggleObjective(7, id))
	}
	require.NoError(t, w.Next())
	return w
}

func TestSubmitManualScenarioA(t *testing.T) {
	w := wizardAtProgress(t, bobbyAreas(), 7000)
	require.NoError(t, w.SetAnswer(7, 7000, progress.AnswerNo))

	sub := &fakeSubmitter{}
	var done []Result
	c := New(sub, WithClock(clock), OnComplete(func(r Result) { done = append(done, r) }))

	res, err := c.SubmitManual(context.Background(), w)
	require.NoError(t, err)

	want := []model.SessionLogEntry{{
		StudentID:         7,
		ObjectiveID:       7000,
		Timestamp:         fixedNow,
		ObjectiveProgress: model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1},
	}}
	assert.Equal(t, want, res.Entries)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, want, sub.calls[0])
	require.Len(t, done, 1)
	assert.Equal(t, PathManual, done[0].Path)

	s := w.State()
	assert.Empty(t, s.Students(), "success resets the wizard")
	assert.Equal(t, wizard.StepStudents, s.Step())
	assert.Equal(t, 0, s.DraftCount())
}

func TestSubmitManualIncompleteBlocks(t *testing.T) {
	w := wizardAtProgress(t, bobbyAreas(), 7000, 7001)
	require.NoError(t, w.SetAnswer(7, 7000, progress.AnswerYes))

	sub := &fakeSubmitter{}
	c := New(sub, WithClock(clock))
	_, err := c.SubmitManual(context.Background(), w)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, progress.ErrIncomplete)
	assert.Equal(t, wizard.StepProgress, verr.Step)
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, int64(7001), verr.ObjectiveID)
	assert.Zero(t, sub.callCount(), "no network call on validation failure")
	assert.Equal(t, 2, w.State().DraftCount(), "state kept")
}

func TestSubmitManualFlagsStudentWithoutSubjectAreas(t *testing.T) {
	f := bobbyAreas()
	carla := model.Student{ID: 8, Name: "Carla"}
	w := wizard.NewController(context.Background(), f)
	require.NoError(t, w.ToggleStudent(bobby))
	require.NoError(t, w.ToggleStudent(carla))
	w.Wait()
	require.NoError(t, w.ToggleSubjectArea(7, 70))
	require.NoError(t, w.Next(), "students without areas pass the students step")
	require.NoError(t, w.ToggleObjective(7, 7000))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetAnswer(7, 7000, progress.AnswerYes))

	sub := &fakeSubmitter{}
	_, err := New(sub).SubmitManual(context.Background(), w)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrNoSubjectAreas)
	assert.Equal(t, wizard.StepStudents, verr.Step)
	assert.Equal(t, int64(8), verr.StudentID)
	assert.Equal(t, 1, verr.Index)
	assert.Zero(t, sub.callCount())
}

func TestSubmitManualRejectsForeignObjective(t *testing.T) {
	tests := []struct {
		name      string
		areaOwner int64
		objOwner  int64
	}{
		{"area and objective of another student", 8, 8},
		{"objective of another student", 0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rosterFetcher{7: {{
				ID: 70, StudentID: tt.areaOwner, Name: "Reading",
				Goals: []model.Goal{{ID: 800, Title: "Fluency", Objectives: []model.Objective{
					{ID: 8000, StudentID: tt.objOwner, Description: "Reads aloud", Type: model.MeasurementBinary},
				}}},
			}}}
			w := wizardAtProgress(t, f, 8000)
			require.NoError(t, w.SetAnswer(7, 8000, progress.AnswerYes))

			sub := &fakeSubmitter{}
			_, err := New(sub).SubmitManual(context.Background(), w)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.ErrorIs(t, err, ErrMismatch)
			assert.Equal(t, wizard.StepObjectives, verr.Step)
			assert.Equal(t, 0, verr.Index)
			assert.Equal(t, int64(7), verr.StudentID)
			assert.Equal(t, int64(8000), verr.ObjectiveID)
			assert.Zero(t, sub.callCount())
		})
	}
}

func TestSubmitManualExplicitTimestamp(t *testing.T) {
	w := wizardAtProgress(t, bobbyAreas(), 7001)
	require.NoError(t, w.EnterTrials(7, 7001, "3", "4"))
	at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, w.Dispatch(wizard.SetTimestamp{At: at}))

	res, err := New(&fakeSubmitter{}, WithClock(clock)).SubmitManual(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, at, res.Entries[0].Timestamp)
	assert.Equal(t, model.ObjectiveProgress{TrialsCompleted: 3, TrialsTotal: 4}, res.Entries[0].ObjectiveProgress)
}

func TestSubmitManualFailureKeepsState(t *testing.T) {
	w := wizardAtProgress(t, bobbyAreas(), 7000)
	require.NoError(t, w.SetAnswer(7, 7000, progress.AnswerYes))

	boom := errors.New("502 bad gateway")
	sub := &fakeSubmitter{err: boom}
	completed := false
	c := New(sub, OnComplete(func(Result) { completed = true }))

	_, err := c.SubmitManual(context.Background(), w)
	var serr *SubmissionError
	require.True(t, errors.As(err, &serr))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, serr.Entries)
	assert.False(t, completed)

	s := w.State()
	assert.Equal(t, wizard.StepProgress, s.Step())
	d, ok := s.Draft(7, 7000)
	require.True(t, ok)
	assert.Equal(t, progress.AnswerYes, d.Answer)

	// Retry succeeds without re-entering data.
	sub.err = nil
	_, err = c.SubmitManual(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestSubmitInFlightGuard(t *testing.T) {
	w := wizardAtProgress(t, bobbyAreas(), 7000)
	require.NoError(t, w.SetAnswer(7, 7000, progress.AnswerYes))

	sub := &fakeSubmitter{release: make(chan struct{}), entered: make(chan struct{})}
	c := New(sub)

	errc := make(chan error, 1)
	go func() {
		_, err := c.SubmitManual(context.Background(), w)
		errc <- err
	}()
	<-sub.entered
	assert.True(t, c.Pending())

	_, err := c.SubmitManual(context.Background(), w)
	assert.ErrorIs(t, err, ErrInFlight)
	_, err = c.SubmitTranscript(context.Background(), transcript.New(nil))
	assert.ErrorIs(t, err, ErrInFlight)

	close(sub.release)
	require.NoError(t, <-errc)
	assert.False(t, c.Pending())
	assert.Equal(t, 1, sub.callCount())
}

func candidate(studentID int64, objs ...model.Objective) model.MatchCandidate {
	m := model.MatchCandidate{Student: model.Student{ID: studentID}}
	for _, o := range objs {
		o.StudentID = studentID
		m.Objectives = append(m.Objectives, model.CandidateObjective{Objective: o})
	}
	return m
}

func twoSessions() []model.ParsedSession {
	return []model.ParsedSession{
		{
			ID:       "a",
			Memo:     "counted to twenty",
			Progress: &model.ObjectiveProgress{TrialsCompleted: 4, TrialsTotal: 5},
			Matches:  []model.MatchCandidate{candidate(1, model.Objective{ID: 10, Type: model.MeasurementTrial})},
		},
		{
			ID:       "b",
			Progress: &model.ObjectiveProgress{TrialsCompleted: 1, TrialsTotal: 1},
			Matches: []model.MatchCandidate{candidate(2,
				model.Objective{ID: 20, Type: model.MeasurementBinary},
				model.Objective{ID: 21, Type: model.MeasurementBinary},
			)},
		},
	}
}

func TestSubmitTranscript(t *testing.T) {
	r := transcript.New(twoSessions())
	require.NoError(t, r.UpdateDraft("b", func(d *progress.Draft) { d.SetAnswer(progress.AnswerYes) }))

	sub := &fakeSubmitter{}
	res, err := New(sub, WithClock(clock)).SubmitTranscript(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, []model.SessionLogEntry{
		{StudentID: 1, ObjectiveID: 10, Memo: "counted to twenty", Timestamp: fixedNow,
			ObjectiveProgress: model.ObjectiveProgress{TrialsCompleted: 4, TrialsTotal: 5}},
		{StudentID: 2, ObjectiveID: 20, Timestamp: fixedNow,
			ObjectiveProgress: model.ObjectiveProgress{TrialsCompleted: 1, TrialsTotal: 1}},
	}, res.Entries)
	assert.Equal(t, 0, r.Len(), "success resets the resolver")
}

func TestSubmitTranscriptScenarioD(t *testing.T) {
	sessions := twoSessions()
	r := transcript.New(sessions)
	require.NoError(t, r.SelectObjective("b", 21))

	// Re-analysis drops the chosen objective from the second session.
	updated := sessions[1]
	updated.Matches = []model.MatchCandidate{candidate(2, model.Objective{ID: 20, Type: model.MeasurementBinary})}
	require.NoError(t, r.UpdateSession(updated))

	sub := &fakeSubmitter{}
	_, err := New(sub).SubmitTranscript(context.Background(), r)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, "b", verr.SessionID)
	assert.ErrorIs(t, err, transcript.ErrUnknownObjective)
	assert.Zero(t, sub.callCount())
	assert.Equal(t, 2, r.Len(), "state kept")
}

func TestSubmitTranscriptHaltsAtFirstInvalid(t *testing.T) {
	sessions := twoSessions()
	sessions[0].Matches = []model.MatchCandidate{candidate(1)}
	sessions[1].Matches = nil
	r := transcript.New(sessions)

	_, err := New(&fakeSubmitter{}).SubmitTranscript(context.Background(), r)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, verr.Index)
	assert.ErrorIs(t, err, transcript.ErrNoObjectives)
	assert.Contains(t, err.Error(), "no objectives available for selected student")
}

func TestSubmitTranscriptRejectsForeignObjective(t *testing.T) {
	sessions := twoSessions()
	sessions[1].Matches = []model.MatchCandidate{{
		Student: model.Student{ID: 2},
		Objectives: []model.CandidateObjective{{
			Objective: model.Objective{ID: 99, StudentID: 1, Type: model.MeasurementBinary},
		}},
	}}
	r := transcript.New(sessions)
	require.NoError(t, r.UpdateDraft("b", func(d *progress.Draft) { d.SetAnswer(progress.AnswerYes) }))
	assert.False(t, r.Validate("b"))

	sub := &fakeSubmitter{}
	_, err := New(sub).SubmitTranscript(context.Background(), r)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, int64(2), verr.StudentID)
	assert.Equal(t, int64(99), verr.ObjectiveID)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.ErrorIs(t, err, transcript.ErrForeignObjective)
	assert.Zero(t, sub.callCount())
}

func TestSubmitTranscriptIncompleteDraft(t *testing.T) {
	sessions := twoSessions()
	sessions[1].Progress = nil
	r := transcript.New(sessions)

	_, err := New(&fakeSubmitter{}).SubmitTranscript(context.Background(), r)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)
	assert.ErrorIs(t, err, progress.ErrIncomplete)
}

func TestSubmitTranscriptExplicitTimestamp(t *testing.T) {
	r := transcript.New(twoSessions()[:1])
	at := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	r.SetTimestamp(at)

	res, err := New(&fakeSubmitter{}, WithClock(clock)).SubmitTranscript(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, at, res.Entries[0].Timestamp)
}

func TestSubmitEmpty(t *testing.T) {
	_, err := New(&fakeSubmitter{}).SubmitTranscript(context.Background(), transcript.New(nil))
	assert.ErrorIs(t, err, ErrEmpty)
}

package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
)

func candidate(studentID int64, objs ...model.Objective) model.MatchCandidate {
	m := model.MatchCandidate{Student: model.Student{ID: studentID, Name: "student"}}
	for _, o := range objs {
		o.StudentID = studentID
		m.Objectives = append(m.Objectives, model.CandidateObjective{Objective: o})
	}
	return m
}

func trialObj(id int64) model.Objective {
	return model.Objective{ID: id, Type: model.MeasurementTrial}
}

func binaryObj(id int64) model.Objective {
	return model.Objective{ID: id, Type: model.MeasurementBinary}
}

// scenarioC: student A offers [X, Y], student B offers [Z].
func scenarioC() model.ParsedSession {
	return model.ParsedSession{
		ID:         "s1",
		Transcript: "Ana added numbers, Ben read aloud",
		Matches: []model.MatchCandidate{
			candidate(1, trialObj(10), trialObj(11)),
			candidate(2, binaryObj(20)),
		},
	}
}

func TestDefaultSelection(t *testing.T) {
	r := New([]model.ParsedSession{scenarioC()})

	c, ok := r.Choice("s1")
	require.True(t, ok)
	assert.Equal(t, Choice{StudentID: 1, ObjectiveID: 10}, c)
	assert.True(t, r.Validate("s1"))

	res, err := r.Resolve("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Student.ID)
	assert.Equal(t, int64(10), res.Objective.ID)
}

func TestSelectStudent_ReDefaultsObjective(t *testing.T) {
	r := New([]model.ParsedSession{scenarioC()})

	require.NoError(t, r.SelectStudent("s1", 2))
	c, _ := r.Choice("s1")
	assert.Equal(t, Choice{StudentID: 2, ObjectiveID: 20}, c)

	d, ok := r.Draft("s1")
	require.True(t, ok)
	assert.Equal(t, model.MeasurementBinary, d.Type, "draft follows the new objective's type")
}

func TestSelectStudent_IgnoresCollidingObjectiveID(t *testing.T) {
	ps := model.ParsedSession{
		ID: "s1",
		Matches: []model.MatchCandidate{
			candidate(1, trialObj(10), trialObj(11)),
			candidate(2, trialObj(12), trialObj(11)),
		},
	}
	r := New([]model.ParsedSession{ps})
	require.NoError(t, r.SelectObjective("s1", 11))

	require.NoError(t, r.SelectStudent("s1", 2))
	c, _ := r.Choice("s1")
	assert.Equal(t, int64(12), c.ObjectiveID)
}

func TestSelectStudent_Errors(t *testing.T) {
	r := New([]model.ParsedSession{scenarioC()})
	assert.ErrorIs(t, r.SelectStudent("missing", 1), ErrUnknownSession)
	assert.ErrorIs(t, r.SelectStudent("s1", 99), ErrUnknownStudent)
	assert.ErrorIs(t, r.SelectObjective("s1", 20), ErrUnknownObjective)

	c, _ := r.Choice("s1")
	assert.Equal(t, Choice{StudentID: 1, ObjectiveID: 10}, c, "failed selections leave the choice alone")
}

func TestUnresolvable(t *testing.T) {
	tests := []struct {
		name string
		ps   model.ParsedSession
		want error
	}{
		{"no matches", model.ParsedSession{ID: "s1"}, ErrNoMatches},
		{"no objectives", model.ParsedSession{ID: "s1", Matches: []model.MatchCandidate{candidate(1)}}, ErrNoObjectives},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New([]model.ParsedSession{tt.ps})
			assert.False(t, r.Validate("s1"))
			assert.ErrorIs(t, r.Check("s1"), tt.want)
			assert.False(t, r.Repair("s1"))
			_, err := r.Resolve("s1")
			assert.ErrorIs(t, err, tt.want)
			c, _ := r.Choice("s1")
			assert.Zero(t, c.ObjectiveID)
		})
	}
}

func TestObjectiveOwnedByAnotherStudent(t *testing.T) {
	foreign := model.Objective{ID: 99, StudentID: 2, Type: model.MeasurementBinary}
	ps := model.ParsedSession{ID: "s1", Matches: []model.MatchCandidate{{
		Student:    model.Student{ID: 1},
		Objectives: []model.CandidateObjective{{Objective: foreign}},
	}}}
	r := New([]model.ParsedSession{ps})

	assert.ErrorIs(t, r.Check("s1"), ErrForeignObjective)
	assert.False(t, r.Validate("s1"))
	assert.False(t, r.Repair("s1"))
	_, err := r.Resolve("s1")
	assert.ErrorIs(t, err, ErrForeignObjective)
	assert.Zero(t, r.Resolved())

	// An objective without an owner is taken as the candidate's own.
	ps.Matches[0].Objectives[0].Objective.StudentID = 0
	require.NoError(t, r.UpdateSession(ps))
	res, err := r.Resolve("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Objective.StudentID)
}

func TestSwitchToStudentWithoutObjectives(t *testing.T) {
	ps := model.ParsedSession{ID: "s1", Matches: []model.MatchCandidate{candidate(1, trialObj(10)), candidate(2)}}
	r := New([]model.ParsedSession{ps})

	err := r.SelectStudent("s1", 2)
	assert.ErrorIs(t, err, ErrNoObjectives)
	assert.ErrorIs(t, r.Check("s1"), ErrNoObjectives)
}

func TestActivateRepairsStaleObjective(t *testing.T) {
	r := New([]model.ParsedSession{scenarioC()})

	// Re-analysis drops objective 10 for student 1.
	updated := scenarioC()
	updated.Matches[0] = candidate(1, trialObj(11))
	require.NoError(t, r.UpdateSession(updated))

	assert.ErrorIs(t, r.Check("s1"), ErrUnknownObjective)
	require.NoError(t, r.Activate("s1"))
	assert.Equal(t, "s1", r.Active())

	c, _ := r.Choice("s1")
	assert.Equal(t, Choice{StudentID: 1, ObjectiveID: 11}, c)
}

func TestRepairFallsBackToFirstCandidate(t *testing.T) {
	r := New([]model.ParsedSession{scenarioC()})
	require.NoError(t, r.SelectStudent("s1", 2))

	updated := scenarioC()
	updated.Matches = updated.Matches[:1]
	require.NoError(t, r.UpdateSession(updated))

	assert.True(t, r.Repair("s1"))
	c, _ := r.Choice("s1")
	assert.Equal(t, Choice{StudentID: 1, ObjectiveID: 10}, c)
}

func TestDraftsSeededFromGuess(t *testing.T) {
	ps := scenarioC()
	ps.Progress = &model.ObjectiveProgress{TrialsCompleted: 4, TrialsTotal: 5}
	ps.Memo = "worked on sums"
	r := New([]model.ParsedSession{ps, {ID: "s2", Matches: []model.MatchCandidate{candidate(3, binaryObj(30))}}})

	assert.True(t, r.IsComplete("s1"))
	assert.False(t, r.IsComplete("s2"))
	assert.Equal(t, progress.Summary{Filled: 1, Total: 2}, r.Summary())

	require.NoError(t, r.UpdateDraft("s2", func(d *progress.Draft) { d.SetAnswer(progress.AnswerNo) }))
	assert.True(t, r.Summary().Done())

	d, _ := r.Draft("s1")
	assert.Equal(t, "worked on sums", d.Memo)
	assert.ErrorIs(t, r.UpdateDraft("nope", func(*progress.Draft) {}), ErrUnknownSession)
}

func TestReset(t *testing.T) {
	r := New([]model.ParsedSession{scenarioC()})
	require.NoError(t, r.Activate("s1"))
	r.SetTimestamp(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NotNil(t, r.Timestamp())
	r.Reset()
	assert.Nil(t, r.Timestamp())
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Active())
	_, ok := r.Choice("s1")
	assert.False(t, ok)
}

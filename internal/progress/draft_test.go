package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/caseload/internal/model"
)

func TestBinaryDraft(t *testing.T) {
	tests := []struct {
		name     string
		answer   Answer
		complete bool
		want     model.ObjectiveProgress
	}{
		{"yes", AnswerYes, true, model.ObjectiveProgress{TrialsCompleted: 1, TrialsTotal: 1}},
		{"no", AnswerNo, true, model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1}},
		{"unset", AnswerUnset, false, model.ObjectiveProgress{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(model.MeasurementBinary)
			d.SetAnswer(tt.answer)
			assert.Equal(t, tt.complete, d.Complete())

			p, err := d.Progress()
			if !tt.complete {
				require.ErrorIs(t, err, ErrIncomplete)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.NoError(t, model.Objective{Type: model.MeasurementBinary}.CheckProgress(p))
		})
	}
}

func TestTrialDraft_CommitOnBlur(t *testing.T) {
	d := NewDraft(model.MeasurementTrial)
	assert.False(t, d.Complete())

	d.Edit(FieldCompleted, "7")
	d.Edit(FieldTotal, "10")
	assert.Equal(t, "10", d.Text(FieldTotal))
	d.CommitAll()

	p, err := d.Progress()
	require.NoError(t, err)
	assert.Equal(t, model.ObjectiveProgress{TrialsCompleted: 7, TrialsTotal: 10}, p)

	// Clearing the total and blurring clamps to 1, not 0.
	d.Edit(FieldTotal, "")
	assert.Equal(t, "", d.Text(FieldTotal), "edit must not coerce before commit")
	d.Commit(FieldTotal)
	assert.Equal(t, "1", d.Text(FieldTotal))
	p, err = d.Progress()
	require.NoError(t, err)
	assert.Equal(t, 1, p.TrialsTotal)
}

func TestTrialDraft_Coercion(t *testing.T) {
	tests := []struct {
		name      string
		completed string
		total     string
		want      model.ObjectiveProgress
	}{
		{"empty completed", "", "5", model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 5}},
		{"zero total", "0", "0", model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1}},
		{"garbage", "abc", "x", model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1}},
		{"negative", "-3", "-4", model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1}},
		{"trailing text", "4 trials", " 9 ", model.ObjectiveProgress{TrialsCompleted: 4, TrialsTotal: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(model.MeasurementTrial)
			d.Edit(FieldCompleted, tt.completed)
			d.Edit(FieldTotal, tt.total)
			d.CommitAll()
			p, err := d.Progress()
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.GreaterOrEqual(t, p.TrialsTotal, 1)
		})
	}
}

func TestTrialDraft_OneFieldTouchedIsComplete(t *testing.T) {
	d := NewDraft(model.MeasurementTrial)
	d.Edit(FieldCompleted, "0")
	assert.True(t, d.Complete())

	// Uncommitted edits are still honored when finalizing.
	p, err := d.Progress()
	require.NoError(t, err)
	assert.Equal(t, model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1}, p)
}

func TestSeed(t *testing.T) {
	guess := &model.ObjectiveProgress{TrialsCompleted: 3, TrialsTotal: 4}

	trial := Seed(model.MeasurementTrial, guess, "from transcript")
	p, err := trial.Progress()
	require.NoError(t, err)
	assert.Equal(t, *guess, p)
	assert.Equal(t, "from transcript", trial.Memo)

	binary := Seed(model.MeasurementBinary, guess, "")
	assert.Equal(t, AnswerYes, binary.Answer)

	empty := Seed(model.MeasurementTrial, nil, "")
	assert.False(t, empty.Complete())
}

func TestParseAnswer(t *testing.T) {
	assert.Equal(t, AnswerYes, ParseAnswer(" Yes "))
	assert.Equal(t, AnswerNo, ParseAnswer("no"))
	assert.Equal(t, AnswerUnset, ParseAnswer(""))
	assert.Equal(t, AnswerUnset, ParseAnswer("maybe"))
}

func TestUnknownTypeNeverCompletes(t *testing.T) {
	d := NewDraft("scale")
	assert.False(t, d.Complete())
	_, err := d.Progress()
	assert.ErrorIs(t, err, ErrUnknownType)
}

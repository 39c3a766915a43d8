package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/caseload/internal/model"
)

func obj(id, goalID int64, title string) model.Objective {
	return model.Objective{ID: id, GoalID: goalID, GoalTitle: title, Type: model.MeasurementBinary}
}

func TestGroupByGoal_FirstSeenOrder(t *testing.T) {
	objs := []model.Objective{
		obj(1, 20, "Writing"),
		obj(2, 10, "Reading"),
		obj(3, 0, ""),
		obj(4, 20, "Writing"),
	}

	g := GroupByGoal(objs)
	assert.Equal(t, []string{"20", "10", UnknownGoalKey}, g.Keys())

	writing, ok := g.Get("20")
	require.True(t, ok)
	assert.Equal(t, "Writing", writing.Goal.Title)
	require.Len(t, writing.Objectives, 2)
	assert.Equal(t, int64(1), writing.Objectives[0].ID)
	assert.Equal(t, int64(4), writing.Objectives[1].ID)

	unknown, ok := g.Get(UnknownGoalKey)
	require.True(t, ok)
	assert.Len(t, unknown.Objectives, 1)
}

func TestGroupByGoal_Empty(t *testing.T) {
	g := GroupByGoal(nil)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Groups())
	_, ok := g.Get(UnknownGoalKey)
	assert.False(t, ok)
}

func TestCountSelected(t *testing.T) {
	g := GroupByGoal([]model.Objective{obj(1, 10, "A"), obj(2, 10, "A"), obj(3, 11, "B")})

	tests := []struct {
		name string
		key  string
		sel  IDSet
		want Count
		tri  TriState
	}{
		{"none", "10", IDSet{}, Count{0, 2}, None},
		{"partial", "10", IDSet{1: {}}, Count{1, 2}, Partial},
		{"all", "10", IDSet{1: {}, 2: {}}, Count{2, 2}, All},
		{"other goal ignored", "11", IDSet{1: {}, 2: {}}, Count{0, 1}, None},
		{"missing goal", "99", IDSet{1: {}}, Count{0, 0}, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.CountSelected(tt.key, tt.sel)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.tri, got.State())
		})
	}
}

func TestFromMatch(t *testing.T) {
	m := model.MatchCandidate{
		Student: model.Student{ID: 5, Name: "Ana"},
		Objectives: []model.CandidateObjective{
			{Objective: obj(1, 10, "Math"), QueriedDescription: "mentioned addition"},
			{Objective: obj(2, 0, "")},
		},
	}
	v := FromMatch(m)
	assert.Equal(t, []string{"10", UnknownGoalKey}, v.Goals.Keys())
	assert.Equal(t, "mentioned addition", v.Reasons[1])
	grp, _ := v.Goals.Get("10")
	assert.Equal(t, int64(5), grp.Objectives[0].StudentID)
}

func TestFromStudent(t *testing.T) {
	s := model.Student{ID: 5, Name: "Ana", SubjectAreas: []model.SubjectArea{{
		ID: 3, Name: "Math",
		Goals: []model.Goal{
			{ID: 10, Title: "Addition", Objectives: []model.Objective{{ID: 1}, {ID: 2}}},
			{ID: 11, Title: "Counting", Objectives: []model.Objective{{ID: 3, StudentID: 6}}},
		},
	}}}

	v := FromStudent(s)
	require.Len(t, v.Areas, 1)
	a := v.Areas[0]
	assert.Equal(t, int64(5), a.Area.StudentID)
	assert.Equal(t, []string{"10", "11"}, a.Goals.Keys())

	key, ok := a.Goals.GoalOf(3)
	require.True(t, ok)
	assert.Equal(t, "11", key)
	grp, _ := a.Goals.Get(key)
	assert.Equal(t, int64(6), grp.Objectives[0].StudentID, "owner kept")

	_, ok = a.Goals.GoalOf(99)
	assert.False(t, ok)
}

func TestFromParsedSession(t *testing.T) {
	ps := model.ParsedSession{Matches: []model.MatchCandidate{
		{Student: model.Student{ID: 1, Name: "Ana"}, Objectives: []model.CandidateObjective{{Objective: obj(1, 10, "Math")}}},
		{Student: model.Student{ID: 2, Name: "Ben"}},
	}}
	views := FromParsedSession(ps)
	require.Len(t, views, 2)
	assert.Equal(t, "Ana", views[0].Student.Name)
	assert.Equal(t, 1, views[0].Goals.Len())
	assert.Equal(t, 0, views[1].Goals.Len())
}

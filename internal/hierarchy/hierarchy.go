// Package hierarchy groups objectives under goals under subject areas under students
// so that manual selection and transcript match review render the same structure.
package hierarchy

import (
	"strconv"

	"github.com/pavelanni/caseload/internal/model"
)

// UnknownGoalKey is the bucket for objectives that are not attached to a goal.
const UnknownGoalKey = "unknown"

// GoalKey returns the grouping key for a goal id.
func GoalKey(goalID int64) string {
	if goalID == 0 {
		return UnknownGoalKey
	}
	return strconv.FormatInt(goalID, 10)
}

// GoalGroup is one goal and the objectives filed under it.
type GoalGroup struct {
	Key        string
	Goal       model.Goal
	Objectives []model.Objective
}

// Grouped is an insertion-ordered map from goal key to GoalGroup.
type Grouped struct {
	order  []string
	groups map[string]*GoalGroup
}

// GroupByGoal groups objectives by goal, keeping first-seen order of goals and objectives.
func GroupByGoal(objectives []model.Objective) Grouped {
	g := Grouped{groups: make(map[string]*GoalGroup)}
	for _, o := range objectives {
		key := GoalKey(o.GoalID)
		grp, ok := g.groups[key]
		if !ok {
			grp = &GoalGroup{Key: key}
			if key == UnknownGoalKey {
				grp.Goal = model.Goal{Title: "Unknown goal"}
			} else {
				grp.Goal = model.Goal{ID: o.GoalID, SubjectAreaID: o.SubjectAreaID, Title: o.GoalTitle}
			}
			g.groups[key] = grp
			g.order = append(g.order, key)
		}
		grp.Objectives = append(grp.Objectives, o)
	}
	return g
}

// Keys returns goal keys in first-seen order.
func (g Grouped) Keys() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of goal groups.
func (g Grouped) Len() int { return len(g.order) }

// Get returns the group for key.
func (g Grouped) Get(key string) (GoalGroup, bool) {
	grp, ok := g.groups[key]
	if !ok {
		return GoalGroup{}, false
	}
	return *grp, true
}

// Groups returns all groups in first-seen order.
func (g Grouped) Groups() []GoalGroup {
	out := make([]GoalGroup, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.groups[k])
	}
	return out
}

// GoalOf returns the goal key of the objective with the given id.
func (g Grouped) GoalOf(objectiveID int64) (string, bool) {
	for _, k := range g.order {
		for _, o := range g.groups[k].Objectives {
			if o.ID == objectiveID {
				return k, true
			}
		}
	}
	return "", false
}

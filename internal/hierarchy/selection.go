package hierarchy

// TriState is the derived selection state of a goal.
type TriState int

const (
	None TriState = iota
	Partial
	All
)

func (s TriState) String() string {
	switch s {
	case Partial:
		return "partial"
	case All:
		return "all"
	default:
		return "none"
	}
}

// Selection answers whether an objective is currently selected.
type Selection interface {
	Has(objectiveID int64) bool
}

// IDSet is a set of objective ids.
type IDSet map[int64]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Count is the number of selected objectives out of the total under a goal.
type Count struct {
	Selected int
	Total    int
}

// State derives the goal's tri-state. A goal with no objectives is always None.
func (c Count) State() TriState {
	switch {
	case c.Total == 0 || c.Selected == 0:
		return None
	case c.Selected >= c.Total:
		return All
	default:
		return Partial
	}
}

// CountSelected counts how many of the goal's objectives are in sel.
// An unknown goal key counts as an empty goal.
func (g Grouped) CountSelected(goalKey string, sel Selection) Count {
	grp, ok := g.groups[goalKey]
	if !ok {
		return Count{}
	}
	c := Count{Total: len(grp.Objectives)}
	for _, o := range grp.Objectives {
		if sel != nil && sel.Has(o.ID) {
			c.Selected++
		}
	}
	return c
}

package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/caseload/internal/model"
)

// ExportHistory builds the progress history of every student, objectives in roster
// order and sessions oldest first.
func (s *Store) ExportHistory() (model.HistoryExport, error) {
	out := model.HistoryExport{GeneratedAt: time.Now().UTC(), Students: []model.StudentHistory{}}

	students, err := s.ListStudents()
	if err != nil {
		return out, fmt.Errorf("list students: %w", err)
	}
	for _, st := range students {
		objs, err := s.ListStudentObjectives(st.ID)
		if err != nil {
			return out, fmt.Errorf("list objectives for student %d: %w", st.ID, err)
		}
		sessions, err := s.ListStudentSessions(st.ID)
		if err != nil {
			return out, fmt.Errorf("list sessions for student %d: %w", st.ID, err)
		}
		byObjective := make(map[int64][]model.LoggedSession)
		for i := len(sessions) - 1; i >= 0; i-- {
			ls := sessions[i]
			byObjective[ls.ObjectiveID] = append(byObjective[ls.ObjectiveID], ls)
		}

		sh := model.StudentHistory{StudentID: st.ID, Name: st.Name, Category: st.Category}
		for _, o := range objs {
			oh := model.ObjectiveHistory{
				ObjectiveID: o.ID,
				Description: o.Description,
				Type:        o.Type,
				Sessions:    []model.ExportedEntry{},
			}
			for _, ls := range byObjective[o.ID] {
				oh.Sessions = append(oh.Sessions, model.ExportedEntry{
					At:              ls.Timestamp,
					TrialsCompleted: ls.ObjectiveProgress.TrialsCompleted,
					TrialsTotal:     ls.ObjectiveProgress.TrialsTotal,
					Memo:            ls.Memo,
				})
				if o.MeetsTarget(ls.ObjectiveProgress) {
					oh.MetTarget++
				}
			}
			sh.Objectives = append(sh.Objectives, oh)
		}
		out.Students = append(out.Students, sh)
	}
	return out, nil
}

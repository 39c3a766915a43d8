package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pavelanni/caseload/internal/model"
)

const objectiveColumns = `o.id, o.student_id, o.subject_area_id, COALESCE(o.goal_id, 0), COALESCE(g.title, ''),
	o.description, o.objective_type, o.target_accuracy, o.target_consistency_successes, o.target_consistency_trials`

const objectiveFrom = `FROM objectives o LEFT JOIN goals g ON g.id = o.goal_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanObjective(sc scanner) (model.Objective, error) {
	var o model.Objective
	err := sc.Scan(&o.ID, &o.StudentID, &o.SubjectAreaID, &o.GoalID, &o.GoalTitle,
		&o.Description, &o.Type, &o.TargetAccuracy, &o.TargetConsistencySuccesses, &o.TargetConsistencyTrials)
	return o, err
}

// ImportRoster stores students with their nested subject areas, goals and objectives in
// one transaction. Students whose name already exists are skipped. It returns the number
// of students added.
func (s *Store) ImportRoster(students []model.Student) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, st := range students {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM students WHERE name = ?`, st.Name).Scan(&exists); err != nil {
			return 0, err
		}
		if exists > 0 {
			slog.Info("skipping existing student", "name", st.Name)
			continue
		}
		if err := insertStudent(tx, st); err != nil {
			return 0, fmt.Errorf("student %q: %w", st.Name, err)
		}
		added++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func insertStudent(tx *sql.Tx, st model.Student) error {
	res, err := tx.Exec(
		`INSERT INTO students (name, grade_level, disability_category) VALUES (?, ?, ?)`,
		st.Name, st.GradeLevel, st.Category,
	)
	if err != nil {
		return err
	}
	studentID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, a := range st.SubjectAreas {
		res, err := tx.Exec(`INSERT INTO subject_areas (student_id, name) VALUES (?, ?)`, studentID, a.Name)
		if err != nil {
			return err
		}
		areaID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, g := range a.Goals {
			// A goal without a title holds objectives that are not attached to any goal.
			var goalID any
			if g.Title != "" {
				res, err := tx.Exec(`INSERT INTO goals (subject_area_id, title) VALUES (?, ?)`, areaID, g.Title)
				if err != nil {
					return err
				}
				id, err := res.LastInsertId()
				if err != nil {
					return err
				}
				goalID = id
			}
			for _, o := range g.Objectives {
				if !o.Type.Valid() {
					return fmt.Errorf("objective %q: unknown type %q", o.Description, o.Type)
				}
				_, err := tx.Exec(
					`INSERT INTO objectives (student_id, subject_area_id, goal_id, description, objective_type,
					 target_accuracy, target_consistency_successes, target_consistency_trials)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					studentID, areaID, goalID, o.Description, o.Type,
					o.TargetAccuracy, o.TargetConsistencySuccesses, o.TargetConsistencyTrials,
				)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ListStudents returns every student without nested data, ordered by name.
func (s *Store) ListStudents() ([]model.Student, error) {
	rows, err := s.db.Query(`SELECT id, name, grade_level, disability_category FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []model.Student
	for rows.Next() {
		var st model.Student
		var grade sql.NullInt64
		if err := rows.Scan(&st.ID, &st.Name, &grade, &st.Category); err != nil {
			return nil, err
		}
		if grade.Valid {
			g := int(grade.Int64)
			st.GradeLevel = &g
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudent returns a student by ID.
func (s *Store) GetStudent(id int64) (model.Student, error) {
	var st model.Student
	var grade sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, name, grade_level, disability_category FROM students WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &grade, &st.Category)
	if err != nil {
		return st, notFound(err, "student", id)
	}
	if grade.Valid {
		g := int(grade.Int64)
		st.GradeLevel = &g
	}
	return st, nil
}

// ListSubjectAreas returns a student's subject areas without goals.
func (s *Store) ListSubjectAreas(studentID int64) ([]model.SubjectArea, error) {
	if _, err := s.GetStudent(studentID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, student_id, name FROM subject_areas WHERE student_id = ? ORDER BY id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	areas := []model.SubjectArea{}
	for rows.Next() {
		var a model.SubjectArea
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Name); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// ListGoals returns the goals of one of a student's subject areas with their objectives.
// Objectives without a goal are returned under a goal with ID 0 and no title, last.
func (s *Store) ListGoals(studentID, areaID int64) ([]model.Goal, error) {
	var owner int64
	err := s.db.QueryRow(`SELECT student_id FROM subject_areas WHERE id = ?`, areaID).Scan(&owner)
	if err != nil {
		return nil, notFound(err, "subject area", areaID)
	}
	if owner != studentID {
		return nil, fmt.Errorf("subject area %d of student %d: %w", areaID, studentID, ErrNotFound)
	}

	rows, err := s.db.Query(`SELECT id, subject_area_id, title FROM goals WHERE subject_area_id = ? ORDER BY id`, areaID)
	if err != nil {
		return nil, err
	}
	var goals []model.Goal
	index := make(map[int64]int)
	for rows.Next() {
		var g model.Goal
		if err := rows.Scan(&g.ID, &g.SubjectAreaID, &g.Title); err != nil {
			rows.Close()
			return nil, err
		}
		index[g.ID] = len(goals)
		goals = append(goals, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	objs, err := s.queryObjectives(`WHERE o.subject_area_id = ? ORDER BY o.id`, areaID)
	if err != nil {
		return nil, err
	}
	var loose []model.Objective
	for _, o := range objs {
		if i, ok := index[o.GoalID]; ok {
			goals[i].Objectives = append(goals[i].Objectives, o)
			continue
		}
		loose = append(loose, o)
	}
	if len(loose) > 0 {
		goals = append(goals, model.Goal{SubjectAreaID: areaID, Objectives: loose})
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	return goals, nil
}

// ListStudentObjectives returns every objective of a student.
func (s *Store) ListStudentObjectives(studentID int64) ([]model.Objective, error) {
	if _, err := s.GetStudent(studentID); err != nil {
		return nil, err
	}
	objs, err := s.queryObjectives(`WHERE o.student_id = ? ORDER BY o.subject_area_id, o.id`, studentID)
	if objs == nil && err == nil {
		objs = []model.Objective{}
	}
	return objs, err
}

// GetObjective returns an objective by ID.
func (s *Store) GetObjective(id int64) (model.Objective, error) {
	o, err := scanObjective(s.db.QueryRow(`SELECT `+objectiveColumns+` `+objectiveFrom+` WHERE o.id = ?`, id))
	if err != nil {
		return o, notFound(err, "objective", id)
	}
	return o, nil
}

func (s *Store) queryObjectives(where string, args ...any) ([]model.Objective, error) {
	rows, err := s.db.Query(`SELECT `+objectiveColumns+` `+objectiveFrom+` `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var objs []model.Objective
	for rows.Next() {
		o, err := scanObjective(rows)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, rows.Err()
}

// StudentCount returns the number of students.
func (s *Store) StudentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&count)
	return count, err
}

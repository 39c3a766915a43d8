package model

import "time"

// HistoryExport is the top-level JSON structure for progress history export.
type HistoryExport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Students    []StudentHistory `json:"students"`
}

// StudentHistory holds one student's logged sessions for export.
type StudentHistory struct {
	StudentID  int64              `json:"student_id"`
	Name       string             `json:"name"`
	Category   string             `json:"disability_category,omitempty"`
	Objectives []ObjectiveHistory `json:"objectives"`
}

// ObjectiveHistory holds per-objective sessions for export.
type ObjectiveHistory struct {
	ObjectiveID int64           `json:"objective_id"`
	Description string          `json:"description"`
	Type        MeasurementType `json:"objective_type"`
	Sessions    []ExportedEntry `json:"sessions"`
	MetTarget   int             `json:"met_target"`
}

// ExportedEntry is a single logged session in an export.
type ExportedEntry struct {
	At              time.Time `json:"at"`
	TrialsCompleted int       `json:"trials_completed"`
	TrialsTotal     int       `json:"trials_total"`
	Memo            string    `json:"memo,omitempty"`
}

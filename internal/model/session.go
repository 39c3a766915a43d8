package model

import "time"

// CandidateObjective is one objective the transcript analyzer proposed for a student.
type CandidateObjective struct {
	Objective          Objective `json:"objective"`
	QueriedDescription string    `json:"queried_description,omitempty"`
}

// MatchCandidate pairs one student with a ranked list of that student's objectives.
type MatchCandidate struct {
	Student    Student              `json:"student"`
	Objectives []CandidateObjective `json:"objectives"`
}

// ParsedSession is one unit of session information extracted from a raw transcript.
type ParsedSession struct {
	ID         string             `json:"id"`
	Transcript string             `json:"transcript"`
	Memo       string             `json:"memo,omitempty"`
	Progress   *ObjectiveProgress `json:"objective_progress,omitempty"`
	Timestamp  *time.Time         `json:"timestamp,omitempty"`
	Matches    []MatchCandidate   `json:"matches"`
}

// SessionLogEntry is the finalized record sent to the session logging endpoint.
type SessionLogEntry struct {
	StudentID         int64             `json:"student_id"`
	ObjectiveID       int64             `json:"objective_id"`
	Memo              string            `json:"memo"`
	Timestamp         time.Time         `json:"timestamp"`
	ObjectiveProgress ObjectiveProgress `json:"objective_progress"`
}

// LoggedSession is a stored SessionLogEntry as returned by the history endpoint.
type LoggedSession struct {
	ID int64 `json:"id"`
	SessionLogEntry
	CreatedAt time.Time `json:"created_at"`
}

package plan

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/progress"
	"github.com/pavelanni/caseload/internal/transcript"
)

// Overrides adjusts the resolver's default choices for an analyzed transcript.
type Overrides struct {
	Timestamp *time.Time        `yaml:"timestamp"`
	Sessions  []SessionOverride `yaml:"sessions"`
}

// SessionOverride targets a parsed session by its 1-based position in the analyzer
// output. Zero ids keep the current choice; a nil Memo keeps the analyzer memo.
type SessionOverride struct {
	Session     int     `yaml:"session"`
	StudentID   int64   `yaml:"student_id"`
	ObjectiveID int64   `yaml:"objective_id"`
	Answer      string  `yaml:"answer"`
	Completed   string  `yaml:"completed"`
	Total       string  `yaml:"total"`
	Memo        *string `yaml:"memo"`
}

// LoadOverrides reads a transcript overrides file.
func LoadOverrides(path string) (Overrides, error) {
	return load[Overrides](path, "overrides")
}

// Review activates every session in order, as a user paging through them would, and
// then applies the overrides. Sessions that stay invalid are left for submission to
// report.
func (o Overrides) Review(r *transcript.Resolver, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	sessions := r.Sessions()
	for _, ps := range sessions {
		if err := r.Activate(ps.ID); err != nil {
			log.Debug("session needs attention", "session_id", ps.ID, "error", err)
		}
	}
	for _, so := range o.Sessions {
		if so.Session < 1 || so.Session > len(sessions) {
			return fmt.Errorf("override session %d: out of range 1..%d", so.Session, len(sessions))
		}
		ps := sessions[so.Session-1]
		if err := applyOverride(r, ps, so); err != nil {
			return fmt.Errorf("session %d: %w", so.Session, err)
		}
	}
	if o.Timestamp != nil {
		r.SetTimestamp(*o.Timestamp)
	}
	return nil
}

func applyOverride(r *transcript.Resolver, ps model.ParsedSession, so SessionOverride) error {
	if so.StudentID != 0 {
		if err := r.SelectStudent(ps.ID, so.StudentID); err != nil {
			return err
		}
	}
	if so.ObjectiveID != 0 {
		if err := r.SelectObjective(ps.ID, so.ObjectiveID); err != nil {
			return err
		}
	}
	return r.UpdateDraft(ps.ID, func(d *progress.Draft) {
		switch d.Type {
		case model.MeasurementBinary:
			if so.Answer != "" {
				d.SetAnswer(progress.ParseAnswer(so.Answer))
			}
		case model.MeasurementTrial:
			if so.Completed != "" {
				d.Edit(progress.FieldCompleted, so.Completed)
			}
			if so.Total != "" {
				d.Edit(progress.FieldTotal, so.Total)
			}
			d.CommitAll()
		}
		if so.Memo != nil {
			d.Memo = *so.Memo
		}
	})
}

// Package progress turns raw per-objective input into validated session progress.
package progress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pavelanni/caseload/internal/model"
)

var (
	// ErrIncomplete is returned when a draft cannot be finalized yet.
	ErrIncomplete = errors.New("progress entry incomplete")
	// ErrUnknownType is returned for objectives with an unrecognized measurement type.
	ErrUnknownType = errors.New("unknown measurement type")
)

// Answer is the tri-valued input for binary objectives.
type Answer int

const (
	AnswerUnset Answer = iota
	AnswerYes
	AnswerNo
)

// ParseAnswer maps user text to an Answer. Unrecognized text is unset.
func ParseAnswer(s string) Answer {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "met":
		return AnswerYes
	case "no", "n", "false", "0", "not met":
		return AnswerNo
	default:
		return AnswerUnset
	}
}

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unset"
	}
}

// Field identifies one numeric input of a trial objective.
type Field int

const (
	FieldCompleted Field = iota
	FieldTotal
)

// Draft is the in-progress input for one objective. Trial fields are edited as text
// buffers and only coerced to numbers on Commit, so a half-typed value is never rewritten.
type Draft struct {
	Type   model.MeasurementType
	Answer Answer
	Memo   string

	completedText string
	totalText     string
	completed     int
	total         int
	dirty         [2]bool
	touched       bool
}

// NewDraft returns an empty draft for an objective of type t.
func NewDraft(t model.MeasurementType) Draft {
	return Draft{Type: t, total: 1, totalText: "1", completedText: "0"}
}

// Seed returns a draft pre-filled from an upstream progress guess.
// A nil guess yields an empty draft.
func Seed(t model.MeasurementType, guess *model.ObjectiveProgress, memo string) Draft {
	d := NewDraft(t)
	d.Memo = memo
	if guess == nil {
		return d
	}
	switch t {
	case model.MeasurementBinary:
		if guess.TrialsCompleted > 0 {
			d.Answer = AnswerYes
		} else {
			d.Answer = AnswerNo
		}
	case model.MeasurementTrial:
		d.Edit(FieldCompleted, strconv.Itoa(guess.TrialsCompleted))
		d.Edit(FieldTotal, strconv.Itoa(guess.TrialsTotal))
		d.CommitAll()
	}
	return d
}

// SetAnswer records a binary answer.
func (d *Draft) SetAnswer(a Answer) {
	d.Answer = a
}

// Edit replaces the raw text of a trial field without coercing it.
func (d *Draft) Edit(f Field, text string) {
	switch f {
	case FieldCompleted:
		d.completedText = text
	case FieldTotal:
		d.totalText = text
	default:
		return
	}
	d.dirty[f] = true
	d.touched = true
}

// Commit coerces a field's buffer into its numeric value, as on blur.
// Empty text becomes 0 and the total is clamped to at least 1.
func (d *Draft) Commit(f Field) {
	switch f {
	case FieldCompleted:
		d.completed = coerce(d.completedText)
		d.completedText = strconv.Itoa(d.completed)
	case FieldTotal:
		d.total = max(coerce(d.totalText), 1)
		d.totalText = strconv.Itoa(d.total)
	default:
		return
	}
	d.dirty[f] = false
}

// CommitAll commits any field with uncommitted edits.
func (d *Draft) CommitAll() {
	for _, f := range []Field{FieldCompleted, FieldTotal} {
		if d.dirty[f] {
			d.Commit(f)
		}
	}
}

// Text returns the raw buffer of a field.
func (d Draft) Text(f Field) string {
	if f == FieldTotal {
		return d.totalText
	}
	return d.completedText
}

// Complete reports whether the draft can be finalized. Trial drafts are complete
// once either field was touched, so zero successes is a valid entry.
func (d Draft) Complete() bool {
	switch d.Type {
	case model.MeasurementBinary:
		return d.Answer != AnswerUnset
	case model.MeasurementTrial:
		return d.touched
	default:
		return false
	}
}

// Progress finalizes the draft. Pending trial edits are committed on a copy first.
func (d Draft) Progress() (model.ObjectiveProgress, error) {
	switch d.Type {
	case model.MeasurementBinary:
		switch d.Answer {
		case AnswerYes:
			return model.ObjectiveProgress{TrialsCompleted: 1, TrialsTotal: 1}, nil
		case AnswerNo:
			return model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1}, nil
		default:
			return model.ObjectiveProgress{}, fmt.Errorf("%w: binary answer not set", ErrIncomplete)
		}
	case model.MeasurementTrial:
		if !d.touched {
			return model.ObjectiveProgress{}, fmt.Errorf("%w: no trials entered", ErrIncomplete)
		}
		d.CommitAll()
		return model.ObjectiveProgress{TrialsCompleted: d.completed, TrialsTotal: d.total}, nil
	default:
		return model.ObjectiveProgress{}, fmt.Errorf("%w: %q", ErrUnknownType, d.Type)
	}
}

// coerce parses the leading digits of s; anything else is 0.
func coerce(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

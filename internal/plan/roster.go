// Package plan reads YAML files that drive the caseload tools without an interactive UI:
// roster seeds, manual logging plans and transcript overrides.
package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/caseload/internal/model"
)

// ErrEmptyRoster is returned for a roster file without students.
var ErrEmptyRoster = errors.New("roster has no students")

type rosterFile struct {
	Students []model.Student `yaml:"students"`
}

// ParseRoster decodes a roster document. JSON input is accepted as well since it is
// valid YAML.
func ParseRoster(data []byte) ([]model.Student, error) {
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(rf.Students) == 0 {
		return nil, ErrEmptyRoster
	}
	seen := make(map[string]bool)
	for i, st := range rf.Students {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			return nil, fmt.Errorf("student %d: name required", i+1)
		}
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("student %q listed twice", name)
		}
		seen[strings.ToLower(name)] = true
		rf.Students[i].Name = name
		for _, a := range st.SubjectAreas {
			if strings.TrimSpace(a.Name) == "" {
				return nil, fmt.Errorf("student %q: subject area name required", name)
			}
			for _, g := range a.Goals {
				for _, o := range g.Objectives {
					if !o.Type.Valid() {
						return nil, fmt.Errorf("student %q, objective %q: unknown objective_type %q",
							name, o.Description, o.Type)
					}
					if strings.TrimSpace(o.Description) == "" {
						return nil, fmt.Errorf("student %q: objective description required", name)
					}
				}
			}
		}
	}
	return rf.Students, nil
}

// LoadRoster reads and parses a roster file.
func LoadRoster(path string) ([]model.Student, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

func load[T any](path, what string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("read %s: %w", what, err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parse %s: %w", what, err)
	}
	return v, nil
}

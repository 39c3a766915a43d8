// Package llm turns free-text session notes into parsed sessions with candidate
// student/objective matches, using an OpenAI-compatible chat API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/caseload/internal/llm/prompts"
	"github.com/pavelanni/caseload/internal/model"
)

// ErrEmptyTranscript is returned for blank input.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Roster supplies the students and objectives the model may match against.
type Roster interface {
	ListStudents() ([]model.Student, error)
	ListStudentObjectives(studentID int64) ([]model.Objective, error)
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
	newID   func() string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, variant prompts.Variant) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if variant == "" {
		variant = prompts.VariantStandard
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: variant,
		newID:   uuid.NewString,
	}
}

// analysis is the JSON object the model is asked to return.
type analysis struct {
	Sessions []struct {
		Transcript      string `json:"transcript"`
		Memo            string `json:"memo"`
		TrialsCompleted *int   `json:"trials_completed"`
		TrialsTotal     *int   `json:"trials_total"`
		Matches         []struct {
			StudentID  int64 `json:"student_id"`
			Objectives []struct {
				ObjectiveID        int64  `json:"objective_id"`
				QueriedDescription string `json:"queried_description"`
			} `json:"objectives"`
		} `json:"matches"`
	} `json:"sessions"`
}

// Analyze splits a transcript into parsed sessions. Candidate order is kept as the model
// returned it; ids the roster does not know are dropped.
func (c *Client) Analyze(ctx context.Context, roster Roster, transcript string) ([]model.ParsedSession, error) {
	if prompts.SanitizeTranscript(transcript) == "" {
		return nil, ErrEmptyTranscript
	}
	students, err := loadRoster(roster)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	systemPrompt, err := prompts.BuildAnalyzePrompt(c.variant, students)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompts.WrapTranscript(transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var a analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return c.toSessions(a, students), nil
}

func loadRoster(r Roster) ([]prompts.RosterStudent, error) {
	list, err := r.ListStudents()
	if err != nil {
		return nil, err
	}
	out := make([]prompts.RosterStudent, 0, len(list))
	for _, st := range list {
		objs, err := r.ListStudentObjectives(st.ID)
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", st.ID, err)
		}
		out = append(out, prompts.RosterStudent{ID: st.ID, Name: st.Name, Category: st.Category, Objectives: objs})
	}
	return out, nil
}

func (c *Client) toSessions(a analysis, roster []prompts.RosterStudent) []model.ParsedSession {
	byID := make(map[int64]prompts.RosterStudent, len(roster))
	for _, st := range roster {
		byID[st.ID] = st
	}

	sessions := make([]model.ParsedSession, 0, len(a.Sessions))
	for _, s := range a.Sessions {
		ps := model.ParsedSession{
			ID:         c.newID(),
			Transcript: s.Transcript,
			Memo:       s.Memo,
			Matches:    []model.MatchCandidate{},
		}
		if s.TrialsCompleted != nil && s.TrialsTotal != nil {
			ps.Progress = &model.ObjectiveProgress{TrialsCompleted: *s.TrialsCompleted, TrialsTotal: *s.TrialsTotal}
		}
		seen := make(map[int64]bool)
		for _, m := range s.Matches {
			st, ok := byID[m.StudentID]
			if !ok || seen[m.StudentID] {
				slog.Debug("dropping unknown or repeated student", "student_id", m.StudentID)
				continue
			}
			seen[m.StudentID] = true
			mc := model.MatchCandidate{
				Student:    model.Student{ID: st.ID, Name: st.Name, Category: st.Category},
				Objectives: []model.CandidateObjective{},
			}
			for _, o := range m.Objectives {
				obj, ok := findObjective(st.Objectives, o.ObjectiveID)
				if !ok {
					slog.Debug("dropping objective not on student", "student_id", st.ID, "objective_id", o.ObjectiveID)
					continue
				}
				mc.Objectives = append(mc.Objectives, model.CandidateObjective{
					Objective:          obj,
					QueriedDescription: o.QueriedDescription,
				})
			}
			ps.Matches = append(ps.Matches, mc)
		}
		sessions = append(sessions, ps)
	}
	return sessions
}

func findObjective(objs []model.Objective, id int64) (model.Objective, bool) {
	for _, o := range objs {
		if o.ID == id {
			return o, true
		}
	}
	return model.Objective{}, false
}

// Package client talks to the caseload HTTP API: roster lookups, transcript analysis
// and batch session logging.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/caseload/internal/model"
)

// maxGoalFetches bounds concurrent goal requests for one student.
const maxGoalFetches = 4

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	// Timeout applies to every request. Zero means no client-side timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
	log     *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the API at opts.BaseURL.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{baseURL: baseURL, hc: hc, log: log, token: strings.TrimSpace(opts.Token)}, nil
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token and keeps it for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &resp, nil); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}

// Students lists the caller's roster.
func (c *Client) Students(ctx context.Context) ([]model.Student, error) {
	var out []model.Student
	if err := c.doJSON(ctx, http.MethodGet, "/students", nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return out, nil
}

// SubjectAreas returns a student's subject areas with their goals and objectives.
// Goals of different areas are fetched concurrently.
func (c *Client) SubjectAreas(ctx context.Context, studentID int64) ([]model.SubjectArea, error) {
	var areas []model.SubjectArea
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/subject-areas/student/%d", studentID), nil, &areas, nil); err != nil {
		return nil, fmt.Errorf("list subject areas: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxGoalFetches)
	for i := range areas {
		if areas[i].StudentID == 0 {
			areas[i].StudentID = studentID
		}
		g.Go(func() error {
			goals, err := c.Goals(gctx, studentID, areas[i].ID)
			if err != nil {
				return err
			}
			areas[i].Goals = goals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return areas, nil
}

// Goals returns the goals, with nested objectives, of one subject area.
func (c *Client) Goals(ctx context.Context, studentID, areaID int64) ([]model.Goal, error) {
	var out []model.Goal
	path := fmt.Sprintf("/goals/student/%d/subject-area/%d", studentID, areaID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list goals for area %d: %w", areaID, err)
	}
	return out, nil
}

// StudentObjectives returns every objective of a student, flattened.
func (c *Client) StudentObjectives(ctx context.Context, studentID int64) ([]model.Objective, error) {
	var out []model.Objective
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/objectives/student/%d", studentID), nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	return out, nil
}

// Objective returns a single objective.
func (c *Client) Objective(ctx context.Context, id int64) (model.Objective, error) {
	var out model.Objective
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/objectives/objective/%d", id), nil, &out, nil); err != nil {
		return model.Objective{}, fmt.Errorf("get objective: %w", err)
	}
	return out, nil
}

// AnalyzeTranscript sends raw session text to the analyzer and returns the parsed sessions.
func (c *Client) AnalyzeTranscript(ctx context.Context, transcript string) ([]model.ParsedSession, error) {
	var out []model.ParsedSession
	body := map[string]string{"transcript": transcript}
	if err := c.doJSON(ctx, http.MethodPost, "/transcript/analyze", body, &out, nil); err != nil {
		return nil, fmt.Errorf("analyze transcript: %w", err)
	}
	return out, nil
}

// LogSessions submits entries as one batch.
func (c *Client) LogSessions(ctx context.Context, entries []model.SessionLogEntry) error {
	reqID := uuid.NewString()
	hdr := http.Header{"X-Request-Id": []string{reqID}}
	if err := c.doJSON(ctx, http.MethodPost, "/sessions/session/log", entries, nil, hdr); err != nil {
		return fmt.Errorf("log sessions (request %s): %w", reqID, err)
	}
	return nil
}

// StudentSessions returns a student's logged sessions, newest first.
func (c *Client) StudentSessions(ctx context.Context, studentID int64) ([]model.LoggedSession, error) {
	var out []model.LoggedSession
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/sessions/student/%d", studentID), nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, hdr http.Header) error {
	var rd io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseStatusError(method, path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseStatusError(method, path string, status int, raw []byte) *StatusError {
	e := &StatusError{Method: method, Path: path, StatusCode: status}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		e.Message = body.Error
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}
	return e
}

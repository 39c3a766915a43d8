package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/caseload/internal/batch"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/wizard"
)

var (
	_ wizard.Fetcher   = (*Client)(nil)
	_ batch.Submitter = (*Client)(nil)
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", Token: "tok", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "  "})
	assert.Error(t, err)
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(t, w, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(t, w, map[string]string{"token": "fresh"})
	})
	mux.HandleFunc("GET /students", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeJSON(t, w, []model.Student{{ID: 1, Name: "Bobby"}})
	})
	c := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "cm", "wrong")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "invalid credentials", se.Message)

	tok, err := c.Login(context.Background(), "cm", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)

	students, err := c.Students(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Bobby", students[0].Name)
}

func TestSubjectAreasFetchesGoalsPerArea(t *testing.T) {
	var goalCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /subject-areas/student/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(t, w, []model.SubjectArea{{ID: 1, Name: "Reading"}, {ID: 2, Name: "Math"}})
	})
	mux.HandleFunc("GET /goals/student/{id}/subject-area/{areaID}", func(w http.ResponseWriter, r *http.Request) {
		goalCalls.Add(1)
		area := r.PathValue("areaID")
		writeJSON(t, w, []model.Goal{{
			ID: 10, Title: "goal in area " + area,
			Objectives: []model.Objective{{ID: 100, Description: "obj", Type: model.MeasurementBinary}},
		}})
	})
	c := newTestClient(t, mux)

	areas, err := c.SubjectAreas(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, int32(2), goalCalls.Load())
	assert.Equal(t, "Reading", areas[0].Name, "order preserved")
	assert.Equal(t, "goal in area 2", areas[1].Goals[0].Title)
	assert.Equal(t, int64(7), areas[1].StudentID)
}

func TestSubjectAreasGoalFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /subject-areas/student/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []model.SubjectArea{{ID: 1}, {ID: 2}})
	})
	mux.HandleFunc("GET /goals/student/{id}/subject-area/{areaID}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("areaID") == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, []model.Goal{})
	})
	c := newTestClient(t, mux)

	_, err := c.SubjectAreas(context.Background(), 7)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Message)
}

func TestLogSessions(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	entries := []model.SessionLogEntry{{
		StudentID: 1, ObjectiveID: 2, Memo: "ok", Timestamp: at,
		ObjectiveProgress: model.ObjectiveProgress{TrialsCompleted: 0, TrialsTotal: 1},
	}}

	var got []model.SessionLogEntry
	var reqID string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/session/log", func(w http.ResponseWriter, r *http.Request) {
		reqID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.LogSessions(context.Background(), entries))
	assert.Equal(t, entries, got)
	_, err := uuid.Parse(reqID)
	assert.NoError(t, err)
}

func TestLogSessionsServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"entry 0: objective 9 does not belong to student 1"}`)
	}))

	err := c.LogSessions(context.Background(), []model.SessionLogEntry{{StudentID: 1, ObjectiveID: 9}})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Message, "does not belong")
}

func TestAnalyzeTranscript(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcript/analyze", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bobby read aloud", body["transcript"])
		writeJSON(t, w, []model.ParsedSession{{
			ID: "s1", Transcript: body["transcript"],
			Matches: []model.MatchCandidate{{Student: model.Student{ID: 1}}},
		}})
	})
	c := newTestClient(t, mux)

	sessions, err := c.AnalyzeTranscript(context.Background(), "Bobby read aloud")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Students(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

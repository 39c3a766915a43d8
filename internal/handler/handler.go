// Package handler serves the caseload JSON API over a store: roster lookups, transcript
// analysis and batch session logging.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/caseload/internal/i18n"
	"github.com/pavelanni/caseload/internal/llm"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 20

// Analyzer splits a raw transcript into parsed sessions.
type Analyzer interface {
	Analyze(ctx context.Context, roster llm.Roster, transcript string) ([]model.ParsedSession, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	analyzer Analyzer
}

// New creates a new Handler. A nil analyzer disables transcript analysis.
func New(s *store.Store, a Analyzer) *Handler {
	return &Handler{store: s, analyzer: a}
}

// Routes registers all HTTP routes. Everything except login needs a bearer token.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/auth/logout", h.handleLogout)
		r.Post("/auth/password", h.handleChangePassword)

		r.Get("/students", h.handleListStudents)
		r.Get("/subject-areas/student/{studentID}", h.handleSubjectAreas)
		r.Get("/goals/student/{studentID}/subject-area/{areaID}", h.handleGoals)
		r.Get("/objectives/student/{studentID}", h.handleStudentObjectives)
		r.Get("/objectives/objective/{objectiveID}", h.handleObjective)

		r.Post("/transcript/analyze", h.handleAnalyze)
		r.Post("/sessions/session/log", h.handleLogSessions)
		r.Get("/sessions/student/{studentID}", h.handleStudentSessions)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Post("/users", h.handleCreateUser)
			r.Post("/roster", h.handleUploadRoster)
			r.Get("/export", h.handleExport)
		})
	})
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents()
	if err != nil {
		h.storeError(w, err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) handleSubjectAreas(w http.ResponseWriter, r *http.Request) {
	studentID, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	areas, err := h.store.ListSubjectAreas(studentID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *Handler) handleGoals(w http.ResponseWriter, r *http.Request) {
	studentID, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	areaID, ok := idParam(w, r, "areaID")
	if !ok {
		return
	}
	goals, err := h.store.ListGoals(studentID, areaID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *Handler) handleStudentObjectives(w http.ResponseWriter, r *http.Request) {
	studentID, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	objs, err := h.store.ListStudentObjectives(studentID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (h *Handler) handleObjective(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "objectiveID")
	if !ok {
		return
	}
	o, err := h.store.GetObjective(id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		errorJSON(w, http.StatusServiceUnavailable, appI18n.T(r.Context(), "AnalyzerUnavailable"))
		return
	}
	var req struct {
		Transcript string `json:"transcript"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sessions, err := h.analyzer.Analyze(r.Context(), h.store, req.Transcript)
	if errors.Is(err, llm.ErrEmptyTranscript) {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("transcript analysis failed", "error", err)
		errorJSON(w, http.StatusBadGateway, "transcript analysis failed")
		return
	}
	slog.Info("analyzed transcript", "sessions", len(sessions))
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleLogSessions(w http.ResponseWriter, r *http.Request) {
	var entries []model.SessionLogEntry
	if !decodeJSON(w, r, &entries) {
		return
	}
	ids, err := h.store.LogSessions(entries)
	var ee *store.EntryError
	switch {
	case errors.As(err, &ee):
		slog.Info("rejected session batch", "index", ee.Index, "error", ee.Err,
			"request_id", r.Header.Get("X-Request-Id"))
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ee.Error(), "index": ee.Index})
		return
	case errors.Is(err, store.ErrEmptyBatch):
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.storeError(w, err)
		return
	}
	slog.Info("logged sessions", "count", len(ids), "request_id", r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

func (h *Handler) handleStudentSessions(w http.ResponseWriter, r *http.Request) {
	studentID, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	sessions, err := h.store.ListStudentSessions(studentID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(w, http.StatusNotFound, err.Error())
		return
	}
	slog.Error("store error", "error", err)
	errorJSON(w, http.StatusInternalServerError, "internal error")
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		errorJSON(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

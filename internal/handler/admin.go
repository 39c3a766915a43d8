package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/caseload/internal/i18n"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/plan"
)

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
		Role        string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "username and password required")
		return
	}
	role := model.UserRole(req.Role)
	switch role {
	case "":
		role = model.UserRoleCaseManager
	case model.UserRoleCaseManager, model.UserRoleAdmin:
	default:
		errorJSON(w, http.StatusBadRequest, "unknown role: "+req.Role)
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if existing != nil {
		errorJSON(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "username": req.Username, "role": role})
}

// handleUploadRoster imports a YAML or JSON roster sent as the "roster_file" form field.
// A file whose content hash was already imported under the same name is skipped.
func (h *Handler) handleUploadRoster(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		errorJSON(w, http.StatusBadRequest, "file too large")
		return
	}
	file, header, err := r.FormFile("roster_file")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	storedHash, err := h.store.GetImportedFileHash(header.Filename)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if storedHash == hash {
		writeJSON(w, http.StatusOK, map[string]any{
			"imported":  0,
			"duplicate": true,
			"message":   appI18n.T(r.Context(), "RosterDuplicate"),
		})
		return
	}

	students, err := plan.ParseRoster(data)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, plan.ErrEmptyRoster) {
			status = http.StatusUnprocessableEntity
		}
		errorJSON(w, status, err.Error())
		return
	}

	added, err := h.store.ImportRoster(students)
	if err != nil {
		slog.Error("failed to import roster", "filename", header.Filename, "error", err)
		errorJSON(w, http.StatusBadRequest, "failed to import roster: "+err.Error())
		return
	}
	if err := h.store.SetImportedFileHash(header.Filename, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}
	if err := h.store.SetSeedInfo(model.SeedInfo{Source: header.Filename, SeededAt: time.Now(), Students: added}); err != nil {
		slog.Error("failed to record seed info", "error", err)
	}

	slog.Info("uploaded roster via admin", "filename", header.Filename, "count", added)
	writeJSON(w, http.StatusOK, map[string]any{
		"imported":  added,
		"duplicate": false,
		"message":   appI18n.Tp(r.Context(), "RosterImported", added),
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.ExportHistory()
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

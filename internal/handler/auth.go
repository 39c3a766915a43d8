package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/caseload/internal/i18n"
	"github.com/pavelanni/caseload/internal/model"
)

const minPasswordLen = 8

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requireAuth is middleware that checks for a valid bearer token.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "Unauthorized"))
			return
		}

		user, err := h.store.Authenticate(token)
		if err != nil {
			slog.Error("failed to authenticate token", "error", err)
			errorJSON(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "Unauthorized"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "Unauthorized"))
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			errorJSON(w, http.StatusForbidden, appI18n.T(r.Context(), "Forbidden"))
		})
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !user.Active {
		errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginError"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginError"))
		return
	}

	token, err := h.store.IssueToken(user.ID)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("user logged in", "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleLogout revokes the presented token, or with ?all=true every token of the user.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		user := model.UserFromContext(r.Context())
		n, err := h.store.RevokeUserTokens(user.ID)
		if err != nil {
			slog.Error("failed to revoke tokens", "user_id", user.ID, "error", err)
			errorJSON(w, http.StatusInternalServerError, "internal error")
			return
		}
		slog.Info("revoked all tokens", "username", user.Username, "count", n)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.store.RevokeToken(bearerToken(r)); err != nil {
		slog.Error("failed to revoke token", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword sets a new password for the caller. Every existing token is
// revoked and a fresh one is returned.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user := model.UserFromContext(r.Context())
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Current)) != nil {
		errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginError"))
		return
	}
	if len(req.New) < minPasswordLen {
		errorJSON(w, http.StatusBadRequest, appI18n.Tp(r.Context(), "PasswordTooShort", minPasswordLen))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.SetPasswordHash(user.Username, string(hash)); err != nil {
		slog.Error("failed to change password", "username", user.Username, "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	token, err := h.store.IssueToken(user.ID)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

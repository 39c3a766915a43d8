package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/caseload/internal/model"
)

// Bearer tokens are kept as SHA-256 digests. The plaintext only appears in the login
// response, so a copy of the database cannot be replayed against the API.

const tokenTTL = 24 * time.Hour

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueToken creates a bearer token for a user, valid for 24 hours.
func (s *Store) IssueToken(userID int64) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO api_tokens (token_hash, user_id, issued_at, expires_at) VALUES (?, ?, ?, ?)`,
		hashToken(token), userID, now, now.Add(tokenTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate returns the user a token was issued to, or nil if the token no longer
// grants access. Expired tokens and tokens of deactivated users are both refused.
func (s *Store) Authenticate(token string) (*model.User, error) {
	h := hashToken(token)
	now := time.Now()
	var u model.User
	err := s.db.QueryRow(
		`SELECT u.id, u.username, u.display_name, u.password_hash, u.role, u.active, u.created_at
		 FROM api_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token_hash = ? AND t.expires_at > ? AND u.active = 1`, h, now,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`UPDATE api_tokens SET last_used_at = ? WHERE token_hash = ?`, now, h); err != nil {
		slog.Warn("failed to record token use", "user_id", u.ID, "error", err)
	}
	return &u, nil
}

// RevokeToken deletes one token. Revoking an unknown token is not an error.
func (s *Store) RevokeToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM api_tokens WHERE token_hash = ?`, hashToken(token))
	return err
}

// RevokeUserTokens deletes every token issued to a user and returns how many there were.
func (s *Store) RevokeUserTokens(userID int64) (int64, error) {
	return revokeUserTokens(s.db, userID)
}

func revokeUserTokens(ex execer, userID int64) (int64, error) {
	res, err := ex.Exec(`DELETE FROM api_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpiredTokens removes expired tokens and returns how many were removed.
func (s *Store) PurgeExpiredTokens() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM api_tokens WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level on the backend.
type UserRole string

const (
	// UserRoleCaseManager is a case manager who logs progress.
	UserRoleCaseManager UserRole = "case_manager"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// SeedInfo records where the backend roster came from.
type SeedInfo struct {
	Source   string    `json:"source"`
	SeededAt time.Time `json:"seeded_at"`
	Students int       `json:"students"`
}

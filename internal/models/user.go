package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
}

// NormalizeEmail is applied before every store and lookup so the unique index is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Session struct {
	ID         string
	UserID     int64
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

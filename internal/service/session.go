package service

import (
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

// Session is the authenticated caller, passed explicitly to every protected operation.
type Session struct {
	ID        string
	User      models.User
	ExpiresAt time.Time
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.User.Role == models.UserRoleAdmin
}

func (s *Session) IsStaff() bool {
	return s != nil && (s.User.Role == models.UserRoleAdmin || s.User.Role == models.UserRoleStaff)
}

func requireAdmin(session *Session) error {
	if session == nil {
		return ErrNotAuthenticated
	}
	if !session.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func requireStaff(session *Session) error {
	if session == nil {
		return ErrNotAuthenticated
	}
	if !session.IsStaff() {
		return ErrForbidden
	}
	return nil
}

package service

import (
	"errors"
	"fmt"
	"time"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a booking or deletion collides with existing data.
// For bookings, Block is the contested hour and ExistingID the appointment holding it (0 if unknown).
type ConflictError struct {
	Block      time.Time
	ExistingID int64
	Reason     string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict: slot %s already booked", e.Block.Format("2006-01-02T15:04"))
}

type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Reason
}

var (
	ErrInvalidCredentials = &AuthError{Reason: "invalid credentials"}
	ErrNotAuthenticated   = &AuthError{Reason: "not authenticated"}
	ErrForbidden          = &AuthError{Reason: "forbidden"}
)

// ErrUnavailable means the store could not be locked in time; nothing was written.
var ErrUnavailable = errors.New("store temporarily unavailable")

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

package models

import (
	"errors"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid status")

// AppointmentStatuses lists every status in display order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}

// ParseAppointmentStatus is the only conversion from untrusted input to a status.
// Matching is exact: surrounding whitespace is trimmed but case is not folded.
func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	candidate := AppointmentStatus(strings.TrimSpace(raw))
	for _, status := range AppointmentStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

type Appointment struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	ServiceID  int64
	StartAt    time.Time
	BlockStart time.Time
	Message    string
	Status     AppointmentStatus
	CreatedAt  time.Time
}

package notify

import (
	"context"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

// Notifier tells the clinic about booking activity. Implementations never block the caller
// on delivery and never report delivery errors back; failures are logged and counted.
type Notifier interface {
	NotifyNewAppointment(ctx context.Context, appt models.Appointment, svc models.Service)
	NotifyDigest(ctx context.Context, day time.Time, appts []models.Appointment)
}

type Stats struct {
	Queued  uint64 `json:"queued"`
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

// StatsReporter is implemented by notifiers that keep delivery counters.
type StatsReporter interface {
	Stats() Stats
}

// Nop is used when mail is not configured.
type Nop struct{}

func (Nop) NotifyNewAppointment(context.Context, models.Appointment, models.Service) {}

func (Nop) NotifyDigest(context.Context, time.Time, []models.Appointment) {}

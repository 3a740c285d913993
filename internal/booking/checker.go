package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
)

// AppointmentFinder is the read the checker needs; *repository.AppointmentRepository satisfies it,
// including a transaction-scoped one.
type AppointmentFinder interface {
	FirstInRange(ctx context.Context, start, end time.Time) (models.Appointment, error)
}

type Availability struct {
	Block     Block
	Available bool
	Conflict  *models.Appointment
}

// Checker enforces one appointment per hour block, across every service.
type Checker struct {
	appointments AppointmentFinder
}

func NewChecker(appointments AppointmentFinder) *Checker {
	return &Checker{appointments: appointments}
}

func (c *Checker) Check(ctx context.Context, start time.Time) (Availability, error) {
	block := BlockFor(start)

	existing, err := c.appointments.FirstInRange(ctx, block.Start, block.End)
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return Availability{Block: block, Available: true}, nil
	}
	if err != nil {
		return Availability{}, fmt.Errorf("check block %s: %w", block.Start.Format(SlotLayout), err)
	}
	return Availability{Block: block, Conflict: &existing}, nil
}

func (c *Checker) CheckRaw(ctx context.Context, raw string) (Availability, error) {
	start, err := ParseSlot(raw)
	if err != nil {
		return Availability{}, err
	}
	return c.Check(ctx, start)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/booking"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
)

// createAttempts bounds how often a booking transaction is retried after a lock timeout or a
// serialization abort.
const createAttempts = 2

type BookingInput struct {
	Name      string `field:"name" validate:"max=100"`
	Email     string `field:"email" validate:"max=100"`
	Phone     string `field:"phone" validate:"max=20"`
	ServiceID string `field:"service_id"`
	DateTime  string `field:"datetime"`
	Message   string `field:"message" validate:"max=2000"`
}

type ListFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// BookingService owns the appointment lifecycle: creation under the hour-block rule and status changes.
type BookingService struct {
	db           database.DB
	services     *repository.ServiceRepository
	appointments *repository.AppointmentRepository
	notifier     notify.Notifier
	validate     *validator.Validate
	log          zerolog.Logger
	now          func() time.Time
}

func NewBookingService(
	db database.DB,
	services *repository.ServiceRepository,
	appointments *repository.AppointmentRepository,
	notifier notify.Notifier,
	log zerolog.Logger,
) *BookingService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &BookingService{
		db:           db,
		services:     services,
		appointments: appointments,
		notifier:     notifier,
		validate:     newValidator(),
		log:          log,
		now:          time.Now,
	}
}

// Create validates the request and inserts a pending appointment if its hour block is free.
// Exactly one row is written on success and none on any error.
func (s *BookingService) Create(ctx context.Context, input BookingInput) (models.Appointment, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = models.NormalizeEmail(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.ServiceID = strings.TrimSpace(input.ServiceID)
	input.DateTime = strings.TrimSpace(input.DateTime)
	input.Message = strings.TrimSpace(input.Message)

	for _, required := range []struct{ field, value string }{
		{"name", input.Name},
		{"email", input.Email},
		{"phone", input.Phone},
		{"datetime", input.DateTime},
		{"service_id", input.ServiceID},
	} {
		if required.value == "" {
			return models.Appointment{}, &ValidationError{Field: required.field, Reason: "missing field"}
		}
	}

	start, err := booking.ParseSlot(input.DateTime)
	if err != nil {
		return models.Appointment{}, &ValidationError{Field: "datetime", Reason: "malformed datetime"}
	}

	serviceID, err := strconv.ParseInt(input.ServiceID, 10, 64)
	if err != nil || serviceID <= 0 {
		return models.Appointment{}, &ValidationError{Field: "service_id", Reason: "invalid service id"}
	}

	if err := validateStruct(s.validate, input); err != nil {
		return models.Appointment{}, err
	}

	block := booking.BlockFor(start)
	appt := models.Appointment{
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		ServiceID:  serviceID,
		StartAt:    start,
		BlockStart: block.Start,
		Message:    input.Message,
		Status:     models.AppointmentStatusPending,
		CreatedAt:  s.now().UTC(),
	}

	var svc models.Service
	for attempt := 1; ; attempt++ {
		svc, appt.ID, err = s.insert(ctx, appt)
		if err == nil {
			break
		}
		retryable := database.IsBusy(err) || database.IsSerializationFailure(err)
		if retryable && attempt < createAttempts {
			s.log.Debug().Err(err).Int("attempt", attempt).Msg("booking transaction retried")
			continue
		}
		switch {
		case database.IsBusy(err):
			s.log.Warn().Err(err).Msg("store busy while booking")
			return models.Appointment{}, ErrUnavailable
		case errors.Is(err, repository.ErrBlockTaken) || database.IsUniqueViolation(err) || database.IsSerializationFailure(err):
			return models.Appointment{}, &ConflictError{Block: block.Start}
		}
		return models.Appointment{}, err
	}

	s.log.Info().
		Int64("appointment_id", appt.ID).
		Int64("service_id", serviceID).
		Time("block", block.Start).
		Msg("appointment booked")

	s.notifier.NotifyNewAppointment(ctx, appt, svc)
	return appt, nil
}

// insert checks the block and writes the appointment in one transaction.
func (s *BookingService) insert(ctx context.Context, appt models.Appointment) (models.Service, int64, error) {
	var (
		svc models.Service
		id  int64
	)
	err := database.WithTx(ctx, s.db, func(tx database.Tx) error {
		var err error
		svc, err = s.services.WithTx(tx).GetByID(ctx, appt.ServiceID)
		if errors.Is(err, repository.ErrServiceNotFound) || (err == nil && !svc.Active) {
			return &NotFoundError{Resource: "service", ID: appt.ServiceID}
		}
		if err != nil {
			return fmt.Errorf("load service: %w", err)
		}

		appts := s.appointments.WithTx(tx)
		availability, err := booking.NewChecker(appts).Check(ctx, appt.StartAt)
		if err != nil {
			return err
		}
		if !availability.Available {
			return &ConflictError{Block: availability.Block.Start, ExistingID: availability.Conflict.ID}
		}

		id, err = appts.Create(ctx, appt)
		return err
	})
	return svc, id, err
}

// Availability is the read-only check used by the public booking form.
func (s *BookingService) Availability(ctx context.Context, raw string) (booking.Availability, error) {
	availability, err := booking.NewChecker(s.appointments).CheckRaw(ctx, raw)
	if errors.Is(err, booking.ErrMalformedDateTime) {
		return booking.Availability{}, &ValidationError{Field: "datetime", Reason: "malformed datetime"}
	}
	return availability, err
}

func (s *BookingService) SetStatus(ctx context.Context, session *Session, id int64, rawStatus string) (models.Appointment, error) {
	if err := requireAdmin(session); err != nil {
		return models.Appointment{}, err
	}

	status, err := models.ParseAppointmentStatus(rawStatus)
	if err != nil {
		return models.Appointment{}, &ValidationError{Field: "status", Reason: "invalid status"}
	}

	if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			return models.Appointment{}, &NotFoundError{Resource: "appointment", ID: id}
		}
		return models.Appointment{}, err
	}

	s.log.Info().
		Int64("appointment_id", id).
		Str("status", string(status)).
		Str("by", session.User.Email).
		Msg("appointment status changed")

	return s.get(ctx, id)
}

func (s *BookingService) Get(ctx context.Context, session *Session, id int64) (models.Appointment, error) {
	if err := requireStaff(session); err != nil {
		return models.Appointment{}, err
	}
	return s.get(ctx, id)
}

func (s *BookingService) get(ctx context.Context, id int64) (models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		return models.Appointment{}, &NotFoundError{Resource: "appointment", ID: id}
	}
	return appt, err
}

func (s *BookingService) List(ctx context.Context, session *Session, filter ListFilter) ([]models.Appointment, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}

	repoFilter := repository.AppointmentFilter{
		From:   filter.From,
		To:     filter.To,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if strings.TrimSpace(filter.Status) != "" {
		status, err := models.ParseAppointmentStatus(filter.Status)
		if err != nil {
			return nil, &ValidationError{Field: "status", Reason: "invalid status"}
		}
		repoFilter.Status = status
	}
	return s.appointments.List(ctx, repoFilter)
}

// Upcoming lists appointments starting in [from, to) in chronological order.
func (s *BookingService) Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	return s.appointments.Between(ctx, from, to)
}

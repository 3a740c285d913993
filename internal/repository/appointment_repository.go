package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrBlockTaken means the unique block index rejected the insert.
	ErrBlockTaken = errors.New("hour block already booked")
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type AppointmentFilter struct {
	Status models.AppointmentStatus
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type AppointmentRepository struct {
	db database.Querier
}

func NewAppointmentRepository(db database.Querier) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) WithTx(tx database.Tx) *AppointmentRepository {
	return &AppointmentRepository{db: tx}
}

const appointmentColumns = `id, name, email, phone, service_id, start_at, block_start, message, status, created_at`

func (r *AppointmentRepository) Create(ctx context.Context, appt models.Appointment) (int64, error) {
	const query = `
		INSERT INTO appointments (
			name, email, phone, service_id, start_at, block_start, message, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		appt.Name,
		appt.Email,
		appt.Phone,
		appt.ServiceID,
		appt.StartAt.UTC(),
		appt.BlockStart.UTC(),
		appt.Message,
		string(appt.Status),
		appt.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrBlockTaken
		}
		return 0, err
	}
	return id, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return models.Appointment{}, ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

// FirstInRange returns the earliest appointment starting in [start, end), across all services.
func (r *AppointmentRepository) FirstInRange(ctx context.Context, start, end time.Time) (models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1 AND start_at < $2
		ORDER BY start_at
		LIMIT 1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, start.UTC(), end.UTC()))
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return models.Appointment{}, ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

// List returns appointments newest start first.
func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		clauses = append(clauses, fmt.Sprintf("start_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		clauses = append(clauses, fmt.Sprintf("start_at < $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY start_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

// Between returns appointments starting in [from, to) in chronological order.
func (r *AppointmentRepository) Between(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1 AND start_at < $2
		ORDER BY start_at`
	return r.query(ctx, query, from.UTC(), to.UTC())
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, status models.AppointmentStatus) error {
	affected, err := r.db.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) CountByService(ctx context.Context, serviceID int64) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE service_id = $1`, serviceID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AppointmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AppointmentRepository) query(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func scanAppointment(row database.Row) (models.Appointment, error) {
	var (
		appt   models.Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Email,
		&appt.Phone,
		&appt.ServiceID,
		&appt.StartAt,
		&appt.BlockStart,
		&appt.Message,
		&status,
		&appt.CreatedAt,
	); err != nil {
		return models.Appointment{}, err
	}
	appt.Status = models.AppointmentStatus(status)
	appt.StartAt = appt.StartAt.UTC()
	appt.BlockStart = appt.BlockStart.UTC()
	appt.CreatedAt = appt.CreatedAt.UTC()
	return appt, nil
}

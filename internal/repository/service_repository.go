package repository

import (
	"context"
	"errors"

	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceInUse    = errors.New("service has appointments")
)

type ServiceRepository struct {
	db database.Querier
}

func NewServiceRepository(db database.Querier) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) WithTx(tx database.Tx) *ServiceRepository {
	return &ServiceRepository{db: tx}
}

func (r *ServiceRepository) Create(ctx context.Context, service models.Service) (int64, error) {
	const query = `
		INSERT INTO services (name, description, price, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRow(ctx, query,
		service.Name,
		service.Description,
		service.Price,
		service.Active,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertIfMissing stores the service under its own id unless that id is already taken.
// It reports whether a row was written.
func (r *ServiceRepository) InsertIfMissing(ctx context.Context, service models.Service) (bool, error) {
	const query = `
		INSERT INTO services (id, name, description, price, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	affected, err := r.db.Exec(ctx, query,
		service.ID,
		service.Name,
		service.Description,
		service.Price,
		service.Active,
	)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (models.Service, error) {
	const query = `
		SELECT id, name, description, price, active
		FROM services WHERE id = $1
	`

	var service models.Service
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.Name,
		&service.Description,
		&service.Price,
		&service.Active,
	); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return models.Service{}, ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return service, nil
}

// List returns services ordered by name. With activeOnly set, inactive services are skipped.
func (r *ServiceRepository) List(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	query := `SELECT id, name, description, price, active FROM services`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var service models.Service
		if err := rows.Scan(
			&service.ID,
			&service.Name,
			&service.Description,
			&service.Price,
			&service.Active,
		); err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, rows.Err()
}

func (r *ServiceRepository) Update(ctx context.Context, service models.Service) error {
	const query = `
		UPDATE services
		SET name = $2, description = $3, price = $4, active = $5
		WHERE id = $1
	`
	affected, err := r.db.Exec(ctx, query,
		service.ID,
		service.Name,
		service.Description,
		service.Price,
		service.Active,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrServiceInUse
		}
		return err
	}
	if affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM services`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

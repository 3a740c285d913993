package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
)

type ServiceInput struct {
	Name        string `field:"name" validate:"required,max=100"`
	Description string `field:"description" validate:"max=1000"`
	Price       string `field:"price" validate:"required"`
	Active      bool   `field:"active"`
}

type CatalogService struct {
	db           database.DB
	services     *repository.ServiceRepository
	appointments *repository.AppointmentRepository
	validate     *validator.Validate
	log          zerolog.Logger
}

func NewCatalogService(db database.DB, services *repository.ServiceRepository, appointments *repository.AppointmentRepository, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		db:           db,
		services:     services,
		appointments: appointments,
		validate:     newValidator(),
		log:          log,
	}
}

// ListActive is the public catalog shown on the booking form.
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Service, error) {
	return s.services.List(ctx, true)
}

func (s *CatalogService) ListAll(ctx context.Context, session *Session) ([]models.Service, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	return s.services.List(ctx, false)
}

func (s *CatalogService) Get(ctx context.Context, session *Session, id int64) (models.Service, error) {
	if err := requireStaff(session); err != nil {
		return models.Service{}, err
	}
	svc, err := s.services.GetByID(ctx, id)
	if errors.Is(err, repository.ErrServiceNotFound) {
		return models.Service{}, &NotFoundError{Resource: "service", ID: id}
	}
	return svc, err
}

func (s *CatalogService) Create(ctx context.Context, session *Session, input ServiceInput) (models.Service, error) {
	if err := requireAdmin(session); err != nil {
		return models.Service{}, err
	}
	svc, err := s.parseInput(input)
	if err != nil {
		return models.Service{}, err
	}

	id, err := s.services.Create(ctx, svc)
	if err != nil {
		return models.Service{}, err
	}
	svc.ID = id
	s.log.Info().Int64("service_id", id).Str("name", svc.Name).Msg("service created")
	return svc, nil
}

func (s *CatalogService) Update(ctx context.Context, session *Session, id int64, input ServiceInput) (models.Service, error) {
	if err := requireAdmin(session); err != nil {
		return models.Service{}, err
	}
	svc, err := s.parseInput(input)
	if err != nil {
		return models.Service{}, err
	}
	svc.ID = id

	if err := s.services.Update(ctx, svc); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return models.Service{}, &NotFoundError{Resource: "service", ID: id}
		}
		return models.Service{}, err
	}
	s.log.Info().Int64("service_id", id).Bool("active", svc.Active).Msg("service updated")
	return svc, nil
}

// Delete removes a service that was never booked. Booked services must be deactivated instead.
func (s *CatalogService) Delete(ctx context.Context, session *Session, id int64) error {
	if err := requireAdmin(session); err != nil {
		return err
	}

	inUse := &ConflictError{Reason: "service has appointments; deactivate it instead"}
	err := database.WithTx(ctx, s.db, func(tx database.Tx) error {
		count, err := s.appointments.WithTx(tx).CountByService(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return inUse
		}
		return s.services.WithTx(tx).Delete(ctx, id)
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrServiceNotFound):
		return &NotFoundError{Resource: "service", ID: id}
	case errors.Is(err, repository.ErrServiceInUse):
		return inUse
	default:
		return err
	}
	s.log.Info().Int64("service_id", id).Msg("service deleted")
	return nil
}

func (s *CatalogService) parseInput(input ServiceInput) (models.Service, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Price = strings.TrimSpace(input.Price)

	if err := validateStruct(s.validate, input); err != nil {
		return models.Service{}, err
	}

	price, err := decimal.NewFromString(input.Price)
	if err != nil {
		return models.Service{}, &ValidationError{Field: "price", Reason: "invalid price"}
	}
	if price.IsNegative() {
		return models.Service{}, &ValidationError{Field: "price", Reason: "price must not be negative"}
	}
	if !price.Equal(price.Round(2)) {
		return models.Service{}, &ValidationError{Field: "price", Reason: "at most two decimal places"}
	}

	return models.Service{
		Name:        input.Name,
		Description: input.Description,
		Price:       price.Round(2),
		Active:      input.Active,
	}, nil
}

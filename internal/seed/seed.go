package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
	"github.com/Oswi777/Portal-Fisioterapia/internal/security"
)

// Catalog is the clinic's initial service list. Ids are fixed so reseeding is idempotent.
var Catalog = []models.Service{
	{ID: 1, Name: "Terapia Física General", Description: "Sesión enfocada en el tratamiento de dolor muscular, articular o lesiones físicas comunes.", Price: decimal.RequireFromString("450.00"), Active: true},
	{ID: 2, Name: "Rehabilitación Postoperatoria", Description: "Tratamiento especializado posterior a cirugía ortopédica, neurológica o traumatológica.", Price: decimal.RequireFromString("600.00"), Active: true},
	{ID: 3, Name: "Terapia Deportiva", Description: "Optimización de rendimiento, prevención y tratamiento de lesiones deportivas.", Price: decimal.RequireFromString("500.00"), Active: true},
	{ID: 4, Name: "Terapia Neurológica", Description: "Atención a pacientes con lesiones neurológicas como parálisis, EVC, Parkinson, etc.", Price: decimal.RequireFromString("550.00"), Active: true},
	{ID: 5, Name: "Terapia Respiratoria", Description: "Ejercicios y técnicas para mejorar la función pulmonar y oxigenación.", Price: decimal.RequireFromString("400.00"), Active: true},
	{ID: 6, Name: "Electroterapia", Description: "Aplicación de corriente eléctrica para alivio del dolor y mejora del tono muscular.", Price: decimal.RequireFromString("349.00"), Active: true},
	{ID: 7, Name: "Terapia de Suelo Pélvico", Description: "Evaluación y tratamiento de disfunciones urinarias, sexuales o de embarazo.", Price: decimal.RequireFromString("600.00"), Active: true},
}

type Result struct {
	ServicesInserted int
	AdminCreated     bool
}

// Run inserts missing catalog entries and the admin user. Existing rows are never modified.
// Tables must already exist.
func Run(ctx context.Context, db database.DB, admin config.AdminConfig, logger zerolog.Logger) (Result, error) {
	var result Result

	err := database.WithTx(ctx, db, func(tx database.Tx) error {
		services := repository.NewServiceRepository(db).WithTx(tx)
		for _, svc := range Catalog {
			inserted, err := services.InsertIfMissing(ctx, svc)
			if err != nil {
				return fmt.Errorf("seed service %d: %w", svc.ID, err)
			}
			if inserted {
				result.ServicesInserted++
			}
		}
		if err := database.SyncSequence(ctx, tx, db.Dialect(), "services"); err != nil {
			return err
		}

		created, err := ensureAdmin(ctx, repository.NewUserRepository(db).WithTx(tx), admin, logger)
		if err != nil {
			return err
		}
		result.AdminCreated = created
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info().
		Int("services_inserted", result.ServicesInserted).
		Bool("admin_created", result.AdminCreated).
		Msg("seed complete")
	return result, nil
}

func ensureAdmin(ctx context.Context, users *repository.UserRepository, admin config.AdminConfig, logger zerolog.Logger) (bool, error) {
	email := models.NormalizeEmail(admin.Email)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := adminPasswordHash(admin, email, logger)
	if err != nil {
		return false, err
	}

	name := admin.Name
	if name == "" {
		name = "Administrador"
	}
	if _, err := users.Create(ctx, models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
		CreatedAt:    time.Now(),
	}); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func adminPasswordHash(admin config.AdminConfig, email string, logger zerolog.Logger) ([]byte, error) {
	switch {
	case admin.Password != "":
		return security.HashPassword(admin.Password)
	case admin.PasswordHash != "":
		return []byte(admin.PasswordHash), nil
	}

	if admin.PasswordFile == "" {
		return nil, errors.New("admin password, password hash or password file must be configured")
	}
	password, err := security.RandomPassword(18)
	if err != nil {
		return nil, err
	}
	if err := writePasswordFile(admin.PasswordFile, password); err != nil {
		return nil, err
	}
	logger.Warn().
		Str("email", email).
		Str("file", admin.PasswordFile).
		Msg("no admin password configured; generated one, read it from the file and change it after first login")
	return security.HashPassword(password)
}

// writePasswordFile creates path readable by the owner only and fails if it already exists.
func writePasswordFile(path, password string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create admin password dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("write admin password: %w", err)
	}
	if _, err := f.WriteString(password + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("write admin password: %w", err)
	}
	return f.Close()
}

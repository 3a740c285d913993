package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

func openTestDB(t *testing.T) database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createService(t *testing.T, repo *ServiceRepository, name string, active bool) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), models.Service{
		Name:   name,
		Price:  decimal.RequireFromString("450.00"),
		Active: active,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return id
}

func TestAppointmentBlockIsUnique(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	serviceID := createService(t, NewServiceRepository(db), "Masaje", true)
	appts := NewAppointmentRepository(db)

	block := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	first := models.Appointment{
		Name:       "Ana",
		Email:      "ana@x.com",
		Phone:      "555",
		ServiceID:  serviceID,
		StartAt:    block.Add(30 * time.Minute),
		BlockStart: block,
		Status:     models.AppointmentStatusPending,
		CreatedAt:  time.Now(),
	}
	if _, err := appts.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := first
	second.StartAt = block.Add(45 * time.Minute)
	if _, err := appts.Create(ctx, second); !errors.Is(err, ErrBlockTaken) {
		t.Fatalf("expected ErrBlockTaken, got %v", err)
	}

	count, err := appts.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 appointment, got %d", count)
	}
}

func TestAppointmentFirstInRangeIsHalfOpen(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	serviceID := createService(t, NewServiceRepository(db), "Masaje", true)
	appts := NewAppointmentRepository(db)

	start := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	if _, err := appts.Create(ctx, models.Appointment{
		Name: "Ana", Email: "ana@x.com", Phone: "555", ServiceID: serviceID,
		StartAt: start, BlockStart: start, Status: models.AppointmentStatusPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := appts.FirstInRange(ctx, start.Add(-time.Hour), start); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("previous block should be free, got %v", err)
	}
	found, err := appts.FirstInRange(ctx, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("first in range: %v", err)
	}
	if !found.StartAt.Equal(start) || found.Status != models.AppointmentStatusPending {
		t.Fatalf("unexpected appointment %+v", found)
	}
}

func TestAppointmentListFilterAndUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	serviceID := createService(t, NewServiceRepository(db), "Masaje", true)
	appts := NewAppointmentRepository(db)

	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		id, err := appts.Create(ctx, models.Appointment{
			Name: "P", Email: "p@x.com", Phone: "1", ServiceID: serviceID,
			StartAt: at, BlockStart: at, Status: models.AppointmentStatusPending, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	if err := appts.UpdateStatus(ctx, ids[1], models.AppointmentStatusConfirmed); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := appts.UpdateStatus(ctx, 9999, models.AppointmentStatusConfirmed); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}

	all, err := appts.List(ctx, AppointmentFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %+v", all)
	}

	confirmed, err := appts.List(ctx, AppointmentFilter{Status: models.AppointmentStatusConfirmed})
	if err != nil {
		t.Fatalf("list confirmed: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].ID != ids[1] {
		t.Fatalf("unexpected filtered list %+v", confirmed)
	}

	day, err := appts.Between(ctx, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if len(day) != 2 || day[0].ID != ids[0] {
		t.Fatalf("unexpected range %+v", day)
	}
}

func TestServiceListOrderAndDeleteInUse(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	services := NewServiceRepository(db)

	zeta := createService(t, services, "Zeta", true)
	createService(t, services, "Alfa", true)
	createService(t, services, "Oculto", false)

	active, err := services.List(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 || active[0].Name != "Alfa" || active[1].Name != "Zeta" {
		t.Fatalf("unexpected active list %+v", active)
	}
	if !active[0].Price.Equal(decimal.RequireFromString("450")) {
		t.Fatalf("price not preserved: %s", active[0].Price)
	}

	at := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	if _, err := NewAppointmentRepository(db).Create(ctx, models.Appointment{
		Name: "Ana", Email: "a@x.com", Phone: "1", ServiceID: zeta,
		StartAt: at, BlockStart: at, Status: models.AppointmentStatusPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if err := services.Delete(ctx, zeta); !errors.Is(err, ErrServiceInUse) {
		t.Fatalf("expected ErrServiceInUse, got %v", err)
	}
	if err := services.Delete(ctx, 12345); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestServiceInsertIfMissing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	services := NewServiceRepository(db)

	svc := models.Service{ID: 3, Name: "Masaje", Price: decimal.RequireFromString("450.00"), Active: true}
	inserted, err := services.InsertIfMissing(ctx, svc)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = services.InsertIfMissing(ctx, svc)
	if err != nil || inserted {
		t.Fatalf("second insert: inserted=%v err=%v", inserted, err)
	}
}

func TestUserEmailUniqueAndSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)

	user := models.User{Name: "Admin", Email: "admin@x.com", PasswordHash: []byte("hash"), Role: models.UserRoleAdmin, CreatedAt: time.Now()}
	id, err := users.Create(ctx, user)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.Create(ctx, user); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	found, err := users.FindByEmail(ctx, "admin@x.com")
	if err != nil || found.ID != id || found.Role != models.UserRoleAdmin {
		t.Fatalf("find by email: %+v %v", found, err)
	}

	now := time.Now().UTC()
	for _, s := range []models.Session{
		{ID: "live", UserID: id, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "dead", UserID: id, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
	} {
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	purged, err := sessions.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}
	if _, err := sessions.GetByID(ctx, "dead"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session gone, got %v", err)
	}
	if err := sessions.Touch(ctx, "live", now.Add(time.Minute), "127.0.0.1", ""); err != nil {
		t.Fatalf("touch: %v", err)
	}
	live, err := sessions.GetByID(ctx, "live")
	if err != nil || live.IPAddress != "127.0.0.1" {
		t.Fatalf("get live: %+v %v", live, err)
	}
}

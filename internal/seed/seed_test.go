package seed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
	"github.com/Oswi777/Portal-Fisioterapia/internal/security"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	admin := config.AdminConfig{Email: " Admin@Fisiolife.com ", Name: "Administrador", Password: "cambiar"}

	first, err := Run(ctx, db, admin, zerolog.Nop())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.ServicesInserted != len(Catalog) || !first.AdminCreated {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := Run(ctx, db, admin, zerolog.Nop())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.ServicesInserted != 0 || second.AdminCreated {
		t.Fatalf("unexpected second result %+v", second)
	}

	services, err := repository.NewServiceRepository(db).Count(ctx)
	if err != nil || services != 7 {
		t.Fatalf("expected 7 services, got %d (%v)", services, err)
	}
	users, err := repository.NewUserRepository(db).Count(ctx)
	if err != nil || users != 1 {
		t.Fatalf("expected 1 user, got %d (%v)", users, err)
	}

	user, err := repository.NewUserRepository(db).FindByEmail(ctx, "admin@fisiolife.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if user.Role != models.UserRoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
	if ok, err := security.VerifyPassword("cambiar", user.PasswordHash); err != nil || !ok {
		t.Fatalf("admin password should verify, ok=%v err=%v", ok, err)
	}

	// New services after seeding must not collide with the fixed ids.
	id, err := repository.NewServiceRepository(db).Create(ctx, models.Service{Name: "Nuevo", Price: Catalog[0].Price, Active: true})
	if err != nil {
		t.Fatalf("create after seed: %v", err)
	}
	if id <= 7 {
		t.Fatalf("expected id past seeded range, got %d", id)
	}
}

func TestRunKeepsConfiguredHash(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hash := "$2b$04$abcdefghijklmnopqrstuu5Jr4fmpGwnwcmRQzWdN1hb6ZT3Smsyq"
	if _, err := Run(ctx, db, config.AdminConfig{Email: "root@x.com", PasswordHash: hash}, zerolog.Nop()); err != nil {
		t.Fatalf("run: %v", err)
	}
	user, err := repository.NewUserRepository(db).FindByEmail(ctx, "root@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if string(user.PasswordHash) != hash {
		t.Fatalf("stored hash changed: %s", user.PasswordHash)
	}
}

func TestRunWritesGeneratedPasswordToFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := database.OpenSQLite(ctx, filepath.Join(dir, "seed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var logs bytes.Buffer
	passwordFile := filepath.Join(dir, "instance", "admin_password.txt")
	admin := config.AdminConfig{Email: "admin@fisiolife.com", PasswordFile: passwordFile}
	if _, err := Run(ctx, db, admin, zerolog.New(&logs)); err != nil {
		t.Fatalf("run: %v", err)
	}

	info, err := os.Stat(passwordFile)
	if err != nil {
		t.Fatalf("stat password file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
	raw, err := os.ReadFile(passwordFile)
	if err != nil {
		t.Fatalf("read password file: %v", err)
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		t.Fatal("password file is empty")
	}

	user, err := repository.NewUserRepository(db).FindByEmail(ctx, "admin@fisiolife.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if ok, err := security.VerifyPassword(password, user.PasswordHash); err != nil || !ok {
		t.Fatalf("generated password should verify, ok=%v err=%v", ok, err)
	}
	if strings.Contains(logs.String(), password) {
		t.Fatalf("generated password leaked into logs: %s", logs.String())
	}
	if !strings.Contains(logs.String(), passwordFile) {
		t.Fatalf("expected log to name the password file: %s", logs.String())
	}
}

func TestRunWithoutAnyAdminCredentialFails(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := Run(ctx, db, config.AdminConfig{Email: "admin@fisiolife.com"}, zerolog.Nop()); err == nil {
		t.Fatal("expected an error when no admin credential source is configured")
	}
	if users, err := repository.NewUserRepository(db).Count(ctx); err != nil || users != 0 {
		t.Fatalf("expected no users after failed seed, got %d (%v)", users, err)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADMIN_EMAIL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.Database.UsePostgres() {
		t.Fatalf("expected sqlite fallback when DATABASE_URL is empty")
	}
	if cfg.Database.SQLitePath != "instance/fisiolife.db" {
		t.Fatalf("unexpected sqlite path %q", cfg.Database.SQLitePath)
	}
	if cfg.Admin.Email != "admin@fisiolife.com" {
		t.Fatalf("unexpected admin email %q", cfg.Admin.Email)
	}
	if cfg.Security.SessionTTL != 12*time.Hour {
		t.Fatalf("unexpected session ttl %s", cfg.Security.SessionTTL)
	}
	if cfg.Notify.Mode != "inline" {
		t.Fatalf("unexpected notify mode %q", cfg.Notify.Mode)
	}
	if cfg.Mail.Enabled() {
		t.Fatalf("mail must stay disabled without a sender")
	}
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql+psycopg2://clinic:secret@db:5432/fisiolife")
	t.Setenv("ADMIN_EMAIL", "  Boss@Clinic.COM ")
	t.Setenv("MAIL_USERNAME", "inbox@clinic.com")
	t.Setenv("MAIL_PORT", "2525")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Database.URL != "postgres://clinic:secret@db:5432/fisiolife" {
		t.Fatalf("unexpected database url %q", cfg.Database.URL)
	}
	if !cfg.Database.UsePostgres() {
		t.Fatalf("expected postgres to be selected")
	}
	if cfg.Admin.Email != "boss@clinic.com" {
		t.Fatalf("expected normalised admin email, got %q", cfg.Admin.Email)
	}
	if !cfg.Mail.Enabled() || cfg.Mail.Recipient() != "inbox@clinic.com" || cfg.Mail.Port != 2525 {
		t.Fatalf("unexpected mail config %+v", cfg.Mail)
	}
	if cfg.HTTP.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTP.Port)
	}
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("FISIOLIFE_ENVIRONMENT", "production")
	t.Setenv("SECRET_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected production config without SECRET_KEY to fail")
	}
}

func TestLoadStreamModeRequiresRedis(t *testing.T) {
	t.Setenv("FISIOLIFE_NOTIFY_MODE", "stream")
	t.Setenv("REDIS_ADDR", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected stream notify mode without redis to fail")
	}
}

func TestNormalizeDatabaseURL(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		" postgres://u@h/db ":           "postgres://u@h/db",
		"postgresql+psycopg2://u@h/db":  "postgres://u@h/db",
		"postgresql://u@h/db?sslmode=x": "postgresql://u@h/db?sslmode=x",
	}
	for in, want := range cases {
		if got := NormalizeDatabaseURL(in); got != want {
			t.Fatalf("NormalizeDatabaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/handlers"
	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
)

func TestRouterServesSiteAndAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.AppConfig{
		Environment: "test",
		Security:    config.SecurityConfig{SecretKey: "k", SessionTTL: time.Hour, CookieName: "s"},
	}
	h := handlers.NewHandlerSet(zerolog.Nop(), db, nil, notify.Nop{}, middleware.NewMemoryLimiter(5, time.Minute), cfg)
	router := NewRouter(cfg, zerolog.Nop(), h)

	for path, want := range map[string]int{
		"/":            http.StatusOK,
		"/book":        http.StatusOK,
		"/api/healthz": http.StatusOK,
		"/admin":       http.StatusSeeOther,
		"/api/missing": http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: missing request id header", path)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	if !strings.Contains(w.Body.String(), "NotFound") {
		t.Fatalf("expected JSON not found body, got %s", w.Body.String())
	}
}

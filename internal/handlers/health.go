package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
)

type healthResponse struct {
	Status        string        `json:"status"`
	Database      string        `json:"database"`
	Cache         string        `json:"cache"`
	Environment   string        `json:"environment"`
	Notifications *notify.Stats `json:"notifications,omitempty"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := healthResponse{Status: "ok", Database: "ok", Cache: "disabled", Environment: h.cfg.Environment}

	if err := h.db.Ping(ctx); err != nil {
		resp.Status, resp.Database = "degraded", "error"
		status = http.StatusServiceUnavailable
		h.log.Error().Err(err).Msg("database ping failed")
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Cache = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	if reporter, ok := h.notifier.(notify.StatsReporter); ok {
		stats := reporter.Stats()
		resp.Notifications = &stats
	}

	c.JSON(status, resp)
}

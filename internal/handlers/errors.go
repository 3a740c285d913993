package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/booking"
	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// respondError maps service errors onto JSON status codes. Unknown errors are logged and hidden.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		conflict   *service.ConflictError
		notFound   *service.NotFoundError
		authErr    *service.AuthError
	)

	switch {
	case errors.Is(err, service.ErrUnavailable):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Type: "Unavailable"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Reason, Type: "ValidationError", Field: validation.Field})
	case errors.As(err, &conflict):
		msg := conflict.Reason
		if msg == "" {
			msg = "slot " + conflict.Block.Format(booking.SlotLayout) + " already booked"
		}
		c.JSON(http.StatusConflict, errorResponse{Error: msg, Type: "Conflict"})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Error(), Type: "NotFound"})
	case errors.As(err, &authErr):
		if errors.Is(authErr, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, errorResponse{Error: authErr.Reason, Type: "Forbidden"})
			return
		}
		c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Reason, Type: "Unauthorized"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal Server Error", Type: "InternalError"})
	}
}

func badRequest(c *gin.Context, field, reason string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: reason, Type: "ValidationError", Field: field})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NotFound answers JSON for API clients and an HTML page for browsers.
func (h HandlerSet) NotFound(c *gin.Context) {
	if wantsJSON(c) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not Found", Type: "NotFound"})
		return
	}
	h.renderError(c, http.StatusNotFound, "Página no encontrada", "La página que buscas no existe.")
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return preferredMediaType(c.GetHeader("Accept")) == gin.MIMEJSON
}

// preferredMediaType returns the Accept entry with the highest quality. Ties go to
// the more specific range, then to the earlier entry.
func preferredMediaType(accept string) string {
	var (
		best         string
		bestQ        = -1.0
		bestSpecific = -1
	)
	for _, part := range strings.Split(accept, ",") {
		fields := strings.Split(part, ";")
		media := strings.ToLower(strings.TrimSpace(fields[0]))
		if media == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(name) != "q" {
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				parsed = 0
			}
			q = parsed
		}
		if q <= 0 {
			continue
		}
		specific := 2
		switch {
		case media == "*/*":
			specific = 0
		case strings.HasSuffix(media, "/*"):
			specific = 1
		}
		if q > bestQ || (q == bestQ && specific > bestSpecific) {
			best, bestQ, bestSpecific = media, q, specific
		}
	}
	return best
}

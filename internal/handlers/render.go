package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"

	"github.com/Oswi777/Portal-Fisioterapia/internal/booking"
	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index.html",
	"book.html",
	"login.html",
	"dashboard.html",
	"appointments.html",
	"services.html",
	"service_form.html",
	"error.html",
}

var statusLabels = map[models.AppointmentStatus]string{
	models.AppointmentStatusPending:   "Pendiente",
	models.AppointmentStatusConfirmed: "Confirmada",
	models.AppointmentStatusCompleted: "Completada",
	models.AppointmentStatusCancelled: "Cancelada",
}

var templateFuncs = template.FuncMap{
	"slot": func(t time.Time) string {
		return t.Format(booking.SlotLayout)
	},
	"price": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"statusLabel": func(s models.AppointmentStatus) string {
		if label, ok := statusLabels[s]; ok {
			return label
		}
		return string(s)
	},
}

// pages holds one template set per page, each combined with the shared layout.
var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	layout := template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html"))
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl := template.Must(layout.Clone())
		out[name] = template.Must(tmpl.ParseFS(templateFS, "templates/"+name))
	}
	return out
}

type pageData struct {
	Title        string
	Session      *service.Session
	CSRFToken    string
	Message      string
	Error        string
	Services     []models.Service
	ServiceNames map[int64]string
	Appointments []models.Appointment
	Statuses     []models.AppointmentStatus
	Filter       string
	Form         map[string]string
	Service      *models.Service
	Mode         string
}

func (h HandlerSet) render(c *gin.Context, status int, name string, data pageData) {
	tmpl, ok := pages[name]
	if !ok {
		_ = c.Error(fmt.Errorf("unknown template %q", name))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	data.Session = middleware.CurrentSession(c)
	data.CSRFToken = middleware.CSRFToken(c)
	c.Render(status, render.HTML{Template: tmpl, Name: "layout.html", Data: data})
}

func (h HandlerSet) renderError(c *gin.Context, status int, title, message string) {
	h.render(c, status, "error.html", pageData{Title: title, Error: message})
}

package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

// flashMessages are keyed by short codes so redirects never echo arbitrary text.
var flashMessages = map[string]string{
	"status_updated":  "Estado actualizado.",
	"invalid_status":  "Estado inválido.",
	"service_saved":   "Servicio guardado.",
	"service_deleted": "Servicio eliminado.",
	"service_in_use":  "El servicio tiene citas registradas; desactívalo en lugar de eliminarlo.",
	"forbidden":       "No tienes permisos para esta acción.",
}

func redirectWithFlash(c *gin.Context, path, code string) {
	c.Redirect(http.StatusSeeOther, path+"?"+url.Values{"flash": {code}}.Encode())
}

func flashFrom(c *gin.Context) (message, errMessage string) {
	code := c.Query("flash")
	text, ok := flashMessages[code]
	if !ok {
		return "", ""
	}
	switch code {
	case "invalid_status", "service_in_use", "forbidden":
		return "", text
	}
	return text, ""
}

// renderServiceError shows the error page for failures outside form validation.
func (h HandlerSet) renderServiceError(c *gin.Context, err error) {
	switch {
	case service.IsNotFound(err):
		h.renderError(c, http.StatusNotFound, "No encontrado", "El recurso solicitado no existe.")
	case errors.Is(err, service.ErrForbidden):
		h.renderError(c, http.StatusForbidden, "Acceso denegado", flashMessages["forbidden"])
	case service.IsAuth(err):
		c.Redirect(http.StatusSeeOther, loginPath)
	default:
		_ = c.Error(err)
		h.renderError(c, http.StatusInternalServerError, "Error", "Ocurrió un error inesperado.")
	}
}

func (h HandlerSet) serviceNames(c *gin.Context) (map[int64]string, []models.Service, error) {
	services, err := h.catalogService.ListAll(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		return nil, nil, err
	}
	names := make(map[int64]string, len(services))
	for _, s := range services {
		names[s.ID] = s.Name
	}
	return names, services, nil
}

func (h HandlerSet) Dashboard(c *gin.Context) {
	names, _, err := h.serviceNames(c)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	appts, err := h.bookingService.Upcoming(c.Request.Context(), day, day.Add(24*time.Hour))
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	h.render(c, http.StatusOK, "dashboard.html", pageData{
		Title:        "Panel",
		Appointments: appts,
		ServiceNames: names,
	})
}

func (h HandlerSet) AdminAppointments(c *gin.Context) {
	names, _, err := h.serviceNames(c)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	filter := c.Query("status")
	appts, err := h.bookingService.List(c.Request.Context(), middleware.CurrentSession(c), service.ListFilter{Status: filter})
	if err != nil {
		if service.IsValidation(err) {
			redirectWithFlash(c, "/admin/appointments", "invalid_status")
			return
		}
		h.renderServiceError(c, err)
		return
	}

	message, errMessage := flashFrom(c)
	h.render(c, http.StatusOK, "appointments.html", pageData{
		Title:        "Citas",
		Message:      message,
		Error:        errMessage,
		Appointments: appts,
		ServiceNames: names,
		Statuses:     models.AppointmentStatuses,
		Filter:       filter,
	})
}

func (h HandlerSet) AdminSetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return
	}

	_, err := h.bookingService.SetStatus(c.Request.Context(), middleware.CurrentSession(c), id, c.PostForm("status"))
	switch {
	case err == nil:
		redirectWithFlash(c, "/admin/appointments", "status_updated")
	case service.IsValidation(err):
		redirectWithFlash(c, "/admin/appointments", "invalid_status")
	case errors.Is(err, service.ErrForbidden):
		redirectWithFlash(c, "/admin/appointments", "forbidden")
	default:
		h.renderServiceError(c, err)
	}
}

func (h HandlerSet) AdminServices(c *gin.Context) {
	_, services, err := h.serviceNames(c)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	message, errMessage := flashFrom(c)
	h.render(c, http.StatusOK, "services.html", pageData{
		Title:    "Servicios",
		Message:  message,
		Error:    errMessage,
		Services: services,
	})
}

func (h HandlerSet) AdminNewService(c *gin.Context) {
	h.render(c, http.StatusOK, "service_form.html", pageData{
		Title: "Agregar servicio",
		Mode:  "new",
		Form:  map[string]string{"active": "on"},
	})
}

func serviceFormInput(c *gin.Context) (service.ServiceInput, map[string]string) {
	form := map[string]string{
		"name":        c.PostForm("name"),
		"description": c.PostForm("description"),
		"price":       c.PostForm("price"),
		"active":      c.PostForm("active"),
	}
	return service.ServiceInput{
		Name:        form["name"],
		Description: form["description"],
		Price:       form["price"],
		Active:      form["active"] == "on",
	}, form
}

func (h HandlerSet) AdminCreateService(c *gin.Context) {
	input, form := serviceFormInput(c)
	_, err := h.catalogService.Create(c.Request.Context(), middleware.CurrentSession(c), input)
	if err != nil {
		h.renderServiceFormError(c, err, pageData{Title: "Agregar servicio", Mode: "new", Form: form})
		return
	}
	redirectWithFlash(c, "/admin/services", "service_saved")
}

func (h HandlerSet) AdminEditService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	svc, err := h.catalogService.Get(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	active := ""
	if svc.Active {
		active = "on"
	}
	h.render(c, http.StatusOK, "service_form.html", pageData{
		Title:   "Editar servicio",
		Mode:    "edit",
		Service: &svc,
		Form: map[string]string{
			"name":        svc.Name,
			"description": svc.Description,
			"price":       svc.Price.StringFixed(2),
			"active":      active,
		},
	})
}

func (h HandlerSet) AdminUpdateService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	input, form := serviceFormInput(c)
	_, err := h.catalogService.Update(c.Request.Context(), middleware.CurrentSession(c), id, input)
	if err != nil {
		h.renderServiceFormError(c, err, pageData{
			Title:   "Editar servicio",
			Mode:    "edit",
			Service: &models.Service{ID: id},
			Form:    form,
		})
		return
	}
	redirectWithFlash(c, "/admin/services", "service_saved")
}

func (h HandlerSet) AdminDeleteService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	err := h.catalogService.Delete(c.Request.Context(), middleware.CurrentSession(c), id)
	switch {
	case err == nil:
		redirectWithFlash(c, "/admin/services", "service_deleted")
	case service.IsConflict(err):
		redirectWithFlash(c, "/admin/services", "service_in_use")
	case errors.Is(err, service.ErrForbidden):
		redirectWithFlash(c, "/admin/services", "forbidden")
	default:
		h.renderServiceError(c, err)
	}
}

func (h HandlerSet) renderServiceFormError(c *gin.Context, err error, data pageData) {
	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		h.renderServiceError(c, err)
		return
	}
	data.Error = "Revisa el campo " + validation.Field + ": " + validation.Reason + "."
	h.render(c, http.StatusBadRequest, "service_form.html", data)
}

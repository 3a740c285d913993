package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

const bookedMessage = "¡Tu cita ha sido registrada exitosamente! Te contactaremos pronto."

func (h HandlerSet) Index(c *gin.Context) {
	services, err := h.catalogService.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list services for index")
	}
	h.render(c, http.StatusOK, "index.html", pageData{Services: services})
}

func (h HandlerSet) BookForm(c *gin.Context) {
	services, err := h.catalogService.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		h.renderError(c, http.StatusInternalServerError, "Error", "No se pudo cargar el catálogo de servicios.")
		return
	}
	h.render(c, http.StatusOK, "book.html", pageData{Title: "Agendar cita", Services: services})
}

func (h HandlerSet) Book(c *gin.Context) {
	ctx := c.Request.Context()
	input := service.BookingInput{
		Name:      c.PostForm("name"),
		Email:     c.PostForm("email"),
		Phone:     c.PostForm("phone"),
		ServiceID: c.PostForm("service_id"),
		DateTime:  c.PostForm("datetime"),
		Message:   c.PostForm("message"),
	}

	_, bookErr := h.bookingService.Create(ctx, input)

	services, err := h.catalogService.ListActive(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("list services for booking form")
	}

	data := pageData{Title: "Agendar cita", Services: services}
	if bookErr == nil {
		data.Message = bookedMessage
		h.render(c, http.StatusOK, "book.html", data)
		return
	}

	msg, status := bookingErrorMessage(bookErr)
	if status == http.StatusInternalServerError {
		_ = c.Error(bookErr)
	}
	data.Error = msg
	data.Form = map[string]string{
		"name":       input.Name,
		"email":      input.Email,
		"phone":      input.Phone,
		"service_id": input.ServiceID,
		"datetime":   input.DateTime,
		"message":    input.Message,
	}
	h.render(c, status, "book.html", data)
}

// bookingErrorMessage is the visitor-facing text for a failed booking.
func bookingErrorMessage(err error) (string, int) {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		switch {
		case validation.Reason == "missing field":
			return "Completa todos los campos.", http.StatusBadRequest
		case validation.Field == "datetime":
			return "Formato de fecha incorrecto.", http.StatusBadRequest
		case validation.Field == "service_id":
			return "Selecciona un servicio válido.", http.StatusBadRequest
		default:
			return "Revisa el campo " + validation.Field + ": " + validation.Reason + ".", http.StatusBadRequest
		}
	case errors.Is(err, service.ErrUnavailable):
		return "El sistema está ocupado en este momento. Inténtalo de nuevo en unos segundos.", http.StatusServiceUnavailable
	case service.IsConflict(err):
		return "Ya hay una cita agendada en esa hora. Por favor, elige otro horario.", http.StatusConflict
	case errors.As(err, &notFound):
		return "El servicio seleccionado no está disponible.", http.StatusBadRequest
	default:
		return "No se pudo registrar la cita. Inténtalo de nuevo más tarde.", http.StatusInternalServerError
	}
}

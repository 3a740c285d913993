package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Oswi777/Portal-Fisioterapia/internal/booking"
	"github.com/Oswi777/Portal-Fisioterapia/internal/middleware"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/service"
)

type serviceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Active      bool   `json:"active"`
}

func newServiceResponse(s models.Service) serviceResponse {
	return serviceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price.StringFixed(2),
		Active:      s.Active,
	}
}

func newServiceList(services []models.Service) []serviceResponse {
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, newServiceResponse(s))
	}
	return out
}

type appointmentResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	ServiceID  int64     `json:"service_id"`
	StartAt    string    `json:"datetime"`
	BlockStart string    `json:"block_start"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAppointmentResponse(a models.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		ServiceID:  a.ServiceID,
		StartAt:    a.StartAt.Format(booking.SlotLayout),
		BlockStart: a.BlockStart.Format(booking.SlotLayout),
		Message:    a.Message,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
	}
}

// looseString accepts a JSON string or number and keeps its textual form.
type looseString string

func (f *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = looseString(n.String())
	return nil
}

type bookingRequest struct {
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	ServiceID looseString `json:"service_id"`
	DateTime  string      `json:"datetime"`
	Message   string      `json:"message"`
}

func (h HandlerSet) APIListServices(c *gin.Context) {
	services, err := h.catalogService.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": newServiceList(services)})
}

func (h HandlerSet) APIAvailability(c *gin.Context) {
	availability, err := h.bookingService.Availability(c.Request.Context(), c.Query("datetime"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"block_start": availability.Block.Start.Format(booking.SlotLayout),
		"block_end":   availability.Block.End.Format(booking.SlotLayout),
		"available":   availability.Available,
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) APICreateAppointment(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}

	appt, err := h.bookingService.Create(c.Request.Context(), service.BookingInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		ServiceID: string(req.ServiceID),
		DateTime:  req.DateTime,
		Message:   req.Message,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAppointmentResponse(appt))
}

func (h HandlerSet) APIListAppointments(c *gin.Context) {
	filter := service.ListFilter{Status: c.Query("status")}

	var ok bool
	if filter.From, ok = queryTime(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryTime(c, "to"); !ok {
		return
	}
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, "offset"); !ok {
		return
	}

	appts, err := h.bookingService.List(c.Request.Context(), middleware.CurrentSession(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, newAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func (h HandlerSet) APIGetAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		badRequest(c, "id", "invalid id")
		return
	}
	appt, err := h.bookingService.Get(c.Request.Context(), middleware.CurrentSession(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) APISetAppointmentStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		badRequest(c, "id", "invalid id")
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status", "missing field")
		return
	}

	appt, err := h.bookingService.SetStatus(c.Request.Context(), middleware.CurrentSession(c), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}

// serviceRequest takes price as a decimal string such as "300.00"; numbers are accepted too.
type serviceRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       looseString `json:"price"`
	Active      *bool       `json:"active"`
}

func (r serviceRequest) input() service.ServiceInput {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return service.ServiceInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       string(r.Price),
		Active:      active,
	}
}

func (h HandlerSet) APIListAllServices(c *gin.Context) {
	services, err := h.catalogService.ListAll(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": newServiceList(services)})
}

func (h HandlerSet) APICreateService(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	svc, err := h.catalogService.Create(c.Request.Context(), middleware.CurrentSession(c), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newServiceResponse(svc))
}

func (h HandlerSet) APIUpdateService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		badRequest(c, "id", "invalid id")
		return
	}
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	svc, err := h.catalogService.Update(c.Request.Context(), middleware.CurrentSession(c), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newServiceResponse(svc))
}

func (h HandlerSet) APIDeleteService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		badRequest(c, "id", "invalid id")
		return
	}
	if err := h.catalogService.Delete(c.Request.Context(), middleware.CurrentSession(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// queryTime accepts RFC 3339 or the booking slot layout; an absent parameter is the zero time.
func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := booking.ParseSlot(raw); err == nil {
		return t, true
	}
	badRequest(c, name, "malformed datetime")
	return time.Time{}, false
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, name, "must be a non-negative integer")
		return 0, false
	}
	return n, true
}

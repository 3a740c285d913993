package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

// AppointmentView is the flattened appointment carried in stream tasks and rendered into mail.
type AppointmentView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name,omitempty"`
	StartAt     time.Time `json:"start_at"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
}

func NewAppointmentView(appt models.Appointment, svc models.Service) AppointmentView {
	return AppointmentView{
		ID:          appt.ID,
		Name:        appt.Name,
		Email:       appt.Email,
		Phone:       appt.Phone,
		ServiceID:   appt.ServiceID,
		ServiceName: svc.Name,
		StartAt:     appt.StartAt.UTC(),
		Message:     appt.Message,
		Status:      string(appt.Status),
	}
}

func viewsOf(appts []models.Appointment) []AppointmentView {
	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		views = append(views, NewAppointmentView(appt, models.Service{}))
	}
	return views
}

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"when": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}).Parse(`
{{define "new_appointment"}}Nueva cita registrada en FISIOLIFE:

Nombre: {{.Name}}
Email: {{.Email}}
Teléfono: {{.Phone}}
Fecha y hora: {{when .StartAt}}
Servicio: {{if .ServiceName}}{{.ServiceName}} ({{.ServiceID}}){{else}}{{.ServiceID}}{{end}}
{{- if .Message}}
Mensaje: {{.Message}}
{{- end}}
{{end}}
{{define "digest"}}Citas del {{.Day}} en FISIOLIFE: {{len .Appointments}}
{{range .Appointments}}
- {{when .StartAt}} {{.Name}} ({{.Phone}}) servicio {{.ServiceID}} [{{.Status}}]
{{- else}}
Sin citas programadas.
{{- end}}
{{end}}`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func NewAppointmentMessage(recipient string, view AppointmentView) (Message, error) {
	body, err := render("new_appointment", view)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{recipient}, Subject: "Nueva cita registrada", Body: body}, nil
}

func DigestMessage(recipient string, day string, views []AppointmentView) (Message, error) {
	body, err := render("digest", struct {
		Day          string
		Appointments []AppointmentView
	}{Day: day, Appointments: views})
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{recipient}, Subject: "Citas del día " + day, Body: body}, nil
}

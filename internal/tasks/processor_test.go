package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
)

type captureMailer struct {
	sent []notify.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg notify.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func message(t *testing.T, task notify.Task) redis.XMessage {
	t.Helper()
	values, err := task.Values()
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	return redis.XMessage{ID: "1-0", Values: values}
}

func TestProcessorSendsAppointmentMail(t *testing.T) {
	mailer := &captureMailer{}
	p := NewProcessor(mailer, "admin@x.com", zerolog.Nop())

	view := notify.AppointmentView{ID: 4, Name: "Ana", Email: "ana@x.com", Phone: "555", ServiceID: 3, StartAt: time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC)}
	if err := p.Handle(context.Background(), message(t, notify.Task{Type: notify.TaskAppointmentCreated, Appointment: &view})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 1 || !strings.Contains(mailer.sent[0].Body, "Ana") {
		t.Fatalf("unexpected mail %+v", mailer.sent)
	}
}

func TestProcessorSendsDigest(t *testing.T) {
	mailer := &captureMailer{}
	p := NewProcessor(mailer, "admin@x.com", zerolog.Nop())

	if err := p.Handle(context.Background(), message(t, notify.Task{Type: notify.TaskDigest, Day: "2025-09-01"})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 1 || !strings.Contains(mailer.sent[0].Subject, "2025-09-01") {
		t.Fatalf("unexpected digest %+v", mailer.sent)
	}
}

func TestProcessorReturnsSendErrorsForRetry(t *testing.T) {
	p := NewProcessor(&captureMailer{err: errors.New("smtp down")}, "admin@x.com", zerolog.Nop())

	view := notify.AppointmentView{ID: 4, Name: "Ana"}
	if err := p.Handle(context.Background(), message(t, notify.Task{Type: notify.TaskAppointmentCreated, Appointment: &view})); err == nil {
		t.Fatal("expected send error so the entry stays pending")
	}
}

func TestProcessorAcksGarbage(t *testing.T) {
	p := NewProcessor(&captureMailer{}, "admin@x.com", zerolog.Nop())
	if err := p.Handle(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"payload": "{"}}); err != nil {
		t.Fatalf("garbage should be dropped, got %v", err)
	}
	if err := p.Handle(context.Background(), message(t, notify.Task{Type: "unknown"})); err != nil {
		t.Fatalf("unknown types should be dropped, got %v", err)
	}
}

package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []Message
	err      error
	block    chan struct{}
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func sampleAppointment() (models.Appointment, models.Service) {
	return models.Appointment{
			ID:        1,
			Name:      "Ana",
			Email:     "ana@x.com",
			Phone:     "555",
			ServiceID: 3,
			StartAt:   time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC),
			Status:    models.AppointmentStatusPending,
		}, models.Service{
			ID:   3,
			Name: "Terapia Deportiva",
		}
}

func TestNewAppointmentMessage(t *testing.T) {
	appt, svc := sampleAppointment()
	msg, err := NewAppointmentMessage("admin@x.com", NewAppointmentView(appt, svc))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(msg.To) != 1 || msg.To[0] != "admin@x.com" {
		t.Fatalf("unexpected recipients %v", msg.To)
	}
	for _, want := range []string{"Ana", "ana@x.com", "555", "2025-09-01 09:30", "Terapia Deportiva"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestDispatcherSendsAndCounts(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, "admin@x.com", 4, 1, time.Second, zerolog.Nop())

	appt, svc := sampleAppointment()
	d.NotifyNewAppointment(context.Background(), appt, svc)
	d.NotifyDigest(context.Background(), appt.StartAt, []models.Appointment{appt})

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	stats := d.Stats()
	if stats.Queued != 2 || stats.Sent != 2 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(mailer.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(mailer.messages))
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d := NewDispatcher(mailer, "admin@x.com", 4, 1, time.Second, zerolog.Nop())

	appt, svc := sampleAppointment()
	d.NotifyNewAppointment(context.Background(), appt, svc)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if stats := d.Stats(); stats.Failed != 1 || stats.Sent != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDispatcherDropsWhenFullWithoutBlocking(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, "admin@x.com", 1, 1, time.Second, zerolog.Nop())

	appt, svc := sampleAppointment()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.NotifyNewAppointment(context.Background(), appt, svc)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notify blocked the caller")
	}

	close(mailer.block)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	stats := d.Stats()
	if stats.Dropped == 0 {
		t.Fatalf("expected drops, got %+v", stats)
	}
	if stats.Queued+stats.Dropped != 5 {
		t.Fatalf("every notification must be queued or dropped, got %+v", stats)
	}
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingMailer{}, "admin@x.com", 1, 1, time.Second, zerolog.Nop())
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	appt, svc := sampleAppointment()
	d.NotifyNewAppointment(context.Background(), appt, svc)
	if stats := d.Stats(); stats.Dropped != 1 {
		t.Fatalf("expected 1 drop, got %+v", stats)
	}
}

func TestTaskValuesRoundTrip(t *testing.T) {
	appt, svc := sampleAppointment()
	view := NewAppointmentView(appt, svc)
	values, err := Task{Type: TaskAppointmentCreated, Appointment: &view}.Values()
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	task, err := DecodeTask(values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Type != TaskAppointmentCreated || task.Appointment == nil || task.Appointment.Name != "Ana" {
		t.Fatalf("unexpected task %+v", task)
	}
	if _, err := DecodeTask(map[string]any{"type": "x"}); err == nil {
		t.Fatal("expected error for missing payload")
	}
}

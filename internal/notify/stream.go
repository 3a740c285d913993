package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/telemetry"
)

const (
	TaskAppointmentCreated = "appointment.created"
	TaskDigest             = "appointment.digest"
)

// Task is the stream entry consumed by the worker. Values are flat strings on the wire.
type Task struct {
	Type         string            `json:"type"`
	Appointment  *AppointmentView  `json:"appointment,omitempty"`
	Day          string            `json:"day,omitempty"`
	Appointments []AppointmentView `json:"appointments,omitempty"`
	// Trace carries the W3C trace headers of the request that produced the task.
	Trace map[string]string `json:"trace,omitempty"`
}

func (t Task) Values() (map[string]any, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": t.Type, "payload": string(payload)}, nil
}

func DecodeTask(values map[string]any) (Task, error) {
	raw, ok := values["payload"].(string)
	if !ok {
		return Task{}, fmt.Errorf("missing payload field")
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// StreamNotifier hands notifications to the worker through a redis stream.
type StreamNotifier struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
	logger  zerolog.Logger

	queued atomic.Uint64
	failed atomic.Uint64
}

func NewStreamNotifier(client *redis.Client, stream string, logger zerolog.Logger) *StreamNotifier {
	return &StreamNotifier{
		client:  client,
		stream:  stream,
		timeout: 3 * time.Second,
		logger:  logger.With().Str("component", "notify").Str("stream", stream).Logger(),
	}
}

func (n *StreamNotifier) NotifyNewAppointment(ctx context.Context, appt models.Appointment, svc models.Service) {
	view := NewAppointmentView(appt, svc)
	n.publish(ctx, Task{Type: TaskAppointmentCreated, Appointment: &view})
}

func (n *StreamNotifier) NotifyDigest(ctx context.Context, day time.Time, appts []models.Appointment) {
	n.publish(ctx, Task{Type: TaskDigest, Day: day.Format("2006-01-02"), Appointments: viewsOf(appts)})
}

func (n *StreamNotifier) publish(ctx context.Context, task Task) {
	task.Trace = telemetry.Inject(ctx)
	values, err := task.Values()
	if err != nil {
		n.failed.Add(1)
		n.logger.Error().Err(err).Str("type", task.Type).Msg("encode task failed")
		return
	}

	// The request context may already be finishing; publishing gets its own deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.client.XAdd(pubCtx, &redis.XAddArgs{
		Stream: n.stream,
		Values: values,
	}).Err(); err != nil {
		n.failed.Add(1)
		n.logger.Warn().Err(err).Str("type", task.Type).Msg("publish notification failed")
		return
	}
	n.queued.Add(1)
}

func (n *StreamNotifier) Stats() Stats {
	return Stats{Queued: n.queued.Load(), Failed: n.failed.Load()}
}

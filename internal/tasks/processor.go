package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
	"github.com/Oswi777/Portal-Fisioterapia/internal/telemetry"
)

// Processor turns notification tasks from the stream into mail.
type Processor struct {
	mailer    notify.Mailer
	recipient string
	logger    zerolog.Logger
}

func NewProcessor(mailer notify.Mailer, recipient string, logger zerolog.Logger) *Processor {
	return &Processor{
		mailer:    mailer,
		recipient: recipient,
		logger:    logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := notify.DecodeTask(msg.Values)
	if err != nil {
		// A malformed entry will never decode; ack it instead of retrying forever.
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping undecodable task")
		return nil
	}

	ctx, span := otel.Tracer("fisiolife/worker").Start(telemetry.Extract(ctx, task.Trace), "notify "+task.Type,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.message.id", msg.ID)),
	)
	defer span.End()

	switch task.Type {
	case notify.TaskAppointmentCreated:
		return p.handleCreated(ctx, task)
	case notify.TaskDigest:
		return p.handleDigest(ctx, task)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleCreated(ctx context.Context, task notify.Task) error {
	if task.Appointment == nil {
		p.logger.Warn().Msg("appointment task without appointment")
		return nil
	}
	msg, err := notify.NewAppointmentMessage(p.recipient, *task.Appointment)
	if err != nil {
		return err
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send appointment %d: %w", task.Appointment.ID, err)
	}
	p.logger.Info().Int64("appointment_id", task.Appointment.ID).Msg("appointment notification sent")
	return nil
}

func (p *Processor) handleDigest(ctx context.Context, task notify.Task) error {
	msg, err := notify.DigestMessage(p.recipient, task.Day, task.Appointments)
	if err != nil {
		return err
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send digest %s: %w", task.Day, err)
	}
	p.logger.Info().Str("day", task.Day).Int("appointments", len(task.Appointments)).Msg("digest sent")
	return nil
}

package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

// Dispatcher sends mail from a bounded in-process queue. A full or closed queue drops the message.
type Dispatcher struct {
	mailer      Mailer
	recipient   string
	sendTimeout time.Duration
	logger      zerolog.Logger

	jobs   chan Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	queued  atomic.Uint64
	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

func NewDispatcher(mailer Mailer, recipient string, queueSize, workers int, sendTimeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}

	d := &Dispatcher{
		mailer:      mailer,
		recipient:   recipient,
		sendTimeout: sendTimeout,
		logger:      logger.With().Str("component", "notify").Logger(),
		jobs:        make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) NotifyNewAppointment(_ context.Context, appt models.Appointment, svc models.Service) {
	msg, err := NewAppointmentMessage(d.recipient, NewAppointmentView(appt, svc))
	if err != nil {
		d.failed.Add(1)
		d.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("build notification failed")
		return
	}
	d.enqueue(msg)
}

func (d *Dispatcher) NotifyDigest(_ context.Context, day time.Time, appts []models.Appointment) {
	msg, err := DigestMessage(d.recipient, day.Format("2006-01-02"), viewsOf(appts))
	if err != nil {
		d.failed.Add(1)
		d.logger.Error().Err(err).Msg("build digest failed")
		return
	}
	d.enqueue(msg)
}

func (d *Dispatcher) enqueue(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn().Str("subject", msg.Subject).Msg("dispatcher closed, notification dropped")
		return
	}

	select {
	case d.jobs <- msg:
		d.queued.Add(1)
	default:
		d.dropped.Add(1)
		d.logger.Warn().Str("subject", msg.Subject).Msg("notification queue full, dropped")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := d.mailer.Send(ctx, msg)
		cancel()
		if err != nil {
			d.failed.Add(1)
			d.logger.Error().Err(err).Str("subject", msg.Subject).Msg("send notification failed")
			continue
		}
		d.sent.Add(1)
		d.logger.Debug().Str("subject", msg.Subject).Msg("notification sent")
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:  d.queued.Load(),
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}

// Close stops accepting messages and waits for queued ones to be sent or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/notify"
)

type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type AppointmentLister interface {
	Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

// Scheduler runs housekeeping on cron specs with a seconds field. Jobs never change appointments.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.JobsConfig
	sessions SessionPurger
	bookings AppointmentLister
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time
	timeout  time.Duration
}

func NewScheduler(cfg config.JobsConfig, sessions SessionPurger, bookings AppointmentLister, notifier notify.Notifier, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		cfg:      cfg,
		sessions: sessions,
		bookings: bookings,
		notifier: notifier,
		log:      log.With().Str("component", "jobs").Logger(),
		now:      time.Now,
		timeout:  time.Minute,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.PurgeSpec, s.run("purge_sessions", s.PurgeSessions)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.DigestSpec, s.run("daily_digest", s.SendDigest)); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("purge", s.cfg.PurgeSpec).Str("digest", s.cfg.DigestSpec).Msg("scheduler started")
	return nil
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	}
}

func (s *Scheduler) PurgeSessions(ctx context.Context) error {
	purged, err := s.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Msg("expired sessions purged")
	}
	return nil
}

// SendDigest mails the current UTC day's appointments to the clinic.
func (s *Scheduler) SendDigest(ctx context.Context) error {
	day := s.now().UTC().Truncate(24 * time.Hour)
	appts, err := s.bookings.Upcoming(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return err
	}
	s.notifier.NotifyDigest(ctx, day, appts)
	return nil
}

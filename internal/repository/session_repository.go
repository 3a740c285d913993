package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/database"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	db database.Querier
}

func NewSessionRepository(db database.Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			id, user_id, ip_address, user_agent, created_at, last_seen_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $5, $6
		)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt.UTC(),
		session.ExpiresAt.UTC(),
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	const query = `
		SELECT id, user_id, ip_address, user_agent, created_at, last_seen_at, expires_at
		FROM user_sessions
		WHERE id = $1
	`

	var session models.Session
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastSeenAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	affected, err := r.db.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now and reports how many went.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now.UTC())
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time, ip string, userAgent string) error {
	const query = `
		UPDATE user_sessions
		SET last_seen_at = $2,
		    ip_address = COALESCE(NULLIF($3, ''), ip_address),
		    user_agent = COALESCE(NULLIF($4, ''), user_agent)
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, sessionID, at.UTC(), ip, userAgent)
	return err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Oswi777/Portal-Fisioterapia/internal/config"
	"github.com/Oswi777/Portal-Fisioterapia/internal/ids"
	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
	"github.com/Oswi777/Portal-Fisioterapia/internal/security"
)

// touchInterval limits how often an active session's last_seen_at is rewritten.
const touchInterval = time.Minute

type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	Token   string
	Session Session
}

// Authenticate never says whether the email or the password was wrong.
func (s *AuthService) Authenticate(ctx context.Context, email string, password string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
		return models.User{}, ErrInvalidCredentials
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now().UTC()
	session := models.Session{
		ID:        ids.New(),
		UserID:    user.ID,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Security.SessionTTL),
	}

	token, err := security.GenerateSessionToken(
		s.cfg.Security.SecretKey,
		user.ID,
		session.ID,
		string(user.Role),
		now,
		s.cfg.Security.SessionTTL,
	)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("session_id", session.ID).Msg("user logged in")

	return LoginResult{
		Token:   token,
		Session: Session{ID: session.ID, User: user, ExpiresAt: session.ExpiresAt},
	}, nil
}

// Resolve turns a session token into the caller's Session. Any failure is ErrNotAuthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string, ip string, userAgent string) (*Session, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	claims, err := security.ParseSessionToken(token, s.cfg.Security.SecretKey)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	stored, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	if stored.UserID != claims.UserID {
		return nil, ErrNotAuthenticated
	}

	now := s.now().UTC()
	if !stored.ExpiresAt.After(now) {
		_ = s.sessions.DeleteByID(ctx, stored.ID)
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	if now.Sub(stored.LastSeenAt) >= touchInterval {
		if err := s.sessions.Touch(ctx, stored.ID, now, ip, userAgent); err != nil {
			s.log.Warn().Err(err).Str("session_id", stored.ID).Msg("touch session failed")
		}
	}

	return &Session{ID: stored.ID, User: user, ExpiresAt: stored.ExpiresAt}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadtracker_backend/internal/auth/password"
	"leadtracker_backend/internal/auth/repository"
	"leadtracker_backend/internal/auth/token"
	"leadtracker_backend/internal/auth/transport"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/httpkit"
	"leadtracker_backend/platform/logger"

	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrTokenExpired = errors.New("token expired")
var ErrTokenInvalid = errors.New("token invalid")

type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, log: log, now: time.Now}
}

// SignUp creates an account with role user.
func (s *Service) SignUp(ctx context.Context, email, plainPassword, fullName string) (transport.User, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return transport.User{}, err
	}

	user, err := s.repo.CreateUser(ctx, email, hash, strings.TrimSpace(fullName))
	if errors.Is(err, repository.ErrEmailTaken) {
		s.log.AuthEvent("sign_up", email, false, "email taken")
		return transport.User{}, apperr.New(apperr.KindConflict, repository.ErrEmailTaken.Error())
	}
	if err != nil {
		return transport.User{}, err
	}

	s.log.AuthEvent("sign_up", user.Email, true, "")
	return toUser(user), nil
}

// SignInWithPassword checks the credentials and issues a session.
func (s *Service) SignInWithPassword(ctx context.Context, email, plainPassword string) (transport.Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown account")
		return transport.Session{}, apperr.Unauthorized(ErrInvalidCredentials.Error())
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return transport.Session{}, apperr.Unauthorized(ErrInvalidCredentials.Error())
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return transport.Session{}, err
	}

	s.log.AuthEvent("sign_in", user.Email, true, "")
	s.publish(ctx, events.SignedIn, session.User)
	return session, nil
}

// Refresh rotates a refresh token into a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (transport.Session, error) {
	hash := token.Hash(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return transport.Session{}, apperr.Unauthorized(ErrTokenInvalid.Error())
	}

	_ = s.repo.RevokeRefreshToken(ctx, hash)
	if s.now().After(expiresAt) {
		return transport.Session{}, apperr.Unauthorized(ErrTokenExpired.Error())
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return transport.Session{}, apperr.Unauthorized(ErrTokenInvalid.Error())
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return transport.Session{}, err
	}

	s.publish(ctx, events.TokenRefreshed, session.User)
	return session, nil
}

// SignOut revokes the refresh token and announces the sign-out. Unknown
// tokens still sign the caller out.
func (s *Service) SignOut(ctx context.Context, userID, refreshToken string) error {
	if refreshToken != "" {
		if err := s.repo.RevokeRefreshToken(ctx, token.Hash(refreshToken)); err != nil {
			return err
		}
	}

	user := transport.User{ID: userID}
	if id, err := uuid.Parse(userID); err == nil {
		if found, err := s.repo.GetUserByID(ctx, id); err == nil {
			user = toUser(found)
		}
	}

	s.log.AuthEvent("sign_out", user.Email, true, "")
	s.publish(ctx, events.SignedOut, user)
	return nil
}

// GetSession confirms that userID still belongs to an account.
func (s *Service) GetSession(ctx context.Context, userID string) (transport.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return transport.User{}, apperr.Unauthorized("no session")
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.User{}, apperr.Unauthorized("no session")
	}
	if err != nil {
		return transport.User{}, apperr.Remote("session lookup failed", err)
	}
	return toUser(user), nil
}

// OnAuthStateChange registers fn for every auth state change.
func (s *Service) OnAuthStateChange(fn func(ctx context.Context, e events.AuthStateChanged) error) {
	s.bus.Subscribe(events.AuthStateChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AuthStateChanged)
		if !ok {
			return nil
		}
		return fn(ctx, e)
	}))
}

func (s *Service) publish(ctx context.Context, change events.AuthChange, user transport.User) {
	err := s.bus.PublishSync(ctx, events.AuthStateChanged{
		BaseEvent: events.NewBaseEvent(),
		Change:    change,
		UserID:    user.ID,
		Email:     user.Email,
	})
	if err != nil {
		s.log.Error("auth state handler failed", "change", string(change), "error", err)
	}
}

func (s *Service) issueSession(ctx context.Context, user repository.User) (transport.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.GetAccessTokenTTL())
	accessToken, err := s.signJWT(user, now, expiresAt)
	if err != nil {
		return transport.Session{}, err
	}

	refresh, err := token.NewRefresh()
	if err != nil {
		return transport.Session{}, err
	}
	if err := s.repo.CreateRefreshToken(ctx, user.ID, refresh.Hash, now.Add(s.cfg.GetRefreshTokenTTL())); err != nil {
		return transport.Session{}, err
	}

	return transport.Session{
		AccessToken:  accessToken,
		RefreshToken: refresh.Raw,
		ExpiresAt:    expiresAt,
		User:         toUser(user),
	}, nil
}

func (s *Service) signJWT(user repository.User, issuedAt, expiresAt time.Time) (string, error) {
	return httpkit.SignAccessToken(s.cfg.GetJWTAccessSecret(), user.ID, user.Email, issuedAt, expiresAt)
}

func toUser(user repository.User) transport.User {
	return transport.User{ID: user.ID.String(), Email: user.Email, FullName: user.FullName}
}

var _ transport.SessionVerifier = (*Service)(nil)

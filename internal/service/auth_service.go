package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/domain"
	"github.com/spec-kit/order-tagger/internal/events"
	"github.com/spec-kit/order-tagger/internal/observability"
	"github.com/spec-kit/order-tagger/internal/repository"
	"github.com/spec-kit/order-tagger/internal/session"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionUnavailable wraps failures to create or store a session.
	ErrSessionUnavailable = errors.New("session unavailable")
)

// AuthService coordinates password login, logout and account provisioning.
type AuthService struct {
	users      repository.UserRepository
	sessions   *session.Manager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the password flow.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Sessions   *session.Manager
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.Named("auth"),
		bcryptCost: cfg.BcryptCost,
	}
}

// CreateUser provisions a dashboard account.
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username required")
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a username and password and returns a persisted
// session. Any session under currentSessionID is destroyed.
func (s *AuthService) Login(ctx context.Context, username, password, currentSessionID string) (*session.Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		auth.BurnPasswordCheck(password)
		return nil, s.reject(ctx, username)
	}
	if err != nil {
		s.metrics.RecordPasswordLogin("error")
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.reject(ctx, username)
	}

	sess, err := s.sessions.New(user, false)
	if err == nil {
		sess, err = s.sessions.Regenerate(ctx, sess, currentSessionID)
	}
	if err == nil {
		err = s.sessions.Persist(ctx, sess)
	}
	if err != nil {
		s.metrics.RecordPasswordLogin("error")
		s.logger.Error("password login session failure", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	s.metrics.RecordPasswordLogin("success")
	s.logger.Info("password login", zap.Int64("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventPasswordLogin, actorFor(user, domain.LoginMethodPassword), nil))
	return sess, nil
}

// Logout destroys the session identified by sessionID.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	existing, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return err
	}
	if existing != nil {
		userID := existing.UserID
		s.publish(ctx, events.NewEvent(events.EventLogout, events.Actor{UserID: &userID, Username: existing.Username}, nil))
	}
	return nil
}

func (s *AuthService) reject(ctx context.Context, username string) error {
	s.metrics.RecordPasswordLogin("rejected")
	s.publish(ctx, events.NewEvent(events.EventPasswordRejected, events.Actor{Method: domain.LoginMethodPassword}, events.PasswordRejectedPayload{
		Username: username,
	}))
	return ErrInvalidCredentials
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

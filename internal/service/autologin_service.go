package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/domain"
	"github.com/spec-kit/order-tagger/internal/events"
	"github.com/spec-kit/order-tagger/internal/observability"
	"github.com/spec-kit/order-tagger/internal/repository"
	"github.com/spec-kit/order-tagger/internal/session"
	apperrors "github.com/spec-kit/order-tagger/pkg/util"
)

// AutoLoginState names a step of session establishment from a credential.
type AutoLoginState string

const (
	StateStart                AutoLoginState = "START"
	StateTokenPresent         AutoLoginState = "TOKEN_PRESENT"
	StateVerified             AutoLoginState = "VERIFIED"
	StateUserFound            AutoLoginState = "USER_FOUND"
	StateSessionCreated       AutoLoginState = "SESSION_CREATED"
	StateSessionRegenerated   AutoLoginState = "SESSION_REGENERATED"
	StateComplete             AutoLoginState = "COMPLETE"
	StateAlreadyAuthenticated AutoLoginState = "ALREADY_AUTHENTICATED"
	StateErrorRedirect        AutoLoginState = "ERROR_REDIRECT"
)

// AutoLoginRequest is the input of one auto-login attempt.
type AutoLoginRequest struct {
	Token            string
	CurrentSessionID string
}

// AutoLoginResult is the terminal state of an attempt. Session is the new
// session on COMPLETE and the caller's existing one on ALREADY_AUTHENTICATED.
type AutoLoginResult struct {
	State    AutoLoginState
	FailedAt AutoLoginState
	Code     apperrors.LoginErrorCode
	Session  *session.Session
	Claims   *auth.Claims
}

// Succeeded reports whether the caller ends up authenticated.
func (r AutoLoginResult) Succeeded() bool {
	return r.State == StateComplete || r.State == StateAlreadyAuthenticated
}

// AutoLoginService turns a cross-application credential into a local session.
type AutoLoginService struct {
	verifier   *auth.Verifier
	users      repository.UserRepository
	sessions   *session.Manager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AutoLoginDependencies encapsulates collaborators of the auto-login flow.
type AutoLoginDependencies struct {
	Verifier   *auth.Verifier
	UserRepo   repository.UserRepository
	Sessions   *session.Manager
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAutoLoginService builds the service.
func NewAutoLoginService(deps AutoLoginDependencies) *AutoLoginService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoLoginService{
		verifier:   deps.Verifier,
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.Named("autologin"),
	}
}

// Establish runs the state machine to completion. It never returns an error:
// every failure ends in StateErrorRedirect with a public code.
func (s *AutoLoginService) Establish(ctx context.Context, req AutoLoginRequest) (result AutoLoginResult) {
	state := StateStart
	defer func() {
		if r := recover(); r != nil {
			result = s.fail(ctx, state, apperrors.LoginErrSystemError, req.Token, fmt.Errorf("panic: %v", r))
		}
	}()

	// An authenticated caller is sent straight on; the token is not inspected.
	if req.CurrentSessionID != "" {
		existing, err := s.sessions.Lookup(ctx, req.CurrentSessionID)
		switch {
		case err == nil:
			return s.skip(ctx, existing, req.Token != "")
		case !errors.Is(err, session.ErrNotFound):
			return s.fail(ctx, state, apperrors.LoginErrSystemError, req.Token, fmt.Errorf("lookup current session: %w", err))
		}
	}
	if req.Token == "" {
		return s.fail(ctx, state, apperrors.LoginErrMissingToken, "", nil)
	}

	state = StateTokenPresent
	claims, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		return s.failVerification(ctx, state, req.Token, err)
	}

	state = StateVerified
	// Burned before anything else can fail: a half-used token must not be
	// presentable again.
	if err := s.verifier.Consume(ctx, req.Token, claims); err != nil {
		return s.failVerification(ctx, state, req.Token, err)
	}
	user, err := s.findUser(ctx, claims.Identity())
	if errors.Is(err, repository.ErrUserNotFound) {
		return s.fail(ctx, state, apperrors.LoginErrUserNotFound, req.Token, err)
	}
	if err != nil {
		return s.fail(ctx, state, apperrors.LoginErrSystemError, req.Token, err)
	}

	state = StateUserFound
	sess, err := s.sessions.New(user, true)
	if err != nil {
		return s.fail(ctx, state, apperrors.LoginErrSessionError, req.Token, err)
	}

	state = StateSessionCreated
	sess, err = s.sessions.Regenerate(ctx, sess, req.CurrentSessionID)
	if err != nil {
		return s.fail(ctx, state, apperrors.LoginErrSessionError, req.Token, err)
	}

	state = StateSessionRegenerated
	if err := s.sessions.Persist(ctx, sess); err != nil {
		return s.fail(ctx, state, apperrors.LoginErrSessionError, req.Token, err)
	}

	tokenRef := auth.Fingerprint(req.Token)
	s.logger.Info("auto-login complete",
		zap.Int64("user_id", user.ID),
		zap.String("issuer_tag", claims.IssuerTag),
		observability.TokenRef(tokenRef),
	)
	s.metrics.RecordAutoLogin("success")
	s.publish(ctx, events.NewEvent(events.EventAutoLoginSucceeded, actorFor(user, domain.LoginMethodAutoLogin), events.AutoLoginSucceededPayload{
		IssuerTag: claims.IssuerTag,
		TokenRef:  shortRef(tokenRef),
	}))

	return AutoLoginResult{State: StateComplete, Session: sess, Claims: claims}
}

func (s *AutoLoginService) findUser(ctx context.Context, subject auth.Subject) (*domain.User, error) {
	if subject.ID != 0 {
		user, err := s.users.GetByID(ctx, subject.ID)
		if err == nil || !errors.Is(err, repository.ErrUserNotFound) {
			return user, err
		}
	}
	if subject.Name != "" {
		return s.users.GetByUsername(ctx, subject.Name)
	}
	return nil, repository.ErrUserNotFound
}

func (s *AutoLoginService) skip(ctx context.Context, existing *session.Session, tokenIgnored bool) AutoLoginResult {
	s.logger.Info("auto-login skipped; caller already authenticated",
		zap.Int64("user_id", existing.UserID),
		zap.Bool("token_ignored", tokenIgnored),
	)
	s.metrics.RecordAutoLogin("already_authenticated")
	userID := existing.UserID
	s.publish(ctx, events.NewEvent(events.EventAutoLoginSkipped, events.Actor{UserID: &userID, Username: existing.Username}, events.AutoLoginSkippedPayload{
		SessionUserID: existing.UserID,
	}))
	return AutoLoginResult{State: StateAlreadyAuthenticated, Session: existing}
}

func (s *AutoLoginService) failVerification(ctx context.Context, state AutoLoginState, token string, err error) AutoLoginResult {
	kind := auth.KindOf(err)
	if kind == auth.FailureUnknown {
		return s.fail(ctx, state, apperrors.LoginErrSystemError, token, err)
	}
	s.metrics.RecordCredentialRejection(kind.String())
	return s.fail(ctx, state, apperrors.LoginErrInvalidToken, token, err)
}

func (s *AutoLoginService) fail(ctx context.Context, state AutoLoginState, code apperrors.LoginErrorCode, token string, cause error) AutoLoginResult {
	fields := []zap.Field{
		zap.String("state", string(state)),
		zap.String("code", string(code)),
	}
	reason := ""
	if kind := auth.KindOf(cause); kind != auth.FailureUnknown {
		reason = kind.String()
		fields = append(fields, zap.String("kind", reason))
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	tokenRef := ""
	if token != "" {
		tokenRef = shortRef(auth.Fingerprint(token))
		fields = append(fields, observability.TokenRef(tokenRef))
	}

	switch code {
	case apperrors.LoginErrSystemError, apperrors.LoginErrSessionError:
		s.logger.Error("auto-login failed", fields...)
	default:
		s.logger.Warn("auto-login rejected", fields...)
	}

	s.metrics.RecordAutoLogin(string(code))
	s.publish(ctx, events.NewEvent(events.EventAutoLoginRejected, events.Actor{Method: domain.LoginMethodAutoLogin}, events.AutoLoginRejectedPayload{
		Code:     string(code),
		Reason:   reason,
		State:    string(state),
		TokenRef: tokenRef,
	}))

	return AutoLoginResult{State: StateErrorRedirect, FailedAt: state, Code: code}
}

func (s *AutoLoginService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func actorFor(user *domain.User, method domain.LoginMethod) events.Actor {
	id := user.ID
	return events.Actor{UserID: &id, Username: user.Username, Method: method}
}

func shortRef(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}

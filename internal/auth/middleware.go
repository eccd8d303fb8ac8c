package auth

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/order-tagger/internal/session"
)

const sessionKey = "auth_session"

// SessionMiddleware resolves the session cookie into the request locals.
type SessionMiddleware struct {
	sessions   *session.Manager
	cookieName string
	loginPath  string
	logger     *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(sessions *session.Manager, cookieName, loginPath string, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{sessions: sessions, cookieName: cookieName, loginPath: loginPath, logger: logger}
}

// Load attaches the caller's live session, if any. It never rejects a request.
func (m *SessionMiddleware) Load(c *fiber.Ctx) error {
	id := c.Cookies(m.cookieName)
	if id == "" {
		return c.Next()
	}
	sess, err := m.sessions.Lookup(c.UserContext(), id)
	switch {
	case err == nil:
		c.Locals(sessionKey, sess)
	case !errors.Is(err, session.ErrNotFound):
		m.logger.Warn("session lookup failed", zap.Error(err))
	}
	return c.Next()
}

// RequireSession redirects anonymous callers to the login route.
func (m *SessionMiddleware) RequireSession(c *fiber.Ctx) error {
	if _, ok := SessionFromContext(c); !ok {
		return c.Redirect(m.loginPath+"?next="+url.QueryEscape(c.Path()), fiber.StatusFound)
	}
	return c.Next()
}

// CookieName returns the name of the session cookie.
func (m *SessionMiddleware) CookieName() string {
	return m.cookieName
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*session.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	sess, ok := val.(*session.Session)
	return sess, ok
}

package dto

import (
	"time"

	"github.com/spec-kit/order-tagger/internal/session"
)

// LoginRequest payload for password login. Accepted as JSON or form data.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginError is a public login failure reason.
type LoginError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LoginPageResponse describes the login route to a browser client.
type LoginPageResponse struct {
	Error   *LoginError `json:"error,omitempty"`
	Methods []string    `json:"methods"`
}

// SessionResponse exposes the caller's session without its identifier.
type SessionResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	AutoLogin bool      `json:"auto_login"`
	LoginTime time.Time `json:"login_time"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionResponse maps a session onto its public view.
func NewSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		UserID:    s.UserID,
		Username:  s.Username,
		AutoLogin: s.AutoLogin,
		LoginTime: s.LoginTime,
		ExpiresAt: s.ExpiresAt,
	}
}

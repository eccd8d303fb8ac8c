package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/order-tagger/internal/domain"
)

const idBytes = 32

// Manager creates, rotates and destroys sessions on top of a Store. It hands
// back session values instead of mutating request state, so callers decide
// when a session becomes visible to the browser.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	newID func() (string, error)
}

// NewManager builds a manager. A nil clock uses time.Now.
func NewManager(store Store, ttl time.Duration, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, ttl: ttl, now: now, newID: randomID}
}

// TTL returns the fixed session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// New returns an unpersisted session for user.
func (m *Manager) New(user *domain.User, autoLogin bool) (*Session, error) {
	if user == nil {
		return nil, errors.New("session requires a user")
	}
	id, err := m.newID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := m.now()
	return &Session{
		ID:        id,
		UserID:    user.ID,
		Username:  user.Username,
		AutoLogin: autoLogin,
		LoginTime: now,
		ExpiresAt: now.Add(m.ttl),
	}, nil
}

// Regenerate returns a copy of s under a fresh identifier. Any state stored
// under s.ID or previousID (for example a cookie planted before login) is destroyed.
func (m *Manager) Regenerate(ctx context.Context, s *Session, previousID string) (*Session, error) {
	id, err := m.newID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	for _, stale := range []string{s.ID, previousID} {
		if stale == "" || stale == id {
			continue
		}
		if err := m.store.Delete(ctx, stale); err != nil {
			return nil, fmt.Errorf("destroy previous session: %w", err)
		}
	}
	next := *s
	next.ID = id
	return &next, nil
}

// Persist writes s to the store.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	return m.store.Save(ctx, s)
}

// Lookup returns the live session for id.
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return m.store.Get(ctx, id)
}

// Destroy removes the session for id; unknown ids are ignored.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

func randomID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

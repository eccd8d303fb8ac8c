package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/events"
	"github.com/spec-kit/order-tagger/internal/repository"
	"github.com/spec-kit/order-tagger/internal/session"
)

func TestLoginCreatesPasswordSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, 1, "alice")

	sess, err := f.auth.Login(ctx, "alice", "correct horse battery", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.UserID)
	assert.False(t, sess.AutoLogin)

	stored, err := f.sessions.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username)
	assert.Equal(t, float64(1), counterValue(f.metrics.PasswordLogins, "success"))
	assert.Equal(t, []events.EventType{events.EventPasswordLogin}, f.recorder.types())
}

func TestLoginRotatesPreviousSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, 1, "alice")

	first, err := f.auth.Login(ctx, "alice", "correct horse battery", "")
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, "alice", "correct horse battery", first.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	_, err = f.sessions.Lookup(ctx, first.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, 1, "alice")

	_, err := f.auth.Login(ctx, "alice", "wrong password!", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "mallory", "correct horse battery", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, float64(2), counterValue(f.metrics.PasswordLogins, "rejected"))
	assert.Equal(t, []events.EventType{events.EventPasswordRejected, events.EventPasswordRejected}, f.recorder.types())
}

func TestLoginSessionFailure(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 1, "alice")
	f.store.failSave = true

	_, err := f.auth.Login(context.Background(), "alice", "correct horse battery", "")
	assert.ErrorIs(t, err, ErrSessionUnavailable)
}

func TestLogoutDestroysSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, 1, "alice")

	sess, err := f.auth.Login(ctx, "alice", "correct horse battery", "")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, sess.ID))
	_, err = f.sessions.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Contains(t, f.recorder.types(), events.EventLogout)

	assert.NoError(t, f.auth.Logout(ctx, "unknown"))
	assert.NoError(t, f.auth.Logout(ctx, ""))
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.auth.CreateUser(ctx, "  carol ", "long enough password")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "long enough password"))

	_, err = f.auth.CreateUser(ctx, "carol", "long enough password")
	assert.ErrorIs(t, err, repository.ErrUsernameExists)

	_, err = f.auth.CreateUser(ctx, "dave", "short")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/domain"
	"github.com/spec-kit/order-tagger/internal/events"
	"github.com/spec-kit/order-tagger/internal/observability"
	"github.com/spec-kit/order-tagger/internal/repository"
	"github.com/spec-kit/order-tagger/internal/session"
)

var errStoreDown = errors.New("store down")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore wraps a MemoryStore and fails selected operations on demand.
type flakyStore struct {
	*session.MemoryStore
	failGet    bool
	failSave   bool
	failDelete bool
}

func (s *flakyStore) Get(ctx context.Context, id string) (*session.Session, error) {
	if s.failGet {
		return nil, errStoreDown
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *flakyStore) Save(ctx context.Context, sess *session.Session) error {
	if s.failSave {
		return errStoreDown
	}
	return s.MemoryStore.Save(ctx, sess)
}

func (s *flakyStore) Delete(ctx context.Context, id string) error {
	if s.failDelete {
		return errStoreDown
	}
	return s.MemoryStore.Delete(ctx, id)
}

// brokenUsers fails every lookup with an infrastructure error.
type brokenUsers struct{}

func (brokenUsers) Create(context.Context, *domain.User) error { return errStoreDown }

func (brokenUsers) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, errStoreDown
}

func (brokenUsers) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, errStoreDown
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	clock     *testClock
	codec     *auth.Codec
	verifier  *auth.Verifier
	guard     *auth.MemoryReplayGuard
	users     *repository.MemoryUserRepository
	store     *flakyStore
	sessions  *session.Manager
	metrics   *observability.Metrics
	recorder  *recorder
	autoLogin *AutoLoginService
	auth      *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	codec := auth.NewCodec(auth.CodecConfig{
		Secret:   "shared-test-secret",
		Issuer:   "storefront",
		Audience: "order-tagger",
	}, auth.WithClock(clock.Now))
	guard := auth.NewMemoryReplayGuard(clock.Now)
	verifier := auth.NewVerifier(codec, guard, clock.Now)

	users := repository.NewMemoryUserRepository()
	store := &flakyStore{MemoryStore: session.NewMemoryStore(clock.Now)}
	sessions := session.NewManager(store, 8*time.Hour, clock.Now)
	metrics := observability.NewMetrics()

	rec := &recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventAutoLoginSucceeded,
		events.EventAutoLoginRejected,
		events.EventAutoLoginSkipped,
		events.EventPasswordLogin,
		events.EventPasswordRejected,
		events.EventLogout,
	} {
		dispatcher.Subscribe(et, rec.handle)
	}

	f := &fixture{
		clock:    clock,
		codec:    codec,
		verifier: verifier,
		guard:    guard,
		users:    users,
		store:    store,
		sessions: sessions,
		metrics:  metrics,
		recorder: rec,
	}
	f.autoLogin = NewAutoLoginService(AutoLoginDependencies{
		Verifier:   verifier,
		UserRepo:   users,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	f.auth = NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, AuthDependencies{
		UserRepo:   users,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	return f
}

func (f *fixture) addUser(t *testing.T, id int64, username string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("correct horse battery", bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{ID: id, Username: username, PasswordHash: hash}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) mint(t *testing.T, subject auth.Subject) string {
	t.Helper()
	token, err := f.codec.Encode(subject, "issuerA")
	require.NoError(t, err)
	return token
}

func counterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

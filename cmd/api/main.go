package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/order-tagger/internal/api/http"
	"github.com/spec-kit/order-tagger/internal/api/http/handlers"
	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/events"
	"github.com/spec-kit/order-tagger/internal/observability"
	"github.com/spec-kit/order-tagger/internal/persistence"
	"github.com/spec-kit/order-tagger/internal/repository"
	"github.com/spec-kit/order-tagger/internal/service"
	"github.com/spec-kit/order-tagger/internal/session"
	"github.com/spec-kit/order-tagger/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	var userRepo repository.UserRepository
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}

	var (
		guard        auth.ReplayGuard
		sessionStore session.Store
		purger       worker.ExpiredSessionPurger
	)
	switch {
	case redis.Enabled():
		guard = auth.NewRedisReplayGuard(redis.Client, nil)
	case pg.Enabled():
		guard = repository.NewConsumedTokenRepository(pg.PoolHandle(), nil)
	default:
		guard = auth.NewMemoryReplayGuard(nil)
	}
	if redis.Enabled() {
		sessionStore = session.NewRedisStore(redis.Client, nil)
	} else {
		memStore := session.NewMemoryStore(nil)
		sessionStore, purger = memStore, memStore
	}
	logger.Info("state backends selected",
		zap.String("replay_guard", fmt.Sprintf("%T", guard)),
		zap.String("session_store", fmt.Sprintf("%T", sessionStore)),
	)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	codec := auth.NewCodec(auth.CodecConfig{
		Secret:   cfg.Auth.AutoLoginSecret,
		Issuer:   cfg.Auth.AutoLoginIssuer,
		Audience: cfg.Auth.AutoLoginAudience,
	})
	verifier := auth.NewVerifier(codec, guard, nil)
	sessions := session.NewManager(sessionStore, cfg.Auth.SessionTTL(), nil)

	autoLoginService := service.NewAutoLoginService(service.AutoLoginDependencies{
		Verifier:   verifier,
		UserRepo:   userRepo,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.App.RequestTimeout(),
		WriteTimeout:          cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	cookies := handlers.CookieSettings{Name: cfg.Auth.SessionCookieName, Secure: cfg.Auth.SessionCookieSecure}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		AutoLogin: handlers.NewAutoLoginHandler(autoLoginService, cookies, cfg.Routes),
		Sessions:  handlers.NewSessionHandler(authService, cookies, cfg.Routes),
		Dashboard: handlers.NewDashboardHandler(),
		Session:   auth.NewSessionMiddleware(sessions, cfg.Auth.SessionCookieName, cfg.Routes.LoginPath, logger),
		Metrics:   metrics,
		Routes:    cfg.Routes,
		RateLimit: cfg.RateLimit,
	})

	sweeper := worker.NewSweeper(guard, purger, cfg.Auth.ReplaySweepInterval(), metrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}

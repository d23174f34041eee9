package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/lazytech/jjc-console/internal/api/http"
	"github.com/lazytech/jjc-console/internal/api/http/handlers"
	"github.com/lazytech/jjc-console/internal/auth"
	"github.com/lazytech/jjc-console/internal/broadcast"
	"github.com/lazytech/jjc-console/internal/config"
	"github.com/lazytech/jjc-console/internal/credstore"
	"github.com/lazytech/jjc-console/internal/directory"
	"github.com/lazytech/jjc-console/internal/observability"
	"github.com/lazytech/jjc-console/internal/persistence"
	"github.com/lazytech/jjc-console/internal/session"
	"github.com/lazytech/jjc-console/internal/storage"
	"github.com/lazytech/jjc-console/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	// The session layer: Redis-backed shared storage, Redis pub/sub as
	// the preferred transport, the storage relay as the fallback.
	kv := storage.NewRedisKV(redis.Client, cfg.Redis.DB, logger)
	bus := broadcast.NewDual(
		broadcast.NewRedisBroadcaster(redis.Client, logger),
		broadcast.NewRelay(kv, cfg.Session.RelayKey, cfg.Session.RelayClearDelay(), logger),
	)
	defer bus.Close() //nolint:errcheck

	codec := token.NewCodec(cfg.Auth.JWTSecret)
	manager := session.NewManager(session.Options{
		Codec:       codec,
		Credentials: credstore.New(kv, cfg.Session, logger),
		Bus:         bus,
		Session:     cfg.Session,
		Lifetime:    cfg.Auth.TokenLifetime,
		Logger:      logger,
		Metrics:     metrics,
	})
	manager.Start()
	defer manager.Close()

	accounts := directory.NewService(directory.NewAccountRepository(pg.PoolHandle()), cfg.Auth.BcryptCost)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Session:        handlers.NewSessionHandler(accounts, manager, codec, cfg.Auth.TokenLifetime),
		AuthMiddleware: auth.NewMiddleware(codec),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

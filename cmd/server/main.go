package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/auth"
	"gatehouse/internal/config"
	"gatehouse/internal/consul"
	"gatehouse/internal/database"
	"gatehouse/internal/logger"
	"gatehouse/internal/password"
	"gatehouse/internal/server"
	"gatehouse/internal/session"
	"gatehouse/internal/users"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	logger.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting gatehouse",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"session_backend", cfg.SessionBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.SessionBackend != config.BackendMemory {
		pool, err = database.Connect(ctx, cfg.DatabaseURL, database.Options{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("Connected to database")

		if err := database.Migrate(ctx, pool, log); err != nil {
			return err
		}
	}

	userStore, sessionStore, closeStores, err := newStores(ctx, cfg, pool, log)
	if err != nil {
		return err
	}
	defer closeStores()

	hasher, err := password.NewHasher(password.Params{
		MemoryCost:  cfg.Argon2.MemoryCost,
		TimeCost:    cfg.Argon2.TimeCost,
		OutputLen:   cfg.Argon2.OutputLen,
		Parallelism: cfg.Argon2.Parallelism,
	})
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}

	sessionMgr := session.NewManager(sessionStore, userStore, session.Options{
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
		Logger:     log,
	})
	sessionMgr.StartCleanup(ctx, cfg.SessionCleanupInterval)

	authService := auth.NewService(userStore, sessionMgr, hasher, log)

	srv := server.New(cfg, server.Deps{
		Users:          userStore,
		Sessions:       sessionMgr,
		Auth:           authService,
		DB:             pool,
		SessionBackend: sessionStore,
		Logger:         log,
	}).HTTPServer()

	deregister, err := registerWithConsul(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deregister()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down gatehouse...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Gatehouse stopped")
	return nil
}

// newStores picks the credential and session stores for the configured backend
func newStores(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (users.Store, session.Store, func(), error) {
	noop := func() {}

	switch cfg.SessionBackend {
	case config.BackendMemory:
		log.Warn("Using in-memory stores, data is lost on restart")
		return users.NewMemoryStore(), session.NewMemoryStore(), noop, nil

	case config.BackendRedis:
		client := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := session.NewRedisStore(client, nil)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Connected to Redis", "addr", cfg.RedisAddr)
		return users.NewPostgresStore(pool), store, func() { _ = client.Close() }, nil

	default:
		return users.NewPostgresStore(pool), session.NewPostgresStore(pool), noop, nil
	}
}

// registerWithConsul registers the instance when CONSUL_HTTP_ADDR is set and
// returns the matching deregistration.
func registerWithConsul(ctx context.Context, cfg *config.Config, log *slog.Logger) (func(), error) {
	if cfg.ConsulAddr == "" {
		return func() {}, nil
	}

	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", cfg.Port, err)
	}

	client, err := consul.NewClient(cfg.ConsulAddr, cfg.ConsulToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	svc := consul.NewServiceConfig(consul.Registration{
		Name:            cfg.Consul.ServiceName,
		Host:            cfg.ServiceHost,
		Port:            port,
		Tags:            cfg.Consul.Tags,
		CheckPath:       cfg.Consul.CheckPath,
		CheckInterval:   cfg.Consul.CheckInterval,
		CheckTimeout:    cfg.Consul.CheckTimeout,
		DeregisterAfter: cfg.Consul.DeregisterAfter,
	})

	// Clear a registration left behind by a crashed instance
	_ = client.Deregister(ctx, svc.ID)

	if err := client.Register(ctx, svc); err != nil {
		return nil, err
	}
	log.Info("Registered with Consul", "service_id", svc.ID)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Deregister(ctx, svc.ID); err != nil {
			log.Error("Failed to deregister from Consul", "error", err)
			return
		}
		log.Info("Deregistered from Consul")
	}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/config"
	"spendwise/internal/events"
	"spendwise/internal/handlers"
	"spendwise/internal/logging"
	"spendwise/internal/scheduler"
	"spendwise/internal/service"
	"spendwise/internal/storage"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("Database ready", "path", cfg.DBPath)

	if err := bootstrapAdmin(ctx, db, cfg); err != nil {
		return err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc := service.NewExpenseService(db, service.WithPublisher(publisher))
	h := handlers.NewHandlers(db, svc, cfg.TemplateDir, cfg.SecureCookie, cfg.SessionDuration)

	sched := scheduler.New(time.Local)
	if _, err := sched.Schedule(cfg.SessionCleanupSchedule, "session-cleanup", scheduler.SessionCleanup(db)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(h, cfg.StaticDir),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupRouter(h *handlers.Handlers, staticDir string) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	h.Register(mux)

	return handlers.RequestLogger(handlers.Recoverer(mux))
}

// newPublisher connects to the broker when one is configured.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP disabled, expense events are not published")
		return events.NopPublisher{}, nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	slog.Info("Publishing expense events", "exchange", cfg.AMQPExchange)
	return publisher, nil
}

// bootstrapAdmin creates the configured admin account on an empty database.
func bootstrapAdmin(ctx context.Context, db *storage.DB, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	user, err := db.CreateUser(ctx, email, cfg.AdminName, hash)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("Created admin user", "user_id", user.ID, "email", user.Email)
	return nil
}

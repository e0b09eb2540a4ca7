package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/you/subway/config"
	"github.com/you/subway/handlers"
	"github.com/you/subway/logging"
	"github.com/you/subway/repository"
	"github.com/you/subway/service"
)

// store is the backend selected from configuration.
type store struct {
	stations service.StationRepository
	lines    service.LineRepository
	db       handlers.Pinger
	close    func()
}

func main() {
	config.LoadEnvFiles(".")
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "subway-api"))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	router := handlers.NewRouter(handlers.RouterOptions{
		Stations:       service.NewStationService(st.stations, logger),
		Lines:          service.NewLineService(st.lines, st.stations, logger),
		DB:             st.db,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("API server starting",
		zap.String("addr", srv.Addr),
		zap.Strings("endpoints", handlers.Routes),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("goodbye")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	if cfg.UsePostgres() {
		pg, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		logger.Info("PostgreSQL database connection established")
		return &store{
			stations: repository.NewPostgresStationRepository(pg),
			lines:    repository.NewPostgresLineRepository(pg),
			db:       pg,
			close:    pg.Close,
		}, nil
	}

	sq, err := repository.NewSQLiteDB(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	if err := sq.EnsureSchema(ctx); err != nil {
		sq.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}
	logger.Info("SQLite database connection established", zap.String("path", cfg.SQLitePath))
	return &store{
		stations: repository.NewSQLiteStationRepository(sq),
		lines:    repository.NewSQLiteLineRepository(sq),
		db:       sq,
		close: func() {
			if err := sq.Close(); err != nil {
				logger.Warn("closing sqlite", zap.Error(err))
			}
		},
	}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/api"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/api/handlers"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/config"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/database"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/logger"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/repository"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	secLogger := logger.NewSecurityLoggerFrom(log)

	log.Info("Starting ShopDesk Backend Server...")
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Realtime
	broker := realtime.NewBroker(log, m)
	defer broker.Close()

	hub := realtime.NewHub(log, m)
	go hub.Run(ctx)

	var publisher realtime.Publisher = realtime.Fanout{broker, hub}
	checks := map[string]handlers.Check{}

	if cfg.RedisURL != "" {
		rdb, err := realtime.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		bridge := realtime.NewRedisBridge(rdb, cfg.RedisChannel, publisher, log, m)
		go func() {
			if err := bridge.Run(ctx, nil); err != nil {
				log.Error("redis realtime bridge stopped", slog.Any("error", err))
			}
		}()

		publisher = bridge
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	activity, err := watchActivity(broker, log)
	if err != nil {
		return err
	}
	defer activity.Unsubscribe()

	// Repositories and service
	profiles, err := repository.NewCachedProfileRepository(repository.NewProfileRepository(db), cfg.ProfileCacheTTL)
	if err != nil {
		return err
	}
	defer profiles.Close()

	service := services.NewMessageService(
		repository.NewMessageRepository(db),
		profiles,
		publisher,
		services.MessageServiceConfig{
			SupportID:        cfg.SupportID,
			SupportName:      cfg.SupportName,
			MaxMessageLength: cfg.MaxMessageLength,
		},
		log,
	)

	// HTTP server
	e := api.NewRouter(&api.RouterConfig{
		Ctx:            ctx,
		DB:             db,
		Service:        service,
		Hub:            hub,
		Upgrader:       realtime.NewSecureUpgrader(cfg.Origins(), secLogger),
		HealthChecks:   checks,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         log,
		SecurityLogger: secLogger,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.Origins(),
		AppEnv:         cfg.AppEnv,
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down http server", slog.Any("error", err))
	}

	log.Info("Server stopped")
	return nil
}

// watchActivity logs every customer message seen on the in-process feed
func watchActivity(feed realtime.Feed, log *slog.Logger) (realtime.Subscription, error) {
	return feed.Subscribe(realtime.TopicAll, func(ev realtime.Event) {
		if ev.Type != realtime.EventInsert || ev.Record.IsAdminReply {
			return
		}
		log.Info("customer message received",
			slog.String("message_id", ev.Record.ID),
			slog.String("participant_id", ev.Record.ParticipantID()),
		)
	})
}

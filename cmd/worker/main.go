package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/hospital-api/internal/app"
	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/repository"
	internalWorker "github.com/jwalitptl/hospital-api/internal/worker"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	redisBroker "github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

const healthAddr = ":8081"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hospital-worker",
		Short: "Outbox relay and appointment reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateWorker(); err != nil {
				return err
			}
			return run(cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupHealthCheck(log *logger.Logger, m *metrics.Metrics, checks map[string]repository.Pinger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check.PingContext(ctx); err != nil {
				http.Error(w, name+" unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health check server failed")
		}
	}()
	return srv
}

func run(cfg *config.Config) error {
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	appLogger.SetGlobal()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	repos, err := app.OpenRepositories(cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer repos.Close()

	appMetrics := metrics.NewMetrics(cfg.Metrics.Namespace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis broker
	broker, err := redisBroker.NewRedisBroker(ctx, redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger)
	if err != nil {
		return err
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Outbox.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		MaxRetries:    cfg.Outbox.MaxRetries,
	}, appLogger, appMetrics)
	if err != nil {
		return err
	}
	cleanup := internalWorker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, time.Hour, appLogger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); processor.Start(ctx) }()
	go func() { defer wg.Done(); cleanup.Start(ctx) }()

	// Reminder delivery
	var reminders *asynq.Server
	if cfg.Reminder.Enabled {
		redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		reminders = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: cfg.Reminder.Concurrency,
			Queues:      map[string]int{cfg.Reminder.Queue: 1},
			Logger:      internalWorker.NewAsynqLogger(appLogger),
		})

		mux := asynq.NewServeMux()
		internalWorker.NewReminderHandler(
			repos.Appointments,
			repos.Doctors,
			repos.Patients,
			email.NewSender(cfg.SMTP, appLogger),
			loc,
			appLogger,
		).Register(mux)

		if err := reminders.Start(mux); err != nil {
			return fmt.Errorf("failed to start reminder server: %w", err)
		}
	}

	healthSrv := setupHealthCheck(appLogger, appMetrics, map[string]repository.Pinger{
		"storage": repos.Health,
		"redis":   broker,
	})
	appLogger.Info("Worker started", "reminders", cfg.Reminder.Enabled, "channel", cfg.Outbox.Channel)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	appLogger.Info("Shutting down...")

	cancel()
	if reminders != nil {
		reminders.Shutdown()
	}
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return healthSrv.Shutdown(shutdownCtx)
}

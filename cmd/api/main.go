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

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/app"
	"github.com/jwalitptl/hospital-api/internal/config"
	appointmentHandler "github.com/jwalitptl/hospital-api/internal/handler/appointment"
	doctorHandler "github.com/jwalitptl/hospital-api/internal/handler/doctor"
	"github.com/jwalitptl/hospital-api/internal/handler/health"
	"github.com/jwalitptl/hospital-api/internal/handler/prometheus"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/router"
	appointmentService "github.com/jwalitptl/hospital-api/internal/service/appointment"
	"github.com/jwalitptl/hospital-api/internal/service/reminder"
	"github.com/jwalitptl/hospital-api/internal/service/schedule"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	redisBroker "github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hospital-api",
		Short: "Doctor availability and appointment booking API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// tokenCmd mints a bearer token for local testing.
func tokenCmd(configPath *string) *cobra.Command {
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a signed bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			token, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer).GenerateToken(args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "staff", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func serve(cfg *config.Config) error {
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

	// Initialize storage
	repos, err := app.OpenRepositories(cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer repos.Close()

	appMetrics := metrics.NewMetrics(cfg.Metrics.Namespace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	calendar := schedule.NewService(repos.Doctors, repos.Availability, schedule.Config{
		Location:     loc,
		CacheTTL:     cfg.Scheduling.ScheduleCacheTTL,
		DisableCache: cfg.Scheduling.ScheduleCacheTTL == 0,
	}, appLogger)

	opts := []appointmentService.Option{
		appointmentService.WithLogger(appLogger),
		appointmentService.WithMetrics(appMetrics),
	}
	if cfg.Reminder.Enabled {
		redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()

		opts = append(opts, appointmentService.WithReminders(reminder.NewScheduler(client, reminder.Config{
			LeadTime: cfg.Reminder.LeadTime,
			Queue:    cfg.Reminder.Queue,
		}, appLogger, appMetrics)))
	}
	bookings := appointmentService.NewService(calendar, repos.Appointments, repos.Doctors, repos.Patients, opts...)

	checks := map[string]repository.Pinger{"storage": repos.Health}

	// The outbox normally drains in the worker; running it here suits
	// single-process deployments.
	if cfg.Outbox.Enabled {
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
		checks["redis"] = broker

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
		go processor.Start(ctx)
	}

	// Setup router
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		health.NewHandler(checks),
		prometheus.New(appMetrics),
		log.Logger,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RPS),
			RateBurst:        cfg.RateLimit.Burst,
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			RequestTimeout:   cfg.Server.RequestTimeout,
			Mode:             cfg.Server.Mode,
		},
		appointmentHandler.NewHandler(bookings),
		doctorHandler.NewHandler(calendar),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	appLogger.Info("Shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info("Server exited properly")
	return nil
}

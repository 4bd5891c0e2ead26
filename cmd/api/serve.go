package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-directory/internal/avatar"
	"github.com/jwalitptl/patient-directory/internal/config"
	"github.com/jwalitptl/patient-directory/internal/form"
	"github.com/jwalitptl/patient-directory/internal/handler"
	avatarHandler "github.com/jwalitptl/patient-directory/internal/handler/avatar"
	patientHandler "github.com/jwalitptl/patient-directory/internal/handler/patient"
	sessionHandler "github.com/jwalitptl/patient-directory/internal/handler/session"
	"github.com/jwalitptl/patient-directory/internal/middleware"
	"github.com/jwalitptl/patient-directory/internal/remote"
	"github.com/jwalitptl/patient-directory/internal/router"
	patientService "github.com/jwalitptl/patient-directory/internal/service/patient"
	"github.com/jwalitptl/patient-directory/pkg/logger"
	"github.com/jwalitptl/patient-directory/pkg/messaging"
	"github.com/jwalitptl/patient-directory/pkg/messaging/redis"
	"github.com/jwalitptl/patient-directory/pkg/metrics"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient directory API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPaths(cmd))
		},
	}
}

func runServer(paths []string) error {
	cfg, err := config.Load(paths...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		TimeFormat: cfg.Log.TimeFormat,
		Output:     os.Stdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// failures are reported through the toast and logged by the directory
	go func() { _ = a.dir.Load(ctx) }()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
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
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}

// app is the wired server without its listener.
type app struct {
	dir    *patientService.Directory
	router *router.Router
	close  func()
}

func (a *app) Close() {
	a.close()
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	if err := client.Err(); err != nil {
		log.Warn().Err(err).Str("base_url", cfg.Remote.BaseURL).Msg("remote base URL unusable; the initial load will fail")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, registry)

	dir := patientService.NewDirectory(client,
		patientService.WithLogger(log),
		patientService.WithObserver(m),
	)

	policy := avatar.NewPolicy(cfg.Avatar.PlaceholderURL, cfg.Avatar.BrokenHosts)
	store := avatar.NewStore(cfg.Avatar.PreviewTTL)
	builder := form.NewBuilder(store, form.Options{
		MaxAvatarBytes: cfg.Avatar.MaxUploadBytes,
		AllowedTypes:   cfg.Avatar.AllowedTypes,
	})
	forms := handler.NewForms(builder, cfg.Avatar.MaxUploadBytes, m.AvatarUploads)

	publisher, closePublisher := newPublisher(ctx, cfg.Redis, log)
	events := handler.NewEvents(publisher, m.EventsPublished, log)

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORS.AllowedOrigins

	r := router.NewRouter(
		handler.NewHandler(dir, registry),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RPS),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       cors,
			MaxBodySize:      cfg.Avatar.MaxUploadBytes + 1<<20,
			MetricsNamespace: cfg.Monitoring.Namespace,
			Registerer:       registry,
			ExposeMetrics:    cfg.Monitoring.PrometheusEnabled,
			Logger:           log,
		},
		patientHandler.NewHandler(dir, forms, policy, events),
		sessionHandler.NewHandler(dir, forms, policy, events),
		avatarHandler.NewHandler(store),
	)
	r.Setup()

	return &app{dir: dir, router: r, close: closePublisher}, nil
}

func brokerConfig(cfg config.RedisConfig) redis.Config {
	return redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}

// newPublisher connects to Redis when configured. Without Redis, or when it
// is unreachable, change events are only logged.
func newPublisher(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (messaging.Publisher, func()) {
	fallback := messaging.NewLogPublisher(log)
	if cfg.URL == "" {
		return fallback, func() {}
	}

	broker, err := redis.NewRedisBroker(ctx, brokerConfig(cfg), log)
	if err != nil {
		log.Error().Err(err).Msg("redis unavailable; change events will only be logged")
		return fallback, func() {}
	}
	log.Info().Str("channel", cfg.Channel).Msg("publishing change events to redis")

	return messaging.NewChannelPublisher(broker, cfg.Channel), func() {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis broker")
		}
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/zatekoja/clinicqueue/internal/adapters/cache"
	"github.com/zatekoja/clinicqueue/internal/adapters/database"
	"github.com/zatekoja/clinicqueue/internal/adapters/events"
	"github.com/zatekoja/clinicqueue/internal/adapters/seed"
	"github.com/zatekoja/clinicqueue/internal/api/handlers"
	"github.com/zatekoja/clinicqueue/internal/api/routes"
	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/domain/repositories"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/clients/redis"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/notifications"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
	"github.com/zatekoja/clinicqueue/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}
	if err := otelruntime.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start runtime metrics")
	}

	// Redis is optional: it backs the roster cache and the assignment event bus
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Redis client, continuing without it")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized successfully")
		}
	}

	roster, closeRoster := buildRoster(ctx, cfg, redisClient)
	defer closeRoster()

	registry := services.NewDoctorRegistry()
	loaded, err := registry.LoadRoster(ctx, roster)
	if err != nil {
		log.Fatal().Err(err).Int("loaded", loaded).Msg("Failed to load doctor roster")
	}
	log.Info().Int("doctors", loaded).Str("source", cfg.Clinic.RosterSource).Msg("Doctor roster loaded")

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		defer func() {
			if err := eventBus.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing event bus")
			}
		}()
	}

	notifier := notifications.NewAsyncNotifier(buildNotifier(cfg, eventBus), cfg.Clinic.NotifyBufferSize, metrics)

	clock := providers.SystemClock{}
	policy := services.NewRoutingPolicy(cfg.Clinic.RespectDailyCapacity)
	assigner := services.NewAssignmentService(registry, policy, notifier, clock, metrics)
	admissions := services.NewAdmissionService(assigner, clock)
	consultations := services.NewConsultationService(registry, clock, metrics)

	queueHandler := handlers.NewQueueHandler(admissions, consultations, registry)
	var sseHandler *handlers.SSEHandler
	if eventBus != nil {
		sseHandler = handlers.NewSSEHandler(eventBus, registry)
	}
	router := routes.NewRouter(queueHandler, sseHandler, metrics, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Flush notifications still queued for delivery
	if err := notifier.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error draining notifications")
	}

	log.Info().Msg("Server stopped")
}

// buildRoster returns the configured roster source and a cleanup func
func buildRoster(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (repositories.DoctorRosterRepository, func()) {
	if cfg.Clinic.RosterSource == config.RosterSourceSeed {
		gen := seed.NewGenerator(cfg.Clinic.SeedValue, today())
		return seed.NewRoster(gen.Doctors(cfg.Clinic.SeedDoctors)), func() {}
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	log.Info().Msg("PostgreSQL client initialized successfully")

	var roster repositories.DoctorRosterRepository = database.NewDoctorRosterAdapter(pgClient)
	if redisClient != nil {
		roster = database.NewCachedDoctorRosterAdapter(roster, cache.NewRedisAdapter(redisClient), cfg.Clinic.RosterCacheTTLSeconds)
		log.Info().Msg("Doctor roster wrapped with caching layer")
	}

	return roster, func() {
		if err := pgClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing PostgreSQL client")
		}
	}
}

// buildNotifier fans assignment events out to every configured channel
func buildNotifier(cfg *config.Config, eventBus providers.EventBus) providers.Notifier {
	sinks := []providers.Notifier{notifications.NewLogNotifier(log.Logger)}

	if cfg.WhatsApp.Enabled() {
		sender, err := notifications.NewWhatsAppCloudSender(&cfg.WhatsApp)
		if err != nil {
			log.Warn().Err(err).Msg("WhatsApp notifications disabled")
		} else {
			sinks = append(sinks, sender)
		}
	}

	if eventBus != nil {
		sinks = append(sinks, notifications.NewEventBusNotifier(eventBus))
	}

	return notifications.NewFanoutNotifier(sinks...)
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"vyre/backend/internal/activity"
	activityhandler "vyre/backend/internal/activity/handler"
	activityrepo "vyre/backend/internal/activity/repository"
	companyhandler "vyre/backend/internal/company/handler"
	companyrepo "vyre/backend/internal/company/repository"
	"vyre/backend/internal/config"
	"vyre/backend/internal/db"
	healthhandler "vyre/backend/internal/health/handler"
	identityhandler "vyre/backend/internal/identity/handler"
	identityservice "vyre/backend/internal/identity/service"
	invitationrepo "vyre/backend/internal/invitation/repository"
	"vyre/backend/internal/logging"
	"vyre/backend/internal/policy/engine"
	"vyre/backend/internal/ratelimit"
	"vyre/backend/internal/security"
	"vyre/backend/internal/server"
	"vyre/backend/internal/server/middleware"
	sessionrepo "vyre/backend/internal/session/repository"
	teamhandler "vyre/backend/internal/team/handler"
	teamservice "vyre/backend/internal/team/service"
	"vyre/backend/internal/telemetry"
	telemetryotel "vyre/backend/internal/telemetry/otel"
	"vyre/backend/internal/telemetry/producer"
	userhandler "vyre/backend/internal/user/handler"
	userrepo "vyre/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)
	slog.SetDefault(logger)

	accessSecret, refreshSecret, err := cfg.RequireSecrets()
	if err != nil {
		fatal(logger, "signing secrets", err)
	}
	if cfg.DatabaseURL == "" {
		fatal(logger, "DATABASE_URL is not set", errors.New("missing DATABASE_URL"))
	}

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		fatal(logger, "otel providers", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		fatal(logger, "kafka producer", err)
	}
	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info("telemetry events are published to kafka", "topic", cfg.TelemetryKafkaTopic)
	}
	events := telemetry.Multi(emitters...)

	authMetrics, err := telemetry.NewAuthMetrics(nil)
	if err != nil {
		fatal(logger, "auth metrics", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "database", err)
	}
	defer conn.Close()

	checks := map[string]healthhandler.Check{"database": conn.PingContext}

	var limiter identityservice.LoginLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			fatal(logger, "REDIS_URL", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		loginLimiter := ratelimit.New(rdb, ratelimit.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Cooldown:    cfg.LoginCooldownDuration(),
		})
		limiter = loginLimiter
		checks["redis"] = loginLimiter.Ping
	} else {
		logger.Warn("REDIS_URL is not set; login throttling is disabled")
	}

	policy, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		fatal(logger, "policy engine", err)
	}
	checks["policy"] = policy.HealthCheck

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	companies := companyrepo.NewPostgresRepository(conn)
	invitations := invitationrepo.NewPostgresRepository(conn)
	activities := activityrepo.NewPostgresRepository(conn)
	recorder := activity.NewLogger(activities)

	tokens := security.NewTokenCodec(accessSecret, refreshSecret, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	auth := identityservice.NewAuthService(identityservice.Deps{
		Users:          users,
		Sessions:       sessions,
		Invitations:    invitations,
		Tx:             identityservice.NewPostgresTx(conn),
		Hasher:         security.NewHasher(cfg.BcryptCost),
		Tokens:         tokens,
		Limiter:        limiter,
		Activity:       recorder,
		Events:         events,
		Metrics:        authMetrics,
		InviteTTL:      cfg.InviteDuration(),
		ResetTTL:       cfg.PasswordResetDuration(),
		LogResetTokens: !cfg.IsProduction(),
	})
	team := teamservice.New(users, teamservice.NewPostgresTx(conn), policy)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		fatal(logger, "trusted proxies", err)
	}
	handler := server.NewHandler(server.Deps{
		Auth:           identityhandler.NewAuthHandler(auth),
		Users:          userhandler.NewHandler(users, activities),
		Team:           teamhandler.NewHandler(team, auth),
		Settings:       companyhandler.NewSettingsHandler(companies),
		Activity:       activityhandler.NewHandler(activities),
		Health:         healthhandler.NewHandler(checks),
		Authenticator:  middleware.NewAuthenticator(tokens, users),
		Recorder:       recorder,
		Events:         events,
		Registry:       registry,
		Logger:         logger,
		TrustedProxies: proxies,
	})
	srv := server.NewHTTPServer(cfg.HTTPAddr, handler)

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "serve", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
	if !telemetry.Drain(drainCtx) {
		logger.Warn("telemetry drain timed out; some events were dropped")
	}
	drainCancel()
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("kafka producer close", "error", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("otel shutdown", "error", err)
	}
	logger.Info("HTTP server stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

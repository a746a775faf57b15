package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	ctx := context.Background()

	// 1. Resolve Stripe secrets from Secret Manager when not provided via env.
	if cfg.StripeSecretsFromSecretManager {
		secrets, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Secret Manager client")
			return nil, nil, err
		}
		if cfg.StripeSecretKey == "" {
			if cfg.StripeSecretKey, err = secrets.GetSecret(ctx, "stripe-secret-key"); err != nil {
				return nil, nil, err
			}
		}
		if cfg.StripeWebhookSecret == "" {
			if cfg.StripeWebhookSecret, err = secrets.GetSecret(ctx, "stripe-webhook-secret"); err != nil {
				return nil, nil, err
			}
		}
	}

	// 2. Open DB connection pool.
	dsn := cfg.DBConnectionString
	// In development we want SSL disabled for local testing; production
	// connection strings arrive with their own SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 3. Connect to redis for webhook event dedupe.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse redis URL")
		return nil, nil, err
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to connect to redis")
		return nil, nil, err
	}

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	trialRepo := repository.NewTrialRepo(pool)
	eventCache := repository.NewEventCache(redisClient, time.Duration(cfg.WebhookDedupeTTLHours)*time.Hour)

	provider := service.NewStripeProvider()
	syncSvc := service.NewSyncService(subRepo, provider, logger)
	trialSvc := service.NewTrialService(subRepo, trialRepo, logger)
	accessSvc := service.NewAccessService(
		syncSvc,
		trialSvc,
		cfg.AccessSyncRetryAttempts,
		time.Duration(cfg.AccessSyncRetryIntervalSec)*time.Second,
		logger,
	)
	subSvc := service.NewSubscriptionService(syncSvc, subRepo, provider, logger)
	userSvc := service.NewUserService(userRepo)
	stripeSvc := service.NewStripeService(cfg, userRepo, subRepo, provider, eventCache, logger)

	userHandler := handler.NewUserHandler(userSvc, validate, logger)
	subHandler := handler.NewSubscriptionHandler(subSvc, trialSvc, accessSvc, stripeSvc, validate, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	// Stripe authenticates webhooks by signature, not by session.
	apiV1Mux.HandleFunc("/webhooks/stripe", stripeSvc.HandleWebhook)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), pool, nil
}

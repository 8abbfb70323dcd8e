package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"recipeshare/internal/config"
	"recipeshare/internal/db"
	"recipeshare/internal/email"
	"recipeshare/internal/events"
	apihttp "recipeshare/internal/http"
	"recipeshare/internal/identity"
	"recipeshare/internal/metrics"
	"recipeshare/internal/repository"
	"recipeshare/internal/service"
)

const (
	confirmResendWindow = 10 * time.Minute
	confirmResendMax    = 3
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDev() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
			redisClient.Close()
			redisClient = nil
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewNoopPublisher()
	if cfg.NATSURL != "" {
		nc, err := events.Connect(events.Config{URL: cfg.NATSURL, ClientName: "recipeshare-api"}, logger)
		if err != nil {
			logger.Warn("nats connect failed, events disabled", zap.Error(err))
		} else {
			defer nc.Drain()
			publisher = events.NewNATSPublisher(nc, logger)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	userRepo := repository.NewPgUserRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)
	followRepo := repository.NewPgFollowRepository(pool)
	recipeRepo := repository.NewPgRecipeRepository(pool)

	provider, err := buildProvider(cfg, logger, userRepo, redisClient)
	if err != nil {
		logger.Fatal("identity provider", zap.Error(err))
	}

	limits := service.PageLimits{Default: cfg.FeedPageSize, Max: cfg.FeedMaxPageSize}
	sanitizer := service.NewSanitizer()
	profileSvc := service.NewProfileService(logger, profileRepo, followRepo, sanitizer)
	graphSvc := service.NewGraphService(logger, profileRepo, followRepo, publisher, collector, limits)
	recipeSvc := service.NewRecipeService(logger, recipeRepo, service.NewVisibilityChecker(followRepo), sanitizer, publisher, collector)
	feedSvc := service.NewFeedService(logger, recipeRepo, graphSvc, collector, limits)
	accountSvc := service.NewAccountService(logger, provider, profileSvc)

	ipLimiter := apihttp.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopCleanup := make(chan struct{})
	go ipLimiter.Run(stopCleanup, 5*time.Minute)
	defer close(stopCleanup)

	router := apihttp.NewRouter(logger, apihttp.RouterDeps{
		Auth:     accountSvc,
		AuthH:    apihttp.NewAuthHandler(logger, accountSvc, profileSvc),
		ProfileH: apihttp.NewProfileHandler(logger, profileSvc, graphSvc, feedSvc),
		RecipeH:  apihttp.NewRecipeHandler(logger, recipeSvc, feedSvc),
		HealthH:  apihttp.NewHealthHandler(logger, pool),
		Limiter:  ipLimiter,
		Recorder: collector,
		Gatherer: registry,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("identity_provider", cfg.IdentityProvider),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

// buildProvider elige el adaptador de identidad segun IDENTITY_PROVIDER.
func buildProvider(cfg *config.Config, logger *zap.Logger, users repository.UserRepository, redisClient *redis.Client) (identity.Provider, error) {
	switch cfg.IdentityProvider {
	case "hosted":
		hosted, err := identity.NewHosted(logger, identity.HostedConfig{
			BaseURL: cfg.AuthURL,
			AnonKey: cfg.AuthAnonKey,
			SiteURL: cfg.SiteURL,
			Timeout: 10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return hosted, nil
	case "local":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required for the local identity provider")
		}
		var (
			tokenStore identity.RefreshTokenStore
			limiter    identity.Limiter
		)
		if redisClient != nil {
			tokenStore = identity.NewRedisRefreshTokenStore(redisClient)
			limiter = identity.NewRedisLimiter(redisClient, confirmResendWindow, confirmResendMax)
		} else {
			tokenStore = identity.NewMemoryRefreshTokenStore()
			limiter = identity.NewMemoryLimiter(confirmResendWindow, confirmResendMax)
		}
		tokens := identity.NewTokenIssuer(
			cfg.JWTSecret,
			time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
			time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
			tokenStore,
		)
		return identity.NewLocal(logger, users, tokens, buildSender(cfg, logger), limiter), nil
	case "memory":
		if !cfg.IsDev() {
			return nil, fmt.Errorf("memory identity provider is only allowed with APP_ENV=dev")
		}
		logger.Warn("using in-memory identity provider, accounts are lost on restart")
		m := identity.NewMemory()
		m.AutoConfirm = true
		return m, nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

func buildSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SMTPHost == "" {
		if cfg.IsDev() {
			return email.NewLogSender(logger)
		}
		return email.NewDisabledSender("email sender not configured")
	}
	sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return email.NewDisabledSender("smtp sender init failed")
	}
	return sender
}

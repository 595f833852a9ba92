package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tasktracker/internal/config"
	"tasktracker/internal/db"
	"tasktracker/internal/email"
	apihttp "tasktracker/internal/http"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	identityRepo := repository.NewPgIdentityRepository(pool)
	taskRepo := repository.NewPgTaskRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		verifyStore service.VerifyTokenStore
		limiter     = service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
		authLimiter = service.NewMemoryRateLimiter(cfg.LoginRateLimitWindow, cfg.LoginRateLimitMax)
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			verifyStore = service.NewRedisVerifyTokenStore(redisClient, cfg.EphemeralTokenTTL)
			limiter = service.NewRedisRateLimiter(redisClient, "rl:global:", cfg.RateLimitWindow, cfg.RateLimitMax)
			authLimiter = service.NewRedisRateLimiter(redisClient, "rl:auth:", cfg.LoginRateLimitWindow, cfg.LoginRateLimitMax)
		}
		cancel()
	}
	if verifyStore == nil {
		logger.Warn("verification tokens are kept in process memory; they are not shared between instances")
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	sessions := service.NewSessionManager(identityRepo, jwtSvc)
	tokens := service.NewEphemeralTokenService(identityRepo, verifyStore, cfg.EphemeralTokenTTL)
	userSvc := service.NewUserService(logger, identityRepo, service.NewBcryptCredentialStore(0), tokens, emailSender, cfg.PublicBaseURL)
	graph := service.NewRelationshipGraph(logger, identityRepo)
	gate := service.NewAuthorizationGate(identityRepo)
	taskSvc := service.NewTaskService(logger, taskRepo, graph, gate)

	if cfg.PruneVacantTasksOnStart {
		if _, err := taskSvc.PruneVacant(ctx); err != nil {
			logger.Warn("prune vacant tasks failed", zap.Error(err))
		}
	}

	cookies := apihttp.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure)
	router := apihttp.NewRouter(apihttp.RouterDeps{
		Logger:      logger,
		DB:          pool,
		Sessions:    sessions,
		Cookies:     cookies,
		Limiter:     limiter,
		AuthLimiter: authLimiter,
		Users:       apihttp.NewUserHandler(logger, userSvc, sessions, cookies),
		People:      apihttp.NewPeopleHandler(logger, graph),
		Tasks:       apihttp.NewTaskHandler(logger, taskSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

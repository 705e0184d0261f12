package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	accountsapi "github.com/faural/accounts/api/echo"
	"github.com/faural/accounts/cache"
	rediscache "github.com/faural/accounts/cache/redis"
	"github.com/faural/accounts/config"
	"github.com/faural/accounts/internal/auth"
	"github.com/faural/accounts/internal/identity"
	"github.com/faural/accounts/log"
	"github.com/faural/accounts/mongodb"
	"github.com/faural/accounts/services"
	"github.com/faural/accounts/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	logger.Info(ctx, "Starting accounts server", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     logLevel.String(),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}

	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		logger.Fatal(ctx, "Failed to initialize MongoDB", err)
	}

	userRepo, err := mongodb.NewUserRepository(ctx, mongodb.GetDB())
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize user repository", err)
	}

	// The Firebase client is initialized once and shared read-only across
	// all request handlers.
	verifier, err := identity.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize identity token verifier", err)
	}

	var revoked cache.RevocationStore
	var closeRevoked func() error
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		revoked = rediscache.NewRevocationStore(redisClient, "accounts")
		closeRevoked = redisClient.Close
		logger.Info(ctx, "Using Redis token revocation store", map[string]interface{}{"addr": cfg.RedisAddr})
	} else {
		memStore := cache.NewMemoryRevocationStore()
		revoked = memStore
		closeRevoked = memStore.Close
	}

	sessions := services.NewSessionTokenService(
		cfg.JWTSecretKey, time.Duration(cfg.SessionTokenTTLHour)*time.Hour, revoked)

	resolver := services.NewAuthResolver(verifier, sessions, userRepo, logger)
	userSvc := services.NewUserService(userRepo, auth.NewBcryptPasswordHasher(0), sessions, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	api := accountsapi.NewAccountsAPI(resolver, userSvc, sessions, logger, func(c echo.Context) error {
		return mongodb.Ping(c.Request().Context())
	})
	api.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "HTTP server failed", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP server shutdown failed", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "TracerProvider shutdown failed", err)
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "MongoDB disconnect failed", err)
	}
	if err := closeRevoked(); err != nil {
		logger.Error(shutdownCtx, "Revocation store close failed", err)
	}
	logger.Info(ctx, "Server stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/farmhub/auth-api/internal/application/token"
	"github.com/farmhub/auth-api/internal/audit"
	"github.com/farmhub/auth-api/internal/config"
	"github.com/farmhub/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/farmhub/auth-api/internal/infrastructure/jwt"
	"github.com/farmhub/auth-api/internal/infrastructure/memory"
	redisinfra "github.com/farmhub/auth-api/internal/infrastructure/redis"
	"github.com/farmhub/auth-api/internal/infrastructure/smtp"
	"github.com/farmhub/auth-api/internal/infrastructure/sns"
	"github.com/farmhub/auth-api/internal/notify"
	"github.com/farmhub/auth-api/internal/ratelimit"
	transporthttp "github.com/farmhub/auth-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	// Blacklist and rate-limit counters share a backend: Redis when an
	// address is configured, in-process otherwise.
	var (
		blacklist token.Blacklist
		rateStore ratelimit.Store
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisinfra.NewClient(cfg)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		blacklist = redisinfra.NewBlacklist(rdb)
		rateStore = redisinfra.NewWindowCounter(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process blacklist and counters")
		blacklist = memory.NewBlacklist()
		rateStore = memory.NewWindowCounter()
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional, with graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		logger.Warn("SNS sender not available", "err", err)
	}

	dispatcher := notify.NewDispatcher(mailer, smsSender, logger, cfg.NotifyTimeout, cfg.NotifyQueueSize)
	defer dispatcher.Close()

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		Blacklist:        blacklist,
		RateStore:        rateStore,
		JWTProvider:      jwtProvider,
		Notifier:         dispatcher,
		Audit:            audit.NewSlogRecorder(logger),
		Log:              logger,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "transport", cfg.TokenTransport)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	logger.Info("server stopped")
}

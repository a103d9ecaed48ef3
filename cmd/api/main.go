package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/yourorg/ephemeral-chats/internal/api"
	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/config"
	"github.com/yourorg/ephemeral-chats/internal/crypto"
	"github.com/yourorg/ephemeral-chats/internal/events"
	"github.com/yourorg/ephemeral-chats/internal/logger"
	"github.com/yourorg/ephemeral-chats/internal/mailer"
	"github.com/yourorg/ephemeral-chats/internal/metrics"
	"github.com/yourorg/ephemeral-chats/internal/service"
	"github.com/yourorg/ephemeral-chats/internal/store"
	"github.com/yourorg/ephemeral-chats/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Development: cfg.Server.Development,
		Level:       cfg.Server.LogLevel,
	})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zl.Fatalw("redis ping", "error", err)
	}

	enc, err := crypto.New(cfg.Crypto.MasterPassword, cfg.Crypto.MasterSalt)
	if err != nil {
		zl.Fatalw("crypto init", "error", err)
	}

	st := store.New(rdb, cfg.Redis.Prefix, zl)
	b := bus.New(rdb, zl)
	dir := users.NewClient(cfg.Users.BaseURL, cfg.UsersTimeout)
	mail := mailer.NewClient(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName, zl)

	var stream *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		stream = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer stream.Close()
	}

	chats := service.NewChatsService(st, b, stream, enc, dir, zl)
	invites := service.NewInvitesService(st, b, stream, chats, dir, mail, zl)
	messages := service.NewMessagesService(st, b, stream, chats, enc, zl)
	chats.Attach(messages, invites)

	ctx := context.Background()
	if err := chats.CreateIndexes(ctx); err != nil {
		zl.Fatalw("creating chat indexes", "error", err)
	}
	if err := invites.CreateIndexes(ctx); err != nil {
		zl.Fatalw("creating invite indexes", "error", err)
	}
	if err := messages.CreateIndexes(ctx); err != nil {
		zl.Fatalw("creating message indexes", "error", err)
	}

	if cfg.Server.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
				zl.Warnw("metrics listener stopped", "error", err)
			}
		}()
	}

	app := api.NewServer(cfg, chats, invites, messages, b, zl)
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zl.Fatalw("server listen", "error", err)
		}
	}()
	zl.Infow("api started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zl.Infow("api stopped")
}

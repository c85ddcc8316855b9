package main

import (
	"crypto/ecdsa"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/orbisauth/adapters/codec"
	"github.com/layer-3/orbisauth/adapters/events"
	"github.com/layer-3/orbisauth/adapters/store"
	"github.com/layer-3/orbisauth/adapters/tokenizer"
	"github.com/layer-3/orbisauth/config"
	"github.com/layer-3/orbisauth/service"
	"github.com/layer-3/orbisauth/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadNodeConfig()
	if err != nil {
		fatal(logger, "failed to load config", err)
	}

	var signKey *ecdsa.PrivateKey
	if cfg.NodeKey != "" {
		signKey, err = tokenizer.ParseSigningKey(cfg.NodeKey)
	} else {
		logger.Warn("ORBIS_NODE_KEY not set, tokens will not survive a restart")
		signKey, err = tokenizer.GenerateSigningKey()
	}
	if err != nil {
		fatal(logger, "failed to load signing key", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fatal(logger, "failed to parse Redis URL", err)
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		fatal(logger, "failed to create Redis publisher", err)
	}
	defer publisher.Close()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		store.NewRedisStore(redisClient),
		codec.NewBase64Codec(),
		events.NewWatermillPublisher(publisher),
		service.WithAccessTTL(cfg.AccessTTL),
		service.WithAllowedDomains(cfg.AllowedDomains()...),
		service.WithLogger(logger),
	)

	router := http.SetupRouter(authService, logger)

	logger.Info("orbis node listening", "addr", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		fatal(logger, "failed to start server", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

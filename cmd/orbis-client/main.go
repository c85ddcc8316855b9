package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/orbisauth/adapters/codec"
	"github.com/layer-3/orbisauth/adapters/events"
	"github.com/layer-3/orbisauth/adapters/orbis"
	"github.com/layer-3/orbisauth/adapters/store"
	"github.com/layer-3/orbisauth/adapters/wallet"
	"github.com/layer-3/orbisauth/config"
	"github.com/layer-3/orbisauth/ports"
	"github.com/layer-3/orbisauth/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("orbis client stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		return err
	}

	w, err := newWallet(cfg)
	if err != nil {
		return err
	}

	sessions, publisher, closeFn, err := newBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	sessionCodec := codec.NewBase64Codec()
	client := orbis.NewClient(orbis.Config{
		NodeURL:    cfg.NodeURL,
		Domain:     cfg.Domain,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}, sessions, sessionCodec)

	conn := service.NewConnection(
		sessions,
		sessionCodec,
		service.NewInitiator(client, logger),
		service.WithUserService(client),
		service.WithSignalPublisher(events.NewWatermillPublisher(publisher)),
		service.WithConnectionLogger(logger),
	)

	walletEvents := wallet.NewEvents(1)
	done := make(chan error, 1)
	go func() {
		done <- conn.Run(ctx, walletEvents.C())
	}()

	walletEvents.Connect(w)

	select {
	case <-conn.Ready():
		user, err := client.GetConnectedUser(ctx)
		if err != nil {
			logger.Warn("failed to resolve connected user", "err", err)
		} else if user != nil {
			logger.Info("signed in", "did", user.DID, "session_expiry", user.SessionExpiry)
		}
	case <-time.After(cfg.ReadyTimeout):
		logger.Warn("authentication did not complete in time", "state", conn.State())
	case <-ctx.Done():
	}

	<-ctx.Done()
	logger.Info("shutting down")

	walletEvents.Close()

	// the run context is already cancelled, logout and clear on a fresh one
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Logout(shutdownCtx); err != nil {
		logger.Warn("failed to logout", "err", err)
	}
	conn.Disconnect(shutdownCtx)

	return <-done
}

func newWallet(cfg config.ClientConfig) (*wallet.KeyWallet, error) {
	if cfg.WalletKey == "" {
		return wallet.GenerateKeyWallet(cfg.ChainID)
	}
	return wallet.NewKeyWalletFromHex(cfg.WalletKey, cfg.ChainID)
}

// newBackends picks Redis for the session cache and signals when configured,
// in-memory otherwise
func newBackends(ctx context.Context, cfg config.ClientConfig, logger *slog.Logger) (ports.SessionStore, message.Publisher, func(), error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if cfg.RedisURL == "" {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return store.NewMemorySessionStore(), pubSub, func() { _ = pubSub.Close() }, nil
	}

	sessions, err := store.NewRedisSessionStoreFromURL(ctx, cfg.RedisURL, cfg.StorageKey)
	if err != nil {
		return nil, nil, nil, err
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: sessions.Client(),
	}, wmLogger)
	if err != nil {
		_ = sessions.Close()
		return nil, nil, nil, err
	}

	logger.Debug("using redis session cache", "key", cfg.StorageKey)

	return sessions, publisher, func() {
		_ = publisher.Close()
		_ = sessions.Close()
	}, nil
}

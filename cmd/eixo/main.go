package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/eixo/internal/auth"
	"github.com/dukerupert/eixo/internal/config"
	"github.com/dukerupert/eixo/internal/database"
	"github.com/dukerupert/eixo/internal/logging"
	"github.com/dukerupert/eixo/internal/notify"
	"github.com/dukerupert/eixo/internal/relay"
	"github.com/dukerupert/eixo/internal/server"
	ws "github.com/dukerupert/eixo/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, logging.FileConfig{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("EIXO_JWT_SECRET not set, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(cfg.HouseholdGroup, logger.With("component", "websocket"))

	// With Redis, every instance (this one included) receives events through
	// the relay; without it, events go straight to the local hub.
	var rly *relay.Relay
	var publisher notify.Publisher = hub
	if cfg.RedisAddr != "" {
		rly, err = relay.New(ctx, relay.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		}, logger.With("component", "relay"))
		if err != nil {
			return fmt.Errorf("connect relay: %w", err)
		}
		defer rly.Close()
		publisher = rly
	}
	notifier := notify.NewEmitter(cfg.HouseholdGroup, logger.With("component", "notify"), publisher)

	srv := server.New(db, hub, notifier, auth.NewTokens(secret, cfg.TokenTTL), server.Options{
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("eixo running", "addr", "http://localhost:"+cfg.Port, "redis", rly != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		notifier.Wait()
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	})

	if rly != nil {
		g.Go(func() error {
			return rly.Run(gctx, func(group string, ev notify.Event) {
				hub.Publish(gctx, group, ev)
			})
		})
	}

	return g.Wait()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

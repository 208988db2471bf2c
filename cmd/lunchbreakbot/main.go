// Command lunchbreakbot runs the lunch order Telegram bot: it wires the
// configured key-value backend, the order engine, the bot update loop,
// and the ops HTTP server, then waits for a shutdown signal.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MayStepanyan/lunchbreakbot/internal/api"
	"github.com/MayStepanyan/lunchbreakbot/internal/bot"
	"github.com/MayStepanyan/lunchbreakbot/internal/config"
	"github.com/MayStepanyan/lunchbreakbot/internal/kv"
	kvpostgres "github.com/MayStepanyan/lunchbreakbot/internal/kv/postgres"
	kvsqlite "github.com/MayStepanyan/lunchbreakbot/internal/kv/sqlite"
	"github.com/MayStepanyan/lunchbreakbot/internal/observability"
	"github.com/MayStepanyan/lunchbreakbot/internal/orders"
)

func main() {
	logger := observability.NewLogger(observability.ConfigFromEnv())

	configPath := flag.String("config", envOr("LUNCHBREAKBOT_CONFIG", ""), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      envOr("SENTRY_ENVIRONMENT", "production"),
			Release:          envOr("APP_VERSION", "dev"),
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			logger.Info("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("store initialization failed", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("store ready", "backend", cfg.Store.Backend)

	metrics := observability.NewMetrics("lunchbreakbot")
	svc := orders.NewService(store)

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("telegram authorization failed", "error", err)
		os.Exit(1)
	}
	logger.Info("telegram bot authorized", "username", tg.Self.UserName)

	b := bot.New(tg, svc, logger, metrics, bot.Options{
		RepliesPerSecond: cfg.Reply.PerSecond,
		ReplyBurst:       cfg.Reply.Burst,
	})

	var opsServer *http.Server
	if cfg.Ops.Addr != "" {
		opsServer = &http.Server{
			Addr:              cfg.Ops.Addr,
			Handler:           api.NewServer(svc, logger, metrics).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server listening", "addr", cfg.Ops.Addr)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server failed", "error", err)
			}
		}()
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := tg.GetUpdatesChan(updateCfg)

	logger.Info("collecting updates")
	b.Run(ctx, updates)

	// Either the update channel closed or a signal arrived.
	tg.StopReceivingUpdates()
	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown", "error", err)
		}
	}
	logger.Info("shutdown complete")
}

// openStore builds the key-value backend selected in the config.
func openStore(ctx context.Context, cfg config.StoreConfig) (kv.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return kvsqlite.New(cfg.SQLitePath)
	case "postgres":
		return kvpostgres.New(ctx, cfg.PostgresDSN)
	case "redis":
		return kv.NewRedisStore(kv.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), nil
	default:
		return kv.NewMemoryStore(), nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

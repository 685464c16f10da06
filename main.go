package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/broker"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/config"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/dispatcher"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/fetcher"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/handlers"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/logger"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/notifier"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/scheduler"
	"github.com/theodorthegreathe/mvcr-application-checker/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tz, err := time.LoadLocation(cfg.NotifyTZ)
	if err != nil {
		zlog.Warn("unknown timezone, falling back to UTC", zap.String("tz", cfg.NotifyTZ), zap.Error(err))
		tz = time.UTC
	}

	// Store and broker connections are the only fatal failures; everything
	// after startup degrades per operation.
	pgStore, err := store.NewPostgresStore(ctx, store.PostgresConfig{
		DSN:        cfg.PostgresDSN(),
		MinConns:   cfg.DBMinPoolSize,
		MaxConns:   cfg.DBMaxPoolSize,
		MaxRetries: cfg.ConnectMaxRetries,
		RetryDelay: cfg.ConnectRetryDelay(),
	}, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pgStore.Close()

	mq, err := broker.Connect(ctx, cfg.RabbitURL(), cfg.ConnectMaxRetries, cfg.ConnectRetryDelay(), zlog)
	if err != nil {
		zlog.Fatal("failed to connect to rabbit", zap.Error(err))
	}
	defer mq.Close()

	// The dedup cache is a hardening layer; without Redis the bot still
	// works, duplicates are just not suppressed.
	var dedup notifier.Deduper
	if rdb, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "mvcr_checker"); err != nil {
		zlog.Warn("redis unavailable, notification dedup disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		dedup = store.NewDedupCache(rdb, cfg.DedupTTL(), zlog)
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		zlog.Fatal("failed to create bot", zap.Error(err))
	}

	f := fetcher.NewHTTPFetcher(cfg.FetcherURL, cfg.FetchRetries, zlog)
	disp := dispatcher.New(pgStore, f, mq, cfg.FetchTimeout(), zlog)
	notif := notifier.New(notifier.NewTelegramSender(b), dedup, tz, zlog)

	sched := scheduler.New(pgStore, mq, scheduler.Config{
		TickPeriod:    cfg.SchedulerPeriod(),
		RefreshPeriod: cfg.RefreshPeriod(),
	}, zlog)

	h := handlers.New(pgStore, mq, tz, cfg.AdminChatIDs, zlog)
	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, h.HandleUpdate)

	go func() {
		if err := mq.ConsumeFetchTasks(ctx, cfg.FetchWorkers, disp.Process); err != nil {
			zlog.Error("fetch task consumer exited", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		if err := mq.ConsumeNotifications(ctx, notif.Handle); err != nil {
			zlog.Error("notification consumer exited", zap.Error(err))
			cancel()
		}
	}()

	sched.Start()
	defer sched.Stop()

	zlog.Info("starting telegram bot", zap.Int64s("admins", cfg.AdminChatIDs))
	b.Start(ctx)
	zlog.Info("shutting down")
}

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"channelhelper/backend/internal/api/handler"
	"channelhelper/backend/internal/commands"
	"channelhelper/backend/internal/config"
	"channelhelper/backend/internal/gateway"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using process environment")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
	}

	store := storage.NewService(db, rdb, cfg.TelegramToken)
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("telegram connection failed", zap.Error(err))
	}
	logger.Info("authorized", zap.String("bot", api.Self.UserName))

	gw := gateway.NewTelegram(api, logger,
		gateway.WithTimeout(cfg.GatewayTimeout),
		gateway.WithMaxAttempts(cfg.GatewayMaxAttempts))

	env := &commands.Env{
		Store:    store,
		Gw:       gw,
		Log:      logger,
		FontPath: cfg.FontPath,
	}
	registry := router.NewRegistry()
	commands.RegisterAll(env, registry)
	dispatcher := router.NewDispatcher(registry, commands.StateResolver(env), logger, cfg.WorkerPoolSize)
	defer dispatcher.Close()

	mode := "polling"
	if cfg.WebhookMode {
		mode = "webhook"
	}

	r := gin.Default()
	h := handler.NewHandler(dispatcher, logger, mode)
	h.Routes(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WebhookMode {
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL + "/telegram-webhook")
		if err != nil {
			logger.Fatal("webhook configuration failed", zap.Error(err))
		}
		if _, err := api.Request(wh); err != nil {
			logger.Fatal("webhook registration failed", zap.Error(err))
		}
		logger.Info("webhook registered", zap.String("url", cfg.WebhookURL))
	} else {
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = 30
		updates := api.GetUpdatesChan(updateConfig)
		go func() {
			for update := range updates {
				update := update
				dispatcher.Dispatch(ctx, &update)
			}
		}()
		logger.Info("long polling started")
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	logger.Info("http server listening", zap.String("port", cfg.Port))

	<-ctx.Done()
	logger.Info("shutting down")

	api.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/cryptosim/cryptosim/internal/alert"
	"github.com/cryptosim/cryptosim/internal/api"
	"github.com/cryptosim/cryptosim/internal/config"
	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/notify"
	"github.com/cryptosim/cryptosim/internal/postgres"
	"github.com/cryptosim/cryptosim/internal/pricefeed"
	"github.com/cryptosim/cryptosim/internal/server"
	"github.com/cryptosim/cryptosim/internal/store"
	"github.com/cryptosim/cryptosim/internal/sweep"
	"github.com/cryptosim/cryptosim/internal/trade"
	"github.com/joho/godotenv"
)

const _cfgFilePath = "./configs/cryptosim.yaml"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("can't detect .env file")
	}

	cfg, err := config.LoadServiceConfig(_cfgFilePath)
	if err != nil {
		log.Fatalf("%s: can't load service cfg", err)
	}

	zapLogger, loggerSync, err := logger.NewZapLogger(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pgConfig := postgres.NewConfigFromEnv().Setup()
	zapLogger.Debugf("trying to connect to db with: %s", pgConfig)
	db, err := postgres.NewDB(pgConfig)
	if err != nil {
		zapLogger.Fatalf("%s: can't connect to db", err)
	}
	defer db.Close()

	ledger := store.NewStore(db)
	prices := pricefeed.NewStoreSource(ledger)

	feedClient := pricefeed.NewClient(cfg.PriceFeed, zapLogger)
	refresher := pricefeed.NewRefresher(ledger, feedClient, cfg.PriceFeed.PollInterval, zapLogger)

	var notifier sweep.Notifier = notify.NewLogNotifier(zapLogger)
	if cfg.Notifier.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notifier, zapLogger)
	}

	engine := trade.NewEngine(ledger, prices, zapLogger)
	registry := alert.NewRegistry(ledger, prices, zapLogger)
	sweeper := sweep.NewSweeper(ledger, prices, notifier, cfg.Sweep.Interval, zapLogger)

	go refresher.Run(ctx)
	go sweeper.Run(ctx)

	handler := api.NewHandler(engine, registry, sweeper, ledger, zapLogger)
	httpServer := server.NewHTTPServer(ctx, cfg.HTTPPort, handler.Router())

	zapLogger.Infof("listening on :%s, sweep every %s", cfg.HTTPPort, cfg.Sweep.Interval)
	if err := httpServer.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Fatalf("%s: http server stopped", err)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/config"
	"github.com/shoefactory/backend/internal/inventory"
	kafkax "github.com/shoefactory/backend/internal/kafka"
	"github.com/shoefactory/backend/internal/logx"
	"github.com/shoefactory/backend/internal/orders"
	"github.com/shoefactory/backend/internal/postgres"
	"github.com/shoefactory/backend/internal/redisx"
	"github.com/shoefactory/backend/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.Env, cfg.ServiceName+"-worker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	mon := &stockwatch.Monitor{
		Ledger:    &inventory.Ledger{DB: db},
		Redis:     rdb,
		Threshold: cfg.LowStockThreshold,
		Log:       log,
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch")
	workers := atoi(os.Getenv("STOCKWATCH_WORKERS"), 8)

	run := func(topic string) {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, log)
		go func() {
			log.Info("consumer started",
				zap.String("topic", topic),
				zap.String("group", group),
				zap.Int("workers", workers))
			if err := cons.Start(ctx, mon.HandleOrderEvent); err != nil {
				log.Error("consumer exit", zap.Error(err))
				cancel()
			}
		}()
	}
	run(orders.TopicOrderCreated)
	run(orders.TopicOrderStatus)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumers")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

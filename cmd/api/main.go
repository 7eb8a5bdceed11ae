package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shoefactory/backend/internal/catalog"
	"github.com/shoefactory/backend/internal/config"
	"github.com/shoefactory/backend/internal/httpx"
	"github.com/shoefactory/backend/internal/inventory"
	kafkax "github.com/shoefactory/backend/internal/kafka"
	"github.com/shoefactory/backend/internal/logx"
	"github.com/shoefactory/backend/internal/orders"
	"github.com/shoefactory/backend/internal/postgres"
	"github.com/shoefactory/backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.Env, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	created.Start(ctx)
	changed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024, log)
	changed.Start(ctx)

	// Stores & workflow
	catalogRepo := &catalog.Repo{DB: db}
	ledger := &inventory.Ledger{DB: db}
	svc := &orders.Service{
		Store:   &orders.Repo{DB: db},
		Catalog: catalogRepo,
		Ledger:  ledger,
		Created: created,
		Changed: changed,
		Name:    cfg.ServiceName,
		Log:     log,
	}

	// HTTP
	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Repo: catalogRepo, Log: log}).Register(router)
	(&httpx.InventoryHandler{Ledger: ledger, Redis: rdb, Log: log}).Register(router)
	(&httpx.OrdersHandler{Service: svc, Redis: rdb, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	created.Close() // flush & close writers
	changed.Close()
	cancel()
	created.WaitClosed()
	changed.WaitClosed()
}

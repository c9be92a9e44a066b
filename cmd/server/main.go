package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/price-query/internal/adapter/handler"
	"github.com/rl1809/price-query/internal/adapter/storage"
	"github.com/rl1809/price-query/internal/config"
	"github.com/rl1809/price-query/internal/core/service"
	"github.com/rl1809/price-query/internal/guard"
	"github.com/rl1809/price-query/internal/obs"
	"github.com/rl1809/price-query/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		obs.Logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	obs.InitLogger(cfg.Debug)
	log := obs.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL: price catalog and event store.
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Error("failed to connect mysql", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping mysql", "error", err)
		os.Exit(1)
	}
	log.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)

	// Redis: event publisher, unless publishing is disabled.
	var publisher port.EventPublisher = storage.NopPublisher{}
	var rdb *redis.Client
	if cfg.Audit.PublishEnabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		publisher = storage.NewRedisPublisher(rdb, cfg.Audit.Stream)
		log.Info("connected to redis", "stream", cfg.Audit.Stream)
	} else {
		log.Info("event publishing disabled")
	}

	breakers := guard.NewRegistry()
	pipeline := service.NewAuditPipeline(mysqlAdapter, publisher, breakers, cfg.Audit.Workers, cfg.Audit.QueueSize)
	priceService := service.NewPriceService(mysqlAdapter, service.NewPriceResolver(mysqlAdapter), pipeline, breakers)

	httpHandler := handler.NewHTTPHandler(priceService)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/prices/filter", httpHandler.FindPrice)
	mux.HandleFunc("/api/prices", httpHandler.GetAllPrices)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	// Drain queued audit events before closing connections.
	pipeline.Close()
	log.Info("audit pipeline drained")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Info("connections closed")
}

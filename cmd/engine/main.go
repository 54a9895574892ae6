package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/internal/infrastructure/postgres"
	marketrepo "github.com/tradewind/exchange/internal/infrastructure/postgres/market"
	orderrepo "github.com/tradewind/exchange/internal/infrastructure/postgres/order"
	statsrepo "github.com/tradewind/exchange/internal/infrastructure/postgres/stats"
	traderepo "github.com/tradewind/exchange/internal/infrastructure/postgres/trade"
	"github.com/tradewind/exchange/internal/pkg/config"
	"github.com/tradewind/exchange/internal/usecase/lane"
	"github.com/tradewind/exchange/internal/usecase/matcher"
	"github.com/tradewind/exchange/internal/usecase/metadata"
	"github.com/tradewind/exchange/internal/usecase/notifier"
	"github.com/tradewind/exchange/internal/usecase/router"
	"github.com/tradewind/exchange/pkg/logger"
	"github.com/tradewind/exchange/pkg/postgresql"
	"github.com/tradewind/exchange/pkg/redis"
	"github.com/tradewind/exchange/pkg/util"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	pgClient, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		appLogger.GetZap().Fatal("Failed to initialize PostgreSQL client: " + err.Error())
	}
	defer pgClient.Close()

	redisClient := redis.NewClient(appLogger, &cfg.Redis)
	if err := redisClient.Connect(ctx); err != nil {
		appLogger.GetZap().Fatal("Failed to connect to Redis: " + err.Error())
	}
	defer redisClient.Disconnect(context.Background())

	// Repositories and the match engine.
	orders := orderrepo.NewRepository(pgClient)
	trades := traderepo.NewRepository(pgClient)
	stats := statsrepo.NewRepository(pgClient)
	markets := marketrepo.NewRepository(pgClient)

	engine := matcher.NewEngine(orders, trades, stats, postgres.NewTransactor(pgClient), appLogger, matcher.Options{
		MaxWritesPerCommit: cfg.Matching.MaxWritesPerCommit,
	})

	metadataCache := metadata.NewCache(markets, appLogger)
	updatePublisher := notifier.NewRedisPublisher(redisClient, cfg.Notify.Channel)

	// One serialization point per market, shared across every lane consumer.
	marketLocks := util.NewKeyLock()

	// Lane writers: hashing the message key keeps one market on one partition.
	spotWriter := newLaneWriter(cfg.Lanes.Brokers, cfg.Lanes.SpotTopic)
	futuresWriter := newLaneWriter(cfg.Lanes.Brokers, cfg.Lanes.FuturesTopic)
	perpWriter := newLaneWriter(cfg.Lanes.Brokers, cfg.Lanes.PerpTopic)
	defer spotWriter.Close()
	defer futuresWriter.Close()
	defer perpWriter.Close()

	// The lane routing table. OPTION is deliberately unmapped until the
	// options lane exists; the router drops those with a logged error.
	lanes := map[orderv1.OrderType]router.Lane{
		orderv1.OrderTypeMarket: {Name: "spot", Writer: spotWriter},
		orderv1.OrderTypeLimit:  {Name: "spot", Writer: spotWriter},
		orderv1.OrderTypeFuture: {Name: "futures", Writer: futuresWriter},
		orderv1.OrderTypePerp:   {Name: "perp", Writer: perpWriter},
	}

	changeStreamReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.ChangeStream.Brokers,
		Topic:       cfg.ChangeStream.Topic,
		GroupID:     cfg.ChangeStream.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	dedup := router.NewRedisDeduper(redisClient, cfg.Matching.DedupWindow, cfg.Matching.DedupPrefix)

	insertRouter, err := router.NewRouter(changeStreamReader, lanes, dedup, appLogger, router.DefaultOptions())
	if err != nil {
		appLogger.GetZap().Fatal("Failed to build order insert router: " + err.Error())
	}

	consumers := []*lane.Consumer{
		lane.NewConsumer("spot", newLaneReader(cfg.Lanes, cfg.Lanes.SpotTopic), engine, updatePublisher, marketLocks, metadataCache, appLogger),
		lane.NewConsumer("futures", newLaneReader(cfg.Lanes, cfg.Lanes.FuturesTopic), engine, updatePublisher, marketLocks, metadataCache, appLogger),
		lane.NewConsumer("perp", newLaneReader(cfg.Lanes, cfg.Lanes.PerpTopic), engine, updatePublisher, marketLocks, metadataCache, appLogger),
	}

	healthServer := newHealthServer(cfg.App.HealthAddr, pgClient)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, logger.Field{Key: "action", Value: "health_server"})
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		insertRouter.Start(ctx)
	}()

	for _, c := range consumers {
		wg.Add(1)
		go func(c *lane.Consumer) {
			defer wg.Done()
			c.Start(ctx)
		}(c)
	}

	appLogger.Info("settlement engine started",
		logger.Field{Key: "app", Value: cfg.App.Name},
		logger.Field{Key: "environment", Value: cfg.App.Environment},
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down settlement engine")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, logger.Field{Key: "action", Value: "stop_health_server"})
	}

	if err := insertRouter.Stop(); err != nil {
		appLogger.Error(err, logger.Field{Key: "action", Value: "stop_router"})
	}
	for _, c := range consumers {
		if err := c.Stop(); err != nil {
			appLogger.Error(err, logger.Field{Key: "action", Value: "stop_lane_consumer"})
		}
	}

	// Graceful shutdown with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("settlement engine stopped")
	case <-time.After(30 * time.Second):
		appLogger.Warn("shutdown timeout exceeded")
	}
}

func newHealthServer(addr string, pg postgresql.PostgreSQLClient) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := pg.CheckHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return &http.Server{Addr: addr, Handler: mux}
}

func newLaneWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
}

func newLaneReader(cfg config.LanesConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
}

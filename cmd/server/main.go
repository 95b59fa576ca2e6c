package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore-service/config"
	"bookstore-service/internal/api"
	"bookstore-service/internal/auth"
	"bookstore-service/internal/broker"
	"bookstore-service/internal/redisclient"
	"bookstore-service/internal/service"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"
	"bookstore-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bookstore service", zap.String("store", cfg.Database.Driver))

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	repo, closeRepo, err := openRepository(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeRepo()
	logger.Info("Store ready")

	var (
		redisCache  service.StatsCache
		idemKeys    service.IdempotencyKeys
		redisClient *redisclient.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		redisCache, idemKeys = redisClient, redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher service.EventPublisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	policy := auth.DefaultPolicy()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	orderService := service.NewOrderService(repo, publisher, idemKeys, cfg.Business.IdempotencyKeyTTL)
	bookService := service.NewBookService(repo, publisher, policy)
	statsCache := statsCacheFor(cfg, redisCache)
	if redisCache != nil && statsCache == nil {
		logger.Info("Stats cache disabled, no stats worker to invalidate it")
	}
	statsService := service.NewStatsService(repo, repo, statsCache, cfg.Business.StatsCacheTTL,
		cfg.Business.RecentOrdersLimit, cfg.Business.TopBooksLimit)
	wishlistService := service.NewWishlistService(repo, repo)
	authService := service.NewAuthService(repo, tokens)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var statsWorker *worker.StatsWorker
	if statsWorkerEnabled(cfg) && redisClient != nil {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		statsWorker = worker.NewStatsWorker(consumer, redisClient)
		go func() {
			if err := statsWorker.Start(workerCtx); err != nil {
				logger.Error("Stats worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Orders:   orderService,
		Books:    bookService,
		Stats:    statsService,
		Wishlist: wishlistService,
		Auth:     authService,
		Tokens:   tokens,
		Policy:   policy,
		Store:    repo,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if statsWorker != nil {
		if err := statsWorker.Stop(); err != nil {
			logger.Warn("Error stopping stats worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// openRepository connects the configured store. Postgres is migrated on start.
func openRepository(cfg config.DatabaseConfig) (service.Repository, func(), error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "postgres":
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// statsWorkerEnabled reports whether cached stats are evicted on domain events
func statsWorkerEnabled(cfg *config.Config) bool {
	return cfg.Kafka.Enabled && cfg.Redis.Enabled
}

// statsCacheFor returns cache only when the stats worker evicts it. Without
// the worker, stats are computed from the store on every request.
func statsCacheFor(cfg *config.Config, cache service.StatsCache) service.StatsCache {
	if cache == nil || !statsWorkerEnabled(cfg) {
		return nil
	}
	return cache
}

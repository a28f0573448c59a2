// API server entry point for the Flavatix wheel service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawrns/flavatix/internal/application/extraction"
	tastingapp "github.com/lawrns/flavatix/internal/application/tasting"
	wheelapp "github.com/lawrns/flavatix/internal/application/wheel"
	"github.com/lawrns/flavatix/internal/config"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres/repositories"
	"github.com/lawrns/flavatix/internal/infrastructure/database/redis"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
	"github.com/lawrns/flavatix/internal/infrastructure/search/opensearch"
	"github.com/lawrns/flavatix/internal/infrastructure/storage/minio"
	grpchealth "github.com/lawrns/flavatix/internal/interfaces/grpc"
	httpserver "github.com/lawrns/flavatix/internal/interfaces/http"
	"github.com/lawrns/flavatix/internal/interfaces/http/handlers"
	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting flavatix API server",
		logging.Int("http_port", cfg.Server.Port),
		logging.Int("grpc_health_port", cfg.Server.GRPCHealthPort),
	)

	// PostgreSQL, with migrations applied before anything reads the schema.
	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", logging.Err(err))
	}
	defer conn.Close()

	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), cfg.Database.MigrationPath); err != nil {
			logger.Fatal("failed to run migrations", logging.Err(err))
		}
	}

	// Redis cache.
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", logging.Err(err))
	}
	defer redisClient.Close()

	cacheOpts := []redis.CacheOption{redis.WithDefaultTTL(cfg.Wheel.CacheTTL)}
	if cfg.Redis.KeyPrefix != "" {
		cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
	}
	cache := redis.NewRedisCache(redisClient, logger, cacheOpts...)

	// Kafka producer for lifecycle events.
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.ProducerRetries,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create Kafka producer", logging.Err(err))
	}
	defer producer.Close()

	// MinIO object storage for SVG exports.
	minioClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("failed to connect to MinIO", logging.Err(err))
	}
	defer minioClient.Close()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if err := minioClient.EnsureBucket(startupCtx); err != nil {
		logger.Fatal("failed to ensure MinIO bucket", logging.Err(err))
	}
	exports := minio.NewExportStore(minioClient, logger)

	// OpenSearch for descriptor full-text search.
	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Fatal("failed to connect to OpenSearch", logging.Err(err))
	}
	defer osClient.Close()

	indexer := opensearch.NewIndexer(osClient, logger)
	if err := indexer.EnsureIndex(startupCtx); err != nil {
		logger.Fatal("failed to ensure descriptor index", logging.Err(err))
	}
	searcher := opensearch.NewSearcher(osClient, logger)

	// Prometheus metrics.
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "flavatix",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create metrics collector", logging.Err(err))
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	// Repositories and application services.
	tastingRepo := repositories.NewPostgresTastingRepo(conn, logger)
	descriptorRepo := repositories.NewPostgresDescriptorRepo(conn, logger)
	wheelRepo := repositories.NewPostgresWheelRepo(conn, logger)

	tastingService := tastingapp.NewService(tastingRepo, descriptorRepo, producer, logger)
	wheelService := wheelapp.NewService(
		descriptorRepo, wheelRepo, cache, exports, producer, appMetrics, logger, cfg.Wheel)

	extractor, err := extraction.NewClient(cfg.Extraction, logger)
	if err != nil {
		logger.Fatal("failed to create extraction client", logging.Err(err))
	}
	extractionService := extraction.NewService(
		tastingRepo, descriptorRepo, extractor, indexer, cache, producer, appMetrics, logger)

	// HTTP surface.
	healthHandler := handlers.NewHealthHandler(logger)
	healthHandler.AddCheck("postgres", conn.HealthCheck)
	healthHandler.AddCheck("redis", redisClient.Ping)
	healthHandler.AddCheck("minio", minioClient.HealthCheck)
	healthHandler.AddCheck("opensearch", osClient.Ping)

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	limiter := middleware.NewTokenBucketLimiter(
		rateLimitCfg.RequestsPerSecond,
		rateLimitCfg.BurstSize,
		rateLimitCfg.CleanupInterval,
	)
	defer limiter.Stop()

	router := httpserver.NewRouter(httpserver.RouterConfig{
		TastingHandler:    handlers.NewTastingHandler(tastingService, extractionService, logger),
		WheelHandler:      handlers.NewWheelHandler(wheelService, logger),
		DescriptorHandler: handlers.NewDescriptorHandler(searcher, logger),
		HealthHandler:     healthHandler,
		Logger:            logger,
		AppMetrics:        appMetrics,
		Collector:         collector,
		RateLimiter:       limiter,
		RateLimit:         rateLimitCfg,
		CORS:              middleware.DefaultCORSConfig(),
		AccessLog:         middleware.DefaultAccessLogConfig(),
		EnableGinMode:     ginMode(cfg.Server.Mode),
	})

	httpSrv := httpserver.NewServer(cfg.Server, router, logger)
	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Error("HTTP server error", logging.Err(err))
		}
	}()

	var healthSrv *grpchealth.HealthServer
	if cfg.Server.GRPCHealthPort > 0 {
		healthSrv, err = grpchealth.NewHealthServer(cfg.Server.GRPCHealthPort, logger)
		if err != nil {
			logger.Fatal("failed to create gRPC health server", logging.Err(err))
		}
		go func() {
			if err := healthSrv.Start(); err != nil {
				logger.Error("gRPC health server error", logging.Err(err))
			}
		}()
	}

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if healthSrv != nil {
		if err := healthSrv.Stop(ctx); err != nil {
			logger.Error("gRPC health server shutdown error", logging.Err(err))
		}
	}
	if err := httpSrv.Stop(ctx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}

	logger.Info("server stopped")
}

// loadConfig loads from file when it exists, otherwise falls back to
// FLAVATIX_* environment variables for containerised deployments.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// newLogger maps the service log config onto the logging package's config.
func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}
	lc := logging.LogConfig{Level: cfg.Level, Format: format}
	if cfg.Output != "" {
		lc.OutputPaths = []string{cfg.Output}
	}
	return logging.NewLogger(lc)
}

// ginMode maps server mode to gin's mode strings.
func ginMode(mode string) string {
	switch mode {
	case "debug":
		return "debug"
	case "test":
		return "test"
	default:
		return "release"
	}
}

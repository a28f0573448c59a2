// Worker entry point: consumes tasting lifecycle events and runs the
// descriptor extraction pipeline for each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/application/extraction"
	"github.com/lawrns/flavatix/internal/config"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres/repositories"
	"github.com/lawrns/flavatix/internal/infrastructure/database/redis"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
	"github.com/lawrns/flavatix/internal/infrastructure/search/opensearch"
	"github.com/lawrns/flavatix/pkg/errors"
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

	logger.Info("starting flavatix extraction worker",
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("group_id", cfg.Kafka.GroupID),
	)

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", logging.Err(err))
	}
	defer conn.Close()

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

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.ProducerRetries,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create Kafka producer", logging.Err(err))
	}
	defer producer.Close()

	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Fatal("failed to connect to OpenSearch", logging.Err(err))
	}
	defer osClient.Close()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	indexer := opensearch.NewIndexer(osClient, logger)
	if err := indexer.EnsureIndex(startupCtx); err != nil {
		startupCancel()
		logger.Fatal("failed to ensure descriptor index", logging.Err(err))
	}
	startupCancel()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "flavatix",
		Subsystem: "worker",
	}, logger)
	if err != nil {
		logger.Fatal("failed to create metrics collector", logging.Err(err))
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	tastingRepo := repositories.NewPostgresTastingRepo(conn, logger)
	descriptorRepo := repositories.NewPostgresDescriptorRepo(conn, logger)

	extractor, err := extraction.NewClient(cfg.Extraction, logger)
	if err != nil {
		logger.Fatal("failed to create extraction client", logging.Err(err))
	}
	extractionService := extraction.NewService(
		tastingRepo, descriptorRepo, extractor, indexer, cache, producer, appMetrics, logger)

	handler := extractionHandler(extractionService, appMetrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One consumer per worker slot, all in the same group, so partitions are
	// spread across them.
	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	consumers := make([]*kafka.Consumer, 0, concurrency)
	for i := 0; i < concurrency; i++ {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			Topics: []string{
				kafka.TopicTastingCreated,
				kafka.TopicTastingUpdated,
				kafka.TopicTastingDeleted,
			},
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			MaxRetries:     cfg.Worker.MaxRetries,
			RetryBackoff:   cfg.Worker.RetryBackoff,
			CommitInterval: cfg.Worker.CommitInterval,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create Kafka consumer", logging.Err(err))
		}
		consumers = append(consumers, consumer)

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := consumer.Run(ctx, handler); err != nil && ctx.Err() == nil {
				logger.Error("consumer stopped", logging.Int("worker", id), logging.Err(err))
			}
		}(i)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()
	for _, c := range consumers {
		_ = c.Close()
	}
	wg.Wait()
	logger.Info("worker stopped")
}

// extractionHandler routes tasting lifecycle events: created/updated run
// extraction, deleted cleans up the search index and cached wheels.
// Permanent failures (unknown tasting, nothing to extract) are logged and
// committed rather than retried.
func extractionHandler(svc extraction.Service, metrics *prometheus.AppMetrics, logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			metrics.RecordWorkerMessage(msg.Topic, "malformed")
			logger.Warn("dropping malformed event", logging.String("topic", msg.Topic), logging.Err(err))
			return nil
		}

		if msg.Topic == kafka.TopicTastingDeleted {
			return handleDeleted(ctx, svc, metrics, logger, msg, env)
		}

		var payload kafka.TastingCreatedPayload
		if err := env.DecodePayload(&payload); err != nil {
			metrics.RecordWorkerMessage(msg.Topic, "malformed")
			logger.Warn("dropping event with undecodable payload",
				logging.String("topic", msg.Topic), logging.Err(err))
			return nil
		}

		tastingID, err := uuid.Parse(payload.TastingID)
		if err != nil {
			metrics.RecordWorkerMessage(msg.Topic, "malformed")
			logger.Warn("dropping event with invalid tasting id",
				logging.String("topic", msg.Topic),
				logging.String("tasting_id", payload.TastingID))
			return nil
		}

		result, err := svc.ExtractAndStore(ctx, tastingID)
		if err != nil {
			// A deleted tasting or one without notes will never succeed on
			// retry.
			if errors.IsNotFound(err) || errors.IsCode(err, errors.ErrCodeExtractionFailed) {
				metrics.RecordWorkerMessage(msg.Topic, "skipped")
				logger.Info("skipping extraction",
					logging.String("tasting_id", tastingID.String()), logging.Err(err))
				return nil
			}
			metrics.RecordWorkerMessage(msg.Topic, "error")
			return err
		}

		metrics.RecordWorkerMessage(msg.Topic, "success")
		logger.Info("extraction completed",
			logging.String("tasting_id", tastingID.String()),
			logging.Int("stored", result.Stored),
			logging.Int("dropped", result.Dropped))
		return nil
	}
}

// handleDeleted removes the deleted tasting's search documents and cached
// wheels.  Index deletion is idempotent, so failures are returned for retry.
func handleDeleted(ctx context.Context, svc extraction.Service, metrics *prometheus.AppMetrics, logger logging.Logger, msg *kafka.Message, env *kafka.EventEnvelope) error {
	var payload kafka.TastingDeletedPayload
	if err := env.DecodePayload(&payload); err != nil {
		metrics.RecordWorkerMessage(msg.Topic, "malformed")
		logger.Warn("dropping event with undecodable payload",
			logging.String("topic", msg.Topic), logging.Err(err))
		return nil
	}

	tastingID, err := uuid.Parse(payload.TastingID)
	if err != nil {
		metrics.RecordWorkerMessage(msg.Topic, "malformed")
		logger.Warn("dropping event with invalid tasting id",
			logging.String("topic", msg.Topic),
			logging.String("tasting_id", payload.TastingID))
		return nil
	}

	if err := svc.CleanupDeleted(ctx, tastingID, payload.UserID, payload.ItemName, payload.Categories); err != nil {
		metrics.RecordWorkerMessage(msg.Topic, "error")
		return err
	}

	metrics.RecordWorkerMessage(msg.Topic, "success")
	logger.Info("deleted tasting cleaned up",
		logging.String("tasting_id", tastingID.String()))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

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

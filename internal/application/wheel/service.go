// Package wheel orchestrates flavor-wheel generation: scope resolution,
// descriptor aggregation, layout, caching, persistence, and export.
package wheel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/config"
	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/database/redis"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
	"github.com/lawrns/flavatix/pkg/errors"
)

// GenerateRequest holds parameters for a wheel generation.
type GenerateRequest struct {
	WheelType domainWheel.WheelType `json:"wheel_type"`
	Scope     descriptor.Scope      `json:"scope"`

	// ForceRegenerate bypasses the cache read and overwrites the cached
	// entry with a freshly generated wheel.
	ForceRegenerate bool `json:"force_regenerate,omitempty"`
}

// GenerateResult is the outcome of a wheel generation.
type GenerateResult struct {
	Record    *domainWheel.Record `json:"record"`
	FromCache bool                `json:"from_cache"`
}

// ExportResult describes a stored SVG export and its share link.
type ExportResult struct {
	WheelID   uuid.UUID `json:"wheel_id"`
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service is the wheel generation service used by HTTP handlers and the
// worker.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domainWheel.Record, error)
	GetLatest(ctx context.Context, wheelType domainWheel.WheelType, scope descriptor.Scope) (*domainWheel.Record, error)
	Export(ctx context.Context, wheelID uuid.UUID) (*ExportResult, error)
}

// eventPublisher is the slice of the Kafka producer the service needs.
type eventPublisher interface {
	PublishEvent(ctx context.Context, topic string, payload interface{}) error
}

// exportStore is the slice of the MinIO export store the service needs.
type exportStore interface {
	PutSVG(ctx context.Context, wheelID uuid.UUID, svg []byte) (string, error)
	ShareLink(ctx context.Context, objectKey string) (string, time.Time, error)
}

type service struct {
	descriptors descriptor.Repository
	wheels      domainWheel.Repository
	cache       redis.Cache
	exports     exportStore
	events      eventPublisher
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
	cfg         config.WheelConfig
}

// NewService creates the wheel generation service.  Metrics may be nil when
// collection is disabled.
func NewService(
	descriptors descriptor.Repository,
	wheels domainWheel.Repository,
	cache redis.Cache,
	exports exportStore,
	events eventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
	cfg config.WheelConfig,
) Service {
	return &service{
		descriptors: descriptors,
		wheels:      wheels,
		cache:       cache,
		exports:     exports,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// CacheKey returns the cache key for a wheel-type/scope pair.  The
// extraction pipeline uses the same function to invalidate affected entries.
func CacheKey(wheelType domainWheel.WheelType, scope descriptor.Scope) string {
	return fmt.Sprintf("wheel:%s:%s", wheelType, scope.CacheKey())
}

// Generate returns a wheel for the given type and scope, serving from the
// cache when a fresh entry exists.  Concurrent requests for the same key
// collapse into one generation via the cache's singleflight loader.
func (s *service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	start := time.Now()

	if !req.WheelType.IsValid() {
		return nil, errors.New(errors.ErrCodeWheelTypeInvalid,
			fmt.Sprintf("unknown wheel type %q", req.WheelType))
	}
	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}

	key := CacheKey(req.WheelType, req.Scope)

	var rec domainWheel.Record
	generated := false

	if req.ForceRegenerate {
		fresh, err := s.generate(ctx, req)
		if err != nil {
			return nil, err
		}
		rec = *fresh
		generated = true
		if err := s.cache.Set(ctx, key, fresh, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache regenerated wheel",
				logging.String("key", key), logging.Err(err))
		}
	} else {
		err := s.cache.GetOrSet(ctx, key, &rec, s.cfg.CacheTTL,
			func(ctx context.Context) (interface{}, error) {
				generated = true
				fresh, genErr := s.generate(ctx, req)
				if genErr != nil {
					if errors.IsCode(genErr, errors.ErrCodeWheelEmptyInput) {
						// Cache the empty state under the null sentinel so
						// an empty scope does not hit Postgres on every
						// request; extraction invalidates the key when
						// descriptors arrive.
						return nil, nil
					}
					return nil, genErr
				}
				return fresh, nil
			})
		if err == redis.ErrNullCached {
			return nil, errors.New(errors.ErrCodeWheelEmptyInput,
				fmt.Sprintf("scope %s has no descriptors", req.Scope.CacheKey()))
		}
		if err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		source := "cache"
		if generated {
			source = "generated"
		}
		if !req.ForceRegenerate {
			s.metrics.RecordCacheAccess("wheel", !generated)
		}
		s.metrics.RecordWheelGeneration(string(req.WheelType), string(req.Scope.Type),
			source, rec.Data.TotalDescriptors, time.Since(start))
	}

	return &GenerateResult{Record: &rec, FromCache: !generated}, nil
}

// generate runs the full pipeline: load descriptors, filter by wheel type,
// aggregate, persist, and emit the generated event.
func (s *service) generate(ctx context.Context, req GenerateRequest) (*domainWheel.Record, error) {
	records, err := s.descriptors.ListByScope(ctx, req.Scope)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeWheelEmptyInput,
			fmt.Sprintf("scope %s has no descriptors", req.Scope.CacheKey()))
	}

	descriptors := make([]domainWheel.Descriptor, 0, len(records))
	for _, r := range records {
		descriptors = append(descriptors, r.Descriptor)
	}
	filtered := domainWheel.FilterByWheelType(descriptors, req.WheelType)
	if len(filtered) == 0 {
		return nil, errors.New(errors.ErrCodeWheelEmpty,
			fmt.Sprintf("scope %s has no %s descriptors", req.Scope.CacheKey(), req.WheelType))
	}

	data, err := domainWheel.Aggregate(filtered, req.WheelType, domainWheel.AggregateOptions{
		MaxDescriptorsPerSubcategory: s.cfg.MaxDescriptorsPerSubcategory,
	})
	if err != nil {
		return nil, err
	}

	rec := &domainWheel.Record{
		ID:          uuid.New(),
		WheelType:   req.WheelType,
		ScopeType:   req.Scope.Type,
		ScopeKey:    req.Scope.CacheKey(),
		Data:        data,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.wheels.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.publishGenerated(ctx, rec)

	s.logger.Info("Wheel generated",
		logging.String("wheel_id", rec.ID.String()),
		logging.String("wheel_type", string(rec.WheelType)),
		logging.String("scope", rec.ScopeKey),
		logging.Int("descriptors", data.TotalDescriptors))
	return rec, nil
}

// publishGenerated emits the wheel.generated event.  Publish failures are
// logged and swallowed; the wheel is already persisted.
func (s *service) publishGenerated(ctx context.Context, rec *domainWheel.Record) {
	if s.events == nil {
		return
	}
	payload := kafka.WheelGeneratedPayload{
		WheelID:          rec.ID.String(),
		WheelType:        string(rec.WheelType),
		ScopeType:        string(rec.ScopeType),
		ScopeKey:         rec.ScopeKey,
		TotalDescriptors: rec.Data.TotalDescriptors,
		GeneratedAt:      rec.GeneratedAt,
	}
	if err := s.events.PublishEvent(ctx, kafka.TopicWheelGenerated, payload); err != nil {
		s.logger.Warn("Failed to publish wheel generated event",
			logging.String("wheel_id", rec.ID.String()), logging.Err(err))
	}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domainWheel.Record, error) {
	return s.wheels.GetByID(ctx, id)
}

func (s *service) GetLatest(ctx context.Context, wheelType domainWheel.WheelType, scope descriptor.Scope) (*domainWheel.Record, error) {
	if !wheelType.IsValid() {
		return nil, errors.New(errors.ErrCodeWheelTypeInvalid,
			fmt.Sprintf("unknown wheel type %q", wheelType))
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.wheels.GetLatest(ctx, wheelType, scope.CacheKey())
}

// Export renders a persisted wheel to SVG, stores it, and returns a
// presigned share link.
func (s *service) Export(ctx context.Context, wheelID uuid.UUID) (*ExportResult, error) {
	rec, err := s.wheels.GetByID(ctx, wheelID)
	if err != nil {
		return nil, err
	}

	segments, err := domainWheel.LayoutWheel(rec.Data, domainWheel.DefaultRingConfig())
	if err != nil {
		return nil, err
	}
	svg := domainWheel.RenderSVG(segments, domainWheel.SVGOptions{Size: s.cfg.SVGSize})

	key, err := s.exports.PutSVG(ctx, rec.ID, []byte(svg))
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.exports.ShareLink(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Wheel exported",
		logging.String("wheel_id", rec.ID.String()),
		logging.String("object_key", key))
	return &ExportResult{
		WheelID:   rec.ID,
		ObjectKey: key,
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}

package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	wheelapp "github.com/lawrns/flavatix/internal/application/wheel"
	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainTasting "github.com/lawrns/flavatix/internal/domain/tasting"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
	"github.com/lawrns/flavatix/pkg/errors"
)

// Result summarizes one extraction run.
type Result struct {
	TastingID  uuid.UUID `json:"tasting_id"`
	Stored     int       `json:"stored"`
	Dropped    int       `json:"dropped"`
	Replaced   int64     `json:"replaced"`
	TokensUsed int       `json:"tokens_used"`
}

// Service runs extraction for a tasting and replaces its stored descriptors.
type Service interface {
	ExtractAndStore(ctx context.Context, tastingID uuid.UUID) (*Result, error)

	// CleanupDeleted removes a deleted tasting's traces from the search
	// index and the wheel cache.  The Postgres rows are already gone via FK
	// cascade; categories is the list the deleted event captured from them.
	CleanupDeleted(ctx context.Context, tastingID uuid.UUID, userID, itemName string, categories []string) error
}

// searchIndexer is the slice of the OpenSearch indexer the pipeline needs.
type searchIndexer interface {
	IndexDescriptors(ctx context.Context, records []*descriptor.Record) error
	DeleteByTasting(ctx context.Context, tastingID string) error
}

type eventPublisher interface {
	PublishEvent(ctx context.Context, topic string, payload interface{}) error
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type service struct {
	tastings    domainTasting.Repository
	descriptors descriptor.Repository
	extractor   Extractor
	indexer     searchIndexer
	cache       cacheInvalidator
	events      eventPublisher
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
}

// NewService creates the extraction pipeline service.  Indexer, cache,
// events, and metrics may each be nil; the corresponding step is skipped.
func NewService(
	tastings domainTasting.Repository,
	descriptors descriptor.Repository,
	extractor Extractor,
	indexer searchIndexer,
	cache cacheInvalidator,
	events eventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
) Service {
	return &service{
		tastings:    tastings,
		descriptors: descriptors,
		extractor:   extractor,
		indexer:     indexer,
		cache:       cache,
		events:      events,
		metrics:     metrics,
		logger:      logger,
	}
}

// ExtractAndStore classifies the tasting's notes and replaces its stored
// descriptors with the result.  Replacement is whole-sale: stale descriptors
// from a previous extraction are deleted, never merged.
func (s *service) ExtractAndStore(ctx context.Context, tastingID uuid.UUID) (*Result, error) {
	start := time.Now()

	t, err := s.tastings.GetByID(ctx, tastingID)
	if err != nil {
		return nil, err
	}
	if t.Notes == "" {
		return nil, errors.New(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("tasting %s has no notes to extract from", tastingID))
	}

	resp, err := s.extractor.Extract(ctx, t.Notes, string(t.Type), t.ItemName)
	if err != nil {
		s.recordExtraction("error", 0, start)
		return nil, err
	}

	records, dropped := s.toRecords(t, resp.Descriptors)

	// Read the outgoing batch before it is deleted: its categories feed the
	// cache invalidation alongside the new batch's.
	prior, err := s.descriptors.ListByScope(ctx, descriptor.Scope{
		Type:      domainWheel.ScopeTasting,
		TastingID: tastingID,
	})
	if err != nil {
		s.logger.Warn("Failed to list prior descriptors for invalidation",
			logging.String("tasting_id", tastingID.String()), logging.Err(err))
		prior = nil
	}

	replaced, err := s.descriptors.DeleteByTasting(ctx, tastingID)
	if err != nil {
		s.recordExtraction("error", resp.TokensUsed, start)
		return nil, err
	}
	if len(records) > 0 {
		if err := s.descriptors.InsertBatch(ctx, records); err != nil {
			s.recordExtraction("error", resp.TokensUsed, start)
			return nil, err
		}
	}

	s.reindex(ctx, tastingID, records)
	s.invalidateWheels(ctx, t.ID, t.UserID, t.ItemName, categorySet(prior, records))
	s.publishExtracted(ctx, t, len(records), resp.TokensUsed)
	s.recordExtraction("success", resp.TokensUsed, start)

	s.logger.Info("Descriptors extracted",
		logging.String("tasting_id", tastingID.String()),
		logging.Int("stored", len(records)),
		logging.Int("dropped", dropped),
		logging.Int64("replaced", replaced),
		logging.Int("tokens_used", resp.TokensUsed))
	return &Result{
		TastingID:  tastingID,
		Stored:     len(records),
		Dropped:    dropped,
		Replaced:   replaced,
		TokensUsed: resp.TokensUsed,
	}, nil
}

// toRecords converts service output into persisted records, dropping entries
// with an unknown type or missing required fields rather than failing the
// whole batch.
func (s *service) toRecords(t *domainTasting.Tasting, extracted []ExtractedDescriptor) ([]*descriptor.Record, int) {
	now := time.Now().UTC()
	records := make([]*descriptor.Record, 0, len(extracted))
	dropped := 0
	for _, e := range extracted {
		typ, err := domainWheel.ParseDescriptorType(e.Type)
		if err != nil || e.Text == "" || e.Category == "" {
			dropped++
			s.logger.Warn("Dropping malformed extracted descriptor",
				logging.String("text", e.Text),
				logging.String("type", e.Type),
				logging.String("category", e.Category))
			continue
		}
		records = append(records, &descriptor.Record{
			ID:        uuid.New(),
			TastingID: t.ID,
			UserID:    t.UserID,
			ItemName:  t.ItemName,
			Descriptor: domainWheel.Descriptor{
				Text:        e.Text,
				Type:        typ,
				Category:    e.Category,
				Subcategory: e.Subcategory,
				Confidence:  e.Confidence,
				Intensity:   e.Intensity,
			},
			Source:    descriptor.SourceExtraction,
			CreatedAt: now,
		})
	}
	return records, dropped
}

// reindex mirrors the replacement into the search index.  Index failures are
// logged and swallowed; postgres remains the source of truth.
func (s *service) reindex(ctx context.Context, tastingID uuid.UUID, records []*descriptor.Record) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.DeleteByTasting(ctx, tastingID.String()); err != nil {
		s.logger.Warn("Failed to delete stale search documents",
			logging.String("tasting_id", tastingID.String()), logging.Err(err))
	}
	if len(records) == 0 {
		return
	}
	if err := s.indexer.IndexDescriptors(ctx, records); err != nil {
		s.logger.Warn("Failed to index descriptors",
			logging.String("tasting_id", tastingID.String()), logging.Err(err))
	}
}

// CleanupDeleted mirrors a tasting delete into the search index and the
// wheel cache.  The index delete is idempotent, so a returned error is safe
// to retry; cache invalidation stays best effort like everywhere else.
func (s *service) CleanupDeleted(ctx context.Context, tastingID uuid.UUID, userID, itemName string, categories []string) error {
	if s.indexer != nil {
		if err := s.indexer.DeleteByTasting(ctx, tastingID.String()); err != nil {
			return errors.Wrap(err, errors.ErrCodeSearchFailed,
				fmt.Sprintf("failed to delete search documents for tasting %s", tastingID))
		}
	}
	s.invalidateWheels(ctx, tastingID, userID, itemName, categories)

	s.logger.Info("Deleted tasting cleaned up",
		logging.String("tasting_id", tastingID.String()),
		logging.Int("categories", len(categories)))
	return nil
}

// invalidateWheels drops every cached wheel whose scope covers the tasting's
// descriptors, for all wheel types: the fixed universal/personal/item/tasting
// scopes plus one category scope per affected wheel category.
func (s *service) invalidateWheels(ctx context.Context, tastingID uuid.UUID, userID, itemName string, categories []string) {
	if s.cache == nil {
		return
	}
	scopes := []descriptor.Scope{
		{Type: domainWheel.ScopeUniversal},
		{Type: domainWheel.ScopePersonal, UserID: userID},
		{Type: domainWheel.ScopeItem, ItemName: itemName},
		{Type: domainWheel.ScopeTasting, TastingID: tastingID},
	}
	for _, c := range categories {
		scopes = append(scopes, descriptor.Scope{Type: domainWheel.ScopeCategory, Category: c})
	}
	wheelTypes := []domainWheel.WheelType{
		domainWheel.WheelTypeAroma,
		domainWheel.WheelTypeFlavor,
		domainWheel.WheelTypeCombined,
		domainWheel.WheelTypeMetaphor,
	}

	keys := make([]string, 0, len(scopes)*len(wheelTypes))
	for _, scope := range scopes {
		for _, wt := range wheelTypes {
			keys = append(keys, wheelapp.CacheKey(wt, scope))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate wheel cache",
			logging.String("tasting_id", tastingID.String()), logging.Err(err))
	}
}

// categorySet collects the distinct wheel categories across the descriptor
// batches, in first-seen order.  Both sides of a replacement feed it, so
// category wheels that lost descriptors are invalidated too.
func categorySet(batches ...[]*descriptor.Record) []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, batch := range batches {
		for _, r := range batch {
			if _, ok := seen[r.Category]; ok {
				continue
			}
			seen[r.Category] = struct{}{}
			categories = append(categories, r.Category)
		}
	}
	return categories
}

func (s *service) publishExtracted(ctx context.Context, t *domainTasting.Tasting, count, tokens int) {
	if s.events == nil {
		return
	}
	payload := kafka.DescriptorsExtractedPayload{
		TastingID:       t.ID.String(),
		UserID:          t.UserID,
		ItemName:        t.ItemName,
		DescriptorCount: count,
		TokensUsed:      tokens,
		ExtractedAt:     time.Now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, kafka.TopicDescriptorsExtracted, payload); err != nil {
		s.logger.Warn("Failed to publish descriptors extracted event",
			logging.String("tasting_id", t.ID.String()), logging.Err(err))
	}
}

func (s *service) recordExtraction(status string, tokens int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordExtraction(status, tokens, time.Since(start))
}

// Package tasting provides the tasting-session application service: CRUD
// orchestration plus the lifecycle events the extraction worker consumes.
package tasting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainTasting "github.com/lawrns/flavatix/internal/domain/tasting"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
)

// CreateInput contains input for creating a tasting.
type CreateInput struct {
	UserID   string            `json:"user_id"`
	ItemName string            `json:"item_name"`
	Type     string            `json:"type"`
	Notes    string            `json:"notes"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UpdateNotesInput contains input for replacing a tasting's notes.
type UpdateNotesInput struct {
	ID    uuid.UUID `json:"id"`
	Notes string    `json:"notes"`
}

// ListInput narrows and pages a tasting listing.
type ListInput struct {
	UserID   string `json:"user_id"`
	Type     string `json:"type,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// ListResult is a paginated tasting listing.
type ListResult struct {
	Tastings []*domainTasting.Tasting `json:"tastings"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

// Service is the tasting application service used by HTTP handlers.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*domainTasting.Tasting, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domainTasting.Tasting, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	UpdateNotes(ctx context.Context, input UpdateNotesInput) (*domainTasting.Tasting, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type eventPublisher interface {
	PublishEvent(ctx context.Context, topic string, payload interface{}) error
}

// descriptorLister supplies the wheel categories a tasting's descriptors
// cover, captured into the deleted event before the rows cascade away.
type descriptorLister interface {
	ListByScope(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error)
}

type service struct {
	repo        domainTasting.Repository
	descriptors descriptorLister
	events      eventPublisher
	logger      logging.Logger
}

// NewService creates the tasting service.  Descriptors and events may each
// be nil: without a broker extraction only runs on demand, and without a
// lister the deleted event carries no category list.
func NewService(repo domainTasting.Repository, descriptors descriptorLister, events eventPublisher, logger logging.Logger) Service {
	return &service{
		repo:        repo,
		descriptors: descriptors,
		events:      events,
		logger:      logger,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*domainTasting.Tasting, error) {
	typ, err := domainTasting.ParseType(input.Type)
	if err != nil {
		return nil, err
	}
	t, err := domainTasting.New(input.UserID, input.ItemName, typ, input.Notes)
	if err != nil {
		return nil, err
	}
	t.Metadata = input.Metadata

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.TopicTastingCreated, kafka.TastingCreatedPayload{
		TastingID: t.ID.String(),
		UserID:    t.UserID,
		ItemName:  t.ItemName,
		Type:      string(t.Type),
		CreatedAt: t.CreatedAt,
	})

	s.logger.Info("Tasting created",
		logging.String("tasting_id", t.ID.String()),
		logging.String("user_id", t.UserID),
		logging.String("type", string(t.Type)))
	return t, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domainTasting.Tasting, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	filter := domainTasting.ListFilter{
		UserID:   input.UserID,
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if input.Type != "" {
		typ, err := domainTasting.ParseType(input.Type)
		if err != nil {
			return nil, err
		}
		filter.Type = typ
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	tastings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Tastings: tastings,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// UpdateNotes replaces the notes and emits tasting.updated, which triggers
// re-extraction in the worker.
func (s *service) UpdateNotes(ctx context.Context, input UpdateNotesInput) (*domainTasting.Tasting, error) {
	t, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	t.UpdateNotes(input.Notes)

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.TopicTastingUpdated, kafka.TastingUpdatedPayload{
		TastingID: t.ID.String(),
		UserID:    t.UserID,
		ItemName:  t.ItemName,
		UpdatedAt: t.UpdatedAt,
	})

	s.logger.Info("Tasting notes updated", logging.String("tasting_id", t.ID.String()))
	return t, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// The descriptor rows cascade away with the tasting, so their categories
	// must be read before the delete for the event to carry them.
	categories := s.wheelCategories(ctx, id)

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, kafka.TopicTastingDeleted, kafka.TastingDeletedPayload{
		TastingID:  t.ID.String(),
		UserID:     t.UserID,
		ItemName:   t.ItemName,
		Categories: categories,
		DeletedAt:  time.Now().UTC(),
	})

	s.logger.Info("Tasting deleted", logging.String("tasting_id", id.String()))
	return nil
}

// wheelCategories returns the distinct wheel categories of the tasting's
// descriptors, in first-seen order.  Best effort: a lookup failure costs
// category-scope cache freshness downstream, not the delete itself.
func (s *service) wheelCategories(ctx context.Context, id uuid.UUID) []string {
	if s.descriptors == nil {
		return nil
	}
	records, err := s.descriptors.ListByScope(ctx, descriptor.Scope{
		Type:      domainWheel.ScopeTasting,
		TastingID: id,
	})
	if err != nil {
		s.logger.Warn("Failed to list descriptors for deleted event",
			logging.String("tasting_id", id.String()), logging.Err(err))
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	var categories []string
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		categories = append(categories, r.Category)
	}
	return categories
}

// publish emits a lifecycle event, logging and swallowing failures: the
// write has already committed, and extraction can be re-triggered manually.
func (s *service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, topic, payload); err != nil {
		s.logger.Warn("Failed to publish tasting event",
			logging.String("topic", topic), logging.Err(err))
	}
}

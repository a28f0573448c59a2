package tasting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainTasting "github.com/lawrns/flavatix/internal/domain/tasting"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

type mockRepo struct {
	byID    map[uuid.UUID]*domainTasting.Tasting
	updated []*domainTasting.Tasting
	deleted []uuid.UUID
	listFn  func(ctx context.Context, f domainTasting.ListFilter) ([]*domainTasting.Tasting, int64, error)
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[uuid.UUID]*domainTasting.Tasting)}
}

func (m *mockRepo) Create(ctx context.Context, t *domainTasting.Tasting) error {
	m.byID[t.ID] = t
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*domainTasting.Tasting, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeTastingNotFound, "tasting not found")
	}
	return t, nil
}

func (m *mockRepo) List(ctx context.Context, f domainTasting.ListFilter) ([]*domainTasting.Tasting, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, 0, nil
}

func (m *mockRepo) Update(ctx context.Context, t *domainTasting.Tasting) error {
	m.updated = append(m.updated, t)
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

type mockPublisher struct {
	topics   []string
	payloads []interface{}
	err      error
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic string, payload interface{}) error {
	m.topics = append(m.topics, topic)
	m.payloads = append(m.payloads, payload)
	return m.err
}

type mockLister struct {
	records []*descriptor.Record
}

func (m *mockLister) ListByScope(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
	return m.records, nil
}

func newTestService(repo *mockRepo, events *mockPublisher) Service {
	return NewService(repo, nil, events, logging.NewNopLogger())
}

func TestCreate_PersistsAndPublishes(t *testing.T) {
	repo := newMockRepo()
	events := &mockPublisher{}
	svc := newTestService(repo, events)

	created, err := svc.Create(context.Background(), CreateInput{
		UserID:   "u1",
		ItemName: "Kenya AA",
		Type:     "coffee",
		Notes:    "bright blackcurrant acidity",
	})
	require.NoError(t, err)

	assert.Equal(t, domainTasting.TypeCoffee, created.Type)
	assert.Contains(t, repo.byID, created.ID)
	assert.Equal(t, []string{"tasting.created"}, events.topics)
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockPublisher{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:   "u1",
		ItemName: "Mead",
		Type:     "mead",
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTastingTypeInvalid, errors.GetCode(err))
}

func TestCreate_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newMockRepo()
	events := &mockPublisher{err: errors.New(errors.ErrCodeInternal, "broker down")}
	svc := newTestService(repo, events)

	created, err := svc.Create(context.Background(), CreateInput{
		UserID:   "u1",
		ItemName: "Kenya AA",
		Type:     "coffee",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.byID, created.ID)
}

func TestUpdateNotes_ReplacesNotesAndPublishes(t *testing.T) {
	repo := newMockRepo()
	events := &mockPublisher{}
	svc := newTestService(repo, events)

	created, err := svc.Create(context.Background(), CreateInput{
		UserID:   "u1",
		ItemName: "Kenya AA",
		Type:     "coffee",
		Notes:    "first impression",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateNotes(context.Background(), UpdateNotesInput{
		ID:    created.ID,
		Notes: "blackcurrant, tomato stem",
	})
	require.NoError(t, err)

	assert.Equal(t, "blackcurrant, tomato stem", updated.Notes)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, []string{"tasting.created", "tasting.updated"}, events.topics)
}

func TestUpdateNotes_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockPublisher{})

	_, err := svc.UpdateNotes(context.Background(), UpdateNotesInput{ID: uuid.New(), Notes: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTastingNotFound, errors.GetCode(err))
}

func TestDelete_RemovesAndPublishes(t *testing.T) {
	repo := newMockRepo()
	events := &mockPublisher{}
	svc := newTestService(repo, events)

	created, err := svc.Create(context.Background(), CreateInput{
		UserID:   "u1",
		ItemName: "Kenya AA",
		Type:     "coffee",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Equal(t, []uuid.UUID{created.ID}, repo.deleted)
	assert.Equal(t, []string{"tasting.created", "tasting.deleted"}, events.topics)
}

func TestDelete_EventCarriesItemAndCategories(t *testing.T) {
	repo := newMockRepo()
	events := &mockPublisher{}
	lister := &mockLister{records: []*descriptor.Record{
		{Descriptor: domainWheel.Descriptor{Text: "blueberry", Category: "Fruity"}},
		{Descriptor: domainWheel.Descriptor{Text: "blackcurrant", Category: "Fruity"}},
		{Descriptor: domainWheel.Descriptor{Text: "silky", Category: "Mouthfeel"}},
	}}
	svc := NewService(repo, lister, events, logging.NewNopLogger())

	created, err := svc.Create(context.Background(), CreateInput{
		UserID:   "u1",
		ItemName: "Kenya AA",
		Type:     "coffee",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	require.Len(t, events.payloads, 2)
	payload, ok := events.payloads[1].(kafka.TastingDeletedPayload)
	require.True(t, ok)
	assert.Equal(t, created.ID.String(), payload.TastingID)
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "Kenya AA", payload.ItemName)
	assert.Equal(t, []string{"Fruity", "Mouthfeel"}, payload.Categories)
}

func TestList_AppliesPagingDefaultsAndTypeFilter(t *testing.T) {
	repo := newMockRepo()
	var gotFilter domainTasting.ListFilter
	repo.listFn = func(ctx context.Context, f domainTasting.ListFilter) ([]*domainTasting.Tasting, int64, error) {
		gotFilter = f
		return []*domainTasting.Tasting{}, 0, nil
	}
	svc := newTestService(repo, &mockPublisher{})

	result, err := svc.List(context.Background(), ListInput{UserID: "u1", Type: "wine"})
	require.NoError(t, err)

	assert.Equal(t, domainTasting.TypeWine, gotFilter.Type)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)

	_, err = svc.List(context.Background(), ListInput{UserID: "u1", Type: "mead"})
	require.Error(t, err)
}

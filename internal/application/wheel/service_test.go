package wheel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrns/flavatix/internal/config"
	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/database/redis"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

// Mocks

type mockDescriptorRepo struct {
	listFn func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error)
}

func (m *mockDescriptorRepo) InsertBatch(ctx context.Context, records []*descriptor.Record) error {
	return nil
}

func (m *mockDescriptorRepo) ListByScope(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
	return m.listFn(ctx, scope)
}

func (m *mockDescriptorRepo) DeleteByTasting(ctx context.Context, tastingID uuid.UUID) (int64, error) {
	return 0, nil
}

type mockWheelRepo struct {
	saved    []*domainWheel.Record
	getFn    func(ctx context.Context, id uuid.UUID) (*domainWheel.Record, error)
	latestFn func(ctx context.Context, t domainWheel.WheelType, key string) (*domainWheel.Record, error)
}

func (m *mockWheelRepo) Save(ctx context.Context, rec *domainWheel.Record) error {
	m.saved = append(m.saved, rec)
	return nil
}

func (m *mockWheelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domainWheel.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New(errors.ErrCodeWheelNotFound, "not found")
}

func (m *mockWheelRepo) GetLatest(ctx context.Context, t domainWheel.WheelType, key string) (*domainWheel.Record, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, t, key)
	}
	return nil, errors.New(errors.ErrCodeWheelNotFound, "not found")
}

// memCache is an in-memory stand-in for the Redis cache, round-tripping
// values through JSON the way the real cache does.
type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	if data == nil {
		return redis.ErrNullCached
	}
	return json.Unmarshal(data, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) { return 0, nil }

func (c *memCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.entries[key]
	return ok, nil
}

func (c *memCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil || err == redis.ErrNullCached {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	if value == nil {
		c.entries[key] = nil
		return redis.ErrNullCached
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

type mockPublisher struct {
	topics []string
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic string, payload interface{}) error {
	m.topics = append(m.topics, topic)
	return nil
}

type mockExportStore struct {
	putKeys []string
	svg     []byte
}

func (m *mockExportStore) PutSVG(ctx context.Context, wheelID uuid.UUID, svg []byte) (string, error) {
	key := "wheels/" + wheelID.String() + ".svg"
	m.putKeys = append(m.putKeys, key)
	m.svg = svg
	return key, nil
}

func (m *mockExportStore) ShareLink(ctx context.Context, objectKey string) (string, time.Time, error) {
	return "https://minio.local/" + objectKey, time.Now().Add(24 * time.Hour), nil
}

// Helpers

func record(text string, typ domainWheel.DescriptorType, category string) *descriptor.Record {
	return &descriptor.Record{
		ID:        uuid.New(),
		TastingID: uuid.New(),
		UserID:    "u1",
		ItemName:  "Ethiopia Natural",
		Descriptor: domainWheel.Descriptor{
			Text:     text,
			Type:     typ,
			Category: category,
		},
		Source:    descriptor.SourceExtraction,
		CreatedAt: time.Now(),
	}
}

func newTestService(descs *mockDescriptorRepo, wheels *mockWheelRepo, cache *memCache, events *mockPublisher, exports *mockExportStore) Service {
	return NewService(descs, wheels, cache, exports, events, nil, logging.NewNopLogger(), config.WheelConfig{
		CacheTTL:                     time.Hour,
		MaxDescriptorsPerSubcategory: 5,
		SVGSize:                      600,
	})
}

func personalScope() descriptor.Scope {
	return descriptor.Scope{Type: domainWheel.ScopePersonal, UserID: "u1"}
}

// Tests

func TestGenerate_BuildsAndPersistsWheel(t *testing.T) {
	descs := &mockDescriptorRepo{listFn: func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
		return []*descriptor.Record{
			record("blueberry", domainWheel.DescriptorTypeAroma, "Fruity"),
			record("blueberry", domainWheel.DescriptorTypeAroma, "Fruity"),
			record("jasmine", domainWheel.DescriptorTypeAroma, "Floral"),
		}, nil
	}}
	wheels := &mockWheelRepo{}
	events := &mockPublisher{}
	svc := newTestService(descs, wheels, newMemCache(), events, &mockExportStore{})

	result, err := svc.Generate(context.Background(), GenerateRequest{
		WheelType: domainWheel.WheelTypeAroma,
		Scope:     personalScope(),
	})
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Equal(t, 3, result.Record.Data.TotalDescriptors)
	assert.Equal(t, "personal:u1", result.Record.ScopeKey)
	require.Len(t, wheels.saved, 1)
	assert.Equal(t, []string{"wheel.generated"}, events.topics)

	// Categories ordered by descending count.
	cats := result.Record.Data.Categories
	require.Len(t, cats, 2)
	assert.Equal(t, "Fruity", cats[0].Name)
	assert.Equal(t, 2, cats[0].Count)
}

func TestGenerate_SecondCallServesFromCache(t *testing.T) {
	calls := 0
	descs := &mockDescriptorRepo{listFn: func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
		calls++
		return []*descriptor.Record{record("citrus", domainWheel.DescriptorTypeFlavor, "Fruity")}, nil
	}}
	wheels := &mockWheelRepo{}
	svc := newTestService(descs, wheels, newMemCache(), &mockPublisher{}, &mockExportStore{})

	req := GenerateRequest{WheelType: domainWheel.WheelTypeFlavor, Scope: personalScope()}

	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, calls)
	assert.Len(t, wheels.saved, 1)
	assert.Equal(t, first.Record.ID, second.Record.ID)
}

func TestGenerate_ForceRegenerateBypassesCache(t *testing.T) {
	calls := 0
	descs := &mockDescriptorRepo{listFn: func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
		calls++
		return []*descriptor.Record{record("citrus", domainWheel.DescriptorTypeFlavor, "Fruity")}, nil
	}}
	wheels := &mockWheelRepo{}
	cache := newMemCache()
	svc := newTestService(descs, wheels, cache, &mockPublisher{}, &mockExportStore{})

	req := GenerateRequest{WheelType: domainWheel.WheelTypeFlavor, Scope: personalScope()}
	_, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	req.ForceRegenerate = true
	result, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Equal(t, 2, calls)
	assert.Len(t, wheels.saved, 2)
}

func TestGenerate_EmptyScopeReturnsEmptyInputCode(t *testing.T) {
	descs := &mockDescriptorRepo{listFn: func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
		return nil, nil
	}}
	svc := newTestService(descs, &mockWheelRepo{}, newMemCache(), &mockPublisher{}, &mockExportStore{})

	_, err := svc.Generate(context.Background(), GenerateRequest{
		WheelType: domainWheel.WheelTypeAroma,
		Scope:     personalScope(),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelEmptyInput, errors.GetCode(err))
}

func TestGenerate_EmptyScopeCachedSkipsRequery(t *testing.T) {
	calls := 0
	descs := &mockDescriptorRepo{listFn: func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
		calls++
		return nil, nil
	}}
	svc := newTestService(descs, &mockWheelRepo{}, newMemCache(), &mockPublisher{}, &mockExportStore{})

	req := GenerateRequest{WheelType: domainWheel.WheelTypeAroma, Scope: personalScope()}

	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelEmptyInput, errors.GetCode(err))

	// The empty state is cached under the null sentinel, so the second call
	// never reaches the repository.
	_, err = svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelEmptyInput, errors.GetCode(err))
	assert.Equal(t, 1, calls)
}

func TestGenerate_NoMatchingTypeReturnsEmptyWheelCode(t *testing.T) {
	descs := &mockDescriptorRepo{listFn: func(ctx context.Context, scope descriptor.Scope) ([]*descriptor.Record, error) {
		return []*descriptor.Record{record("silky", domainWheel.DescriptorTypeTexture, "Mouthfeel")}, nil
	}}
	svc := newTestService(descs, &mockWheelRepo{}, newMemCache(), &mockPublisher{}, &mockExportStore{})

	_, err := svc.Generate(context.Background(), GenerateRequest{
		WheelType: domainWheel.WheelTypeMetaphor,
		Scope:     personalScope(),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelEmpty, errors.GetCode(err))
}

func TestGenerate_RejectsInvalidTypeAndScope(t *testing.T) {
	svc := newTestService(&mockDescriptorRepo{}, &mockWheelRepo{}, newMemCache(), &mockPublisher{}, &mockExportStore{})

	_, err := svc.Generate(context.Background(), GenerateRequest{
		WheelType: "mood",
		Scope:     personalScope(),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelTypeInvalid, errors.GetCode(err))

	_, err = svc.Generate(context.Background(), GenerateRequest{
		WheelType: domainWheel.WheelTypeAroma,
		Scope:     descriptor.Scope{Type: domainWheel.ScopePersonal},
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelScopeInvalid, errors.GetCode(err))
}

func TestExport_RendersAndStoresSVG(t *testing.T) {
	rec := &domainWheel.Record{
		ID:        uuid.New(),
		WheelType: domainWheel.WheelTypeAroma,
		ScopeType: domainWheel.ScopePersonal,
		ScopeKey:  "personal:u1",
		Data: &domainWheel.FlavorWheelData{
			WheelType:        domainWheel.WheelTypeAroma,
			TotalDescriptors: 2,
			Categories: []domainWheel.WheelCategory{{
				Name:  "Fruity",
				Count: 2,
				Subcategories: []domainWheel.WheelSubcategory{{
					Name:  "Berry",
					Count: 2,
					Descriptors: []domainWheel.WheelDescriptor{
						{Text: "blueberry", Count: 2},
					},
				}},
			}},
		},
		GeneratedAt: time.Now(),
	}
	wheels := &mockWheelRepo{getFn: func(ctx context.Context, id uuid.UUID) (*domainWheel.Record, error) {
		return rec, nil
	}}
	exports := &mockExportStore{}
	svc := newTestService(&mockDescriptorRepo{}, wheels, newMemCache(), &mockPublisher{}, exports)

	result, err := svc.Export(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, result.WheelID)
	assert.Equal(t, "wheels/"+rec.ID.String()+".svg", result.ObjectKey)
	assert.Contains(t, result.URL, result.ObjectKey)
	assert.Contains(t, string(exports.svg), "<svg")
	assert.Contains(t, string(exports.svg), "blueberry")
}

func TestExport_NotFound(t *testing.T) {
	svc := newTestService(&mockDescriptorRepo{}, &mockWheelRepo{}, newMemCache(), &mockPublisher{}, &mockExportStore{})

	_, err := svc.Export(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelNotFound, errors.GetCode(err))
}

func TestGetLatest_ValidatesInput(t *testing.T) {
	svc := newTestService(&mockDescriptorRepo{}, &mockWheelRepo{}, newMemCache(), &mockPublisher{}, &mockExportStore{})

	_, err := svc.GetLatest(context.Background(), "mood", personalScope())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWheelTypeInvalid, errors.GetCode(err))
}

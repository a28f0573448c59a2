package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrns/flavatix/internal/application/extraction"
	"github.com/lawrns/flavatix/internal/infrastructure/messaging/kafka"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
)

type fakeExtractionService struct {
	extracted []uuid.UUID
	extractFn func(ctx context.Context, tastingID uuid.UUID) (*extraction.Result, error)

	cleanedIDs        []uuid.UUID
	cleanedCategories [][]string
	cleanupErr        error
}

func (f *fakeExtractionService) ExtractAndStore(ctx context.Context, tastingID uuid.UUID) (*extraction.Result, error) {
	f.extracted = append(f.extracted, tastingID)
	if f.extractFn != nil {
		return f.extractFn(ctx, tastingID)
	}
	return &extraction.Result{TastingID: tastingID, Stored: 1}, nil
}

func (f *fakeExtractionService) CleanupDeleted(ctx context.Context, tastingID uuid.UUID, userID, itemName string, categories []string) error {
	f.cleanedIDs = append(f.cleanedIDs, tastingID)
	f.cleanedCategories = append(f.cleanedCategories, categories)
	return f.cleanupErr
}

func testMetrics(t *testing.T) *prometheus.AppMetrics {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "flavatix_test",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return prometheus.NewAppMetrics(collector)
}

func eventMessage(t *testing.T, topic, eventType string, payload interface{}) *kafka.Message {
	t.Helper()
	env, err := kafka.NewEventEnvelope(eventType, "apiserver", payload)
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return &kafka.Message{Topic: topic, Value: value}
}

func TestExtractionHandler_CreatedRunsExtraction(t *testing.T) {
	svc := &fakeExtractionService{}
	handler := extractionHandler(svc, testMetrics(t), logging.NewNopLogger())

	tastingID := uuid.New()
	msg := eventMessage(t, kafka.TopicTastingCreated, kafka.TopicTastingCreated,
		kafka.TastingCreatedPayload{TastingID: tastingID.String(), UserID: "u1"})

	require.NoError(t, handler(context.Background(), msg))
	assert.Equal(t, []uuid.UUID{tastingID}, svc.extracted)
	assert.Empty(t, svc.cleanedIDs)
}

func TestExtractionHandler_DeletedRunsCleanup(t *testing.T) {
	svc := &fakeExtractionService{}
	handler := extractionHandler(svc, testMetrics(t), logging.NewNopLogger())

	tastingID := uuid.New()
	msg := eventMessage(t, kafka.TopicTastingDeleted, kafka.TopicTastingDeleted,
		kafka.TastingDeletedPayload{
			TastingID:  tastingID.String(),
			UserID:     "u1",
			ItemName:   "Kenya AA",
			Categories: []string{"Fruity", "Floral"},
		})

	require.NoError(t, handler(context.Background(), msg))
	assert.Equal(t, []uuid.UUID{tastingID}, svc.cleanedIDs)
	require.Len(t, svc.cleanedCategories, 1)
	assert.Equal(t, []string{"Fruity", "Floral"}, svc.cleanedCategories[0])
	assert.Empty(t, svc.extracted)
}

func TestExtractionHandler_DeletedCleanupFailureRetries(t *testing.T) {
	svc := &fakeExtractionService{cleanupErr: assert.AnError}
	handler := extractionHandler(svc, testMetrics(t), logging.NewNopLogger())

	msg := eventMessage(t, kafka.TopicTastingDeleted, kafka.TopicTastingDeleted,
		kafka.TastingDeletedPayload{TastingID: uuid.New().String()})

	assert.Error(t, handler(context.Background(), msg))
}

func TestExtractionHandler_MalformedMessageCommits(t *testing.T) {
	svc := &fakeExtractionService{}
	handler := extractionHandler(svc, testMetrics(t), logging.NewNopLogger())

	// Undecodable envelope and an invalid tasting id both commit-and-skip.
	require.NoError(t, handler(context.Background(),
		&kafka.Message{Topic: kafka.TopicTastingCreated, Value: []byte("{not json")}))
	require.NoError(t, handler(context.Background(),
		eventMessage(t, kafka.TopicTastingDeleted, kafka.TopicTastingDeleted,
			kafka.TastingDeletedPayload{TastingID: "not-a-uuid"})))

	assert.Empty(t, svc.extracted)
	assert.Empty(t, svc.cleanedIDs)
}

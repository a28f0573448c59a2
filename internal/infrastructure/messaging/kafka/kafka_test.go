package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	segmentio "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
)

type fakeWriter struct {
	written []segmentio.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...segmentio.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestEventEnvelope_RoundTrip(t *testing.T) {
	payload := WheelGeneratedPayload{
		WheelID:          "w1",
		WheelType:        "aroma",
		ScopeType:        "personal",
		ScopeKey:         "personal:u1",
		TotalDescriptors: 12,
		GeneratedAt:      time.Now().UTC(),
	}

	env, err := NewEventEnvelope(TopicWheelGenerated, "flavatix", payload)
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	msg, err := env.ToMessage(TopicWheelGenerated)
	require.NoError(t, err)
	assert.Equal(t, TopicWheelGenerated, msg.Topic)
	assert.Equal(t, TopicWheelGenerated, msg.Headers["event_type"])

	parsed, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, parsed.EventID)

	var out WheelGeneratedPayload
	require.NoError(t, parsed.DecodePayload(&out))
	assert.Equal(t, payload.WheelID, out.WheelID)
	assert.Equal(t, payload.TotalDescriptors, out.TotalDescriptors)
}

func TestMessageToEventEnvelope_Empty(t *testing.T) {
	_, err := MessageToEventEnvelope(&Message{})
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic: TopicTastingCreated,
		Value: []byte(`{"tasting_id":"t1"}`),
	})
	require.NoError(t, err)
	require.Len(t, fw.written, 1)
	assert.Equal(t, TopicTastingCreated, fw.written[0].Topic)

	sent, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestProducer_Publish_Validation(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{Value: []byte("x")})
	assert.Error(t, err, "missing topic")

	err = p.Publish(context.Background(), &ProducerMessage{Topic: TopicTastingCreated})
	assert.Error(t, err, "missing value")
}

func TestProducer_Publish_WriterError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(fw, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic: TopicTastingCreated,
		Value: []byte("x"),
	})
	require.Error(t, err)

	_, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), failed)
}

func TestProducer_ClosedRejectsPublish(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, logging.NewNopLogger())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic: TopicTastingCreated,
		Value: []byte("x"),
	})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_PublishEvent(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, logging.NewNopLogger())

	err := p.PublishEvent(context.Background(), TopicDescriptorsExtracted, DescriptorsExtractedPayload{
		TastingID:       "t1",
		DescriptorCount: 4,
	})
	require.NoError(t, err)
	require.Len(t, fw.written, 1)

	env, err := MessageToEventEnvelope(&Message{Value: fw.written[0].Value})
	require.NoError(t, err)
	assert.Equal(t, TopicDescriptorsExtracted, env.EventType)
}

type fakeReader struct {
	msgs      []segmentio.Message
	idx       int
	committed []segmentio.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (segmentio.Message, error) {
	if f.idx >= len(f.msgs) {
		<-ctx.Done()
		return segmentio.Message{}, ctx.Err()
	}
	m := f.msgs[f.idx]
	f.idx++
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...segmentio.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumer_Run_DispatchesAndCommits(t *testing.T) {
	fr := &fakeReader{msgs: []segmentio.Message{
		{Topic: TopicTastingCreated, Value: []byte("a"), Offset: 1},
		{Topic: TopicTastingUpdated, Value: []byte("b"), Offset: 2},
	}}
	c := NewConsumerWithReader(fr, ConsumerConfig{}, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var handled []string
	err := c.Run(ctx, func(_ context.Context, msg *Message) error {
		handled = append(handled, msg.Topic)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{TopicTastingCreated, TopicTastingUpdated}, handled)
	assert.Len(t, fr.committed, 2)
}

func TestConsumer_Run_RetriesThenSkips(t *testing.T) {
	fr := &fakeReader{msgs: []segmentio.Message{
		{Topic: TopicTastingCreated, Value: []byte("poison"), Offset: 1},
	}}
	c := NewConsumerWithReader(fr, ConsumerConfig{MaxRetries: 2}, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var attempts int
	_ = c.Run(ctx, func(_ context.Context, _ *Message) error {
		attempts++
		return errors.New("boom")
	})

	// Initial attempt plus two retries, then the message is committed anyway.
	assert.Equal(t, 3, attempts)
	assert.Len(t, fr.committed, 1)
}

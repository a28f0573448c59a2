// Package kafka provides the event producer and consumer used to fan out
// tasting lifecycle and wheel generation events.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/pkg/errors"
)

// Topic constants.  One topic per event type; consumers subscribe to the
// subset they care about.
const (
	TopicTastingCreated       = "tasting.created"
	TopicTastingUpdated       = "tasting.updated"
	TopicTastingDeleted       = "tasting.deleted"
	TopicDescriptorsExtracted = "descriptors.extracted"
	TopicWheelGenerated       = "wheel.generated"
	TopicDeadLetter           = "dead_letter.default"
)

// ProducerMessage is a message to be published.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// Message is a consumed message.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
	Offset    int64
}

// EventEnvelope standardizes event messages across topics.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Payload structs

type TastingCreatedPayload struct {
	TastingID string    `json:"tasting_id"`
	UserID    string    `json:"user_id"`
	ItemName  string    `json:"item_name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type TastingUpdatedPayload struct {
	TastingID string    `json:"tasting_id"`
	UserID    string    `json:"user_id"`
	ItemName  string    `json:"item_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TastingDeletedPayload carries everything consumers need to clean up after
// a tasting: the descriptor rows are already gone via FK cascade, so the
// wheel categories they covered are captured here before the delete.
type TastingDeletedPayload struct {
	TastingID  string    `json:"tasting_id"`
	UserID     string    `json:"user_id"`
	ItemName   string    `json:"item_name"`
	Categories []string  `json:"categories,omitempty"`
	DeletedAt  time.Time `json:"deleted_at"`
}

type DescriptorsExtractedPayload struct {
	TastingID       string    `json:"tasting_id"`
	UserID          string    `json:"user_id"`
	ItemName        string    `json:"item_name"`
	DescriptorCount int       `json:"descriptor_count"`
	TokensUsed      int       `json:"tokens_used,omitempty"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

type WheelGeneratedPayload struct {
	WheelID          string    `json:"wheel_id"`
	WheelType        string    `json:"wheel_type"`
	ScopeType        string    `json:"scope_type"`
	ScopeKey         string    `json:"scope_key"`
	TotalDescriptors int       `json:"total_descriptors"`
	FromCache        bool      `json:"from_cache"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// NewEventEnvelope wraps payload in a fresh envelope.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

// ToMessage serializes the envelope into a ProducerMessage for topic.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope parses a consumed message back into an envelope.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

package wheel

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is a persisted generated wheel: the aggregation output plus the
// request parameters that produced it.  Rows back the wheel history and
// share-link features; the hot path serves from the Redis cache instead.
type Record struct {
	ID          uuid.UUID        `json:"id"`
	WheelType   WheelType        `json:"wheel_type"`
	ScopeType   ScopeType        `json:"scope_type"`
	ScopeKey    string           `json:"scope_key"`
	Data        *FlavorWheelData `json:"data"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Repository is the persistence contract for generated wheels.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetLatest returns the most recent wheel for a wheel-type/scope pair,
	// or a not-found error when none has been generated yet.
	GetLatest(ctx context.Context, wheelType WheelType, scopeKey string) (*Record, error)
}

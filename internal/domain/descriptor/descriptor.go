// Package descriptor defines persisted descriptor records — the rows that
// scope-filtered queries hand to the wheel aggregator — and the scope
// vocabulary for selecting them.
package descriptor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/pkg/errors"
)

// Source identifies how a descriptor record came to exist.
type Source string

const (
	// SourceExtraction marks descriptors produced by the external AI
	// classification service from tasting notes.
	SourceExtraction Source = "extraction"
	// SourceManual marks descriptors a user tagged by hand.
	SourceManual Source = "manual"
)

// Record is one persisted descriptor occurrence, tied to the tasting it was
// extracted from.  The embedded wheel.Descriptor carries the fields the
// aggregation engine consumes.
type Record struct {
	ID        uuid.UUID `json:"id"`
	TastingID uuid.UUID `json:"tasting_id"`
	UserID    string    `json:"user_id"`
	ItemName  string    `json:"item_name"`

	wheel.Descriptor

	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope selects which descriptor rows feed a wheel, per the request's
// scopeType/scopeFilter contract.  Exactly the fields demanded by the scope
// type must be set; Validate enforces that.
type Scope struct {
	Type      wheel.ScopeType `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	ItemName  string          `json:"item_name,omitempty"`
	Category  string          `json:"category,omitempty"`
	TastingID uuid.UUID       `json:"tasting_id,omitempty"`
}

// Validate checks that the scope carries the filter fields its type requires.
func (s Scope) Validate() error {
	if !s.Type.IsValid() {
		return errors.New(errors.ErrCodeWheelScopeInvalid,
			fmt.Sprintf("unknown scope type %q", s.Type))
	}
	switch s.Type {
	case wheel.ScopePersonal:
		if s.UserID == "" {
			return errors.New(errors.ErrCodeWheelScopeInvalid, "personal scope requires user_id")
		}
	case wheel.ScopeItem:
		if s.ItemName == "" {
			return errors.New(errors.ErrCodeWheelScopeInvalid, "item scope requires item_name")
		}
	case wheel.ScopeCategory:
		if s.Category == "" {
			return errors.New(errors.ErrCodeWheelScopeInvalid, "category scope requires category")
		}
	case wheel.ScopeTasting:
		if s.TastingID == uuid.Nil {
			return errors.New(errors.ErrCodeWheelScopeInvalid, "tasting scope requires tasting_id")
		}
	case wheel.ScopeUniversal:
		// No filter: every descriptor row qualifies.
	}
	return nil
}

// CacheKey returns a stable string identifying the scope for cache keys and
// persisted wheel rows.  Equal scopes always produce equal keys.
func (s Scope) CacheKey() string {
	switch s.Type {
	case wheel.ScopePersonal:
		return fmt.Sprintf("personal:%s", s.UserID)
	case wheel.ScopeItem:
		return fmt.Sprintf("item:%s", s.ItemName)
	case wheel.ScopeCategory:
		return fmt.Sprintf("category:%s", s.Category)
	case wheel.ScopeTasting:
		return fmt.Sprintf("tasting:%s", s.TastingID)
	default:
		return "universal"
	}
}

// Repository is the persistence contract for descriptor records.
type Repository interface {
	// InsertBatch stores a set of records in one round trip.  Used by the
	// extraction pipeline, which produces descriptors in groups.
	InsertBatch(ctx context.Context, records []*Record) error

	// ListByScope returns every record matching the scope, ordered by
	// creation time ascending so aggregation tiebreaks are reproducible.
	ListByScope(ctx context.Context, scope Scope) ([]*Record, error)

	// DeleteByTasting removes all records extracted from a tasting.  Called
	// before re-extraction so updated notes replace stale descriptors.
	DeleteByTasting(ctx context.Context, tastingID uuid.UUID) (int64, error)
}

package tasting

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows and pages a tasting listing.
type ListFilter struct {
	UserID   string
	Type     Type // empty means all types
	Page     int
	PageSize int
}

// Repository is the persistence contract for tastings.  Implementations live
// in internal/infrastructure/database/postgres/repositories.
type Repository interface {
	Create(ctx context.Context, t *Tasting) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tasting, error)
	List(ctx context.Context, filter ListFilter) ([]*Tasting, int64, error)
	Update(ctx context.Context, t *Tasting) error
	Delete(ctx context.Context, id uuid.UUID) error
}

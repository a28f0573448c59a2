// Package tasting defines the tasting-session entity: one sitting in which a
// user records free-text sensory notes about an item.  Descriptor extraction
// and wheel generation both hang off tastings.
package tasting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lawrns/flavatix/pkg/errors"
)

// Type is the beverage or food category of a tasting session.
type Type string

const (
	TypeCoffee    Type = "coffee"
	TypeWine      Type = "wine"
	TypeWhisky    Type = "whisky"
	TypeBeer      Type = "beer"
	TypeTea       Type = "tea"
	TypeChocolate Type = "chocolate"
	TypeOther     Type = "other"
)

// IsValid reports whether t is one of the known tasting types.
func (t Type) IsValid() bool {
	switch t {
	case TypeCoffee, TypeWine, TypeWhisky, TypeBeer, TypeTea, TypeChocolate, TypeOther:
		return true
	}
	return false
}

// ParseType converts a raw string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", errors.New(errors.ErrCodeTastingTypeInvalid,
			fmt.Sprintf("unknown tasting type %q", s))
	}
	return t, nil
}

// Tasting is a single recorded tasting session.
type Tasting struct {
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"user_id"`
	ItemName  string            `json:"item_name"`
	Type      Type              `json:"type"`
	Notes     string            `json:"notes"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// New constructs a Tasting with a fresh ID, validating required fields.
// Timestamps are left for the repository to assign on insert.
func New(userID, itemName string, typ Type, notes string) (*Tasting, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("tasting user id must not be empty")
	}
	if strings.TrimSpace(itemName) == "" {
		return nil, errors.NewValidationError("tasting item name must not be empty")
	}
	if !typ.IsValid() {
		return nil, errors.New(errors.ErrCodeTastingTypeInvalid,
			fmt.Sprintf("unknown tasting type %q", typ))
	}
	return &Tasting{
		ID:       uuid.New(),
		UserID:   userID,
		ItemName: itemName,
		Type:     typ,
		Notes:    notes,
	}, nil
}

// UpdateNotes replaces the free-text notes.  The caller re-runs descriptor
// extraction afterwards; stale descriptors for this tasting are replaced, not
// merged.
func (t *Tasting) UpdateNotes(notes string) {
	t.Notes = notes
}

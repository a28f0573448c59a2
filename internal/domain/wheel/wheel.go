// Package wheel implements the flavor-wheel aggregation and layout engine:
// grouping raw sensory descriptor records into the three-level
// category → subcategory → descriptor hierarchy, and converting that
// hierarchy into renderable sunburst geometry.
//
// Both stages are pure, synchronous, and allocation-local; they hold no
// shared state and are safe for unlimited parallel invocation.
package wheel

import (
	"fmt"

	"github.com/lawrns/flavatix/pkg/errors"
)

// DescriptorType classifies the sensory modality of an extracted descriptor.
type DescriptorType string

const (
	DescriptorTypeAroma    DescriptorType = "aroma"
	DescriptorTypeFlavor   DescriptorType = "flavor"
	DescriptorTypeTexture  DescriptorType = "texture"
	DescriptorTypeMetaphor DescriptorType = "metaphor"
)

// IsValid reports whether t is one of the known descriptor types.
func (t DescriptorType) IsValid() bool {
	switch t {
	case DescriptorTypeAroma, DescriptorTypeFlavor, DescriptorTypeTexture, DescriptorTypeMetaphor:
		return true
	}
	return false
}

// ParseDescriptorType converts a raw string into a DescriptorType, rejecting
// unknown values rather than coercing them.
func ParseDescriptorType(s string) (DescriptorType, error) {
	t := DescriptorType(s)
	if !t.IsValid() {
		return "", errors.New(errors.ErrCodeDescriptorTypeInvalid,
			fmt.Sprintf("unknown descriptor type %q", s))
	}
	return t, nil
}

// WheelType selects which descriptor modalities feed a wheel.
type WheelType string

const (
	WheelTypeAroma    WheelType = "aroma"
	WheelTypeFlavor   WheelType = "flavor"
	WheelTypeCombined WheelType = "combined"
	WheelTypeMetaphor WheelType = "metaphor"
)

// IsValid reports whether t is one of the known wheel types.
func (t WheelType) IsValid() bool {
	switch t {
	case WheelTypeAroma, WheelTypeFlavor, WheelTypeCombined, WheelTypeMetaphor:
		return true
	}
	return false
}

// ParseWheelType converts a raw string into a WheelType.
func ParseWheelType(s string) (WheelType, error) {
	t := WheelType(s)
	if !t.IsValid() {
		return "", errors.New(errors.ErrCodeWheelTypeInvalid,
			fmt.Sprintf("unknown wheel type %q", s))
	}
	return t, nil
}

// Includes reports whether descriptors of type d belong on a wheel of type t.
// The combined wheel covers every sensory modality except metaphor, which has
// a dedicated wheel of its own.
func (t WheelType) Includes(d DescriptorType) bool {
	switch t {
	case WheelTypeAroma:
		return d == DescriptorTypeAroma
	case WheelTypeFlavor:
		return d == DescriptorTypeFlavor
	case WheelTypeMetaphor:
		return d == DescriptorTypeMetaphor
	case WheelTypeCombined:
		return d == DescriptorTypeAroma || d == DescriptorTypeFlavor || d == DescriptorTypeTexture
	}
	return false
}

// ScopeType selects which descriptor rows feed the aggregator.  Scope
// resolution (the actual filtering query) happens in the application layer;
// the type lives here because it is part of the wheel request vocabulary.
type ScopeType string

const (
	ScopePersonal  ScopeType = "personal"
	ScopeUniversal ScopeType = "universal"
	ScopeItem      ScopeType = "item"
	ScopeCategory  ScopeType = "category"
	ScopeTasting   ScopeType = "tasting"
)

// IsValid reports whether s is one of the known scope types.
func (s ScopeType) IsValid() bool {
	switch s {
	case ScopePersonal, ScopeUniversal, ScopeItem, ScopeCategory, ScopeTasting:
		return true
	}
	return false
}

// ParseScopeType converts a raw string into a ScopeType.
func ParseScopeType(s string) (ScopeType, error) {
	t := ScopeType(s)
	if !t.IsValid() {
		return "", errors.New(errors.ErrCodeWheelScopeInvalid,
			fmt.Sprintf("unknown scope type %q", s))
	}
	return t, nil
}

// Descriptor is a single extracted sensory term, as produced by the external
// classification service or loaded from persistence.  Records are immutable
// once handed to the aggregator.
type Descriptor struct {
	Text        string         `json:"text"`
	Type        DescriptorType `json:"type"`
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Intensity   float64        `json:"intensity,omitempty"`
}

// WheelDescriptor is a leaf of the aggregated hierarchy: the occurrence count
// of a literal descriptor string within its subcategory.
type WheelDescriptor struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// WheelSubcategory groups descriptors beneath a category.
//
// Count is the total over the uncapped descriptor set; when descriptor
// truncation is in effect, Count may exceed the sum of the rendered
// Descriptors' counts.
type WheelSubcategory struct {
	Name        string            `json:"name"`
	Count       int               `json:"count"`
	Descriptors []WheelDescriptor `json:"descriptors"`
}

// WheelCategory is a top-level grouping.  Invariant:
// Count == sum of subcategory counts.
type WheelCategory struct {
	Name          string             `json:"name"`
	Count         int                `json:"count"`
	Subcategories []WheelSubcategory `json:"subcategories"`
}

// FlavorWheelData is the aggregated three-level hierarchy consumed by the
// layout engine.  Invariant: TotalDescriptors == sum of category counts.
// The structure is generated fresh per request and has no lifecycle beyond
// the rendering call that consumes it.
type FlavorWheelData struct {
	Categories       []WheelCategory `json:"categories"`
	TotalDescriptors int             `json:"totalDescriptors"`
	WheelType        WheelType       `json:"wheelType"`
}

// Validate checks the count-conservation invariants of the hierarchy.
// A child count exceeding its parent's, or a parent count that does not
// equal the sum of its children, yields ErrCodeWheelInvalidHierarchy.
// Subcategory sums are checked only when no truncation is evident
// (rendered descriptor counts may legitimately sum below Count).
func (d *FlavorWheelData) Validate() error {
	total := 0
	for _, cat := range d.Categories {
		if cat.Count <= 0 {
			return errors.New(errors.ErrCodeWheelInvalidHierarchy,
				fmt.Sprintf("category %q has non-positive count %d", cat.Name, cat.Count))
		}
		catSum := 0
		for _, sub := range cat.Subcategories {
			if sub.Count <= 0 {
				return errors.New(errors.ErrCodeWheelInvalidHierarchy,
					fmt.Sprintf("subcategory %q has non-positive count %d", sub.Name, sub.Count))
			}
			if sub.Count > cat.Count {
				return errors.New(errors.ErrCodeWheelInvalidHierarchy,
					fmt.Sprintf("subcategory %q count %d exceeds category %q count %d",
						sub.Name, sub.Count, cat.Name, cat.Count))
			}
			descSum := 0
			for _, desc := range sub.Descriptors {
				if desc.Count <= 0 {
					return errors.New(errors.ErrCodeWheelInvalidHierarchy,
						fmt.Sprintf("descriptor %q has non-positive count %d", desc.Text, desc.Count))
				}
				descSum += desc.Count
			}
			if descSum > sub.Count {
				return errors.New(errors.ErrCodeWheelInvalidHierarchy,
					fmt.Sprintf("descriptors under %q sum to %d, exceeding subcategory count %d",
						sub.Name, descSum, sub.Count))
			}
			catSum += sub.Count
		}
		if catSum != cat.Count {
			return errors.New(errors.ErrCodeWheelInvalidHierarchy,
				fmt.Sprintf("category %q count %d does not equal subcategory sum %d",
					cat.Name, cat.Count, catSum))
		}
		total += cat.Count
	}
	if total != d.TotalDescriptors {
		return errors.New(errors.ErrCodeWheelInvalidHierarchy,
			fmt.Sprintf("total descriptors %d does not equal category sum %d",
				d.TotalDescriptors, total))
	}
	return nil
}

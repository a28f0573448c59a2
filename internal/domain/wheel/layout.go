package wheel

import (
	"math"

	"github.com/lawrns/flavatix/pkg/errors"
)

// RingLevel identifies which of the three sunburst rings a segment belongs to.
type RingLevel string

const (
	RingCategory    RingLevel = "category"
	RingSubcategory RingLevel = "subcategory"
	RingDescriptor  RingLevel = "descriptor"
)

// StartAngle is where the first category begins: -π/2, i.e. 12 o'clock.
// Angles increase clockwise in the SVG (y-down) coordinate convention.
// The convention is fixed so golden-output tests are reproducible.
const StartAngle = -math.Pi / 2

// RingConfig sets the radius bands of the three rings as fractions of the
// overall radius.  The fractions must be strictly increasing; they are
// applied uniformly to every category so rings stay concentric.
type RingConfig struct {
	Radius           float64 // overall wheel radius; segment radii are Radius * fraction
	CategoryInner    float64
	CategoryOuter    float64 // doubles as the subcategory ring's inner edge
	SubcategoryOuter float64 // doubles as the descriptor ring's inner edge
	DescriptorOuter  float64
}

// DefaultRingConfig mirrors the reference layout: category 0.30–0.50R,
// subcategory 0.50–0.70R, descriptor 0.70–0.95R.
func DefaultRingConfig() RingConfig {
	return RingConfig{
		Radius:           1.0,
		CategoryInner:    0.30,
		CategoryOuter:    0.50,
		SubcategoryOuter: 0.70,
		DescriptorOuter:  0.95,
	}
}

func (c RingConfig) validate() error {
	if c.Radius <= 0 {
		return errors.NewValidationError("ring config: radius must be positive")
	}
	if !(c.CategoryInner >= 0 &&
		c.CategoryInner < c.CategoryOuter &&
		c.CategoryOuter < c.SubcategoryOuter &&
		c.SubcategoryOuter < c.DescriptorOuter) {
		return errors.NewValidationError("ring config: fractions must be strictly increasing")
	}
	return nil
}

// WheelSegment is one renderable arc of the sunburst.  Segments are created
// transiently during layout and discarded after rendering; they are never
// persisted.
type WheelSegment struct {
	StartAngle  float64   `json:"startAngle"` // radians
	EndAngle    float64   `json:"endAngle"`   // radians
	InnerRadius float64   `json:"innerRadius"`
	OuterRadius float64   `json:"outerRadius"`
	Color       string    `json:"color"`
	Label       string    `json:"label"`
	Count       int       `json:"count"`
	RingLevel   RingLevel `json:"ringLevel"`
}

// Span returns the segment's angular extent in radians.
func (s WheelSegment) Span() float64 {
	return s.EndAngle - s.StartAngle
}

// LayoutWheel maps an aggregated hierarchy onto the three-ring sunburst
// geometry.
//
// Each category receives an angular span proportional to its share of
// TotalDescriptors; subcategories subdivide their parent's span by count, and
// descriptors subdivide their subcategory's span renormalized over the
// *rendered* (possibly truncated) sibling set, so the descriptor ring never
// shows gaps where trailing descriptors were capped away.
//
// Child end angles are accumulated and the final child is pinned to its
// parent's end angle, so spans conserve exactly: category spans sum to 2π and
// each parent's children tile its span with no floating-point drift.
//
// A wheel with no categories yields ErrCodeWheelEmpty; callers should render
// an empty state instead of calling the layout engine.
func LayoutWheel(data *FlavorWheelData, cfg RingConfig) ([]WheelSegment, error) {
	if data == nil || len(data.Categories) == 0 {
		return nil, errors.New(errors.ErrCodeWheelEmpty, "wheel has no categories to lay out")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if data.TotalDescriptors <= 0 {
		return nil, errors.New(errors.ErrCodeWheelInvalidHierarchy,
			"total descriptor count must be positive")
	}

	r := cfg.Radius
	segments := make([]WheelSegment, 0, estimateSegments(data))

	catStart := StartAngle
	for ci, cat := range data.Categories {
		catEnd := catStart + 2*math.Pi*float64(cat.Count)/float64(data.TotalDescriptors)
		if ci == len(data.Categories)-1 {
			catEnd = StartAngle + 2*math.Pi
		}
		catColor := CategoryColor(ci)

		segments = append(segments, WheelSegment{
			StartAngle:  catStart,
			EndAngle:    catEnd,
			InnerRadius: r * cfg.CategoryInner,
			OuterRadius: r * cfg.CategoryOuter,
			Color:       catColor,
			Label:       cat.Name,
			Count:       cat.Count,
			RingLevel:   RingCategory,
		})

		subStart := catStart
		for si, sub := range cat.Subcategories {
			subEnd := subStart + (catEnd-catStart)*float64(sub.Count)/float64(cat.Count)
			if si == len(cat.Subcategories)-1 {
				subEnd = catEnd
			}

			subColor := DeriveColor(catColor, si, len(cat.Subcategories))
			segments = append(segments, WheelSegment{
				StartAngle:  subStart,
				EndAngle:    subEnd,
				InnerRadius: r * cfg.CategoryOuter,
				OuterRadius: r * cfg.SubcategoryOuter,
				Color:       subColor,
				Label:       sub.Name,
				Count:       sub.Count,
				RingLevel:   RingSubcategory,
			})

			// Renormalize over the rendered descriptor subset: capped-away
			// descriptors surrender their share to the rendered siblings.
			renderedTotal := 0
			for _, desc := range sub.Descriptors {
				renderedTotal += desc.Count
			}

			descStart := subStart
			for di, desc := range sub.Descriptors {
				descEnd := descStart + (subEnd-subStart)*float64(desc.Count)/float64(renderedTotal)
				if di == len(sub.Descriptors)-1 {
					descEnd = subEnd
				}

				segments = append(segments, WheelSegment{
					StartAngle:  descStart,
					EndAngle:    descEnd,
					InnerRadius: r * cfg.SubcategoryOuter,
					OuterRadius: r * cfg.DescriptorOuter,
					Color:       DeriveColor(subColor, di, len(sub.Descriptors)),
					Label:       desc.Text,
					Count:       desc.Count,
					RingLevel:   RingDescriptor,
				})
				descStart = descEnd
			}

			subStart = subEnd
		}

		catStart = catEnd
	}

	return segments, nil
}

func estimateSegments(data *FlavorWheelData) int {
	n := len(data.Categories)
	for _, cat := range data.Categories {
		n += len(cat.Subcategories)
		for _, sub := range cat.Subcategories {
			n += len(sub.Descriptors)
		}
	}
	return n
}

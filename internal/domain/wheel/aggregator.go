package wheel

import (
	"sort"

	"github.com/lawrns/flavatix/pkg/errors"
)

// DefaultSubcategory is the bucket a descriptor falls into when the external
// classifier did not assign a subcategory.
const DefaultSubcategory = "General"

// DefaultMaxDescriptors is the rendered-descriptor cap per subcategory when
// the caller does not supply one.
const DefaultMaxDescriptors = 5

// AggregateOptions tunes the aggregation stage.
type AggregateOptions struct {
	// MaxDescriptorsPerSubcategory caps how many descriptor leaves are kept
	// per subcategory in the output.  Counts are always computed over the
	// full set; only the rendered list is truncated.  Values <= 0 select
	// DefaultMaxDescriptors.
	MaxDescriptorsPerSubcategory int
}

// descAcc accumulates one descriptor text within a subcategory.
type descAcc struct {
	text  string
	count int
	seen  int // first-seen input index, tiebreak for stable ordering
}

type subAcc struct {
	name  string
	count int
	seen  int
	descs map[string]*descAcc
	order []*descAcc
}

type catAcc struct {
	name  string
	count int
	seen  int
	subs  map[string]*subAcc
	order []*subAcc
}

// Aggregate converts a flat list of descriptor records into the three-level
// FlavorWheelData hierarchy.
//
// Grouping is exact and case-sensitive at every level: the raw category
// string, the raw subcategory string (or DefaultSubcategory when absent),
// and the raw descriptor text.  Normalization and fuzzy matching belong to
// the external classification service, not this engine.  Each group's count
// is the number of records mapped into it — never a confidence-weighted sum.
//
// Categories, subcategories, and descriptors are ordered by descending count
// with ties broken by first appearance in the input sequence, so identical
// inputs always produce identical output.
//
// An empty input yields ErrCodeWheelEmptyInput; callers should render an
// empty state rather than treat it as a failure.
func Aggregate(descriptors []Descriptor, wheelType WheelType, opts AggregateOptions) (*FlavorWheelData, error) {
	if len(descriptors) == 0 {
		return nil, errors.New(errors.ErrCodeWheelEmptyInput, "no descriptors to aggregate")
	}

	maxDescs := opts.MaxDescriptorsPerSubcategory
	if maxDescs <= 0 {
		maxDescs = DefaultMaxDescriptors
	}

	cats := make(map[string]*catAcc)
	var catOrder []*catAcc

	for i, d := range descriptors {
		if d.Category == "" {
			return nil, errors.New(errors.ErrCodeDescriptorMissingField,
				"descriptor category must not be empty").WithDetail("text=" + d.Text)
		}

		cat, ok := cats[d.Category]
		if !ok {
			cat = &catAcc{name: d.Category, seen: i, subs: make(map[string]*subAcc)}
			cats[d.Category] = cat
			catOrder = append(catOrder, cat)
		}
		cat.count++

		subName := d.Subcategory
		if subName == "" {
			subName = DefaultSubcategory
		}
		sub, ok := cat.subs[subName]
		if !ok {
			sub = &subAcc{name: subName, seen: i, descs: make(map[string]*descAcc)}
			cat.subs[subName] = sub
			cat.order = append(cat.order, sub)
		}
		sub.count++

		desc, ok := sub.descs[d.Text]
		if !ok {
			desc = &descAcc{text: d.Text, seen: i}
			sub.descs[d.Text] = desc
			sub.order = append(sub.order, desc)
		}
		desc.count++
	}

	// Order every level by descending count; first-seen input position
	// breaks ties.  The order slices are already in first-seen order, so a
	// stable sort on count alone would suffice, but the explicit tiebreak
	// keeps the contract independent of how the slices were built.
	sort.SliceStable(catOrder, func(a, b int) bool {
		if catOrder[a].count != catOrder[b].count {
			return catOrder[a].count > catOrder[b].count
		}
		return catOrder[a].seen < catOrder[b].seen
	})

	out := &FlavorWheelData{
		Categories:       make([]WheelCategory, 0, len(catOrder)),
		TotalDescriptors: len(descriptors),
		WheelType:        wheelType,
	}

	for _, cat := range catOrder {
		sort.SliceStable(cat.order, func(a, b int) bool {
			if cat.order[a].count != cat.order[b].count {
				return cat.order[a].count > cat.order[b].count
			}
			return cat.order[a].seen < cat.order[b].seen
		})

		wc := WheelCategory{
			Name:          cat.name,
			Count:         cat.count,
			Subcategories: make([]WheelSubcategory, 0, len(cat.order)),
		}

		for _, sub := range cat.order {
			sort.SliceStable(sub.order, func(a, b int) bool {
				if sub.order[a].count != sub.order[b].count {
					return sub.order[a].count > sub.order[b].count
				}
				return sub.order[a].seen < sub.order[b].seen
			})

			rendered := len(sub.order)
			if rendered > maxDescs {
				rendered = maxDescs
			}
			ws := WheelSubcategory{
				Name:        sub.name,
				Count:       sub.count,
				Descriptors: make([]WheelDescriptor, 0, rendered),
			}
			for _, desc := range sub.order[:rendered] {
				ws.Descriptors = append(ws.Descriptors, WheelDescriptor{
					Text:  desc.text,
					Count: desc.count,
				})
			}
			wc.Subcategories = append(wc.Subcategories, ws)
		}

		out.Categories = append(out.Categories, wc)
	}

	return out, nil
}

// FilterByWheelType returns the subset of descriptors whose type belongs on
// a wheel of the given type, preserving input order.  Records with an
// invalid type are dropped rather than coerced.
func FilterByWheelType(descriptors []Descriptor, t WheelType) []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if t.Includes(d.Type) {
			out = append(out, d)
		}
	}
	return out
}

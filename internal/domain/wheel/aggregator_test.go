package wheel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrns/flavatix/pkg/errors"
)

func desc(text, category, subcategory string) Descriptor {
	return Descriptor{
		Text:        text,
		Type:        DescriptorTypeAroma,
		Category:    category,
		Subcategory: subcategory,
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	_, err := Aggregate(nil, WheelTypeAroma, AggregateOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWheelEmptyInput))
}

func TestAggregate_MissingCategoryRejected(t *testing.T) {
	_, err := Aggregate([]Descriptor{{Text: "apple"}}, WheelTypeAroma, AggregateOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorMissingField))
}

func TestAggregate_EndToEndExample(t *testing.T) {
	input := []Descriptor{
		desc("apple", "Fruity", "Orchard"),
		desc("apple", "Fruity", "Orchard"),
		desc("rose", "Floral", "Flower"),
	}

	data, err := Aggregate(input, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, data.TotalDescriptors)
	require.Len(t, data.Categories, 2)

	// Fruity first: higher count.
	assert.Equal(t, "Fruity", data.Categories[0].Name)
	assert.Equal(t, 2, data.Categories[0].Count)
	assert.Equal(t, "Floral", data.Categories[1].Name)
	assert.Equal(t, 1, data.Categories[1].Count)

	require.Len(t, data.Categories[0].Subcategories, 1)
	orchard := data.Categories[0].Subcategories[0]
	assert.Equal(t, "Orchard", orchard.Name)
	assert.Equal(t, 2, orchard.Count)
	require.Len(t, orchard.Descriptors, 1)
	assert.Equal(t, WheelDescriptor{Text: "apple", Count: 2}, orchard.Descriptors[0])

	require.NoError(t, data.Validate())
}

func TestAggregate_CountConservation(t *testing.T) {
	var input []Descriptor
	for i := 0; i < 7; i++ {
		input = append(input, desc(fmt.Sprintf("d%d", i%4), "Fruity", "Citrus"))
	}
	for i := 0; i < 5; i++ {
		input = append(input, desc("cedar", "Woody", ""))
	}
	input = append(input, desc("smoke", "Roasted", "Burnt"))

	data, err := Aggregate(input, WheelTypeCombined, AggregateOptions{})
	require.NoError(t, err)

	assert.Equal(t, len(input), data.TotalDescriptors)
	catSum := 0
	for _, cat := range data.Categories {
		subSum := 0
		for _, sub := range cat.Subcategories {
			subSum += sub.Count
		}
		assert.Equal(t, cat.Count, subSum, "category %s", cat.Name)
		catSum += cat.Count
	}
	assert.Equal(t, data.TotalDescriptors, catSum)
	require.NoError(t, data.Validate())
}

func TestAggregate_DefaultSubcategoryBucket(t *testing.T) {
	data, err := Aggregate([]Descriptor{desc("cedar", "Woody", "")}, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, data.Categories, 1)
	require.Len(t, data.Categories[0].Subcategories, 1)
	assert.Equal(t, DefaultSubcategory, data.Categories[0].Subcategories[0].Name)
}

func TestAggregate_CaseSensitiveGrouping(t *testing.T) {
	data, err := Aggregate([]Descriptor{
		desc("apple", "Fruity", "Orchard"),
		desc("apple", "fruity", "Orchard"),
		desc("Apple", "Fruity", "Orchard"),
	}, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)

	// "Fruity" and "fruity" are distinct categories; "apple" and "Apple"
	// are distinct descriptors.
	require.Len(t, data.Categories, 2)
	assert.Equal(t, "Fruity", data.Categories[0].Name)
	assert.Equal(t, 2, data.Categories[0].Count)
	assert.Len(t, data.Categories[0].Subcategories[0].Descriptors, 2)
}

func TestAggregate_OrderingByCountThenFirstSeen(t *testing.T) {
	data, err := Aggregate([]Descriptor{
		desc("a", "Herbal", "Green"),
		desc("b", "Fruity", "Citrus"),
		desc("c", "Fruity", "Citrus"),
		desc("d", "Spicy", "Warm"), // ties with Herbal on count=1; Herbal seen first
	}, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)

	require.Len(t, data.Categories, 3)
	assert.Equal(t, "Fruity", data.Categories[0].Name)
	assert.Equal(t, "Herbal", data.Categories[1].Name)
	assert.Equal(t, "Spicy", data.Categories[2].Name)
}

func TestAggregate_Determinism(t *testing.T) {
	input := []Descriptor{
		desc("apple", "Fruity", "Orchard"),
		desc("lemon", "Fruity", "Citrus"),
		desc("lemon", "Fruity", "Citrus"),
		desc("rose", "Floral", ""),
		desc("apple", "Fruity", "Orchard"),
	}

	first, err := Aggregate(input, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)
	second, err := Aggregate(input, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_Truncation(t *testing.T) {
	var input []Descriptor
	// 8 distinct descriptor texts; counts 8,7,...,1 so ordering is unambiguous.
	for i := 0; i < 8; i++ {
		for j := 0; j <= 8-i-1; j++ {
			input = append(input, desc(fmt.Sprintf("text%d", i), "Fruity", "Citrus"))
		}
	}

	data, err := Aggregate(input, WheelTypeAroma, AggregateOptions{MaxDescriptorsPerSubcategory: 5})
	require.NoError(t, err)

	sub := data.Categories[0].Subcategories[0]
	require.Len(t, sub.Descriptors, 5)

	// Subcategory count covers the uncapped set; rendered counts sum below it.
	renderedSum := 0
	for i, d := range sub.Descriptors {
		assert.Equal(t, fmt.Sprintf("text%d", i), d.Text)
		renderedSum += d.Count
	}
	assert.Equal(t, len(input), sub.Count)
	assert.Less(t, renderedSum, sub.Count)
	require.NoError(t, data.Validate())
}

func TestAggregate_DefaultCapIsFive(t *testing.T) {
	var input []Descriptor
	for i := 0; i < 9; i++ {
		input = append(input, desc(fmt.Sprintf("t%d", i), "Fruity", "Citrus"))
	}
	data, err := Aggregate(input, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)
	assert.Len(t, data.Categories[0].Subcategories[0].Descriptors, DefaultMaxDescriptors)
}

func TestAggregate_CountsAreRecordCounts(t *testing.T) {
	// Confidence must not weight counts.
	input := []Descriptor{
		{Text: "apple", Type: DescriptorTypeAroma, Category: "Fruity", Confidence: 0.1},
		{Text: "apple", Type: DescriptorTypeAroma, Category: "Fruity", Confidence: 0.9},
	}
	data, err := Aggregate(input, WheelTypeAroma, AggregateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, data.Categories[0].Count)
}

func TestFilterByWheelType(t *testing.T) {
	input := []Descriptor{
		{Text: "apple", Type: DescriptorTypeAroma, Category: "Fruity"},
		{Text: "sweet", Type: DescriptorTypeFlavor, Category: "Sweet"},
		{Text: "silky", Type: DescriptorTypeTexture, Category: "Body"},
		{Text: "sunset", Type: DescriptorTypeMetaphor, Category: "Imagery"},
		{Text: "junk", Type: DescriptorType("bogus"), Category: "X"},
	}

	assert.Len(t, FilterByWheelType(input, WheelTypeAroma), 1)
	assert.Len(t, FilterByWheelType(input, WheelTypeFlavor), 1)
	assert.Len(t, FilterByWheelType(input, WheelTypeMetaphor), 1)
	// Combined covers aroma+flavor+texture but not metaphor or invalid types.
	assert.Len(t, FilterByWheelType(input, WheelTypeCombined), 3)
}

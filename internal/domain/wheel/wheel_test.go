package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrns/flavatix/pkg/errors"
)

func TestParseDescriptorType(t *testing.T) {
	for _, s := range []string{"aroma", "flavor", "texture", "metaphor"} {
		dt, err := ParseDescriptorType(s)
		require.NoError(t, err)
		assert.True(t, dt.IsValid())
	}

	_, err := ParseDescriptorType("colour")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorTypeInvalid))
}

func TestParseWheelType(t *testing.T) {
	for _, s := range []string{"aroma", "flavor", "combined", "metaphor"} {
		wt, err := ParseWheelType(s)
		require.NoError(t, err)
		assert.True(t, wt.IsValid())
	}

	_, err := ParseWheelType("everything")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWheelTypeInvalid))
}

func TestParseScopeType(t *testing.T) {
	for _, s := range []string{"personal", "universal", "item", "category", "tasting"} {
		st, err := ParseScopeType(s)
		require.NoError(t, err)
		assert.True(t, st.IsValid())
	}

	_, err := ParseScopeType("global")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWheelScopeInvalid))
}

func TestWheelTypeIncludes(t *testing.T) {
	assert.True(t, WheelTypeAroma.Includes(DescriptorTypeAroma))
	assert.False(t, WheelTypeAroma.Includes(DescriptorTypeFlavor))
	assert.True(t, WheelTypeCombined.Includes(DescriptorTypeTexture))
	assert.False(t, WheelTypeCombined.Includes(DescriptorTypeMetaphor))
	assert.True(t, WheelTypeMetaphor.Includes(DescriptorTypeMetaphor))
}

func TestValidate_AcceptsConsistentHierarchy(t *testing.T) {
	require.NoError(t, simpleWheel().Validate())
}

func TestValidate_ChildExceedsParent(t *testing.T) {
	data := simpleWheel()
	data.Categories[0].Subcategories[0].Count = 99
	err := data.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWheelInvalidHierarchy))
}

func TestValidate_TotalMismatch(t *testing.T) {
	data := simpleWheel()
	data.TotalDescriptors = 42
	err := data.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWheelInvalidHierarchy))
}

func TestValidate_DescriptorSumMayBeBelowSubcategoryCount(t *testing.T) {
	// Truncated descriptor lists legitimately sum below the subcategory
	// count; Validate must accept that.
	data := &FlavorWheelData{
		WheelType:        WheelTypeAroma,
		TotalDescriptors: 10,
		Categories: []WheelCategory{
			{Name: "Fruity", Count: 10, Subcategories: []WheelSubcategory{
				{Name: "Citrus", Count: 10, Descriptors: []WheelDescriptor{{Text: "lemon", Count: 4}}},
			}},
		},
	}
	require.NoError(t, data.Validate())
}

func TestValidate_ZeroCountNodeRejected(t *testing.T) {
	data := simpleWheel()
	data.Categories[1].Count = 0
	data.Categories[1].Subcategories = nil
	data.TotalDescriptors = 2
	err := data.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWheelInvalidHierarchy))
}

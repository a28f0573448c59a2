package opensearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_TextAndFilters(t *testing.T) {
	q := buildQuery(SearchQuery{
		Text:     "citrus",
		Type:     "aroma",
		Category: "fruity",
		UserID:   "u1",
		Limit:    10,
	})

	assert.Equal(t, 10, q["size"])

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	require.Len(t, boolQuery["must"], 1)
	require.Len(t, boolQuery["filter"], 3)
}

func TestBuildQuery_EmptyFallsBackToMatchAll(t *testing.T) {
	q := buildQuery(SearchQuery{Limit: 5})

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	_, ok := must[0].(map[string]interface{})["match_all"]
	assert.True(t, ok)
	assert.NotContains(t, boolQuery, "filter")
}

package opensearch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

// SearchQuery is a descriptor search request.  Text is matched against the
// descriptor text; the remaining fields are exact filters.
type SearchQuery struct {
	Text     string
	Type     string
	Category string
	UserID   string
	Limit    int
}

// DescriptorHit is one search result.
type DescriptorHit struct {
	Document DescriptorDocument
	Score    float64
}

// SearchResult holds the descriptor search response.
type SearchResult struct {
	Total  int64
	Hits   []DescriptorHit
	TookMs int64
}

// Searcher performs descriptor search operations.
type Searcher struct {
	client *Client
	logger logging.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(client *Client, logger logging.Logger) *Searcher {
	return &Searcher{
		client: client,
		logger: logger,
	}
}

// SearchDescriptors runs a full-text query over indexed descriptors.
func (s *Searcher) SearchDescriptors(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.client.DescriptorIndex()},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "search request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, handleErrorResponse(resp, errors.New(errors.ErrCodeSearchFailed, "search failed"))
	}

	var osResp struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&osResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	result := &SearchResult{
		Total:  osResp.Hits.Total.Value,
		TookMs: osResp.Took,
	}
	for _, h := range osResp.Hits.Hits {
		var doc DescriptorDocument
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		result.Hits = append(result.Hits, DescriptorHit{Document: doc, Score: h.Score})
	}

	s.logger.Debug("Descriptor search completed",
		logging.String("text", q.Text),
		logging.Int64("total", result.Total),
		logging.Int64("took_ms", result.TookMs))
	return result, nil
}

func buildQuery(q SearchQuery) map[string]interface{} {
	must := []interface{}{}
	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{
				"text": map[string]interface{}{
					"query":     q.Text,
					"fuzziness": "AUTO",
				},
			},
		})
	}

	filter := []interface{}{}
	if q.Type != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"type": q.Type},
		})
	}
	if q.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": q.Category},
		})
	}
	if q.UserID != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"user_id": q.UserID},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	return map[string]interface{}{
		"size":  q.Limit,
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

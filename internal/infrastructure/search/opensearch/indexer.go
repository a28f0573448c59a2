package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/lawrns/flavatix/internal/domain/descriptor"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

var (
	ErrIndexCreationFailed = errors.New(errors.ErrCodeInternal, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeInternal, "document index failed")
)

// DescriptorDocument is the indexed shape of a descriptor record.
type DescriptorDocument struct {
	ID          string  `json:"id"`
	TastingID   string  `json:"tasting_id"`
	UserID      string  `json:"user_id"`
	ItemName    string  `json:"item_name"`
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
	CreatedAt   string  `json:"created_at"`
}

// Indexer writes descriptor documents into the search index.
type Indexer struct {
	client *Client
	logger logging.Logger
}

// NewIndexer creates a new Indexer.
func NewIndexer(client *Client, logger logging.Logger) *Indexer {
	return &Indexer{
		client: client,
		logger: logger,
	}
}

// EnsureIndex creates the descriptor index with its mapping when missing.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	index := i.client.DescriptorIndex()

	existsReq := opensearchapi.IndicesExistsRequest{Index: []string{index}}
	resp, err := existsReq.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to check index existence")
	}
	resp.Body.Close()
	if resp.StatusCode == 200 {
		return nil
	}

	body, err := json.Marshal(descriptorIndexMapping())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	createReq := opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}
	createResp, err := createReq.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create index request")
	}
	defer createResp.Body.Close()

	if createResp.IsError() {
		return handleErrorResponse(createResp, ErrIndexCreationFailed)
	}

	i.logger.Info("Index created", logging.String("index", index))
	return nil
}

// IndexDescriptors bulk-indexes descriptor records.  Called by the worker
// after extraction completes.
func (i *Indexer) IndexDescriptors(ctx context.Context, records []*descriptor.Record) error {
	if len(records) == 0 {
		return nil
	}

	index := i.client.DescriptorIndex()
	var buf bytes.Buffer
	for _, rec := range records {
		meta := fmt.Sprintf(`{"index":{"_index":"%s","_id":"%s"}}`, index, rec.ID)
		buf.WriteString(meta + "\n")

		doc := DescriptorDocument{
			ID:          rec.ID.String(),
			TastingID:   rec.TastingID.String(),
			UserID:      rec.UserID,
			ItemName:    rec.ItemName,
			Text:        rec.Text,
			Type:        string(rec.Type),
			Category:    rec.Category,
			Subcategory: rec.Subcategory,
			Confidence:  rec.Confidence,
			CreatedAt:   rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal descriptor document")
		}
		buf.Write(docBytes)
		buf.WriteString("\n")
	}

	req := opensearchapi.BulkRequest{Body: bytes.NewReader(buf.Bytes())}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "bulk request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return handleErrorResponse(resp, ErrDocumentIndexFailed)
	}

	i.logger.Debug("Indexed descriptors",
		logging.String("index", index),
		logging.Int("count", len(records)))
	return nil
}

// DeleteByTasting removes all indexed descriptors for a tasting, keeping the
// search index in step with re-extraction.
func (i *Indexer) DeleteByTasting(ctx context.Context, tastingID string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"tasting_id": tastingID,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal delete query")
	}

	req := opensearchapi.DeleteByQueryRequest{
		Index: []string{i.client.DescriptorIndex()},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "delete by query failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return handleErrorResponse(resp, errors.New(errors.ErrCodeInternal, "delete by query failed"))
	}
	return nil
}

func handleErrorResponse(resp *opensearchapi.Response, defaultErr error) error {
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error.Reason != "" {
		return errors.Wrap(defaultErr, errors.ErrCodeInternal,
			fmt.Sprintf("OpenSearch error: %s - %s", errResp.Error.Type, errResp.Error.Reason))
	}
	return errors.Wrap(defaultErr, errors.ErrCodeInternal,
		fmt.Sprintf("OpenSearch error status: %d", resp.StatusCode))
}

func descriptorIndexMapping() map[string]interface{} {
	return map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":          map[string]interface{}{"type": "keyword"},
				"tasting_id":  map[string]interface{}{"type": "keyword"},
				"user_id":     map[string]interface{}{"type": "keyword"},
				"item_name":   map[string]interface{}{"type": "keyword"},
				"text":        map[string]interface{}{"type": "text"},
				"type":        map[string]interface{}{"type": "keyword"},
				"category":    map[string]interface{}{"type": "keyword"},
				"subcategory": map[string]interface{}{"type": "keyword"},
				"confidence":  map[string]interface{}{"type": "float"},
				"created_at":  map[string]interface{}{"type": "date"},
			},
		},
	}
}

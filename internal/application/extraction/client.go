// Package extraction runs the descriptor pipeline: calling the external AI
// classification service on tasting notes and replacing the tasting's stored
// descriptors with the result.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lawrns/flavatix/internal/config"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

// ExtractedDescriptor is one classified term as returned by the service.
type ExtractedDescriptor struct {
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Intensity   float64 `json:"intensity,omitempty"`
}

// ExtractResponse is the classification service's response body.
type ExtractResponse struct {
	Descriptors      []ExtractedDescriptor `json:"descriptors"`
	TokensUsed       int                   `json:"tokensUsed"`
	ProcessingTimeMs int64                 `json:"processingTimeMs"`
}

type extractRequest struct {
	Notes       string `json:"notes"`
	TastingType string `json:"tastingType"`
	ItemName    string `json:"itemName"`
}

// Extractor is the classification client contract; see Client for the HTTP
// implementation.
type Extractor interface {
	Extract(ctx context.Context, notes, tastingType, itemName string) (*ExtractResponse, error)
}

// Client calls the external classification service over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        config.ExtractionConfig
	logger     logging.Logger
}

// NewClient creates the classification client.
func NewClient(cfg config.ExtractionConfig, logger logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewValidationError("extraction base url must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// NewClientWithHTTP wraps an existing http.Client (for testing).
func NewClientWithHTTP(httpClient *http.Client, cfg config.ExtractionConfig, logger logging.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger,
	}
}

// Extract classifies free-text notes into typed descriptors.  Notes longer
// than the configured maximum are truncated before sending.  Transient
// failures (network errors, 5xx) are retried with linear backoff; client
// errors are not.
func (c *Client) Extract(ctx context.Context, notes, tastingType, itemName string) (*ExtractResponse, error) {
	if c.cfg.MaxNoteLength > 0 && len(notes) > c.cfg.MaxNoteLength {
		c.logger.Warn("Truncating oversized tasting notes",
			logging.Int("length", len(notes)),
			logging.Int("max", c.cfg.MaxNoteLength))
		notes = notes[:c.cfg.MaxNoteLength]
	}

	body, err := json.Marshal(extractRequest{
		Notes:       notes,
		TastingType: tastingType,
		ItemName:    itemName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal extraction request")
	}

	maxRetries := c.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := c.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "extraction cancelled")
			case <-time.After(time.Duration(attempt) * backoff):
			}
		}

		resp, retryable, err := c.doExtract(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("Extraction attempt failed",
			logging.Int("attempt", attempt+1),
			logging.Err(err))
	}

	return nil, errors.Wrap(lastErr, errors.ErrCodeExtractionUnavailable,
		fmt.Sprintf("extraction service unavailable after %d attempts", maxRetries+1))
}

func (c *Client) doExtract(ctx context.Context, body []byte) (*ExtractResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeInternal, "failed to build extraction request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeExternalService, "extraction request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, errors.New(errors.ErrCodeExtractionUnavailable,
			fmt.Sprintf("extraction service returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, errors.New(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("extraction service returned status %d", resp.StatusCode))
	}

	var out ExtractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode extraction response")
	}
	return &out, false, nil
}

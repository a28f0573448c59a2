package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/search/opensearch"
	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
)

// descriptorSearcher is the slice of the OpenSearch searcher the handler
// needs.
type descriptorSearcher interface {
	SearchDescriptors(ctx context.Context, q opensearch.SearchQuery) (*opensearch.SearchResult, error)
}

// DescriptorHandler serves descriptor full-text search.
type DescriptorHandler struct {
	searcher descriptorSearcher
	logger   logging.Logger
}

// NewDescriptorHandler creates the descriptor handler.
func NewDescriptorHandler(searcher descriptorSearcher, logger logging.Logger) *DescriptorHandler {
	return &DescriptorHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// Search handles GET /api/v1/descriptors/search.  The mine=true flag
// restricts results to the caller's own descriptors.
func (h *DescriptorHandler) Search(c *gin.Context) {
	query := opensearch.SearchQuery{
		Text:     c.Query("q"),
		Type:     c.Query("type"),
		Category: c.Query("category"),
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			query.Limit = limit
		}
	}
	if c.Query("mine") == "true" {
		query.UserID = middleware.GetUserID(c)
	}

	result, err := h.searcher.SearchDescriptors(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

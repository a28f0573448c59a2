package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	extractionapp "github.com/lawrns/flavatix/internal/application/extraction"
	tastingapp "github.com/lawrns/flavatix/internal/application/tasting"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
	"github.com/lawrns/flavatix/pkg/errors"
)

// TastingHandler serves the tasting CRUD endpoints and on-demand extraction.
type TastingHandler struct {
	tastings   tastingapp.Service
	extraction extractionapp.Service
	logger     logging.Logger
}

// NewTastingHandler creates the tasting handler.  Extraction may be nil when
// the worker is the only extraction path.
func NewTastingHandler(tastings tastingapp.Service, extraction extractionapp.Service, logger logging.Logger) *TastingHandler {
	return &TastingHandler{
		tastings:   tastings,
		extraction: extraction,
		logger:     logger,
	}
}

type createTastingRequest struct {
	ItemName string            `json:"item_name" binding:"required"`
	Type     string            `json:"type" binding:"required"`
	Notes    string            `json:"notes"`
	Metadata map[string]string `json:"metadata"`
}

// Create handles POST /api/v1/tastings.
func (h *TastingHandler) Create(c *gin.Context) {
	var req createTastingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	t, err := h.tastings.Create(c.Request.Context(), tastingapp.CreateInput{
		UserID:   middleware.GetUserID(c),
		ItemName: req.ItemName,
		Type:     req.Type,
		Notes:    req.Notes,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// List handles GET /api/v1/tastings.
func (h *TastingHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)

	result, err := h.tastings.List(c.Request.Context(), tastingapp.ListInput{
		UserID:   middleware.GetUserID(c),
		Type:     c.Query("type"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/v1/tastings/:tastingID.
func (h *TastingHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "tastingID")
	if !ok {
		return
	}
	t, err := h.tastings.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type updateNotesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// UpdateNotes handles PUT /api/v1/tastings/:tastingID/notes.
func (h *TastingHandler) UpdateNotes(c *gin.Context) {
	id, ok := pathUUID(c, "tastingID")
	if !ok {
		return
	}
	var req updateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	t, err := h.tastings.UpdateNotes(c.Request.Context(), tastingapp.UpdateNotesInput{
		ID:    id,
		Notes: req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tastings/:tastingID.
func (h *TastingHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "tastingID")
	if !ok {
		return
	}
	if err := h.tastings.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Extract handles POST /api/v1/tastings/:tastingID/extract, running the
// extraction pipeline synchronously.  The worker runs the same pipeline on
// tasting events; this endpoint exists for retries and backfills.
func (h *TastingHandler) Extract(c *gin.Context) {
	if h.extraction == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "extraction is not configured"))
		return
	}
	id, ok := pathUUID(c, "tastingID")
	if !ok {
		return
	}
	result, err := h.extraction.ExtractAndStore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	wheelapp "github.com/lawrns/flavatix/internal/application/wheel"
	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
	"github.com/lawrns/flavatix/pkg/errors"
)

// WheelHandler serves wheel generation, retrieval, and export.
type WheelHandler struct {
	wheels wheelapp.Service
	logger logging.Logger
}

// NewWheelHandler creates the wheel handler.
func NewWheelHandler(wheels wheelapp.Service, logger logging.Logger) *WheelHandler {
	return &WheelHandler{
		wheels: wheels,
		logger: logger,
	}
}

type generateWheelRequest struct {
	WheelType       string `json:"wheel_type" binding:"required"`
	ScopeType       string `json:"scope_type" binding:"required"`
	ItemName        string `json:"item_name"`
	Category        string `json:"category"`
	TastingID       string `json:"tasting_id"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

// emptyWheelResponse is the 200 body for scopes with no matching
// descriptors: an empty state, not an error.
type emptyWheelResponse struct {
	Wheel      interface{} `json:"wheel"`
	EmptyState bool        `json:"empty_state"`
	Message    string      `json:"message"`
}

// buildScope assembles the descriptor scope from the request, resolving the
// personal scope to the authenticated caller.
func buildScope(c *gin.Context, scopeType, itemName, category, tastingID string) (descriptor.Scope, error) {
	st, err := domainWheel.ParseScopeType(scopeType)
	if err != nil {
		return descriptor.Scope{}, err
	}

	scope := descriptor.Scope{
		Type:     st,
		ItemName: itemName,
		Category: category,
	}
	if st == domainWheel.ScopePersonal {
		scope.UserID = middleware.GetUserID(c)
	}
	if tastingID != "" {
		id, err := uuid.Parse(tastingID)
		if err != nil {
			return descriptor.Scope{}, errors.New(errors.ErrCodeBadRequest, "invalid tasting_id")
		}
		scope.TastingID = id
	}
	return scope, scope.Validate()
}

// Generate handles POST /api/v1/wheels/generate.
func (h *WheelHandler) Generate(c *gin.Context) {
	var req generateWheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	wheelType, err := domainWheel.ParseWheelType(req.WheelType)
	if err != nil {
		respondError(c, err)
		return
	}
	scope, err := buildScope(c, req.ScopeType, req.ItemName, req.Category, req.TastingID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.wheels.Generate(c.Request.Context(), wheelapp.GenerateRequest{
		WheelType:       wheelType,
		Scope:           scope,
		ForceRegenerate: req.ForceRegenerate,
	})
	if err != nil {
		if errors.IsEmptyState(err) {
			c.JSON(http.StatusOK, emptyWheelResponse{
				EmptyState: true,
				Message:    "no descriptors recorded yet for this scope",
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetLatest handles GET /api/v1/wheels/latest.
func (h *WheelHandler) GetLatest(c *gin.Context) {
	wheelType, err := domainWheel.ParseWheelType(c.Query("wheel_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	scope, err := buildScope(c, c.Query("scope_type"), c.Query("item_name"), c.Query("category"), c.Query("tasting_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.wheels.GetLatest(c.Request.Context(), wheelType, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Get handles GET /api/v1/wheels/:wheelID.
func (h *WheelHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "wheelID")
	if !ok {
		return
	}
	rec, err := h.wheels.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Export handles POST /api/v1/wheels/:wheelID/export, returning a share
// link to the rendered SVG.
func (h *WheelHandler) Export(c *gin.Context) {
	id, ok := pathUUID(c, "wheelID")
	if !ok {
		return
	}
	result, err := h.wheels.Export(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

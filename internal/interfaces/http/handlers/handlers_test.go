package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	extractionapp "github.com/lawrns/flavatix/internal/application/extraction"
	tastingapp "github.com/lawrns/flavatix/internal/application/tasting"
	wheelapp "github.com/lawrns/flavatix/internal/application/wheel"
	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainTasting "github.com/lawrns/flavatix/internal/domain/tasting"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/search/opensearch"
	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
	"github.com/lawrns/flavatix/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Mock services

type mockTastingService struct {
	createFn func(ctx context.Context, input tastingapp.CreateInput) (*domainTasting.Tasting, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domainTasting.Tasting, error)
}

func (m *mockTastingService) Create(ctx context.Context, input tastingapp.CreateInput) (*domainTasting.Tasting, error) {
	return m.createFn(ctx, input)
}

func (m *mockTastingService) GetByID(ctx context.Context, id uuid.UUID) (*domainTasting.Tasting, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New(errors.ErrCodeTastingNotFound, "tasting not found")
}

func (m *mockTastingService) List(ctx context.Context, input tastingapp.ListInput) (*tastingapp.ListResult, error) {
	return &tastingapp.ListResult{Page: input.Page, PageSize: input.PageSize}, nil
}

func (m *mockTastingService) UpdateNotes(ctx context.Context, input tastingapp.UpdateNotesInput) (*domainTasting.Tasting, error) {
	return nil, errors.New(errors.ErrCodeTastingNotFound, "tasting not found")
}

func (m *mockTastingService) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type mockWheelService struct {
	generateFn func(ctx context.Context, req wheelapp.GenerateRequest) (*wheelapp.GenerateResult, error)
	exportFn   func(ctx context.Context, id uuid.UUID) (*wheelapp.ExportResult, error)
}

func (m *mockWheelService) Generate(ctx context.Context, req wheelapp.GenerateRequest) (*wheelapp.GenerateResult, error) {
	return m.generateFn(ctx, req)
}

func (m *mockWheelService) GetByID(ctx context.Context, id uuid.UUID) (*domainWheel.Record, error) {
	return nil, errors.New(errors.ErrCodeWheelNotFound, "wheel not found")
}

func (m *mockWheelService) GetLatest(ctx context.Context, t domainWheel.WheelType, scope descriptor.Scope) (*domainWheel.Record, error) {
	return nil, errors.New(errors.ErrCodeWheelNotFound, "wheel not found")
}

func (m *mockWheelService) Export(ctx context.Context, id uuid.UUID) (*wheelapp.ExportResult, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, id)
	}
	return nil, errors.New(errors.ErrCodeWheelNotFound, "wheel not found")
}

type mockExtractionService struct {
	result *extractionapp.Result
	err    error
}

func (m *mockExtractionService) ExtractAndStore(ctx context.Context, tastingID uuid.UUID) (*extractionapp.Result, error) {
	return m.result, m.err
}

func (m *mockExtractionService) CleanupDeleted(ctx context.Context, tastingID uuid.UUID, userID, itemName string, categories []string) error {
	return nil
}

type mockSearcher struct {
	query  opensearch.SearchQuery
	result *opensearch.SearchResult
}

func (m *mockSearcher) SearchDescriptors(ctx context.Context, q opensearch.SearchQuery) (*opensearch.SearchResult, error) {
	m.query = q
	return m.result, nil
}

// Router helper mounting handlers the way the production router does.

func testRouter(tastings *TastingHandler, wheels *WheelHandler, descriptors *DescriptorHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.Use(middleware.RequireUser())
	if tastings != nil {
		api.POST("/tastings", tastings.Create)
		api.GET("/tastings", tastings.List)
		api.GET("/tastings/:tastingID", tastings.Get)
		api.POST("/tastings/:tastingID/extract", tastings.Extract)
	}
	if wheels != nil {
		api.POST("/wheels/generate", wheels.Generate)
		api.POST("/wheels/:wheelID/export", wheels.Export)
	}
	if descriptors != nil {
		api.GET("/descriptors/search", descriptors.Search)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(middleware.UserIDHeader, "u1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// Tests

func TestCreateTasting_Returns201(t *testing.T) {
	svc := &mockTastingService{createFn: func(ctx context.Context, input tastingapp.CreateInput) (*domainTasting.Tasting, error) {
		assert.Equal(t, "u1", input.UserID)
		return &domainTasting.Tasting{
			ID:       uuid.New(),
			UserID:   input.UserID,
			ItemName: input.ItemName,
			Type:     domainTasting.TypeCoffee,
		}, nil
	}}
	r := testRouter(NewTastingHandler(svc, nil, logging.NewNopLogger()), nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/tastings",
		`{"item_name":"Kenya AA","type":"coffee","notes":"bright"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTasting_InvalidBodyReturns400(t *testing.T) {
	svc := &mockTastingService{createFn: func(ctx context.Context, input tastingapp.CreateInput) (*domainTasting.Tasting, error) {
		return nil, nil
	}}
	r := testRouter(NewTastingHandler(svc, nil, logging.NewNopLogger()), nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/tastings", `{"notes":"no item"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "COMMON_002", body.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestCreateTasting_MissingUserReturns401(t *testing.T) {
	svc := &mockTastingService{createFn: func(ctx context.Context, input tastingapp.CreateInput) (*domainTasting.Tasting, error) {
		return nil, nil
	}}
	r := testRouter(NewTastingHandler(svc, nil, logging.NewNopLogger()), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tastings",
		strings.NewReader(`{"item_name":"Kenya AA","type":"coffee"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTasting_InvalidUUIDReturns400(t *testing.T) {
	svc := &mockTastingService{}
	r := testRouter(NewTastingHandler(svc, nil, logging.NewNopLogger()), nil, nil)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/tastings/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTasting_NotFoundReturns404(t *testing.T) {
	svc := &mockTastingService{}
	r := testRouter(NewTastingHandler(svc, nil, logging.NewNopLogger()), nil, nil)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/tastings/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TST_001", body.Code)
}

func TestExtract_RunsOnDemand(t *testing.T) {
	id := uuid.New()
	extraction := &mockExtractionService{result: &extractionapp.Result{TastingID: id, Stored: 3}}
	r := testRouter(NewTastingHandler(&mockTastingService{}, extraction, logging.NewNopLogger()), nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/tastings/"+id.String()+"/extract", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stored":3`)
}

func TestGenerateWheel_Success(t *testing.T) {
	var got wheelapp.GenerateRequest
	svc := &mockWheelService{generateFn: func(ctx context.Context, req wheelapp.GenerateRequest) (*wheelapp.GenerateResult, error) {
		got = req
		return &wheelapp.GenerateResult{
			Record: &domainWheel.Record{
				ID:        uuid.New(),
				WheelType: req.WheelType,
				ScopeType: req.Scope.Type,
				ScopeKey:  req.Scope.CacheKey(),
				Data:      &domainWheel.FlavorWheelData{WheelType: req.WheelType},
			},
		}, nil
	}}
	r := testRouter(nil, NewWheelHandler(svc, logging.NewNopLogger()), nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/wheels/generate",
		`{"wheel_type":"aroma","scope_type":"personal"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Personal scope resolves to the authenticated caller.
	assert.Equal(t, "u1", got.Scope.UserID)
	assert.Equal(t, domainWheel.WheelTypeAroma, got.WheelType)
}

func TestGenerateWheel_EmptyStateReturns200(t *testing.T) {
	svc := &mockWheelService{generateFn: func(ctx context.Context, req wheelapp.GenerateRequest) (*wheelapp.GenerateResult, error) {
		return nil, errors.New(errors.ErrCodeWheelEmptyInput, "no descriptors")
	}}
	r := testRouter(nil, NewWheelHandler(svc, logging.NewNopLogger()), nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/wheels/generate",
		`{"wheel_type":"aroma","scope_type":"personal"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body emptyWheelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.EmptyState)
	assert.Nil(t, body.Wheel)
}

func TestGenerateWheel_UnknownTypeReturns400(t *testing.T) {
	svc := &mockWheelService{generateFn: func(ctx context.Context, req wheelapp.GenerateRequest) (*wheelapp.GenerateResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := testRouter(nil, NewWheelHandler(svc, logging.NewNopLogger()), nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/wheels/generate",
		`{"wheel_type":"mood","scope_type":"personal"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "WHL_004")
}

func TestExportWheel_ReturnsShareLink(t *testing.T) {
	id := uuid.New()
	svc := &mockWheelService{exportFn: func(ctx context.Context, got uuid.UUID) (*wheelapp.ExportResult, error) {
		assert.Equal(t, id, got)
		return &wheelapp.ExportResult{
			WheelID:   id,
			ObjectKey: "wheels/" + id.String() + ".svg",
			URL:       "https://minio.local/wheels/" + id.String() + ".svg",
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}, nil
	}}
	r := testRouter(nil, NewWheelHandler(svc, logging.NewNopLogger()), nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/wheels/"+id.String()+"/export", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".svg")
}

func TestSearchDescriptors_PassesFilters(t *testing.T) {
	searcher := &mockSearcher{result: &opensearch.SearchResult{Total: 1}}
	r := testRouter(nil, nil, NewDescriptorHandler(searcher, logging.NewNopLogger()))

	rec := doJSON(t, r, http.MethodGet,
		"/api/v1/descriptors/search?q=citrus&type=aroma&limit=5&mine=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "citrus", searcher.query.Text)
	assert.Equal(t, "aroma", searcher.query.Type)
	assert.Equal(t, 5, searcher.query.Limit)
	assert.Equal(t, "u1", searcher.query.UserID)
}

func TestParsePagination_CapsPageSize(t *testing.T) {
	r := gin.New()
	var page, pageSize int
	r.GET("/", func(c *gin.Context) {
		page, pageSize = parsePagination(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?page=3&page_size=500", nil))

	assert.Equal(t, 3, page)
	assert.Equal(t, 20, pageSize)
}

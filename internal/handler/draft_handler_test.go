package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/middleware"
	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type draftServiceMock struct {
	createResp    *models.Draft
	createErr     error
	getResp       *models.Draft
	getErr        error
	updateResp    *models.Draft
	updateErr     error
	forSealResp   *dto.ForSealResponse
	forSealErr    error
	lastTenant    string
	lastCreateReq dto.CreateDraftRequest
	lastRawBody   []byte
	createCalled  bool
	updateCalled  bool
}

func (m *draftServiceMock) CreateDraft(ctx context.Context, tenantID string, req dto.CreateDraftRequest, actor, correlationID string) (*models.Draft, error) {
	m.createCalled = true
	m.lastTenant = tenantID
	m.lastCreateReq = req
	return m.createResp, m.createErr
}

func (m *draftServiceMock) GetDraft(ctx context.Context, tenantID, draftID string) (*models.Draft, error) {
	m.lastTenant = tenantID
	return m.getResp, m.getErr
}

func (m *draftServiceMock) UpdateDraft(ctx context.Context, tenantID, draftID string, rawBody []byte, req dto.UpdateDraftRequest, actor, correlationID string) (*models.Draft, error) {
	m.updateCalled = true
	m.lastTenant = tenantID
	m.lastRawBody = rawBody
	return m.updateResp, m.updateErr
}

func (m *draftServiceMock) ForSeal(ctx context.Context, tenantID, draftID string) (*dto.ForSealResponse, error) {
	m.lastTenant = tenantID
	return m.forSealResp, m.forSealErr
}

type sealServiceMock struct {
	resp       *dto.SealResponse
	err        error
	sealCalled bool
	lastDraft  string
}

func (m *sealServiceMock) Seal(ctx context.Context, tenantID, draftID, actor, correlationID string) (*dto.SealResponse, error) {
	m.sealCalled = true
	m.lastDraft = draftID
	return m.resp, m.err
}

func testClaims() *models.JWTClaims {
	return &models.JWTClaims{TenantID: "tenant-1", ActorID: "officer-1", Role: models.RoleComplianceOfficer}
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope
}

func errorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	envelope := decodeEnvelope(t, body)
	errObj, ok := envelope["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestDraftHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{
		createResp: &models.Draft{ID: "draft-1", TenantID: "tenant-1", Status: models.DraftStatusDraft},
	}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"ingestion_method":"FILE_UPLOAD","dataset_type":"SUPPLIER_MASTER","declared_scope":"ENTIRE_ORGANIZATION","rationale":"quarterly supplier due diligence run"}`
	req, _ := http.NewRequest(http.MethodPost, "/drafts", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
	assert.Equal(t, "tenant-1", mockSvc.lastTenant)
	assert.Equal(t, models.MethodFileUpload, mockSvc.lastCreateReq.IngestionMethod)
}

func TestDraftHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts", bytes.NewBufferString(`{"dataset_type":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.createCalled)
}

func TestDraftHandlerCreateValidationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{
		createErr: appErrors.WithFields(appErrors.ErrValidation,
			appErrors.FieldError{Field: "rationale", Code: "REQUIRED", Message: "rationale is required"}),
	}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts", bytes.NewBufferString(`{"ingestion_method":"MANUAL_ENTRY"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims())

	h.Create(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, w.Body))
}

func TestDraftHandlerCreateMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Create(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mockSvc.createCalled)
}

func TestDraftHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{getErr: appErrors.ErrNotFound}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/drafts/draft-x", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-x"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftHandlerUpdatePassesRawBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{
		updateResp: &models.Draft{ID: "draft-1", TenantID: "tenant-1", Status: models.DraftStatusDraft},
	}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"rationale":"updated rationale for the ingestion run"}`
	req, _ := http.NewRequest(http.MethodPatch, "/drafts/draft-1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.updateCalled)
	assert.JSONEq(t, body, string(mockSvc.lastRawBody))
}

func TestDraftHandlerUpdateBindingFieldConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{
		updateErr: appErrors.WithDetail(appErrors.ErrBindingImmutable, map[string]interface{}{
			"rejected_fields": []string{"dataset_type"},
		}),
	}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/drafts/draft-1", bytes.NewBufferString(`{"dataset_type":"ENERGY_CONSUMPTION"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Update(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrBindingImmutable.Code, errorCode(t, w.Body))
}

func TestDraftHandlerForSeal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &draftServiceMock{
		forSealResp: &dto.ForSealResponse{
			DraftID:    "draft-1",
			Validation: dto.SealReadiness{ReadyToSeal: false, MissingFields: []string{"payload"}},
		},
	}
	h := NewDraftHandler(mockSvc, &sealServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts/draft-1/for-seal", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.ForSeal(c)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w.Body)
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok)
	validation, ok := data["validation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, validation["ready_to_seal"])
}

func TestDraftHandlerSeal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sealMock := &sealServiceMock{
		resp: &dto.SealResponse{
			EvidenceID:  "ev-1",
			LedgerState: models.StateSealed,
			PayloadHash: "abc123",
			SealedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}
	h := NewDraftHandler(&draftServiceMock{}, sealMock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts/draft-1/seal", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Seal(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, sealMock.sealCalled)
	assert.Equal(t, "draft-1", sealMock.lastDraft)
}

func TestDraftHandlerSealIdempotencyConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sealMock := &sealServiceMock{
		err: appErrors.WithDetail(appErrors.ErrIdempotencyConflict, map[string]interface{}{
			"existing_evidence_id": "ev-prior",
		}),
	}
	h := NewDraftHandler(&draftServiceMock{}, sealMock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts/draft-1/seal", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Seal(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrIdempotencyConflict.Code, errorCode(t, w.Body))
}

func TestDraftHandlerSealPreconditionFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sealMock := &sealServiceMock{err: appErrors.ErrFileRequired}
	h := NewDraftHandler(&draftServiceMock{}, sealMock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/drafts/draft-1/seal", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Seal(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, appErrors.ErrFileRequired.Code, errorCode(t, w.Body))
}

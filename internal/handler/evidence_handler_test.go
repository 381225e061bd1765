package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/middleware"
	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type evidenceServiceMock struct {
	getResp     *models.SealedEvidence
	getErr      error
	byDraftResp *models.SealedEvidence
	byDraftErr  error
	receiptResp []byte
	receiptErr  error
	lastTenant  string
	lastID      string
}

func (m *evidenceServiceMock) Get(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	m.lastTenant = tenantID
	m.lastID = evidenceID
	return m.getResp, m.getErr
}

func (m *evidenceServiceMock) GetByDraft(ctx context.Context, tenantID, draftID string) (*models.SealedEvidence, error) {
	m.lastTenant = tenantID
	m.lastID = draftID
	return m.byDraftResp, m.byDraftErr
}

func (m *evidenceServiceMock) Receipt(ctx context.Context, tenantID, evidenceID string) ([]byte, error) {
	m.lastID = evidenceID
	return m.receiptResp, m.receiptErr
}

type transitionServiceMock struct {
	resp     *dto.TransitionResponse
	err      error
	called   bool
	lastReq  dto.TransitionRequest
	lastID   string
	lastTena string
}

func (m *transitionServiceMock) Transition(ctx context.Context, tenantID, evidenceID string, req dto.TransitionRequest, actor, correlationID string) (*dto.TransitionResponse, error) {
	m.called = true
	m.lastTena = tenantID
	m.lastID = evidenceID
	m.lastReq = req
	return m.resp, m.err
}

func TestEvidenceHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &evidenceServiceMock{
		getResp: &models.SealedEvidence{ID: "ev-1", TenantID: "tenant-1", LedgerState: models.StateSealed},
	}
	h := NewEvidenceHandler(mockSvc, &transitionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/evidence/ev-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-1", mockSvc.lastTenant)
	assert.Equal(t, "ev-1", mockSvc.lastID)
}

func TestEvidenceHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &evidenceServiceMock{getErr: appErrors.ErrNotFound}
	h := NewEvidenceHandler(mockSvc, &transitionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/evidence/ev-other", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ev-other"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, w.Body))
}

func TestEvidenceHandlerGetByDraft(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &evidenceServiceMock{
		byDraftResp: &models.SealedEvidence{ID: "ev-1", DraftID: "draft-1", LedgerState: models.StateSealed},
	}
	h := NewEvidenceHandler(mockSvc, &transitionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/drafts/draft-1/evidence", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "draft-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.GetByDraft(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "draft-1", mockSvc.lastID)
}

func TestEvidenceHandlerTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &transitionServiceMock{
		resp: &dto.TransitionResponse{EvidenceID: "ev-1", LedgerState: models.StateRejected},
	}
	h := NewEvidenceHandler(&evidenceServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"to_state":"REJECTED","reason":"supplier recalled the filing"}`
	req, _ := http.NewRequest(http.MethodPost, "/evidence/ev-1/transition", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.called)
	assert.Equal(t, models.StateRejected, mockSvc.lastReq.ToState)
	assert.Equal(t, "ev-1", mockSvc.lastID)
}

func TestEvidenceHandlerTransitionBlocked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &transitionServiceMock{
		err: appErrors.WithDetail(appErrors.ErrTransitionBlocked, map[string]interface{}{
			"current_state":   "REJECTED",
			"requested_state": "SEALED",
		}),
	}
	h := NewEvidenceHandler(&evidenceServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/evidence/ev-1/transition", bytes.NewBufferString(`{"to_state":"SEALED","reason":"retry"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Transition(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrTransitionBlocked.Code, errorCode(t, w.Body))
}

func TestEvidenceHandlerTransitionInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &transitionServiceMock{}
	h := NewEvidenceHandler(&evidenceServiceMock{}, mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/evidence/ev-1/transition", bytes.NewBufferString(`{"to_state":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Transition(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.called)
}

func TestEvidenceHandlerReceipt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &evidenceServiceMock{receiptResp: []byte("%PDF-1.4 receipt")}
	h := NewEvidenceHandler(mockSvc, &transitionServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/evidence/ev-1/receipt", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}}
	c.Set(middleware.ContextUserKey, testClaims())

	h.Receipt(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "seal-receipt-ev-1.pdf")
	assert.Contains(t, w.Body.String(), "%PDF")
}

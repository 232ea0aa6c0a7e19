package handler_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sofdesk/internal/config"
	"sofdesk/internal/domain"
	"sofdesk/internal/export"
	"sofdesk/internal/handler"
	"sofdesk/internal/port"
	"sofdesk/internal/router"
	"sofdesk/internal/service"
	"sofdesk/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine    *gin.Engine
	extractor *mocks.MockExtractor
	token     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:     config.ServerConfig{Environment: "development"},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Extraction: config.ExtractionConfig{BaseURL: "http://extractor.test"},
		Upload:     config.UploadConfig{MaxFileSizeMB: 1},
		Session: config.SessionConfig{
			Secret:      "handler-test-secret",
			Issuer:      "sofdesk-test",
			TokenExpiry: time.Hour,
			IdleTTL:     time.Hour,
			CookieName:  "sofdesk_session",
		},
		Export: config.ExportConfig{BaseFilename: "processed_data"},
	}

	extractor := new(mocks.MockExtractor)
	sessionSvc := service.NewSessionService(extractor, cfg.Session)
	exportSvc := service.NewExportService(nil, cfg.Export, 0)

	engine := router.Setup(cfg,
		sessionSvc,
		handler.NewSessionHandler(sessionSvc, cfg.Session),
		handler.NewSubmissionHandler(&cfg.Upload),
		handler.NewResultsHandler(exportSvc),
		handler.NewHealthHandler(cfg, sessionSvc),
	)

	ts := &testServer{engine: engine, extractor: extractor}
	w := ts.do(t, http.MethodPost, "/api/v1/session", strings.NewReader(`{"email":"ops@example.com","profile_pic":"https://example.com/p.png"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token service.SessionToken `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	ts.token = resp.Data.Token.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) selectFile(t *testing.T, slot, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return ts.do(t, http.MethodPut, "/api/v1/submission/slots/"+slot, body, writer.FormDataContentType())
}

func (ts *testServer) submit(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/submission", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data handler.SubmitResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Handoff
}

type resultsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Identity domain.Identity  `json:"identity"`
		Columns  []string         `json:"columns"`
		Records  []*domain.Record `json:"records"`
		Editing  *domain.Record   `json:"editing"`
	} `json:"data"`
	Meta handler.Meta `json:"meta"`
}

func decodeResults(t *testing.T, w *httptest.ResponseRecorder) resultsResponse {
	t.Helper()
	var resp resultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *handler.APIError {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func extractedRecords() []*domain.Record {
	return []*domain.Record{
		domain.NewRecord("id", "r1", "event", "Arrived", "start_time", "08:00"),
		domain.NewRecord("id", "r2", "event", "Loading, hold 1", "start_time", "10:00"),
	}
}

// loadResults runs a primary-only submission and enters the results view.
func (ts *testServer) loadResults(t *testing.T) {
	t.Helper()
	ts.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractionResult{Message: "Files processed successfully!", Records: extractedRecords()}, nil).Once()
	require.Equal(t, http.StatusOK, ts.selectFile(t, "primary", "sof.pdf", []byte("%PDF-1.4")).Code)
	handoff := ts.submit(t)
	w := ts.do(t, http.MethodGet, "/api/v1/results?handoff="+handoff, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSession_RequiresToken(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	w := ts.do(t, http.MethodGet, "/api/v1/submission", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_StartValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	w := ts.do(t, http.MethodPost, "/api/v1/session", strings.NewReader(`{"email":"not-an-email"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
}

func TestSession_StartSetsCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	w := ts.do(t, http.MethodPost, "/api/v1/session", strings.NewReader(`{"email":"ops@example.com"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "sofdesk_session=")
}

func TestSession_MeAndEnd(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@example.com")

	w = ts.do(t, http.MethodDelete, "/api/v1/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmission_PrimaryOnlySendsSinglePart(t *testing.T) {
	ts := newTestServer(t)
	ts.extractor.On("Extract", mock.Anything, mock.MatchedBy(func(req domain.SubmissionRequest) bool {
		return len(req.Parts) == 1 && req.Parts[0].FieldName == "sof_file"
	})).Return(&port.ExtractionResult{Message: "Files processed successfully!", Records: extractedRecords()}, nil).Once()

	w := ts.selectFile(t, "primary", "statement.PDF", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	handoff := ts.submit(t)
	assert.NotEmpty(t, handoff)

	w = ts.do(t, http.MethodGet, "/api/v1/results?handoff="+handoff, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResults(t, w)
	assert.Equal(t, "ops@example.com", resp.Data.Identity.Email)
	assert.Equal(t, []string{"event", "start_time"}, resp.Data.Columns)
	assert.Len(t, resp.Data.Records, 2)
	assert.Equal(t, 2, resp.Meta.Total)
	ts.extractor.AssertExpectations(t)
}

func TestSubmission_RejectsWrongExtension(t *testing.T) {
	ts := newTestServer(t)

	w := ts.selectFile(t, "primary", "scan.png", []byte("png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "INVALID_FILE_TYPE", apiErr.Code)
	assert.Equal(t, "Invalid file type for Statement of Facts. Allowed: pdf, docx", apiErr.Message)

	w = ts.do(t, http.MethodGet, "/api/v1/submission", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Data service.SubmissionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Contains(t, status.Data.Message, "pdf, docx")
	assert.Empty(t, status.Data.Slots[0].Filename)
}

func TestSubmission_UnknownSlot(t *testing.T) {
	ts := newTestServer(t)
	w := ts.selectFile(t, "tertiary", "a.pdf", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_SLOT", decodeError(t, w).Code)
}

func TestSubmission_FileTooLarge(t *testing.T) {
	ts := newTestServer(t)
	w := ts.selectFile(t, "primary", "big.pdf", bytes.Repeat([]byte("a"), 1024*1024+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, w).Code)
}

func TestSubmission_MissingPrimaryMakesNoRequest(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.selectFile(t, "secondary", "cp.docx", []byte("docx")).Code)

	w := ts.do(t, http.MethodPost, "/api/v1/submission", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_REQUIRED_FILE", decodeError(t, w).Code)
	ts.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestSubmission_ServiceErrorIsReported(t *testing.T) {
	ts := newTestServer(t)
	ts.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(nil, &domain.ServiceError{Status: http.StatusInternalServerError, Detail: "Failed to read PDF"}).Once()
	require.Equal(t, http.StatusOK, ts.selectFile(t, "primary", "sof.pdf", []byte("%PDF")).Code)

	w := ts.do(t, http.MethodPost, "/api/v1/submission", nil, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "SERVICE_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Message, "Failed to read PDF")
}

func (ts *testServer) failNextSubmits(errs ...error) {
	for _, err := range errs {
		ts.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, err).Once()
	}
}

func recordIDs(records []*domain.Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	return ids
}

func TestSubmission_FailedSubmitKeepsCurrentResults(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)
	ts.failNextSubmits(
		&domain.ServiceError{Status: http.StatusInternalServerError, Detail: "Failed to read PDF"},
		fmt.Errorf("%w: missing processed_data", domain.ErrMalformedResponse),
	)

	for _, code := range []string{"SERVICE_ERROR", "MALFORMED_RESPONSE"} {
		w := ts.do(t, http.MethodPost, "/api/v1/submission", nil, "")
		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, code, decodeError(t, w).Code)

		w = ts.do(t, http.MethodGet, "/api/v1/results/current", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResults(t, w)
		assert.Equal(t, []string{"r1", "r2"}, recordIDs(resp.Data.Records))
		assert.Equal(t, []string{"event", "start_time"}, resp.Data.Columns)
	}
	ts.extractor.AssertExpectations(t)
}

func TestSubmission_FailedSubmitKeepsPendingHandoff(t *testing.T) {
	ts := newTestServer(t)
	ts.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractionResult{Records: extractedRecords()}, nil).Once()
	ts.failNextSubmits(
		&domain.ServiceError{Status: http.StatusUnprocessableEntity, Detail: "Invalid file type"},
		domain.ErrMalformedResponse,
	)

	require.Equal(t, http.StatusOK, ts.selectFile(t, "primary", "sof.pdf", []byte("%PDF")).Code)
	handoff := ts.submit(t)

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/api/v1/submission", nil, "")
		require.Equal(t, http.StatusBadGateway, w.Code)
	}

	w := ts.do(t, http.MethodGet, "/api/v1/results?handoff="+handoff, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"r1", "r2"}, recordIDs(decodeResults(t, w).Data.Records))
	ts.extractor.AssertExpectations(t)
}

func TestSubmission_ClearSlotAndDismiss(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.selectFile(t, "supplementary", "notes.txt", []byte("n")).Code)

	w := ts.do(t, http.MethodDelete, "/api/v1/submission/slots/supplementary", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "notes.txt")

	_ = ts.selectFile(t, "primary", "bad.exe", []byte("x"))
	w = ts.do(t, http.MethodDelete, "/api/v1/submission/message", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Invalid file type")
}

func TestResults_EnterWithoutHandoffIsEmpty(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	w := ts.do(t, http.MethodGet, "/api/v1/results", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResults(t, w)
	assert.Empty(t, resp.Data.Records)
	assert.Empty(t, resp.Data.Columns)
}

func TestResults_EditFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	w := ts.do(t, http.MethodPost, "/api/v1/results/records/r2/edit", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPatch, "/api/v1/results/edit", strings.NewReader(`{"field":"event","value":"Loading completed"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPatch, "/api/v1/results/edit", strings.NewReader(`{"field":"id","value":"r9"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/v1/results/edit", strings.NewReader(`{"field":"remarks","value":"weather delay"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_FIELD", decodeError(t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/v1/results/edit/commit", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResults(t, w)
	require.Len(t, resp.Data.Records, 2)
	assert.Equal(t, "Arrived", resp.Data.Records[0].Text("event"))
	assert.Equal(t, "Loading completed", resp.Data.Records[1].Text("event"))
	assert.Equal(t, "r2", resp.Data.Records[1].ID())
	assert.Nil(t, resp.Data.Editing)
	assert.Equal(t, []string{"id", "event", "start_time"}, resp.Data.Records[1].Names())

	w = ts.do(t, http.MethodGet, "/api/v1/results/edit", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResults_BeginEditUnknownRecord(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	w := ts.do(t, http.MethodPost, "/api/v1/results/records/nope/edit", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResults_DeleteIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodDelete, "/api/v1/results/records/r1", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResults(t, w)
		require.Len(t, resp.Data.Records, 1)
		assert.Equal(t, "r2", resp.Data.Records[0].ID())
	}
}

func TestResults_ClearAllRequiresConfirmation(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	w := ts.do(t, http.MethodDelete, "/api/v1/results", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONFIRMATION_REQUIRED", decodeError(t, w).Code)

	w = ts.do(t, http.MethodGet, "/api/v1/results/current", nil, "")
	assert.Len(t, decodeResults(t, w).Data.Records, 2)

	w = ts.do(t, http.MethodDelete, "/api/v1/results?confirm=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeResults(t, w).Data.Records)
}

func TestResults_ExportCSV(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	w := ts.do(t, http.MethodGet, "/api/v1/results/export/csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="processed_data.csv"`, w.Header().Get("Content-Disposition"))

	body := w.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, export.BOM))
	rows, err := csv.NewReader(bytes.NewReader(body[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "event", "start_time"},
		{"r1", "Arrived", "08:00"},
		{"r2", "Loading, hold 1", "10:00"},
	}, rows)

	again := ts.do(t, http.MethodGet, "/api/v1/results/export/csv", nil, "")
	assert.Equal(t, body, again.Body.Bytes())
}

func TestResults_ExportJSON(t *testing.T) {
	ts := newTestServer(t)
	ts.loadResults(t)

	w := ts.do(t, http.MethodGet, "/api/v1/results/export/json", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Columns       []string          `json:"columns"`
		Count         int               `json:"count"`
		ProcessedData []json.RawMessage `json:"processed_data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, []string{"event", "start_time"}, doc.Columns)
	assert.Equal(t, 2, doc.Count)
	assert.Len(t, doc.ProcessedData, 2)
}

func TestResults_ExportEmptyAndUnsupported(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/results/export/csv", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_EXPORT", decodeError(t, w).Code)

	ts.loadResults(t)
	w = ts.do(t, http.MethodGet, "/api/v1/results/export/pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_EXPORT_TYPE", decodeError(t, w).Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessions":1`)
}

func TestHealth_ReadinessFailsOnInvalidConfig(t *testing.T) {
	cfg := &config.Config{
		Server:     config.ServerConfig{Environment: "production"},
		Extraction: config.ExtractionConfig{BaseURL: ""},
		Upload:     config.UploadConfig{MaxFileSizeMB: 1},
		Session:    config.SessionConfig{Secret: "s3cret"},
	}
	h := handler.NewHealthHandler(cfg, service.NewSessionService(nil, cfg.Session))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	h.Readiness(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")

	cfg.Extraction.BaseURL = "http://extractor.test"
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	h.Readiness(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

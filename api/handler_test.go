package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuscan/document-ocr-service/internal/classify"
	"github.com/docuscan/document-ocr-service/internal/models"
	"github.com/docuscan/document-ocr-service/internal/ocr"
	"github.com/docuscan/document-ocr-service/internal/storage"
)

type stubEngine struct {
	result ocr.OCRResult
	info   classify.DocumentInfo
	batch  []ocr.OCRResult

	extractedPaths []string
	batchPaths     []string
}

func (s *stubEngine) ExtractText(path string) ocr.OCRResult {
	s.extractedPaths = append(s.extractedPaths, path)
	return s.result
}

func (s *stubEngine) AnalyzeDocument(path string) classify.DocumentInfo {
	return s.info
}

func (s *stubEngine) ProcessBatch(paths []string) []ocr.OCRResult {
	s.batchPaths = paths
	return s.batch
}

type envelope struct {
	Success    bool                   `json:"success"`
	Data       map[string]interface{} `json:"data"`
	Error      string                 `json:"error"`
	StatusCode int                    `json:"status_code"`
	Timestamp  int64                  `json:"timestamp"`
}

func newTestHandler(t *testing.T, engine Engine) *Handler {
	t.Helper()
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)
	return NewHandler(engine, spool, models.Default())
}

func doRequest(t *testing.T, h *Handler, method, target, contentType string, body io.Reader) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr, env
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubEngine{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestExtractSuccess(t *testing.T) {
	engine := &stubEngine{result: ocr.OCRResult{
		Text:            "Invoice #42",
		Confidence:      91.5,
		Words:           []string{"Invoice", "#42"},
		WordConfidences: []float64{95, 88},
		BoundingBoxes:   []ocr.Box{{X: 1, Y: 2, Width: 3, Height: 4}, {X: 5, Y: 6, Width: 7, Height: 8}},
	}}
	h := newTestHandler(t, engine)

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/extract",
		"application/json", strings.NewReader(`{"file_path":"/imgs/a.png"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)
	assert.Equal(t, "Invoice #42", env.Data["text"])
	assert.Equal(t, 91.5, env.Data["confidence"])
	assert.Equal(t, float64(2), env.Data["word_count"])
	assert.Equal(t, []string{"/imgs/a.png"}, engine.extractedPaths)
	assert.NotZero(t, env.Timestamp)
}

func TestExtractBadJSON(t *testing.T) {
	h := newTestHandler(t, &stubEngine{})

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/extract",
		"application/json", strings.NewReader(`{nope`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
	assert.NotEmpty(t, env.Error)
}

func TestExtractMissingPath(t *testing.T) {
	h := newTestHandler(t, &stubEngine{})

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/extract",
		"application/json", strings.NewReader(`{}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
}

func TestExtractUploadSpoolsAndCleansUp(t *testing.T) {
	engine := &stubEngine{result: ocr.OCRResult{Text: "hello", Confidence: 80, Words: []string{"hello"}}}
	h := newTestHandler(t, engine)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "scan.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("pretend png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/text",
		mw.FormDataContentType(), &buf)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)
	assert.Equal(t, "hello", env.Data["text"])
	assert.Equal(t, float64(1), env.Data["word_count"])

	// The engine saw the spooled file, and it was removed afterwards.
	require.Len(t, engine.extractedPaths, 1)
	_, err = os.Stat(engine.extractedPaths[0])
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(h.spool.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractUploadNoFile(t *testing.T) {
	h := newTestHandler(t, &stubEngine{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/text",
		mw.FormDataContentType(), &buf)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
}

func TestAnalyzeSuccess(t *testing.T) {
	engine := &stubEngine{info: classify.DocumentInfo{
		DocumentType:      "invoice",
		DetectedFields:    []string{"date", "total"},
		ExtractedData:     map[string]string{"date": "2024-01-05", "total": "$450.00"},
		OverallConfidence: 77,
	}}
	h := newTestHandler(t, engine)

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/analyze",
		"application/json", strings.NewReader(`{"file_path":"/imgs/inv.png"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)
	assert.Equal(t, "invoice", env.Data["document_type"])
	assert.Equal(t, []interface{}{"date", "total"}, env.Data["detected_fields"])
	assert.Equal(t, 77.0, env.Data["overall_confidence"])

	amounts, ok := env.Data["amounts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "450.00", amounts["total"])
}

func TestBatchSuccess(t *testing.T) {
	engine := &stubEngine{batch: []ocr.OCRResult{
		{Text: "a", Confidence: 80, Words: []string{"a"}},
		{Confidence: 60},
	}}
	h := newTestHandler(t, engine)

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/batch",
		"application/json", strings.NewReader(`{"file_paths":["/a.png","/b.png"]}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)
	assert.Equal(t, []string{"/a.png", "/b.png"}, engine.batchPaths)
	assert.Equal(t, float64(2), env.Data["total_files"])
	assert.Equal(t, 70.0, env.Data["average_confidence"])

	items, ok := env.Data["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "a", first["text"])
}

func TestBatchEmptyPaths(t *testing.T) {
	h := newTestHandler(t, &stubEngine{})

	rr, env := doRequest(t, h, http.MethodPost, "/api/v1/ocr/batch",
		"application/json", strings.NewReader(`{"file_paths":[]}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
}

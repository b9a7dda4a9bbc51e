package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/docuscan/document-ocr-service/internal/classify"
	"github.com/docuscan/document-ocr-service/internal/models"
	"github.com/docuscan/document-ocr-service/internal/ocr"
	"github.com/docuscan/document-ocr-service/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

// Engine is the recognition capability the API layer exposes over HTTP.
// Implementations never return errors; failed items degrade to zero-valued
// results the handlers pass through as-is.
type Engine interface {
	ExtractText(imagePath string) ocr.OCRResult
	AnalyzeDocument(imagePath string) classify.DocumentInfo
	ProcessBatch(imagePaths []string) []ocr.OCRResult
}

// Handler handles HTTP requests for document recognition.
type Handler struct {
	engine Engine
	spool  *storage.Spool
	config *models.Config
}

// NewHandler creates a new API handler.
func NewHandler(engine Engine, spool *storage.Spool, config *models.Config) *Handler {
	return &Handler{
		engine: engine,
		spool:  spool,
		config: config,
	}
}

// SetupRoutes configures the HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/v1/ocr/extract", h.Extract).Methods("POST")
	router.HandleFunc("/api/v1/ocr/text", h.ExtractUpload).Methods("POST")
	router.HandleFunc("/api/v1/ocr/analyze", h.Analyze).Methods("POST")
	router.HandleFunc("/api/v1/ocr/batch", h.Batch).Methods("POST")

	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// Health reports service identity and liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "document-ocr-service",
		"version": Version,
	})
}

// Extract recognizes an image already resolvable by path on this host.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.FilePath == "" {
		h.sendError(w, http.StatusBadRequest, "Missing file_path field")
		return
	}

	result := h.engine.ExtractText(req.FilePath)

	h.sendSuccess(w, map[string]interface{}{
		"text":             result.Text,
		"confidence":       result.Confidence,
		"processing_time":  time.Since(start).Milliseconds(),
		"word_count":       len(result.Words),
		"words":            result.Words,
		"word_confidences": result.WordConfidences,
	})
}

// ExtractUpload recognizes a multipart-uploaded image. The upload is
// spooled to disk under a unique name and removed once processed.
func (h *Handler) ExtractUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	// Accept both "file" and "image" field names.
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No file uploaded (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	path, err := h.spool.Save(file, header.Header.Get("Content-Type"))
	if err != nil {
		log.Error().Err(err).Msg("failed to spool upload")
		h.sendError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	defer h.spool.Remove(path)

	result := h.engine.ExtractText(path)

	h.sendSuccess(w, map[string]interface{}{
		"text":            result.Text,
		"confidence":      result.Confidence,
		"processing_time": time.Since(start).Milliseconds(),
		"word_count":      len(result.Words),
	})
}

// Analyze recognizes an image and classifies the result into a document
// type with extracted fields.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.FilePath == "" {
		h.sendError(w, http.StatusBadRequest, "Missing file_path field")
		return
	}

	info := h.engine.AnalyzeDocument(req.FilePath)

	data := map[string]interface{}{
		"document_type":      info.DocumentType,
		"detected_fields":    info.DetectedFields,
		"extracted_data":     info.ExtractedData,
		"overall_confidence": info.OverallConfidence,
		"processing_time":    time.Since(start).Milliseconds(),
	}
	if amounts := classify.Amounts(info); len(amounts) > 0 {
		data["amounts"] = amounts
	}

	h.sendSuccess(w, data)
}

// Batch recognizes an ordered list of image paths. The response carries one
// entry per input, in input order, with failed items as zero results.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if len(req.FilePaths) == 0 {
		h.sendError(w, http.StatusBadRequest, "Missing or empty file_paths array")
		return
	}

	results := h.engine.ProcessBatch(req.FilePaths)

	items := make([]map[string]interface{}, 0, len(results))
	for _, result := range results {
		items = append(items, map[string]interface{}{
			"text":       result.Text,
			"confidence": result.Confidence,
			"word_count": len(result.Words),
		})
	}

	h.sendSuccess(w, map[string]interface{}{
		"results":            items,
		"total_files":        len(results),
		"average_confidence": ocr.AverageConfidence(results),
		"processing_time":    time.Since(start).Milliseconds(),
	})
}

// sendSuccess writes the success envelope.
func (h *Handler) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().Unix(),
	})
}

// sendError writes the error envelope.
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     false,
		"error":       message,
		"status_code": statusCode,
		"timestamp":   time.Now().Unix(),
	})
}

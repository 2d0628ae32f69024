package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/renderer"
	"github.com/opora-ai/docforge/pkg/services"
)

// GenerateDocumentRequest for POST /api/documents/generate
type GenerateDocumentRequest struct {
	UserID   string `json:"user_id"`
	Template string `json:"template"` // template id or display name
	Message  string `json:"message"`  // free text carrying the field data
}

// PreviewDocumentRequest for POST /api/documents/preview
type PreviewDocumentRequest struct {
	Template string            `json:"template"`
	Values   map[string]string `json:"values"`
}

// DocumentsHandler handles document generation and artifact download.
type DocumentsHandler struct {
	assistant services.AssistantService
	renderer  renderer.Service
	logger    *zap.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(assistant services.AssistantService, rend renderer.Service, logger *zap.Logger) *DocumentsHandler {
	return &DocumentsHandler{assistant: assistant, renderer: rend, logger: logger}
}

// RegisterRoutes registers the document handler's routes on the given mux.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents/generate", h.Generate)
	mux.HandleFunc("POST /api/documents/preview", h.Preview)
	mux.HandleFunc("GET /api/documents/download", h.Download)
}

// Generate handles POST /api/documents/generate
// Renders the named template from whatever data the message carries,
// regardless of the completeness threshold.
func (h *DocumentsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Template == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_template", "Template reference is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	result, err := h.assistant.GenerateDirect(r.Context(), req.UserID, req.Template, req.Message)
	if err != nil {
		ServiceError(w, h.logger, "generate_document", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Preview handles POST /api/documents/preview
func (h *DocumentsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Template == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_template", "Template reference is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.assistant.Preview(r.Context(), req.Template, req.Values)
	if err != nil {
		ServiceError(w, h.logger, "preview_document", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Download handles GET /api/documents/download?file=<artifact>
// The renderer validates the filename against its artifact directory, so
// traversal attempts resolve to not found.
func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("file")
	if filename == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_file", "Query parameter file is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	path, err := h.renderer.ArtifactPath(filename)
	if err != nil {
		ServiceError(w, h.logger, "download_document", err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

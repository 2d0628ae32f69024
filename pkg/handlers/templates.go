package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/models"
)

// maxTemplateUploadBytes bounds template upload size (10 MiB).
const maxTemplateUploadBytes = 10 << 20

// TemplateListResponse for GET /api/templates
type TemplateListResponse struct {
	Templates []*models.TemplateDescriptor `json:"templates"`
	Total     int                          `json:"total"`
}

// TemplatesHandler handles template catalog HTTP requests.
type TemplatesHandler struct {
	catalog catalog.Service
	logger  *zap.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(cat catalog.Service, logger *zap.Logger) *TemplatesHandler {
	return &TemplatesHandler{catalog: cat, logger: logger}
}

// RegisterRoutes registers the template handler's routes on the given mux.
func (h *TemplatesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/templates", h.List)
	mux.HandleFunc("POST /api/templates/upload", h.Upload)
	mux.HandleFunc("GET /api/templates/{tid}", h.Get)
	mux.HandleFunc("GET /api/templates/{tid}/fields", h.Fields)
	mux.HandleFunc("DELETE /api/templates/{tid}", h.Delete)
}

// List handles GET /api/templates
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.catalog.List(r.Context())
	if err != nil {
		ServiceError(w, h.logger, "list_templates", err)
		return
	}

	response := TemplateListResponse{Templates: templates, Total: len(templates)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Upload handles POST /api/templates/upload
// Expects a multipart form with a "file" part plus "name" and optional
// "description" fields.
func (h *TemplatesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateUploadBytes)
	if err := r.ParseMultipartForm(maxTemplateUploadBytes); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_file", "File part is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	tpl, err := h.catalog.Upload(r.Context(), name, r.FormValue("description"), header.Filename, file)
	if err != nil {
		ServiceError(w, h.logger, "upload_template", err)
		return
	}

	h.logger.Info("Template uploaded",
		zap.String("template_id", tpl.ID.String()),
		zap.String("name", tpl.Name))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: tpl}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/templates/{tid}
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTemplateID(w, r)
	if !ok {
		return
	}

	tpl, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		ServiceError(w, h.logger, "get_template", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tpl}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Fields handles GET /api/templates/{tid}/fields
// Returns the canonical keys and labels a filled document needs.
func (h *TemplatesHandler) Fields(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTemplateID(w, r)
	if !ok {
		return
	}

	tpl, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		ServiceError(w, h.logger, "get_template", err)
		return
	}
	required, err := h.catalog.RequiredFields(tpl)
	if err != nil {
		ServiceError(w, h.logger, "analyze_template", err)
		return
	}

	fields := make([]map[string]string, 0, required.Len())
	for _, key := range required.Keys() {
		fields = append(fields, map[string]string{
			"field": key,
			"label": required.Label(key),
		})
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: fields}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/templates/{tid}
func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTemplateID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		ServiceError(w, h.logger, "delete_template", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Template deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *TemplatesHandler) parseTemplateID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("tid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_template_id", "Template id must be a UUID"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

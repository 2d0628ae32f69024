package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/services"
)

// ChatRequest for POST /api/chat
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatHandler handles conversational assistant requests.
type ChatHandler struct {
	assistant services.AssistantService
	logger    *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(assistant services.AssistantService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{assistant: assistant, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Process)
}

// Process handles POST /api/chat
func (h *ChatHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_message", "Message must not be empty"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	result, err := h.assistant.ProcessMessage(r.Context(), req.UserID, req.Message)
	if err != nil {
		ServiceError(w, h.logger, "process_message", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/autofill"
	"github.com/opora-ai/docforge/pkg/models"
)

// StartSessionRequest for POST /api/autofill/start
type StartSessionRequest struct {
	UserID string `json:"user_id"`
}

// SelectDocumentRequest for POST /api/autofill/{sid}/select
type SelectDocumentRequest struct {
	Document string `json:"document"` // template id or display name
}

// AnswerRequest for POST /api/autofill/{sid}/answer
type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// FinalizeRequest for POST /api/autofill/{sid}/finalize
type FinalizeRequest struct {
	Force bool `json:"force"` // finalize with partial data from collecting_data
}

// SessionView is the wire representation of an autofill session.
type SessionView struct {
	SessionID string                     `json:"session_id"`
	UserID    string                     `json:"user_id"`
	State     models.SessionState        `json:"state"`
	Template  *models.TemplateDescriptor `json:"template,omitempty"`
	Values    map[string]string          `json:"values"`
	Result    *models.GeneratedDocument  `json:"result,omitempty"`
	CreatedAt string                     `json:"created_at"`
	UpdatedAt string                     `json:"updated_at"`
}

// SessionResponse pairs a session view with whatever the last transition
// produced: selectable templates, a completeness report or a question batch.
type SessionResponse struct {
	Session   *SessionView                 `json:"session"`
	Templates []*models.TemplateDescriptor `json:"templates,omitempty"`
	Report    *models.CompletenessReport   `json:"report,omitempty"`
	Questions []models.Question            `json:"questions,omitempty"`
}

func sessionView(s *models.AutofillSession) *SessionView {
	return &SessionView{
		SessionID: s.ID.String(),
		UserID:    s.UserID,
		State:     s.State,
		Template:  s.Template,
		Values:    s.Values.Plain(),
		Result:    s.Result,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

// AutofillHandler handles the interactive document-filling session API.
type AutofillHandler struct {
	manager *autofill.Manager
	logger  *zap.Logger
}

// NewAutofillHandler creates a new autofill handler.
func NewAutofillHandler(manager *autofill.Manager, logger *zap.Logger) *AutofillHandler {
	return &AutofillHandler{manager: manager, logger: logger}
}

// RegisterRoutes registers the autofill handler's routes on the given mux.
func (h *AutofillHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/autofill/start", h.Start)
	mux.HandleFunc("GET /api/autofill/{sid}", h.Get)
	mux.HandleFunc("POST /api/autofill/{sid}/select", h.Select)
	mux.HandleFunc("POST /api/autofill/{sid}/questions", h.Questions)
	mux.HandleFunc("POST /api/autofill/{sid}/answer", h.Answer)
	mux.HandleFunc("POST /api/autofill/{sid}/finalize", h.Finalize)
	mux.HandleFunc("POST /api/autofill/{sid}/cancel", h.Cancel)
}

// Start handles POST /api/autofill/start
func (h *AutofillHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.UserID == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_user_id", "user_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, templates, err := h.manager.Start(r.Context(), req.UserID)
	if err != nil {
		ServiceError(w, h.logger, "start_session", err)
		return
	}

	response := SessionResponse{Session: sessionView(session), Templates: templates}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/autofill/{sid}
func (h *AutofillHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	session, err := h.manager.Session(sid)
	if err != nil {
		ServiceError(w, h.logger, "get_session", err)
		return
	}

	response := SessionResponse{Session: sessionView(session)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Select handles POST /api/autofill/{sid}/select
func (h *AutofillHandler) Select(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	var req SelectDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Document == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_document", "document is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, report, err := h.manager.SelectDocument(r.Context(), sid, req.Document)
	if err != nil {
		ServiceError(w, h.logger, "select_document", err)
		return
	}

	response := SessionResponse{Session: sessionView(session), Report: report}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Questions handles POST /api/autofill/{sid}/questions
func (h *AutofillHandler) Questions(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	session, questions, err := h.manager.AskQuestions(r.Context(), sid)
	if err != nil {
		ServiceError(w, h.logger, "ask_questions", err)
		return
	}

	response := SessionResponse{Session: sessionView(session), Questions: questions}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Answer handles POST /api/autofill/{sid}/answer
func (h *AutofillHandler) Answer(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON in request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.QuestionID == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_question_id", "question_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	session, questions, err := h.manager.AnswerQuestion(r.Context(), sid, req.QuestionID, req.Value)
	if err != nil {
		ServiceError(w, h.logger, "answer_question", err)
		return
	}

	response := SessionResponse{Session: sessionView(session), Questions: questions}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Finalize handles POST /api/autofill/{sid}/finalize
func (h *AutofillHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	// Body is optional; absence means force=false.
	var req FinalizeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := h.manager.Finalize(r.Context(), sid, req.Force)
	if err != nil {
		ServiceError(w, h.logger, "finalize_session", err)
		return
	}

	response := SessionResponse{Session: sessionView(session)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Cancel handles POST /api/autofill/{sid}/cancel
func (h *AutofillHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.parseSessionID(w, r)
	if !ok {
		return
	}

	session, err := h.manager.Cancel(r.Context(), sid)
	if err != nil {
		ServiceError(w, h.logger, "cancel_session", err)
		return
	}

	response := SessionResponse{Session: sessionView(session)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *AutofillHandler) parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sid, err := uuid.Parse(r.PathValue("sid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_session_id", "Session id must be a UUID"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return sid, true
}

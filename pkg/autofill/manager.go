// Package autofill drives the interactive document-filling state machine:
// template selection, field analysis, bounded question/answer rounds, and
// finalization into a rendered document. Sessions live in a Store keyed by
// id with one active session per user; an idle sweeper reclaims abandoned
// ones.
package autofill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/models"
	"github.com/opora-ai/docforge/pkg/renderer"
	"github.com/opora-ai/docforge/pkg/scoring"
)

// questionID derives the stable question id for a field. Stable ids are what
// make answer() idempotent: re-answering the same question overwrites the
// value instead of duplicating bookkeeping.
func questionID(field string) string {
	return "q_" + field
}

func fieldOfQuestion(id string) string {
	return strings.TrimPrefix(id, "q_")
}

// Manager owns session lifecycle and transitions. Every mutation runs inside
// store.Update, so duplicate submits for the same session serialize; catalog
// and renderer calls stay outside the store's lock and transitions revalidate
// state once inside it.
type Manager struct {
	catalog   catalog.Service
	scorer    *scoring.Scorer
	renderer  renderer.Service
	store     Store
	batchSize int
	logger    *zap.Logger
}

// NewManager wires the session manager.
func NewManager(cat catalog.Service, scorer *scoring.Scorer, rend renderer.Service, store Store, batchSize int, logger *zap.Logger) *Manager {
	return &Manager{
		catalog:   cat,
		scorer:    scorer,
		renderer:  rend,
		store:     store,
		batchSize: batchSize,
		logger:    logger.Named("autofill"),
	}
}

// Start creates a new session in document_selection and returns it together
// with the selectable templates. Any previous active session of the user is
// superseded, not destroyed.
func (m *Manager) Start(ctx context.Context, userID string) (*models.AutofillSession, []*models.TemplateDescriptor, error) {
	templates, err := m.catalog.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	session := &models.AutofillSession{
		ID:        uuid.New(),
		UserID:    userID,
		State:     models.StateDocumentSelection,
		Values:    make(models.FieldValues),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.store.Put(session)

	m.logger.Info("session started",
		zap.String("session_id", session.ID.String()),
		zap.String("user_id", userID),
		zap.Int("templates", len(templates)))
	return session, templates, nil
}

// Session returns a snapshot of a session by id.
func (m *Manager) Session(id uuid.UUID) (*models.AutofillSession, error) {
	s, ok := m.store.Get(id)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

// ActiveSession returns a snapshot of the user's current non-terminal session.
func (m *Manager) ActiveSession(userID string) (*models.AutofillSession, error) {
	s, ok := m.store.ActiveForUser(userID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

// SelectDocument resolves the chosen template, analyzes its requirements
// against the session's current values and moves to analysis_complete. An
// unresolved name leaves the session untouched.
func (m *Manager) SelectDocument(ctx context.Context, sessionID uuid.UUID, nameOrID string) (*models.AutofillSession, *models.CompletenessReport, error) {
	current, err := m.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if current.State != models.StateDocumentSelection {
		return nil, nil, fmt.Errorf("%w: select_document in %s", apperrors.ErrInvalidState, current.State)
	}

	tpl, err := m.catalog.Resolve(ctx, nameOrID)
	if err != nil {
		return nil, nil, err
	}
	required, err := m.catalog.RequiredFields(tpl)
	if err != nil {
		return nil, nil, err
	}

	var report *models.CompletenessReport
	session, err := m.store.Update(sessionID, func(s *models.AutofillSession) error {
		if s.State != models.StateDocumentSelection {
			return fmt.Errorf("%w: select_document in %s", apperrors.ErrInvalidState, s.State)
		}
		report = m.scorer.Analyze(s.Values, required, tpl.Name)
		s.Template = tpl
		s.State = models.StateAnalysisComplete
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.logger.Info("document selected",
		zap.String("session_id", session.ID.String()),
		zap.String("template_id", tpl.ID.String()),
		zap.Int("completeness", report.Completeness))
	return session, report, nil
}

// AskQuestions computes missing fields and emits the next question batch,
// or moves straight to ready_to_create when nothing is missing.
func (m *Manager) AskQuestions(ctx context.Context, sessionID uuid.UUID) (*models.AutofillSession, []models.Question, error) {
	current, err := m.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if current.State != models.StateAnalysisComplete && current.State != models.StateCollectingData {
		return nil, nil, fmt.Errorf("%w: ask_questions in %s", apperrors.ErrInvalidState, current.State)
	}

	required, err := m.catalog.RequiredFields(current.Template)
	if err != nil {
		return nil, nil, err
	}

	var questions []models.Question
	session, err := m.store.Update(sessionID, func(s *models.AutofillSession) error {
		if s.State != models.StateAnalysisComplete && s.State != models.StateCollectingData {
			return fmt.Errorf("%w: ask_questions in %s", apperrors.ErrInvalidState, s.State)
		}
		questions = m.nextQuestions(s, required)
		if len(questions) == 0 {
			s.State = models.StateReadyToCreate
			return nil
		}
		s.State = models.StateCollectingData
		for _, q := range questions {
			if !s.Asked(q.ID) {
				s.QuestionsAsked = append(s.QuestionsAsked, q.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return session, questions, nil
}

// AnswerQuestion stores the user's answer for one previously asked question.
// Once every asked question is answered the session either advances to
// ready_to_create or emits the next batch.
func (m *Manager) AnswerQuestion(ctx context.Context, sessionID uuid.UUID, qID, value string) (*models.AutofillSession, []models.Question, error) {
	current, err := m.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if current.State != models.StateCollectingData {
		return nil, nil, fmt.Errorf("%w: answer in %s", apperrors.ErrInvalidState, current.State)
	}
	if !current.Asked(qID) {
		return nil, nil, apperrors.ErrUnknownQuestion
	}

	required, err := m.catalog.RequiredFields(current.Template)
	if err != nil {
		return nil, nil, err
	}

	var questions []models.Question
	session, err := m.store.Update(sessionID, func(s *models.AutofillSession) error {
		if s.State != models.StateCollectingData {
			return fmt.Errorf("%w: answer in %s", apperrors.ErrInvalidState, s.State)
		}
		if !s.Asked(qID) {
			return apperrors.ErrUnknownQuestion
		}

		field := fieldOfQuestion(qID)
		s.Values[field] = models.FieldValue{
			Field:      field,
			Value:      strings.TrimSpace(value),
			Confidence: 100,
			Provenance: models.ProvenanceUser,
		}
		if !s.Answered(qID) {
			s.QuestionsAnswered = append(s.QuestionsAnswered, qID)
		}

		if len(s.QuestionsAnswered) < len(s.QuestionsAsked) {
			return nil
		}

		questions = m.nextQuestions(s, required)
		if len(questions) == 0 {
			s.State = models.StateReadyToCreate
			return nil
		}
		for _, q := range questions {
			if !s.Asked(q.ID) {
				s.QuestionsAsked = append(s.QuestionsAsked, q.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return session, questions, nil
}

// Finalize renders the document. force permits finalizing from
// collecting_data with partial data; a renderer failure leaves the session
// in its prior state with the error surfaced.
func (m *Manager) Finalize(ctx context.Context, sessionID uuid.UUID, force bool) (*models.AutofillSession, error) {
	current, err := m.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := finalizableFrom(current.State, force); err != nil {
		return nil, err
	}

	required, err := m.catalog.RequiredFields(current.Template)
	if err != nil {
		return nil, err
	}
	report := m.scorer.Analyze(current.Values, required, current.Template.Name)

	doc, err := m.renderer.Render(current.Template, current.Values, current.UserID)
	if err != nil {
		return nil, err
	}
	doc.Completeness = report.Completeness
	doc.Confidence = report.Confidence
	doc.Quality = report.Quality

	session, err := m.store.Update(sessionID, func(s *models.AutofillSession) error {
		if err := finalizableFrom(s.State, force); err != nil {
			return err
		}
		s.Result = doc
		s.State = models.StateCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session finalized",
		zap.String("session_id", session.ID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.Int("completeness", report.Completeness))
	return session, nil
}

func finalizableFrom(state models.SessionState, force bool) error {
	switch state {
	case models.StateReadyToCreate:
		return nil
	case models.StateCollectingData:
		if !force {
			return fmt.Errorf("%w: finalize in %s without force", apperrors.ErrInvalidState, state)
		}
		return nil
	default:
		return fmt.Errorf("%w: finalize in %s", apperrors.ErrInvalidState, state)
	}
}

// Cancel moves a non-terminal session to cancelled.
func (m *Manager) Cancel(ctx context.Context, sessionID uuid.UUID) (*models.AutofillSession, error) {
	session, err := m.store.Update(sessionID, func(s *models.AutofillSession) error {
		if s.State.Terminal() {
			return fmt.Errorf("%w: cancel in %s", apperrors.ErrInvalidState, s.State)
		}
		s.State = models.StateCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session cancelled", zap.String("session_id", session.ID.String()))
	return session, nil
}

// Sweep cancels and evicts sessions idle longer than the window.
func (m *Manager) Sweep(idle time.Duration) int {
	swept := m.store.SweepExpired(idle)
	if len(swept) > 0 {
		m.logger.Info("idle sessions reclaimed", zap.Int("count", len(swept)))
	}
	return len(swept)
}

// StartSweeper runs the idle sweep until the context is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(idle)
			}
		}
	}()
}

// nextQuestions builds the next bounded batch of questions for the fields
// still missing, skipping questions already asked and not yet re-eligible.
func (m *Manager) nextQuestions(session *models.AutofillSession, required *catalog.FieldSet) []models.Question {
	var questions []models.Question
	for _, key := range required.Keys() {
		if v, ok := session.Values[key]; ok && v.Value != "" {
			continue
		}
		questions = append(questions, models.Question{
			ID:    questionID(key),
			Field: key,
			Label: required.Label(key),
			Text:  catalog.QuestionFor(key, session.Template.Name),
			Kind:  catalog.KindFor(key),
		})
		if len(questions) == m.batchSize {
			break
		}
	}
	return questions
}

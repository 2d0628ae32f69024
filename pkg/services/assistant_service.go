// Package services orchestrates the conversational pipeline: intent
// classification, template matching, slot extraction, scoring and the
// render-or-ask decision, plus the advisory record capture and email
// delivery that follow a successful generation.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/extractor"
	"github.com/opora-ai/docforge/pkg/intent"
	"github.com/opora-ai/docforge/pkg/llm"
	"github.com/opora-ai/docforge/pkg/mailer"
	"github.com/opora-ai/docforge/pkg/models"
	"github.com/opora-ai/docforge/pkg/renderer"
	"github.com/opora-ai/docforge/pkg/repositories"
	"github.com/opora-ai/docforge/pkg/scoring"
)

// Action tells the caller what the assistant did with a message.
type Action string

const (
	ActionChat              Action = "chat"
	ActionAnalysis          Action = "analysis"
	ActionComplaint         Action = "complaint"
	ActionDocumentGenerated Action = "document_generated"
	ActionQuestions         Action = "questions"
	ActionDocumentOffer     Action = "document_offer"
)

// ChatResult is the outcome of processing one message.
type ChatResult struct {
	Response string                     `json:"response"`
	Action   Action                     `json:"action"`
	Document *models.GeneratedDocument  `json:"document,omitempty"`
	Report   *models.CompletenessReport `json:"report,omitempty"`
}

// PreviewResult is a textual document preview with its completeness report.
type PreviewResult struct {
	Preview string                     `json:"preview"`
	Report  *models.CompletenessReport `json:"report"`
}

// AssistantService is the top-level conversational entry point.
type AssistantService interface {
	// ProcessMessage runs the direct path: classify, then chat, analyze,
	// capture a complaint, or attempt document generation.
	ProcessMessage(ctx context.Context, userID, message string) (*ChatResult, error)

	// GenerateDirect renders a document from an explicit template reference
	// and a data-bearing message, regardless of the completeness threshold.
	GenerateDirect(ctx context.Context, userID, templateRef, message string) (*ChatResult, error)

	// Preview produces a model-written textual preview of the filled
	// document without writing any artifact.
	Preview(ctx context.Context, templateRef string, values map[string]string) (*PreviewResult, error)
}

const chatSystemPrompt = `Ты — ассистент организации поддержки малого и среднего бизнеса.
Отвечай кратко и по делу на русском языке. Помогаешь с вопросами о мерах поддержки,
членстве в организации и оформлении документов.`

const analysisSystemPrompt = `Ты — аналитик рынка малого и среднего бизнеса.
Дай структурированный ответ с ключевыми выводами на русском языке.`

const previewSystemPrompt = `Ты создаешь предпросмотры документов.`

// Records groups the advisory persistence collaborators. Any of them may be
// nil, which turns the corresponding capture into a no-op.
type Records struct {
	Applications repositories.ApplicationRepository
	Complaints   repositories.ComplaintRepository
	Documents    repositories.DocumentRepository
}

type assistantService struct {
	client    llm.Client
	catalog   catalog.Service
	extractor extractor.Service
	scorer    *scoring.Scorer
	renderer  renderer.Service
	records   Records
	mail      mailer.Mailer
	logger    *zap.Logger
}

// NewAssistantService wires the conversational pipeline.
func NewAssistantService(
	client llm.Client,
	cat catalog.Service,
	ext extractor.Service,
	scorer *scoring.Scorer,
	rend renderer.Service,
	records Records,
	mail mailer.Mailer,
	logger *zap.Logger,
) AssistantService {
	return &assistantService{
		client:    client,
		catalog:   cat,
		extractor: ext,
		scorer:    scorer,
		renderer:  rend,
		records:   records,
		mail:      mail,
		logger:    logger.Named("assistant"),
	}
}

func (s *assistantService) ProcessMessage(ctx context.Context, userID, message string) (*ChatResult, error) {
	in := intent.Detect(message)
	s.logger.Debug("message classified",
		zap.String("user_id", userID),
		zap.String("kind", string(in.Kind)),
		zap.String("rule", in.Rule))

	switch in.Kind {
	case intent.KindAnalysis:
		return s.analyze(ctx, message)
	case intent.KindComplaint:
		return s.captureComplaint(ctx, userID, message)
	case intent.KindDocument:
		return s.generateFromMessage(ctx, userID, message, in)
	default:
		return s.chat(ctx, message)
	}
}

func (s *assistantService) chat(ctx context.Context, message string) (*ChatResult, error) {
	response, err := s.client.Complete(ctx, chatSystemPrompt, message)
	if err != nil {
		s.logger.Warn("chat completion failed", zap.Error(err))
		return &ChatResult{
			Response: "Извините, сервис временно недоступен. Попробуйте позже.",
			Action:   ActionChat,
		}, nil
	}
	return &ChatResult{Response: response, Action: ActionChat}, nil
}

func (s *assistantService) analyze(ctx context.Context, message string) (*ChatResult, error) {
	response, err := s.client.Complete(ctx, analysisSystemPrompt, message)
	if err != nil {
		s.logger.Warn("analysis completion failed", zap.Error(err))
		return &ChatResult{
			Response: "Извините, аналитика временно недоступна. Попробуйте позже.",
			Action:   ActionAnalysis,
		}, nil
	}
	return &ChatResult{Response: response, Action: ActionAnalysis}, nil
}

// captureComplaint classifies and stores a complaint record. Persistence is
// advisory: a store failure is logged, the user still gets a confirmation.
func (s *assistantService) captureComplaint(ctx context.Context, userID, message string) (*ChatResult, error) {
	contact := catalog.NewFieldSet()
	contact.Add("full_name", catalog.LabelFor("full_name"))
	contact.Add("email", catalog.LabelFor("email"))
	contact.Add("phone", catalog.LabelFor("phone"))

	values, err := s.extractor.Extract(ctx, message, contact)
	if err != nil {
		return nil, err
	}
	plain := values.Plain()

	complaint := &models.Complaint{
		UserID:   userID,
		FullName: plain["full_name"],
		Email:    plain["email"],
		Phone:    plain["phone"],
		Text:     message,
		Category: complaintCategory(message),
		Priority: complaintPriority(message),
	}
	if s.records.Complaints != nil {
		if err := s.records.Complaints.Create(ctx, complaint); err != nil {
			s.logger.Error("failed to save complaint record", zap.Error(err))
		}
	}

	s.logger.Info("complaint captured",
		zap.String("user_id", userID),
		zap.String("category", complaint.Category),
		zap.String("priority", complaint.Priority))

	return &ChatResult{
		Response: fmt.Sprintf(
			"Ваша жалоба принята и зарегистрирована.\nКатегория: %s\nПриоритет: %s\nМы передадим её на рассмотрение.",
			complaint.Category, complaint.Priority),
		Action: ActionComplaint,
	}, nil
}

// generateFromMessage is the direct generation path: match a template, pull
// what data the message carries and either render immediately or come back
// with the missing-field questions.
func (s *assistantService) generateFromMessage(ctx context.Context, userID, message string, in intent.Intent) (*ChatResult, error) {
	templates, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	tpl := matchTemplate(templates, message, in.Category)
	if tpl == nil {
		return &ChatResult{
			Response: offerTemplates(templates),
			Action:   ActionDocumentOffer,
		}, nil
	}

	required, err := s.catalog.RequiredFields(tpl)
	if err != nil {
		return nil, err
	}
	values, err := s.extractor.Extract(ctx, message, required)
	if err != nil {
		return nil, err
	}
	report := s.scorer.Analyze(values, required, tpl.Name)

	if !report.GenerationEligible {
		return &ChatResult{
			Response: missingFieldsPrompt(tpl.Name, report),
			Action:   ActionQuestions,
			Report:   report,
		}, nil
	}

	return s.render(ctx, userID, tpl, values, report)
}

func (s *assistantService) GenerateDirect(ctx context.Context, userID, templateRef, message string) (*ChatResult, error) {
	tpl, err := s.catalog.Resolve(ctx, templateRef)
	if err != nil {
		return nil, err
	}
	required, err := s.catalog.RequiredFields(tpl)
	if err != nil {
		return nil, err
	}
	values, err := s.extractor.Extract(ctx, message, required)
	if err != nil {
		return nil, err
	}
	report := s.scorer.Analyze(values, required, tpl.Name)

	// Explicit generation renders with whatever data is present.
	return s.render(ctx, userID, tpl, values, report)
}

// render produces the artifact, stamps scores, captures the advisory
// records and delivers the document by email when an address is known.
func (s *assistantService) render(ctx context.Context, userID string, tpl *models.TemplateDescriptor, values models.FieldValues, report *models.CompletenessReport) (*ChatResult, error) {
	doc, err := s.renderer.Render(tpl, values, userID)
	if err != nil {
		return nil, err
	}
	doc.Completeness = report.Completeness
	doc.Confidence = report.Confidence
	doc.Quality = report.Quality

	plain := values.Plain()
	s.persistGeneration(ctx, userID, tpl, doc, plain)

	response := fmt.Sprintf(
		"Документ «%s» готов.\nЗаполнено полей: %d%%.\nСкачать: %s",
		tpl.Name, report.Completeness, doc.DownloadURL)
	if note := s.deliverByEmail(ctx, plain["email"], doc); note != "" {
		response += "\n" + note
	}

	return &ChatResult{
		Response: response,
		Action:   ActionDocumentGenerated,
		Document: doc,
		Report:   report,
	}, nil
}

// persistGeneration saves the document and application records. Failures
// never abort the pipeline; the artifact already exists on disk.
func (s *assistantService) persistGeneration(ctx context.Context, userID string, tpl *models.TemplateDescriptor, doc *models.GeneratedDocument, plain map[string]string) {
	if s.records.Documents != nil {
		if err := s.records.Documents.Create(ctx, doc); err != nil {
			s.logger.Error("failed to save generated document record", zap.Error(err))
		}
	}
	if s.records.Applications != nil {
		app := &models.Application{
			UserID:       userID,
			FullName:     plain["full_name"],
			Email:        plain["email"],
			Phone:        plain["phone"],
			Organization: plain["organization"],
			TemplateName: tpl.Name,
			DocumentPath: doc.Path,
			Completeness: doc.Completeness,
			Confidence:   doc.Confidence,
			Quality:      doc.Quality,
		}
		if err := s.records.Applications.Create(ctx, app); err != nil {
			s.logger.Error("failed to save application record", zap.Error(err))
		}
	}
}

// deliverByEmail mails the document when an address was extracted. The
// returned note annotates the chat response; delivery failure is not an
// error for the generation itself.
func (s *assistantService) deliverByEmail(ctx context.Context, email string, doc *models.GeneratedDocument) string {
	if email == "" || s.mail == nil {
		return ""
	}
	body := fmt.Sprintf("Ваш документ «%s» готов.\nСсылка для скачивания: %s", doc.TemplateName, doc.DownloadURL)
	if err := s.mail.Send(ctx, email, "Ваш документ готов", body, doc.Path); err != nil {
		s.logger.Warn("email delivery failed", zap.String("to", email), zap.Error(err))
		return fmt.Sprintf("Не удалось отправить документ на %s.", email)
	}
	return fmt.Sprintf("Копия отправлена на %s.", email)
}

func (s *assistantService) Preview(ctx context.Context, templateRef string, values map[string]string) (*PreviewResult, error) {
	tpl, err := s.catalog.Resolve(ctx, templateRef)
	if err != nil {
		return nil, err
	}
	required, err := s.catalog.RequiredFields(tpl)
	if err != nil {
		return nil, err
	}

	fieldValues := make(models.FieldValues, len(values))
	for k, v := range values {
		fieldValues[k] = models.FieldValue{Field: k, Value: v, Confidence: 100, Provenance: models.ProvenanceUser}
	}
	report := s.scorer.Analyze(fieldValues, required, tpl.Name)

	var lines []string
	for _, key := range required.Keys() {
		lines = append(lines, fmt.Sprintf("%s: %s", required.Label(key), values[key]))
	}
	prompt := fmt.Sprintf(
		"Создай текстовое описание предпросмотра документа «%s» с данными:\n\n%s\n\nОпиши структуру документа и как будут заполнены поля. Выдели поля, которые остались пустыми.",
		tpl.Name, strings.Join(lines, "\n"))

	preview, err := s.client.Complete(ctx, previewSystemPrompt, prompt)
	if err != nil {
		s.logger.Warn("preview generation failed", zap.Error(err))
		preview = "Не удалось создать предпросмотр документа."
	}
	return &PreviewResult{Preview: preview, Report: report}, nil
}

// matchTemplate scores templates against the message and detected category.
// Category agreement outweighs name-stem hits; zero total means no match.
func matchTemplate(templates []*models.TemplateDescriptor, message string, category models.DocumentCategory) *models.TemplateDescriptor {
	lower := strings.ToLower(message)

	var best *models.TemplateDescriptor
	bestScore := 0
	for _, tpl := range templates {
		score := 0
		if category != models.CategoryOther && catalog.DetermineCategory(tpl.Name) == category {
			score += 2
		}
		for _, word := range strings.Fields(strings.ToLower(tpl.Name)) {
			if stem := wordStem(word); stem != "" && strings.Contains(lower, stem) {
				score++
			}
		}
		if score > bestScore {
			best = tpl
			bestScore = score
		}
	}
	return best
}

// wordStem drops the inflected ending of a name word so "анкета" still hits
// "анкету" in the message. Short words match only verbatim.
func wordStem(word string) string {
	runes := []rune(word)
	if len(runes) < 4 {
		if len(runes) < 3 {
			return ""
		}
		return word
	}
	return string(runes[:len(runes)-1])
}

func offerTemplates(templates []*models.TemplateDescriptor) string {
	if len(templates) == 0 {
		return "Пока нет доступных шаблонов документов. Загрузите шаблон и попробуйте снова."
	}
	var sb strings.Builder
	sb.WriteString("Уточните, какой документ создать. Доступные шаблоны:\n")
	for _, tpl := range templates {
		fmt.Fprintf(&sb, "— %s\n", tpl.Name)
	}
	return sb.String()
}

func missingFieldsPrompt(templateName string, report *models.CompletenessReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Для документа «%s» не хватает данных (заполнено %d%%).\n", templateName, report.Completeness)
	sb.WriteString("Недостающие поля: ")
	sb.WriteString(strings.Join(report.MissingFields, ", "))
	sb.WriteString(".\n")
	for _, q := range report.SuggestedQuestions {
		sb.WriteString(q)
		sb.WriteString("\n")
	}
	return sb.String()
}

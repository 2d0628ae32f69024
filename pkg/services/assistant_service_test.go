package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/extractor"
	"github.com/opora-ai/docforge/pkg/llm"
	"github.com/opora-ai/docforge/pkg/models"
	"github.com/opora-ai/docforge/pkg/renderer"
	"github.com/opora-ai/docforge/pkg/scoring"
)

type fakeApplicationRepo struct {
	created []*models.Application
	err     error
}

func (f *fakeApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, app)
	return nil
}

func (f *fakeApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeApplicationRepo) ListByUser(ctx context.Context, userID string) ([]*models.Application, error) {
	return f.created, nil
}

type fakeComplaintRepo struct {
	created []*models.Complaint
	err     error
}

func (f *fakeComplaintRepo) Create(ctx context.Context, c *models.Complaint) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeComplaintRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeComplaintRepo) ListByCategory(ctx context.Context, category string) ([]*models.Complaint, error) {
	return f.created, nil
}

func (f *fakeComplaintRepo) ListByUser(ctx context.Context, userID string) ([]*models.Complaint, error) {
	return f.created, nil
}

type fakeDocumentRepo struct {
	created []*models.GeneratedDocument
	err     error
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *models.GeneratedDocument) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedDocument, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeDocumentRepo) ListByUser(ctx context.Context, userID string) ([]*models.GeneratedDocument, error) {
	return f.created, nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body, attachmentPath string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type testEnv struct {
	svc        AssistantService
	client     *llm.MockClient
	catalog    catalog.Service
	apps       *fakeApplicationRepo
	complaints *fakeComplaintRepo
	documents  *fakeDocumentRepo
	mail       *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	cat, err := catalog.NewService(t.TempDir(), logger)
	require.NoError(t, err)
	rend, err := renderer.NewService(cat, t.TempDir(), "http://localhost:8080", logger)
	require.NoError(t, err)

	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return "ответ ассистента", nil
		},
	}
	env := &testEnv{
		client:     client,
		catalog:    cat,
		apps:       &fakeApplicationRepo{},
		complaints: &fakeComplaintRepo{},
		documents:  &fakeDocumentRepo{},
		mail:       &fakeMailer{},
	}
	env.svc = NewAssistantService(
		client,
		cat,
		extractor.NewService(nil, logger),
		scoring.New(50, 5),
		rend,
		Records{
			Applications: env.apps,
			Complaints:   env.complaints,
			Documents:    env.documents,
		},
		env.mail,
		logger,
	)
	return env
}

func (e *testEnv) upload(t *testing.T, name, content string) *models.TemplateDescriptor {
	t.Helper()
	tpl, err := e.catalog.Upload(context.Background(), name, "", name+".txt", strings.NewReader(content))
	require.NoError(t, err)
	return tpl
}

func TestProcessMessage_Chat(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.ProcessMessage(context.Background(), "user-1", "Какие меры поддержки существуют?")
	require.NoError(t, err)
	assert.Equal(t, ActionChat, result.Action)
	assert.Equal(t, "ответ ассистента", result.Response)
	assert.Equal(t, 1, env.client.CompleteCalls)
}

func TestProcessMessage_ChatDegradesOnModelFailure(t *testing.T) {
	env := newTestEnv(t)
	env.client.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("upstream down")
	}

	result, err := env.svc.ProcessMessage(context.Background(), "user-1", "Привет!")
	require.NoError(t, err)
	assert.Equal(t, ActionChat, result.Action)
	assert.Contains(t, result.Response, "временно недоступен")
}

func TestProcessMessage_Analysis(t *testing.T) {
	env := newTestEnv(t)

	env.client.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		assert.Contains(t, system, "аналитик")
		return "ключевые выводы", nil
	}

	result, err := env.svc.ProcessMessage(context.Background(), "user-1", "Покажи анализ трендов рынка МСП")
	require.NoError(t, err)
	assert.Equal(t, ActionAnalysis, result.Action)
	assert.Equal(t, "ключевые выводы", result.Response)
}

func TestProcessMessage_ComplaintCaptured(t *testing.T) {
	env := newTestEnv(t)

	message := "Хочу подать жалобу, срочно! Чиновники игнорируют обращения. ФИО: Иванов Иван Иванович, email ivan@test.ru"
	result, err := env.svc.ProcessMessage(context.Background(), "user-1", message)
	require.NoError(t, err)

	assert.Equal(t, ActionComplaint, result.Action)
	require.Len(t, env.complaints.created, 1)
	c := env.complaints.created[0]
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, "Отсутствие реакции", c.Category)
	assert.Equal(t, "Высокий", c.Priority)
	assert.Equal(t, "Иванов Иван Иванович", c.FullName)
	assert.Equal(t, "ivan@test.ru", c.Email)
	assert.Contains(t, result.Response, "Высокий")
}

func TestProcessMessage_ComplaintStoreFailureIsAdvisory(t *testing.T) {
	env := newTestEnv(t)
	env.complaints.err = errors.New("sheet unavailable")

	result, err := env.svc.ProcessMessage(context.Background(), "user-1", "Подать жалобу: суть — отказ в услуге")
	require.NoError(t, err)
	assert.Equal(t, ActionComplaint, result.Action)
}

func TestProcessMessage_GeneratesDocumentWhenEligible(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "Анкета члена", "ФИО: {{full_name}}\nEmail: {{email}}")

	message := "Заполни анкету члена. Мое ФИО Иванов Иван Иванович, email ivan@test.ru"
	result, err := env.svc.ProcessMessage(context.Background(), "user-1", message)
	require.NoError(t, err)

	assert.Equal(t, ActionDocumentGenerated, result.Action)
	require.NotNil(t, result.Document)
	assert.Equal(t, 100, result.Document.Completeness)
	assert.Contains(t, result.Response, result.Document.DownloadURL)

	// Advisory records captured.
	require.Len(t, env.documents.created, 1)
	require.Len(t, env.apps.created, 1)
	assert.Equal(t, "Иванов Иван Иванович", env.apps.created[0].FullName)

	// Email was extracted, so the document is delivered.
	assert.Equal(t, []string{"ivan@test.ru"}, env.mail.sent)
	assert.Contains(t, result.Response, "Копия отправлена")
}

func TestProcessMessage_AsksForMissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "Анкета участника", "{{full_name}} {{email}} {{phone}} {{inn}}")

	result, err := env.svc.ProcessMessage(context.Background(), "user-1", "Создай анкету, меня зовут Иванов Иван Иванович")
	require.NoError(t, err)

	assert.Equal(t, ActionQuestions, result.Action)
	require.NotNil(t, result.Report)
	assert.Equal(t, 25, result.Report.Completeness)
	assert.Contains(t, result.Response, "Email")
	assert.Empty(t, env.documents.created)
}

func TestProcessMessage_OffersTemplatesWhenNoneMatch(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "Протокол собрания", "{{full_name}}")

	result, err := env.svc.ProcessMessage(context.Background(), "user-1", "Создай договор поставки")
	require.NoError(t, err)

	assert.Equal(t, ActionDocumentOffer, result.Action)
	assert.Contains(t, result.Response, "Протокол собрания")
}

func TestProcessMessage_EmailFailureOnlyAnnotates(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "Анкета члена", "{{full_name}} {{email}}")
	env.mail.err = errors.New("smtp refused")

	message := "Заполни анкету члена. Мое ФИО Иванов Иван Иванович, email ivan@test.ru"
	result, err := env.svc.ProcessMessage(context.Background(), "user-1", message)
	require.NoError(t, err)

	assert.Equal(t, ActionDocumentGenerated, result.Action)
	assert.Contains(t, result.Response, "Не удалось отправить")
}

func TestGenerateDirect_IgnoresThreshold(t *testing.T) {
	env := newTestEnv(t)
	tpl := env.upload(t, "Анкета участника", "{{full_name}} {{email}} {{phone}} {{inn}}")

	result, err := env.svc.GenerateDirect(context.Background(), "user-1", tpl.ID.String(), "меня зовут Иванов Иван Иванович")
	require.NoError(t, err)

	assert.Equal(t, ActionDocumentGenerated, result.Action)
	require.NotNil(t, result.Document)
	assert.Equal(t, 25, result.Document.Completeness)
}

func TestGenerateDirect_UnknownTemplate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GenerateDirect(context.Background(), "user-1", "несуществующий", "текст")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	tpl := env.upload(t, "Анкета члена", "{{full_name}} {{email}}")
	env.client.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		assert.Contains(t, prompt, "Анкета члена")
		assert.Contains(t, prompt, "Иванов")
		return "Предпросмотр: анкета на Иванова", nil
	}

	result, err := env.svc.Preview(context.Background(), tpl.ID.String(), map[string]string{"full_name": "Иванов Иван"})
	require.NoError(t, err)

	assert.Equal(t, "Предпросмотр: анкета на Иванова", result.Preview)
	assert.Equal(t, 50, result.Report.Completeness)
}

func TestPreview_ModelFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	tpl := env.upload(t, "Анкета члена", "{{full_name}}")
	env.client.CompleteFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("timeout")
	}

	result, err := env.svc.Preview(context.Background(), tpl.ID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Не удалось создать предпросмотр документа.", result.Preview)
}

package catalog

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/docx"
	"github.com/opora-ai/docforge/pkg/models"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return svc
}

func uploadText(t *testing.T, svc Service, name, content string) *models.TemplateDescriptor {
	t.Helper()
	tpl, err := svc.Upload(context.Background(), name, "", name+".txt", strings.NewReader(content))
	require.NoError(t, err)
	return tpl
}

func TestUpload_StoresFileAndMetadata(t *testing.T) {
	svc := newTestService(t)

	tpl := uploadText(t, svc, "Заявление на вступление", "Прошу принять {{full_name}}")
	assert.Equal(t, models.TemplateKindText, tpl.Kind)
	assert.NotEqual(t, uuid.Nil, tpl.ID)

	got, err := svc.Get(context.Background(), tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Name, got.Name)
	assert.Equal(t, tpl.Filename, got.Filename)
}

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Upload(context.Background(), "x", "", "macro.docm", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrTemplateUnreadable)
}

func TestList_NewestFirst(t *testing.T) {
	svc := newTestService(t)
	uploadText(t, svc, "Первый", "a")
	uploadText(t, svc, "Второй", "b")

	templates, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.False(t, templates[0].UploadedAt.Before(templates[1].UploadedAt))
}

func TestResolve_ByIDNameAndSubstring(t *testing.T) {
	svc := newTestService(t)
	tpl := uploadText(t, svc, "Анкета члена организации", "x")
	uploadText(t, svc, "Жалоба", "y")

	byID, err := svc.Resolve(context.Background(), tpl.ID.String())
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, byID.ID)

	byName, err := svc.Resolve(context.Background(), "анкета члена организации")
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, byName.ID)

	bySub, err := svc.Resolve(context.Background(), "анкета")
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, bySub.ID)

	_, err = svc.Resolve(context.Background(), "протокол")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestResolve_AmbiguousSubstring(t *testing.T) {
	svc := newTestService(t)
	uploadText(t, svc, "Заявление о приёме", "x")
	uploadText(t, svc, "Заявление об уходе", "y")

	_, err := svc.Resolve(context.Background(), "заявление")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestDelete_RemovesTemplate(t *testing.T) {
	svc := newTestService(t)
	tpl := uploadText(t, svc, "Справка", "x")

	require.NoError(t, svc.Delete(context.Background(), tpl.ID))

	_, err := svc.Get(context.Background(), tpl.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	templates, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestRequiredFields_TextPlaceholders(t *testing.T) {
	svc := newTestService(t)
	tpl := uploadText(t, svc, "Письмо",
		"От: {{FIO}}, контакт {{email}}\nНеизвестное поле: {{реквизит_банка}}\nПовтор: {{fio}}")

	set, err := svc.RequiredFields(tpl)
	require.NoError(t, err)

	// Alias normalized, duplicate collapsed, unknown token kept verbatim
	// after all known fields.
	assert.Equal(t, []string{"full_name", "email", "реквизит_банка"}, set.Keys())
	assert.Equal(t, "ФИО", set.Label("full_name"))
	assert.Equal(t, "реквизит_банка", set.Label("реквизит_банка"))
}

func TestRequiredFields_TableOrder(t *testing.T) {
	svc := newTestService(t)
	tpl := uploadText(t, svc, "Письмо", "{{phone}} {{full_name}} {{email}}")

	set, err := svc.RequiredFields(tpl)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name", "email", "phone"}, set.Keys())
}

func TestRequiredFields_DocxTemplate(t *testing.T) {
	svc := newTestService(t)

	dir := t.TempDir()
	src := dir + "/анкета.docx"
	body := "<?xml version=\"1.0\" encoding=\"UTF-8\" standalone=\"yes\"?>" +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>{{full_name}} / {{инн}}</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	require.NoError(t, docx.WriteDocument(src, body))

	f, err := os.Open(src)
	require.NoError(t, err)
	defer f.Close()

	tpl, err := svc.Upload(context.Background(), "Анкета", "", "анкета.docx", f)
	require.NoError(t, err)

	set, err := svc.RequiredFields(tpl)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name", "inn"}, set.Keys())
	assert.Equal(t, "ИНН", set.Label("inn"))
}

func TestRequiredFields_FallbackByCategory(t *testing.T) {
	svc := newTestService(t)

	tpl := uploadText(t, svc, "Жалоба на обслуживание", "текст без плейсхолдеров")
	set, err := svc.RequiredFields(tpl)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name", "email", "phone", "address"}, set.Keys())

	other := uploadText(t, svc, "Некий документ", "тоже без плейсхолдеров")
	otherSet, err := svc.RequiredFields(other)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name", "email", "phone", "organization"}, otherSet.Keys())
}

func TestRequiredFields_MissingFile(t *testing.T) {
	svc := newTestService(t)
	tpl := uploadText(t, svc, "Справка", "{{full_name}}")
	require.NoError(t, svc.Delete(context.Background(), tpl.ID))

	_, err := svc.RequiredFields(tpl)
	assert.ErrorIs(t, err, apperrors.ErrTemplateUnreadable)
}

func TestDetermineCategory(t *testing.T) {
	cases := map[string]models.DocumentCategory{
		"Заявление о вступлении": models.CategoryApplication,
		"Анкета участника":       models.CategoryQuestionnaire,
		"Договор поставки":       models.CategoryContract,
		"Жалоба в инспекцию":     models.CategoryComplaint,
		"Годовой отчёт":          models.CategoryReport,
		"Справка о доходах":      models.CategoryCertificate,
		"Протокол собрания":      models.CategoryProtocol,
		"Приложение 4":           models.CategoryOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, DetermineCategory(name), name)
	}
}

func TestQuestionFor(t *testing.T) {
	q := QuestionFor("email", "Анкета")
	assert.Contains(t, q, "email")
	assert.Contains(t, q, "Анкета")

	generic := QuestionFor("реквизит_банка", "Анкета")
	assert.Contains(t, generic, "реквизит_банка")
}

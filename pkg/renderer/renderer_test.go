package renderer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/docx"
	"github.com/opora-ai/docforge/pkg/models"
)

type fixture struct {
	catalog  catalog.Service
	renderer Service
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.NewService(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	dir := t.TempDir()
	r, err := NewService(cat, dir, "http://localhost:8080", zap.NewNop())
	require.NoError(t, err)
	return &fixture{catalog: cat, renderer: r, dir: dir}
}

func values(pairs map[string]string) models.FieldValues {
	out := make(models.FieldValues)
	for k, v := range pairs {
		out[k] = models.FieldValue{Field: k, Value: v, Confidence: 90, Provenance: models.ProvenanceRule}
	}
	return out
}

func TestRender_TextTemplate(t *testing.T) {
	f := newFixture(t)

	tpl, err := f.catalog.Upload(context.Background(), "Заявление", "",
		"заявление.txt", strings.NewReader("Прошу принять {{FIO}}.\nКонтакт: {{email}}, {{неизвестное}}"))
	require.NoError(t, err)

	doc, err := f.renderer.Render(tpl, values(map[string]string{
		"full_name": "Иванов Иван Иванович",
		"email":     "ivan@test.ru",
	}), "user-1")
	require.NoError(t, err)

	assert.Equal(t, tpl.ID, doc.TemplateID)
	assert.Contains(t, doc.DownloadURL, "http://localhost:8080/api/documents/download?file=")
	assert.True(t, strings.HasSuffix(doc.Path, ".docx"))

	text, err := docx.ExtractText(doc.Path)
	require.NoError(t, err)
	// Alias token resolved through the canonical key; unknown token empty.
	assert.Contains(t, text, "Прошу принять Иванов Иван Иванович")
	assert.Contains(t, text, "ivan@test.ru")
	assert.NotContains(t, text, "{{")
}

func TestRender_DocxPreservesStructure(t *testing.T) {
	f := newFixture(t)

	body := "<?xml version=\"1.0\" encoding=\"UTF-8\" standalone=\"yes\"?>" +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:tbl><w:tblPr/><w:tblGrid/>` +
		`<w:tr><w:tc><w:p><w:r><w:t>ФИО</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>{{full_name}}</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>` +
		documentClose

	src := filepath.Join(t.TempDir(), "анкета.docx")
	require.NoError(t, docx.WriteDocument(src, body))
	file, err := os.Open(src)
	require.NoError(t, err)
	defer file.Close()

	tpl, err := f.catalog.Upload(context.Background(), "Анкета", "", "анкета.docx", file)
	require.NoError(t, err)

	doc, err := f.renderer.Render(tpl, values(map[string]string{"full_name": "Петров Пётр"}), "user-2")
	require.NoError(t, err)

	stats, err := docx.ReadStats(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, docx.Stats{Tables: 1, Rows: 1, Cells: 2}, stats)

	// Rendered output declares no further requirements.
	text, err := docx.ExtractText(doc.Path)
	require.NoError(t, err)
	assert.Contains(t, text, "Петров Пётр")
	assert.NotContains(t, text, "{{")
}

const documentClose = `</w:body></w:document>`

func TestRender_CollisionResistantNames(t *testing.T) {
	f := newFixture(t)

	tpl, err := f.catalog.Upload(context.Background(), "Справка", "", "справка.txt", strings.NewReader("{{full_name}}"))
	require.NoError(t, err)

	v := values(map[string]string{"full_name": "x"})
	a, err := f.renderer.Render(tpl, v, "user-1")
	require.NoError(t, err)
	b, err := f.renderer.Render(tpl, v, "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	_, err = os.Stat(a.Path)
	assert.NoError(t, err)
	_, err = os.Stat(b.Path)
	assert.NoError(t, err)
}

func TestRender_MissingTemplateFile(t *testing.T) {
	f := newFixture(t)

	tpl, err := f.catalog.Upload(context.Background(), "Справка", "", "справка.txt", strings.NewReader("{{full_name}}"))
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(context.Background(), tpl.ID))

	_, err = f.renderer.Render(tpl, values(nil), "user-1")
	assert.ErrorIs(t, err, apperrors.ErrRenderFailure)
}

func TestArtifactPath(t *testing.T) {
	f := newFixture(t)

	name := "doc.docx"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte("x"), 0o644))

	path, err := f.renderer.ArtifactPath(name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, name), path)

	_, err = f.renderer.ArtifactPath("../../../etc/passwd")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.renderer.ArtifactPath("missing.docx")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Анкета_члена", sanitizeName("Анкета члена"))
	assert.Equal(t, "document", sanitizeName("///"))
	assert.Equal(t, "a_b", sanitizeName("a/b"))
}

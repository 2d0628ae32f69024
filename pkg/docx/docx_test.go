package docx

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture writes a docx whose body has a paragraph, a 2x2 table with a
// token in a cell, and a token split across two runs, the way Word fragments
// text it has touched.
func buildFixture(t *testing.T) string {
	t.Helper()

	body := documentHeader +
		`<w:p><w:r><w:t>Заявление от {{full_name}}</w:t></w:r></w:p>` +
		`<w:tbl><w:tblPr/><w:tblGrid/>` +
		`<w:tr><w:tc><w:p><w:r><w:t>Email</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>{{email}}</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>Телефон</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>{{phone}}</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>` +
		`<w:p><w:r><w:t>{{orga</w:t></w:r><w:r><w:t>nization}}</w:t></w:r></w:p>` +
		documentFooter

	path := filepath.Join(t.TempDir(), "fixture.docx")
	require.NoError(t, WriteDocument(path, body))
	return path
}

func TestExtractText_AllRegions(t *testing.T) {
	path := buildFixture(t)

	text, err := ExtractText(path)
	require.NoError(t, err)

	assert.Contains(t, text, "Заявление от {{full_name}}")
	assert.Contains(t, text, "{{email}}")
	assert.Contains(t, text, "{{phone}}")
	// Split runs concatenate back into one token.
	assert.Contains(t, text, "{{organization}}")
	// Adjacent cells must not fuse.
	assert.NotContains(t, text, "Email{{email}}")
}

func TestRender_SubstitutesAndPreservesStructure(t *testing.T) {
	src := buildFixture(t)
	dst := filepath.Join(t.TempDir(), "out.docx")

	values := map[string]string{
		"full_name":    "Иванов Иван Иванович",
		"email":        "ivan@test.ru",
		"organization": "ООО \"Ромашка\" <и партнёры>",
	}
	err := Render(src, dst, func(name string) string { return values[name] })
	require.NoError(t, err)

	text, err := ExtractText(dst)
	require.NoError(t, err)

	assert.Contains(t, text, "Заявление от Иванов Иван Иванович")
	assert.Contains(t, text, "ivan@test.ru")
	// Split-run token resolved too.
	assert.Contains(t, text, `ООО "Ромашка" <и партнёры>`)
	// Unresolved token renders empty, not as a literal placeholder.
	assert.NotContains(t, text, "{{")
	assert.NotContains(t, text, "}}")

	srcStats, err := ReadStats(src)
	require.NoError(t, err)
	dstStats, err := ReadStats(dst)
	require.NoError(t, err)
	assert.Equal(t, srcStats, dstStats)
	assert.Equal(t, Stats{Tables: 1, Rows: 2, Cells: 4}, dstStats)
}

func TestRender_Deterministic(t *testing.T) {
	src := buildFixture(t)
	dir := t.TempDir()
	resolve := func(name string) string { return "x" }

	a := filepath.Join(dir, "a.docx")
	b := filepath.Join(dir, "b.docx")
	require.NoError(t, Render(src, a, resolve))
	require.NoError(t, Render(src, b, resolve))

	ta, err := ExtractText(a)
	require.NoError(t, err)
	tb, err := ExtractText(b)
	require.NoError(t, err)
	assert.Equal(t, ta, tb)
}

func TestTokenName(t *testing.T) {
	cases := map[string]string{
		"{{full_name}}":  "full_name",
		"{{ FIO }}":      "fio",
		"{{Фио}}":        "фио",
		"{{bad name}}":   "",
		"{{}}":           "",
		"{{semi:colon}}": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, TokenName(in), in)
	}
}

func TestWriteTextDocument_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.docx")
	text := "Первая строка\n\nТретья строка"
	require.NoError(t, WriteTextDocument(path, text))

	got, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, got, "Первая строка")
	assert.Contains(t, got, "Третья строка")
	assert.True(t, strings.Index(got, "Первая") < strings.Index(got, "Третья"))
}

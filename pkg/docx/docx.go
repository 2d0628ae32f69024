// Package docx reads and patches OOXML (.docx) containers at the zip-part
// level. Text is harvested from, and placeholder tokens substituted in, the
// document body, headers and footers; every other part of the container is
// carried over with its original compressed bytes untouched, which is what
// keeps tables, borders, styles and embedded shapes intact across a render.
package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// tokenPattern matches a {{token}} placeholder in raw part XML. Word splits
// text into runs at arbitrary points, so the braces and the name may be
// interleaved with run/format tags; the pattern tolerates any tags between
// the characters of the token.
var tokenPattern = regexp.MustCompile(`\{(?:<[^>]*>)*\{(?:[^{}<]|<[^>]*>)*\}(?:<[^>]*>)*\}`)

// xmlTagPattern strips element tags when recovering token names and text.
var xmlTagPattern = regexp.MustCompile(`<[^>]*>`)

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// isTextPart reports whether the named zip entry carries document text.
// Body, headers and footers all count: a token inside a table cell of a
// header is as much a field requirement as one in the body.
func isTextPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	return (strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")) &&
		strings.HasSuffix(name, ".xml")
}

// ExtractText returns the visible text of all structural regions of the
// document, with paragraph breaks rendered as newlines and table cells
// separated by spaces.
func ExtractText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer r.Close()

	var sb strings.Builder
	found := false
	for _, f := range r.File {
		if !isTextPart(f.Name) {
			continue
		}
		found = true
		raw, err := readPart(f)
		if err != nil {
			return "", err
		}
		sb.WriteString(partText(raw))
	}

	if !found {
		return "", fmt.Errorf("no document part in %s", path)
	}
	return sb.String(), nil
}

// partText strips a part's XML down to its text content.
func partText(raw string) string {
	// Paragraph ends become newlines, cell ends become spaces, so tokens
	// in adjacent cells never fuse together.
	raw = strings.ReplaceAll(raw, "</w:p>", "</w:p>\n")
	raw = strings.ReplaceAll(raw, "</w:tc>", "</w:tc> ")
	return xmlUnescaper.Replace(xmlTagPattern.ReplaceAllString(raw, ""))
}

// Render copies the container at src to dst, substituting placeholder tokens
// in every text part. resolve receives the lower-cased token name and returns
// the replacement text; unresolved tokens must yield "" so no literal
// placeholder survives in the output. Untouched parts are copied with their
// original compressed bytes.
func Render(src, dst string, resolve func(name string) string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open docx %s: %w", src, err)
	}
	defer r.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, f := range r.File {
		if !isTextPart(f.Name) {
			if err := w.Copy(f); err != nil {
				return fmt.Errorf("copy part %s: %w", f.Name, err)
			}
			continue
		}

		raw, err := readPart(f)
		if err != nil {
			return err
		}

		patched := substituteTokens(raw, resolve)

		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create part %s: %w", f.Name, err)
		}
		if _, err := io.WriteString(fw, patched); err != nil {
			return fmt.Errorf("write part %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", dst, err)
	}
	return nil
}

// substituteTokens replaces every placeholder in a part's XML. A match that
// spans a paragraph boundary is left alone: that is not a token, it is two
// stray brace pairs in different paragraphs.
func substituteTokens(raw string, resolve func(name string) string) string {
	return tokenPattern.ReplaceAllStringFunc(raw, func(match string) string {
		if strings.Contains(match, "</w:p>") || strings.Contains(match, "<w:p ") || strings.Contains(match, "<w:p>") {
			return match
		}
		name := TokenName(xmlTagPattern.ReplaceAllString(match, ""))
		if name == "" {
			return match
		}
		return xmlEscaper.Replace(resolve(name))
	})
}

// TokenName normalizes the inner text of a {{token}} to its lower-cased name.
// Returns "" when the text is not a well-formed token name.
func TokenName(inner string) string {
	name := strings.TrimSpace(strings.Trim(inner, "{}"))
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, r := range name {
		if !isTokenRune(r) {
			return ""
		}
	}
	return strings.ToLower(name)
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
		return true
	}
	return false
}

func readPart(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read part %s: %w", f.Name, err)
	}
	return string(data), nil
}

// Stats summarizes the table structure of a document body. Used to verify
// that a render leaves structure untouched.
type Stats struct {
	Tables int
	Rows   int
	Cells  int
}

// ReadStats counts tables, rows and cells in the document body.
func ReadStats(path string) (Stats, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		raw, err := readPart(f)
		if err != nil {
			return Stats{}, err
		}
		return Stats{
			Tables: countElements(raw, "w:tbl"),
			Rows:   countElements(raw, "w:tr"),
			Cells:  countElements(raw, "w:tc"),
		}, nil
	}
	return Stats{}, fmt.Errorf("no document part in %s", path)
}

// countElements counts opening tags of the exact element name, so "w:tbl"
// does not also match "w:tblPr" or "w:tblGrid".
func countElements(raw, element string) int {
	return strings.Count(raw, "<"+element+">") + strings.Count(raw, "<"+element+" ")
}

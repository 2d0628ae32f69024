package docx

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentFooter = `</w:body></w:document>`

// WriteTextDocument writes text as a minimal docx, one paragraph per line.
// Used to wrap plain-text template output into the same container format
// the rich-document path produces.
func WriteTextDocument(dst, text string) error {
	var body strings.Builder
	body.WriteString(documentHeader)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			body.WriteString("<w:p/>")
			continue
		}
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(xmlEscaper.Replace(line))
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(documentFooter)

	return WriteDocument(dst, body.String())
}

// WriteDocument writes a docx container around a complete document.xml body.
func WriteDocument(dst, documentXML string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML},
	}
	for _, p := range parts {
		fw, err := w.Create(p.name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", p.name, err)
		}
		if _, err := fw.Write([]byte(p.content)); err != nil {
			return fmt.Errorf("write part %s: %w", p.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", dst, err)
	}
	return nil
}

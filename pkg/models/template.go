package models

import (
	"time"

	"github.com/google/uuid"
)

// TemplateKind identifies the container format of an uploaded template.
type TemplateKind string

const (
	// TemplateKindDocx is a rich OOXML document with structure (tables,
	// headers, styled regions) that must survive rendering intact.
	TemplateKindDocx TemplateKind = "docx"

	// TemplateKindText is a plain UTF-8 text file with placeholder tokens.
	TemplateKindText TemplateKind = "txt"
)

// TemplateDescriptor is the metadata record for an uploaded document template.
// Immutable once uploaded; the source file lives in the catalog's template
// directory under the descriptor's ID.
type TemplateDescriptor struct {
	ID          uuid.UUID    `json:"template_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Filename    string       `json:"filename"`      // stored filename (<id>.<ext>)
	SourceName  string       `json:"original_name"` // filename at upload time
	Kind        TemplateKind `json:"file_type"`
	UploadedAt  time.Time    `json:"upload_date"`
}

// DocumentCategory classifies a template by its display name.
type DocumentCategory string

const (
	CategoryApplication   DocumentCategory = "заявление"
	CategoryQuestionnaire DocumentCategory = "анкета"
	CategoryContract      DocumentCategory = "договор"
	CategoryComplaint     DocumentCategory = "жалоба"
	CategoryReport        DocumentCategory = "отчет"
	CategoryCertificate   DocumentCategory = "справка"
	CategoryProtocol      DocumentCategory = "протокол"
	CategoryOther         DocumentCategory = "другое"
)

package models

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedDocument is the output artifact of a render. Ownership passes to
// the caller, which persists the metadata record.
type GeneratedDocument struct {
	ID           uuid.UUID   `json:"id"`
	TemplateID   uuid.UUID   `json:"template_id"`
	TemplateName string      `json:"template_name"`
	UserID       string      `json:"user_id"`
	Path         string      `json:"filepath"`
	DownloadURL  string      `json:"download_url"`
	Completeness int         `json:"completeness_score"`
	Confidence   int         `json:"confidence_score"`
	Quality      DataQuality `json:"data_quality"`
	CreatedAt    time.Time   `json:"created_at"`
}

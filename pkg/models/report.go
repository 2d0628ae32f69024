package models

// DataQuality is the score-banded tier of a completeness report.
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent" // >= 90
	QualityGood      DataQuality = "good"      // >= 70
	QualityFair      DataQuality = "fair"      // >= 50
	QualityPoor      DataQuality = "poor"
)

// CompletenessReport is the transient result of scoring an extracted field
// map against a template's required fields. Recomputed on every extraction
// pass, never persisted.
type CompletenessReport struct {
	Completeness       int         `json:"completeness_score"` // 0-100
	Confidence         int         `json:"confidence_score"`   // 0-100
	Quality            DataQuality `json:"data_quality"`
	FilledFields       []string    `json:"filled_fields"`  // labels, declared order
	MissingFields      []string    `json:"missing_fields"` // labels, declared order
	MissingKeys        []string    `json:"-"`              // canonical keys, declared order
	GenerationEligible bool        `json:"generation_eligible"`
	SuggestedQuestions []string    `json:"suggested_questions"`
}

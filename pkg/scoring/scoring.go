// Package scoring measures how ready an extracted field map is for
// document generation. Reports are pure functions of their inputs and are
// recomputed on every pass rather than stored.
package scoring

import (
	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/models"
)

// Scorer builds completeness reports.
type Scorer struct {
	threshold     int // minimum completeness for generation
	questionLimit int // max suggested questions per report
}

// New creates a scorer. threshold is the completeness percentage at which a
// document may be generated; questionLimit caps suggested questions.
func New(threshold, questionLimit int) *Scorer {
	return &Scorer{threshold: threshold, questionLimit: questionLimit}
}

// Analyze scores values against the template's required fields. Filled and
// missing lists follow the required set's declared order; suggested
// questions cover the highest-priority missing fields up to the limit.
func (s *Scorer) Analyze(values models.FieldValues, required *catalog.FieldSet, documentName string) *models.CompletenessReport {
	report := &models.CompletenessReport{
		FilledFields:       []string{},
		MissingFields:      []string{},
		MissingKeys:        []string{},
		SuggestedQuestions: []string{},
	}
	if required == nil || required.Len() == 0 {
		report.Quality = models.QualityPoor
		report.Confidence = minInt(report.Completeness+10, 100)
		return report
	}

	filled := 0
	for _, key := range required.Keys() {
		if v, ok := values[key]; ok && v.Value != "" {
			filled++
			report.FilledFields = append(report.FilledFields, required.Label(key))
			continue
		}
		report.MissingFields = append(report.MissingFields, required.Label(key))
		report.MissingKeys = append(report.MissingKeys, key)
	}

	report.Completeness = filled * 100 / required.Len()
	report.Confidence = minInt(report.Completeness+10, 100)
	report.Quality = qualityFor(report.Completeness)
	report.GenerationEligible = report.Completeness >= s.threshold

	for i, key := range report.MissingKeys {
		if i >= s.questionLimit {
			break
		}
		report.SuggestedQuestions = append(report.SuggestedQuestions, catalog.QuestionFor(key, documentName))
	}
	return report
}

// WithConfidence returns a copy of the report carrying a model-reported
// confidence instead of the locally derived one.
func WithConfidence(report *models.CompletenessReport, confidence int) *models.CompletenessReport {
	out := *report
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	out.Confidence = confidence
	return &out
}

func qualityFor(score int) models.DataQuality {
	switch {
	case score >= 90:
		return models.QualityExcellent
	case score >= 70:
		return models.QualityGood
	case score >= 50:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

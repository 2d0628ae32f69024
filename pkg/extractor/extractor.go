// Package extractor turns free-form user text into structured field values.
// A deterministic rule pass runs first and always; a model-assisted pass
// then fills only the required fields the rules left unset. Model failures
// degrade the result to the deterministic tier instead of failing the
// pipeline.
package extractor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/llm"
	"github.com/opora-ai/docforge/pkg/models"
)

const (
	// ruleConfidence is assigned to every deterministic hit: the patterns
	// either match the declared shape or do not match at all.
	ruleConfidence = 90
)

// Service extracts field values from user messages.
type Service interface {
	// Extract runs both passes over the text. The required set scopes the
	// model-assisted pass; the rule pass keeps every field it recognizes,
	// required or not, since auxiliary parts feed composite values.
	Extract(ctx context.Context, text string, required *catalog.FieldSet) (models.FieldValues, error)
}

type service struct {
	client llm.Client
	logger *zap.Logger
}

// NewService creates the extractor. client may be nil, which disables the
// model-assisted pass.
func NewService(client llm.Client, logger *zap.Logger) Service {
	return &service{
		client: client,
		logger: logger.Named("extractor"),
	}
}

func (s *service) Extract(ctx context.Context, text string, required *catalog.FieldSet) (models.FieldValues, error) {
	values := s.rulePass(text)

	missing := missingFields(values, required)
	if len(missing) == 0 || s.client == nil {
		return values, nil
	}

	extracted, err := s.client.ExtractFields(ctx, text, missing)
	if err != nil {
		// Degrade to deterministic-only results.
		s.logger.Warn("model-assisted extraction unavailable",
			zap.Int("missing_fields", len(missing)), zap.Error(err))
		return values, nil
	}

	for key, field := range extracted {
		if _, ok := values[key]; ok {
			continue
		}
		value := normalizeValue(field.Value)
		if value == "" || !validValue(key, value) {
			continue
		}
		values[key] = models.FieldValue{
			Field:      key,
			Value:      value,
			Confidence: clampConfidence(field.Confidence),
			Provenance: models.ProvenanceModel,
		}
	}
	return values, nil
}

// rulePass runs the deterministic layers in precedence order: direct
// full-name declarations, conversational name parts, labeled questionnaire
// values, bare shapes, then the composite assemblies.
func (s *service) rulePass(text string) models.FieldValues {
	values := make(models.FieldValues)

	set := func(key, raw string) {
		if _, ok := values[key]; ok {
			return
		}
		value := normalizeValue(raw)
		if value == "" || !validValue(key, value) {
			return
		}
		values[key] = models.FieldValue{
			Field:      key,
			Value:      value,
			Confidence: ruleConfidence,
			Provenance: models.ProvenanceRule,
		}
	}

	for _, r := range fullNameRules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			set(r.key, m[1])
		}
	}
	for _, r := range namePartRules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			set(r.key, m[1])
		}
	}
	for key, value := range labeledValues(text) {
		set(key, value)
	}
	for _, r := range bareShapeRules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			set(r.key, m[1])
		}
	}

	s.assembleFullName(values)
	s.assembleAddress(values)
	return values
}

// assembleFullName builds full_name out of individually captured parts when
// no direct declaration was found.
func (s *service) assembleFullName(values models.FieldValues) {
	if _, ok := values["full_name"]; ok {
		return
	}
	last, hasLast := values["last_name"]
	first, hasFirst := values["first_name"]
	if !hasLast || !hasFirst {
		return
	}
	parts := []string{last.Value, first.Value}
	if middle, ok := values["middle_name"]; ok {
		parts = append(parts, middle.Value)
	}
	values["full_name"] = models.FieldValue{
		Field:      "full_name",
		Value:      strings.Join(parts, " "),
		Confidence: ruleConfidence,
		Provenance: models.ProvenanceRule,
	}
}

// assembleAddress joins captured address components into one line in the
// conventional "регион, г. X, ул. Y, д. Z, кв. W" form.
func (s *service) assembleAddress(values models.FieldValues) {
	if _, ok := values["address"]; ok {
		return
	}
	var parts []string
	if v, ok := values["region"]; ok {
		parts = append(parts, v.Value)
	}
	if v, ok := values["city"]; ok {
		parts = append(parts, "г. "+v.Value)
	}
	if v, ok := values["street"]; ok {
		parts = append(parts, "ул. "+v.Value)
	}
	if v, ok := values["house"]; ok {
		house := "д. " + v.Value
		if apt, ok := values["apartment"]; ok {
			house += ", кв. " + apt.Value
		}
		parts = append(parts, house)
	}
	if len(parts) < 2 {
		return
	}
	values["address"] = models.FieldValue{
		Field:      "address",
		Value:      strings.Join(parts, ", "),
		Confidence: ruleConfidence,
		Provenance: models.ProvenanceRule,
	}
}

func missingFields(values models.FieldValues, required *catalog.FieldSet) []llm.FieldSpec {
	if required == nil {
		return nil
	}
	var missing []llm.FieldSpec
	for _, key := range required.Keys() {
		if _, ok := values[key]; ok {
			continue
		}
		missing = append(missing, llm.FieldSpec{Key: key, Label: required.Label(key)})
	}
	return missing
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

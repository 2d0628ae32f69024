package models

// FieldKind is the input kind of a document field.
type FieldKind string

const (
	FieldKindText   FieldKind = "text"
	FieldKindEmail  FieldKind = "email"
	FieldKindPhone  FieldKind = "tel"
	FieldKindDate   FieldKind = "date"
	FieldKindNumber FieldKind = "number"
)

// Provenance records which extraction tier produced a slot value.
type Provenance string

const (
	// ProvenanceRule marks a value produced by the deterministic rule pass.
	ProvenanceRule Provenance = "rule"

	// ProvenanceModel marks a value inferred by the model-assisted pass.
	ProvenanceModel Provenance = "model"

	// ProvenanceUser marks a value the user supplied directly while
	// answering an autofill question.
	ProvenanceUser Provenance = "user"
)

// FieldValue is a single extracted slot value.
type FieldValue struct {
	Field      string     `json:"field"`
	Value      string     `json:"value"`
	Confidence int        `json:"confidence"` // 0-100
	Provenance Provenance `json:"provenance"`
}

// FieldValues maps canonical field keys to extracted values. Keys are unique;
// later extraction passes overwrite earlier values for the same key.
type FieldValues map[string]FieldValue

// Plain flattens the value map to field -> raw string, dropping metadata.
func (fv FieldValues) Plain() map[string]string {
	out := make(map[string]string, len(fv))
	for k, v := range fv {
		out[k] = v.Value
	}
	return out
}

// Question is one follow-up question emitted during an autofill round.
type Question struct {
	ID    string    `json:"id"`
	Field string    `json:"field"`
	Label string    `json:"label"`
	Text  string    `json:"question"`
	Kind  FieldKind `json:"type"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of an autofill session.
type SessionState string

const (
	StateDocumentSelection SessionState = "document_selection"
	StateAnalysisComplete  SessionState = "analysis_complete"
	StateCollectingData    SessionState = "collecting_data"
	StateReadyToCreate     SessionState = "ready_to_create"
	StateCompleted         SessionState = "completed"
	StateCancelled         SessionState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// AutofillSession is the per-user state of a multi-turn document autofill.
// Values accumulate across rounds: later answers never erase earlier ones
// except by overwriting the same key.
type AutofillSession struct {
	ID                uuid.UUID
	UserID            string
	State             SessionState
	Template          *TemplateDescriptor // nil until a document is selected
	Values            FieldValues
	QuestionsAsked    []string           // question ids, in emission order
	QuestionsAnswered []string           // question ids, each at most once
	Result            *GeneratedDocument // set on completion
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Answered reports whether the question id has already been answered.
func (s *AutofillSession) Answered(questionID string) bool {
	for _, id := range s.QuestionsAnswered {
		if id == questionID {
			return true
		}
	}
	return false
}

// Asked reports whether the question id was emitted in any round.
func (s *AutofillSession) Asked(questionID string) bool {
	for _, id := range s.QuestionsAsked {
		if id == questionID {
			return true
		}
	}
	return false
}

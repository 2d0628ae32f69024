package apperrors

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrTemplateUnreadable is returned when a template file is missing or is
	// not one of the supported kinds. Fatal for the operation that hit it.
	ErrTemplateUnreadable = errors.New("template unreadable")

	// ErrDocumentNotFound is returned when a document selection does not
	// resolve to any known template. Recoverable: caller should re-prompt.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnknownQuestion is returned when an answer references a question id
	// that was never asked in the session. Session state is not mutated.
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrExtractionUnavailable marks a failed model-assisted extraction pass.
	// Never fatal: the pipeline degrades to deterministic-only results.
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrRenderFailure is returned when template substitution or artifact
	// writing fails. Fatal for that generation attempt only.
	ErrRenderFailure = errors.New("render failure")

	// ErrSessionNotFound is returned when no active autofill session exists
	// for the user.
	ErrSessionNotFound = errors.New("autofill session not found")

	// ErrInvalidState is returned when a session operation is called in a
	// lifecycle state that does not permit it.
	ErrInvalidState = errors.New("invalid session state")
)

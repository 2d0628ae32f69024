package models

import (
	"time"

	"github.com/google/uuid"
)

// Application is the advisory record saved after a document generation.
type Application struct {
	ID           uuid.UUID
	UserID       string
	FullName     string
	Email        string
	Phone        string
	Organization string
	TemplateName string
	DocumentPath string
	Completeness int
	Confidence   int
	Quality      DataQuality
	CreatedAt    time.Time
}

// Complaint is a captured user complaint with keyword-derived classification.
type Complaint struct {
	ID        uuid.UUID
	UserID    string
	FullName  string
	Email     string
	Phone     string
	Text      string
	Category  string
	Priority  string
	CreatedAt time.Time
}

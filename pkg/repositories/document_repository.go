package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/database"
	"github.com/opora-ai/docforge/pkg/models"
)

// DocumentRepository provides data access for generated document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.GeneratedDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedDocument, error)
	ListByUser(ctx context.Context, userID string) ([]*models.GeneratedDocument, error)
}

type documentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *database.DB) DocumentRepository {
	return &documentRepository{db: db}
}

var _ DocumentRepository = (*documentRepository)(nil)

func (r *documentRepository) Create(ctx context.Context, doc *models.GeneratedDocument) error {
	query := `
		INSERT INTO generated_documents (
			id, template_id, template_name, user_id, filepath,
			download_url, completeness_score, confidence_score,
			data_quality, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		doc.ID,
		doc.TemplateID,
		doc.TemplateName,
		doc.UserID,
		doc.Path,
		doc.DownloadURL,
		doc.Completeness,
		doc.Confidence,
		doc.Quality,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create generated document record: %w", err)
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedDocument, error) {
	query := `
		SELECT id, template_id, template_name, user_id, filepath,
		       download_url, completeness_score, confidence_score,
		       data_quality, created_at
		FROM generated_documents
		WHERE id = $1`

	var doc models.GeneratedDocument
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.TemplateID, &doc.TemplateName, &doc.UserID, &doc.Path,
		&doc.DownloadURL, &doc.Completeness, &doc.Confidence,
		&doc.Quality, &doc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generated document: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) ListByUser(ctx context.Context, userID string) ([]*models.GeneratedDocument, error) {
	query := `
		SELECT id, template_id, template_name, user_id, filepath,
		       download_url, completeness_score, confidence_score,
		       data_quality, created_at
		FROM generated_documents
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.GeneratedDocument
	for rows.Next() {
		var doc models.GeneratedDocument
		if err := rows.Scan(
			&doc.ID, &doc.TemplateID, &doc.TemplateName, &doc.UserID, &doc.Path,
			&doc.DownloadURL, &doc.Completeness, &doc.Confidence,
			&doc.Quality, &doc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generated document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generated documents: %w", err)
	}
	return docs, nil
}

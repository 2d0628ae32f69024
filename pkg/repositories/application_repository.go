// Package repositories provides Postgres data access for the advisory
// records the assistant keeps: applications, complaints and generated
// document metadata. All writes are advisory; callers treat failures as
// log-worthy, not fatal.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/database"
	"github.com/opora-ai/docforge/pkg/models"
)

// ApplicationRepository provides data access for membership applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Application, error)
}

type applicationRepository struct {
	db *database.DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *database.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

var _ ApplicationRepository = (*applicationRepository)(nil)

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO applications (
			id, user_id, full_name, email, phone, organization,
			template_name, document_path, completeness_score,
			confidence_score, data_quality, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		app.ID,
		app.UserID,
		app.FullName,
		app.Email,
		app.Phone,
		app.Organization,
		app.TemplateName,
		app.DocumentPath,
		app.Completeness,
		app.Confidence,
		app.Quality,
		app.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := `
		SELECT id, user_id, full_name, email, phone, organization,
		       template_name, document_path, completeness_score,
		       confidence_score, data_quality, created_at
		FROM applications
		WHERE id = $1`

	var app models.Application
	err := r.db.QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.UserID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Organization,
		&app.TemplateName,
		&app.DocumentPath,
		&app.Completeness,
		&app.Confidence,
		&app.Quality,
		&app.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Application, error) {
	query := `
		SELECT id, user_id, full_name, email, phone, organization,
		       template_name, document_path, completeness_score,
		       confidence_score, data_quality, created_at
		FROM applications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(
			&app.ID,
			&app.UserID,
			&app.FullName,
			&app.Email,
			&app.Phone,
			&app.Organization,
			&app.TemplateName,
			&app.DocumentPath,
			&app.Completeness,
			&app.Confidence,
			&app.Quality,
			&app.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, &app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}
